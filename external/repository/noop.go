package repository

import (
	"context"
	"log/slog"

	"github.com/oliverbhull/memo-stt/internal/repository"
)

// NoopRepository stands in when no database is configured. Inserts are
// logged at debug and listing returns nothing.
type NoopRepository struct{}

func NewNoopRepository() repository.Repository {
	return &NoopRepository{}
}

func (r *NoopRepository) InsertRecording(_ context.Context, input repository.InsertRecordingInput) error {
	slog.Debug("history disabled, skipping recording insert", "id", input.ID, "status", string(input.Status))
	return nil
}

func (r *NoopRepository) ListRecentRecordings(context.Context, int) ([]repository.Recording, error) {
	return nil, nil
}
