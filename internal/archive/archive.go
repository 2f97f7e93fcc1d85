// Package archive defines the raw-audio retention contract.
package archive

import (
	"context"

	"github.com/oliverbhull/memo-stt/internal/audio"
)

// Archiver persists a finished recording's PCM and returns where it was
// written. Implementations return an empty path when archiving is
// disabled.
type Archiver interface {
	Save(ctx context.Context, sessionID string, buf *audio.Buffer) (string, error)
}
