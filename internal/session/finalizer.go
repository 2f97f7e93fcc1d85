package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oliverbhull/memo-stt/internal/archive"
	"github.com/oliverbhull/memo-stt/internal/audio"
	"github.com/oliverbhull/memo-stt/internal/config"
	"github.com/oliverbhull/memo-stt/internal/notify"
	"github.com/oliverbhull/memo-stt/internal/repository"
	"github.com/oliverbhull/memo-stt/internal/transcriber"
	"github.com/oliverbhull/memo-stt/internal/webhook"
)

const finalizeTimeout = 2 * time.Minute

// FinishedRecording is one sealed recording handed off for processing.
type FinishedRecording struct {
	SessionID        string
	Source           config.InputMode
	DeviceName       string
	StartedAt        time.Time
	EndedAt          time.Time
	GapFilledSamples int
	Buffer           *audio.Buffer
}

// Finalizer processes a finished recording end to end. Implementations
// must be safe to call from a goroutine while the recorder is already
// accepting the next session.
type Finalizer interface {
	Finalize(ctx context.Context, rec FinishedRecording)
}

// Pipeline is the production finalizer: recognize, archive, persist,
// post, notify. Every downstream failure is logged and skipped; one
// broken collaborator never loses the rest of the recording's outputs.
type Pipeline struct {
	cfg      *config.Config
	stt      transcriber.Transcriber
	repo     repository.Repository
	sender   webhook.Sender
	archiver archive.Archiver
	notifier notify.Notifier
}

func NewPipeline(cfg *config.Config, stt transcriber.Transcriber, repo repository.Repository, sender webhook.Sender, archiver archive.Archiver, notifier notify.Notifier) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		stt:      stt,
		repo:     repo,
		sender:   sender,
		archiver: archiver,
		notifier: notifier,
	}
}

func (p *Pipeline) Finalize(ctx context.Context, rec FinishedRecording) {
	ctx, cancel := context.WithTimeout(ctx, finalizeTimeout)
	defer cancel()

	slog.Info("finalizing recording",
		"session_id", rec.SessionID,
		"source", string(rec.Source),
		"duration", rec.Buffer.Duration().String(),
		"partial", rec.Buffer.Partial)

	archivePath, err := p.archiver.Save(ctx, rec.SessionID, rec.Buffer)
	if err != nil {
		slog.Error("failed to archive recording", "error", err, "session_id", rec.SessionID)
	}

	text, err := p.stt.Transcribe(ctx, transcriber.Request{
		SessionID:  rec.SessionID,
		Buffer:     rec.Buffer,
		Language:   p.cfg.Language,
		Vocabulary: p.cfg.Vocabulary,
	})
	noSpeech := errors.Is(err, transcriber.ErrNoSpeech)
	if err != nil && !noSpeech {
		slog.Error("transcription failed", "error", err, "session_id", rec.SessionID)
	}

	status := repository.RecordingStatusCompleted
	if rec.Buffer.Partial {
		status = repository.RecordingStatusPartial
	}
	if err := p.repo.InsertRecording(ctx, repository.InsertRecordingInput{
		ID:          rec.SessionID,
		Source:      string(rec.Source),
		DeviceName:  rec.DeviceName,
		StartedAt:   rec.StartedAt,
		EndedAt:     rec.EndedAt,
		DurationMS:  rec.Buffer.Duration().Milliseconds(),
		SampleCount: len(rec.Buffer.Samples),
		Status:      status,
		Transcript:  text,
	}); err != nil {
		slog.Error("failed to persist recording", "error", err, "session_id", rec.SessionID)
	}

	if text == "" {
		slog.Info("no transcript produced, skipping delivery", "session_id", rec.SessionID)
		return
	}

	if err := p.sender.SendTranscript(ctx, webhook.TranscriptPayload{
		SessionID:        rec.SessionID,
		Source:           string(rec.Source),
		DeviceName:       rec.DeviceName,
		StartedAt:        rec.StartedAt,
		EndedAt:          rec.EndedAt,
		DurationMS:       rec.Buffer.Duration().Milliseconds(),
		Partial:          rec.Buffer.Partial,
		GapFilledSamples: rec.GapFilledSamples,
		Transcript:       text,
		ArchivePath:      archivePath,
	}); err != nil {
		slog.Error("failed to send webhook transcript", "error", err, "session_id", rec.SessionID)
	}

	if err := p.notifier.TranscriptReady(text, rec.Buffer.Partial); err != nil {
		slog.Error("failed to deliver transcript to desktop", "error", err, "session_id", rec.SessionID)
	}
}
