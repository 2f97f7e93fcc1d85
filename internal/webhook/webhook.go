// Package webhook defines the outbound transcript notification contract.
package webhook

import (
	"context"
	"time"
)

// TranscriptPayload is the record posted after a recording finishes.
type TranscriptPayload struct {
	SessionID        string    `json:"session_id"`
	Source           string    `json:"source"`
	DeviceName       string    `json:"device_name,omitempty"`
	StartedAt        time.Time `json:"started_at"`
	EndedAt          time.Time `json:"ended_at"`
	DurationMS       int64     `json:"duration_ms"`
	Partial          bool      `json:"partial"`
	GapFilledSamples int       `json:"gap_filled_samples,omitempty"`
	Transcript       string    `json:"transcript"`
	ArchivePath      string    `json:"archive_path,omitempty"`
}

type Sender interface {
	SendTranscript(ctx context.Context, payload TranscriptPayload) error
}
