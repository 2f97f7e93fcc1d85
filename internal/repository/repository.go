// Package repository defines the recording history store contract.
// History is optional: without a database URL a no-op store is wired in.
package repository

import (
	"context"
	"time"
)

type RecordingStatus string

const (
	RecordingStatusCompleted RecordingStatus = "completed"
	RecordingStatusPartial   RecordingStatus = "partial"
)

type Recording struct {
	ID          string
	Source      string
	DeviceName  string
	StartedAt   time.Time
	EndedAt     time.Time
	DurationMS  int64
	SampleCount int
	Status      RecordingStatus
	Transcript  string
	CreatedAt   time.Time
}

type InsertRecordingInput struct {
	ID          string
	Source      string
	DeviceName  string
	StartedAt   time.Time
	EndedAt     time.Time
	DurationMS  int64
	SampleCount int
	Status      RecordingStatus
	Transcript  string
}

type Repository interface {
	InsertRecording(ctx context.Context, input InsertRecordingInput) error
	ListRecentRecordings(ctx context.Context, limit int) ([]Recording, error)
}
