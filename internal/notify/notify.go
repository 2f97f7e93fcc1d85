// Package notify defines the user-facing delivery contract for finished
// transcripts.
package notify

// Notifier surfaces a finished transcript to the user, typically via the
// system clipboard and a desktop notification.
type Notifier interface {
	TranscriptReady(text string, partial bool) error
}
