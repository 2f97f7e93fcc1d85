// Package notify delivers finished transcripts to the desktop: clipboard
// copy and a toast notification, each independently switchable.
package notify

import (
	"fmt"
	"log/slog"

	"github.com/atotto/clipboard"
	"github.com/gen2brain/beeep"

	internalnotify "github.com/oliverbhull/memo-stt/internal/notify"
)

const notificationTitle = "memo-stt"

// Preview length for the toast body; the full text goes to the clipboard.
const previewRunes = 120

type DesktopNotifier struct {
	clipboardEnabled bool
	toastEnabled     bool
}

func NewDesktopNotifier(clipboardEnabled, toastEnabled bool) internalnotify.Notifier {
	return &DesktopNotifier{
		clipboardEnabled: clipboardEnabled,
		toastEnabled:     toastEnabled,
	}
}

func (n *DesktopNotifier) TranscriptReady(text string, partial bool) error {
	var firstErr error

	if n.clipboardEnabled {
		if err := clipboard.WriteAll(text); err != nil {
			slog.Error("clipboard write failed", "error", err)
			firstErr = fmt.Errorf("clipboard: %w", err)
		}
	}

	if n.toastEnabled {
		title := notificationTitle
		if partial {
			title = notificationTitle + " (partial)"
		}
		if err := beeep.Notify(title, preview(text), ""); err != nil {
			slog.Error("desktop notification failed", "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("notification: %w", err)
			}
		}
	}

	return firstErr
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewRunes {
		return text
	}
	return string(runes[:previewRunes]) + "…"
}
