// Package hotkey implements the global key trigger with gohook.
package hotkey

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	hook "github.com/robotn/gohook"

	internalhotkey "github.com/oliverbhull/memo-stt/internal/hotkey"
)

const (
	eventQueueSize = 32
	// A release followed immediately by a press is treated as switch
	// bounce, not a new trigger.
	debounceWindow = 50 * time.Millisecond
)

// GohookListener tracks one trigger key and one lock modifier across the
// raw event stream. OS key repeat (hold events and repeated downs) is
// collapsed into a single Pressed.
type GohookListener struct {
	triggerCode  uint16
	modifierCode uint16

	mu      sync.Mutex
	started bool
	closed  bool

	events chan internalhotkey.Event
}

func NewGohookListener(triggerName, modifierName string) (*GohookListener, error) {
	triggerCode, err := lookupKeycode(triggerName)
	if err != nil {
		return nil, err
	}
	modifierCode, err := lookupKeycode(modifierName)
	if err != nil {
		return nil, err
	}
	return &GohookListener{
		triggerCode:  triggerCode,
		modifierCode: modifierCode,
		events:       make(chan internalhotkey.Event, eventQueueSize),
	}, nil
}

func lookupKeycode(name string) (uint16, error) {
	code, ok := hook.Keycode[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("%w: %q", internalhotkey.ErrUnknownKey, name)
	}
	return code, nil
}

func (l *GohookListener) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started {
		return nil
	}
	l.started = true

	raw := hook.Start()
	go l.translate(raw)
	slog.Info("global hotkey hook installed")
	return nil
}

// translate filters the raw hook stream down to trigger events. Runs
// until the raw channel closes (hook.End).
func (l *GohookListener) translate(raw chan hook.Event) {
	defer close(l.events)

	var (
		triggerDown  bool
		modifierDown bool
		lastRelease  time.Time
	)

	for ev := range raw {
		switch ev.Kind {
		case hook.KeyDown, hook.KeyHold:
			switch ev.Keycode {
			case l.modifierCode:
				modifierDown = true
			case l.triggerCode:
				if triggerDown {
					continue // key repeat
				}
				now := time.Now()
				if now.Sub(lastRelease) < debounceWindow {
					slog.Debug("debounced trigger press")
					continue
				}
				triggerDown = true
				if modifierDown {
					l.emit(internalhotkey.Event{Kind: internalhotkey.LockCombo, At: now})
				} else {
					l.emit(internalhotkey.Event{Kind: internalhotkey.Pressed, At: now})
				}
			}
		case hook.KeyUp:
			switch ev.Keycode {
			case l.modifierCode:
				modifierDown = false
			case l.triggerCode:
				if !triggerDown {
					continue
				}
				triggerDown = false
				lastRelease = time.Now()
				l.emit(internalhotkey.Event{Kind: internalhotkey.Released, At: lastRelease})
			}
		}
	}
}

func (l *GohookListener) emit(ev internalhotkey.Event) {
	select {
	case l.events <- ev:
	default:
		// Shed the oldest: a stale trigger is worse than a missed one.
		select {
		case <-l.events:
			slog.Warn("hotkey queue full, dropped oldest event")
		default:
		}
		select {
		case l.events <- ev:
		default:
		}
	}
}

func (l *GohookListener) Events() <-chan internalhotkey.Event {
	return l.events
}

func (l *GohookListener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	if !l.started {
		close(l.events)
		return nil
	}
	hook.End()
	return nil
}
