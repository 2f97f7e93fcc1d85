// Package hotkey defines the global key trigger contract.
package hotkey

import (
	"errors"
	"time"
)

var ErrUnknownKey = errors.New("hotkey: key name not recognized")

type Kind int

const (
	// Pressed is the trigger key going down.
	Pressed Kind = iota
	// Released is the trigger key coming back up.
	Released
	// LockCombo is the lock modifier chorded with the trigger key.
	LockCombo
)

func (k Kind) String() string {
	switch k {
	case Pressed:
		return "pressed"
	case Released:
		return "released"
	case LockCombo:
		return "lock_combo"
	default:
		return "unknown"
	}
}

type Event struct {
	Kind Kind
	At   time.Time
}

// Listener watches the configured keys system-wide. Events is closed when
// the hook is shut down.
type Listener interface {
	Start() error
	Events() <-chan Event
	Close() error
}
