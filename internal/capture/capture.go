// Package capture defines the microphone input contract. Implementations
// deliver mono 16 kHz PCM regardless of the device's native rate.
package capture

import (
	"errors"

	"github.com/oliverbhull/memo-stt/internal/audio"
)

var (
	ErrDeviceUnavailable = errors.New("capture: no usable input device")
	ErrAlreadyStarted    = errors.New("capture: stream already started")
)

// Source is a start/stop gated microphone stream. Start is idempotent:
// calling it while capturing returns the existing frame channel. Stop
// while stopped is a no-op. The frame channel is closed when the stream
// stops or the device fails mid-capture.
type Source interface {
	Start() (<-chan audio.Frame, error)
	Stop() error
	Running() bool
}
