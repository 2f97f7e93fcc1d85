// Package ble defines the contract with the memo wireless peripheral.
// Implementations own the radio; consumers see two buffered notification
// streams and a connection-state feed, nothing else.
package ble

import (
	"context"
	"errors"
	"time"

	"github.com/oliverbhull/memo-stt/internal/audio"
)

var (
	// ErrNotFound means no matching device appeared within the scan window
	// and the fallback address did not answer.
	ErrNotFound = errors.New("ble: device not found")
	// ErrConnectionFailed means the device was seen but the GATT handshake
	// did not complete.
	ErrConnectionFailed = errors.New("ble: connection failed")
	// ErrSubscriptionFailed means the audio service or a required
	// characteristic was missing or rejected the subscription.
	ErrSubscriptionFailed = errors.New("ble: characteristic subscription failed")
	// ErrLinkLost means an established notification stream terminated
	// unexpectedly.
	ErrLinkLost = errors.New("ble: link lost")
)

// ConnState is the link manager's lifecycle, observable but never mutable
// from outside.
type ConnState string

const (
	StateScanning     ConnState = "scanning"
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
	StateDisconnected ConnState = "disconnected"
	StateFailed       ConnState = "failed"
)

// Button codes sent over the control characteristic by the firmware.
const (
	ButtonStart byte = 0x01
	ButtonStop  byte = 0x02
)

// ButtonEvent is one control-channel notification.
type ButtonEvent struct {
	Code       byte
	ReceivedAt time.Time
}

// ConnectOptions tunes discovery and what gets subscribed.
type ConnectOptions struct {
	// PreferredName is prioritized during scanning when set; it must carry
	// the memo_ prefix.
	PreferredName string
	// TriggerOnly subscribes the control characteristic but not audio, for
	// using the peripheral as a remote button while audio comes from the
	// system microphone.
	TriggerOnly bool
}

// LinkManager owns one peripheral connection. Frames and Buttons are
// independent, order-preserving, buffered streams; both are closed when the
// link drops or Close is called, which is the terminal signal consumers
// watch for. There is no automatic reconnection: after the streams close,
// a fresh Connect starts a new discovery cycle.
type LinkManager interface {
	// Connect scans, connects and subscribes. Blocks until connected or
	// failed. Errors: ErrNotFound, ErrConnectionFailed,
	// ErrSubscriptionFailed.
	Connect(ctx context.Context, opts ConnectOptions) error
	// Frames streams decoded audio frames. Empty and closed in
	// trigger-only mode.
	Frames() <-chan audio.Frame
	// Buttons streams control-channel button events.
	Buttons() <-chan ButtonEvent
	// State reports the current connection state.
	State() ConnState
	// DeviceName is the advertised name of the connected peripheral, if
	// known.
	DeviceName() string
	// Close disconnects and releases the radio. Queued frames already in
	// the stream buffers stay readable until drained. Safe to call twice.
	Close() error
}
