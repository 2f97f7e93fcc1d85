// Package ble connects to the memo peripheral with the tinygo bluetooth
// stack and adapts its GATT notifications into the internal stream
// contract.
package ble

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	internalaudio "github.com/oliverbhull/memo-stt/internal/audio"
	internalble "github.com/oliverbhull/memo-stt/internal/ble"
	"tinygo.org/x/bluetooth"
)

const (
	deviceNamePrefix = "memo_"
	// Well-known address of the first-batch firmware, tried when scanning
	// finds no advertised name or service match.
	fallbackAddress = "64D5A7E1-B149-191F-9B11-96F5CCF590BF"

	serviceUUIDString     = "1234a000-1234-5678-1234-56789abcdef0"
	audioCharUUIDString   = "1234a001-1234-5678-1234-56789abcdef0"
	controlCharUUIDString = "1234a003-1234-5678-1234-56789abcdef0"

	scanWindow = 30 * time.Second

	frameQueueSize  = 256
	buttonQueueSize = 16
)

// LinkManager is the tinygo-bluetooth implementation of
// internalble.LinkManager. One instance manages at most one connection;
// after the link drops it must be discarded and a new one created.
type LinkManager struct {
	adapter *bluetooth.Adapter
	decoder internalaudio.Decoder

	mu           sync.Mutex
	state        internalble.ConnState
	deviceName   string
	device       bluetooth.Device
	closed       bool
	framesClosed bool

	frames  chan internalaudio.Frame
	buttons chan internalble.ButtonEvent

	droppedFrames  uint64
	droppedButtons uint64
}

func NewLinkManager(decoder internalaudio.Decoder) *LinkManager {
	return &LinkManager{
		adapter: bluetooth.DefaultAdapter,
		decoder: decoder,
		state:   internalble.StateDisconnected,
		frames:  make(chan internalaudio.Frame, frameQueueSize),
		buttons: make(chan internalble.ButtonEvent, buttonQueueSize),
	}
}

func (m *LinkManager) Connect(ctx context.Context, opts internalble.ConnectOptions) error {
	if err := m.adapter.Enable(); err != nil {
		m.setState(internalble.StateFailed)
		return fmt.Errorf("%w: enable adapter: %v", internalble.ErrConnectionFailed, err)
	}

	serviceUUID, err := bluetooth.ParseUUID(serviceUUIDString)
	if err != nil {
		return fmt.Errorf("parse service uuid: %w", err)
	}

	m.setState(internalble.StateScanning)
	slog.Info("scanning for memo device", "preferred_name", opts.PreferredName, "window", scanWindow.String())
	result, err := m.scan(ctx, serviceUUID, opts.PreferredName)
	if err != nil {
		m.setState(internalble.StateFailed)
		return err
	}

	m.setState(internalble.StateConnecting)
	slog.Info("connecting", "address", result.Address.String(), "name", result.LocalName())
	device, err := m.adapter.Connect(result.Address, bluetooth.ConnectionParams{})
	if err != nil {
		m.setState(internalble.StateFailed)
		return fmt.Errorf("%w: %v", internalble.ErrConnectionFailed, err)
	}

	if err := m.subscribe(device, serviceUUID, opts.TriggerOnly); err != nil {
		_ = device.Disconnect()
		m.setState(internalble.StateFailed)
		return err
	}

	m.mu.Lock()
	m.device = device
	m.deviceName = result.LocalName()
	m.mu.Unlock()

	// Unexpected disconnects surface as a terminal close on both streams.
	m.adapter.SetConnectHandler(func(dev bluetooth.Device, connected bool) {
		if !connected {
			slog.Warn("ble link lost")
			m.terminate(internalble.StateDisconnected)
		}
	})

	m.setState(internalble.StateConnected)
	slog.Info("ble device connected", "name", m.DeviceName(), "trigger_only", opts.TriggerOnly)
	return nil
}

type scanMatch int

const (
	matchNone scanMatch = iota
	matchFallbackAddress
	matchCandidate
	matchPreferred
)

// classifyScanResult ranks an advertisement. The memo_ name prefix and
// the audio service UUID always qualify a device; a configured preferred
// name outranks them, and the well-known address is the last resort.
func classifyScanResult(name string, hasServiceUUID bool, address, preferredName string) scanMatch {
	lower := strings.ToLower(name)
	if preferredName != "" && lower == strings.ToLower(preferredName) {
		return matchPreferred
	}
	if strings.HasPrefix(lower, deviceNamePrefix) || hasServiceUUID {
		return matchCandidate
	}
	if strings.EqualFold(address, fallbackAddress) {
		return matchFallbackAddress
	}
	return matchNone
}

// scan watches advertisements for the scan window. A preferred name is
// awaited for the whole window; any other memo device seen in the
// meantime is used when the window closes without it, then the
// well-known fallback address.
func (m *LinkManager) scan(ctx context.Context, serviceUUID bluetooth.UUID, preferredName string) (bluetooth.ScanResult, error) {
	preferred := make(chan bluetooth.ScanResult, 1)
	candidate := make(chan bluetooth.ScanResult, 1)
	fallback := make(chan bluetooth.ScanResult, 1)

	stash := func(ch chan bluetooth.ScanResult, result bluetooth.ScanResult) {
		select {
		case ch <- result:
		default:
		}
	}

	go func() {
		err := m.adapter.Scan(func(_ *bluetooth.Adapter, result bluetooth.ScanResult) {
			hasService := result.AdvertisementPayload.HasServiceUUID(serviceUUID)
			switch classifyScanResult(result.LocalName(), hasService, result.Address.String(), preferredName) {
			case matchPreferred:
				stash(preferred, result)
			case matchCandidate:
				stash(candidate, result)
			case matchFallbackAddress:
				stash(fallback, result)
			}
		})
		if err != nil {
			slog.Error("ble scan failed", "error", err)
		}
	}()
	defer func() {
		if err := m.adapter.StopScan(); err != nil {
			slog.Debug("stop scan", "error", err)
		}
	}()

	primary := preferred
	if preferredName == "" {
		primary = candidate
	}

	timer := time.NewTimer(scanWindow)
	defer timer.Stop()
	select {
	case result := <-primary:
		return result, nil
	case <-timer.C:
		select {
		case result := <-candidate:
			slog.Info("preferred device not seen, using matching memo device", "name", result.LocalName())
			return result, nil
		default:
		}
		select {
		case result := <-fallback:
			slog.Info("scan window expired, trying well-known address", "address", fallbackAddress)
			return result, nil
		default:
		}
		return bluetooth.ScanResult{}, internalble.ErrNotFound
	case <-ctx.Done():
		return bluetooth.ScanResult{}, fmt.Errorf("%w: %v", internalble.ErrNotFound, ctx.Err())
	}
}

func (m *LinkManager) subscribe(device bluetooth.Device, serviceUUID bluetooth.UUID, triggerOnly bool) error {
	audioUUID, err := bluetooth.ParseUUID(audioCharUUIDString)
	if err != nil {
		return fmt.Errorf("parse audio characteristic uuid: %w", err)
	}
	controlUUID, err := bluetooth.ParseUUID(controlCharUUIDString)
	if err != nil {
		return fmt.Errorf("parse control characteristic uuid: %w", err)
	}

	services, err := device.DiscoverServices([]bluetooth.UUID{serviceUUID})
	if err != nil || len(services) == 0 {
		return fmt.Errorf("%w: audio service not found: %v", internalble.ErrSubscriptionFailed, err)
	}

	want := []bluetooth.UUID{controlUUID}
	if !triggerOnly {
		want = append(want, audioUUID)
	}
	chars, err := services[0].DiscoverCharacteristics(want)
	if err != nil {
		return fmt.Errorf("%w: %v", internalble.ErrSubscriptionFailed, err)
	}

	var haveControl, haveAudio bool
	for i := range chars {
		ch := chars[i]
		switch ch.UUID() {
		case controlUUID:
			if err := ch.EnableNotifications(m.onControlNotification); err != nil {
				return fmt.Errorf("%w: control: %v", internalble.ErrSubscriptionFailed, err)
			}
			haveControl = true
		case audioUUID:
			if err := ch.EnableNotifications(m.onAudioNotification); err != nil {
				return fmt.Errorf("%w: audio: %v", internalble.ErrSubscriptionFailed, err)
			}
			haveAudio = true
		}
	}
	if !haveControl {
		return fmt.Errorf("%w: control characteristic missing", internalble.ErrSubscriptionFailed)
	}
	if !triggerOnly && !haveAudio {
		return fmt.Errorf("%w: audio characteristic missing", internalble.ErrSubscriptionFailed)
	}
	if triggerOnly {
		// Nothing will ever arrive on the frame stream; close it so
		// consumers selecting on it see a terminal state immediately.
		m.mu.Lock()
		close(m.frames)
		m.framesClosed = true
		m.mu.Unlock()
	}
	return nil
}

// onAudioNotification runs on the BLE stack's delivery goroutine. The
// payload is [bundle_index:1][bundle...]; decoding happens here so the
// stream carries ready-to-append PCM.
func (m *LinkManager) onAudioNotification(buf []byte) {
	if len(buf) < 2 {
		return
	}
	seq := buf[0]
	pcm, err := m.decoder.DecodeBundle(buf[1:])
	if err != nil {
		slog.Debug("bundle decode reported concealment", "seq", seq, "error", err)
	}
	if len(pcm) == 0 {
		return
	}
	frame := internalaudio.Frame{
		Samples:    pcm,
		SampleRate: internalaudio.SampleRate,
		Channels:   1,
		Seq:        seq,
		ReceivedAt: time.Now(),
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	select {
	case m.frames <- frame:
	default:
		// Never stall the radio: shed the oldest queued frame instead.
		select {
		case <-m.frames:
			m.droppedFrames++
			slog.Warn("frame queue full, dropped oldest", "dropped_total", m.droppedFrames)
		default:
		}
		select {
		case m.frames <- frame:
		default:
		}
	}
}

func (m *LinkManager) onControlNotification(buf []byte) {
	if len(buf) == 0 {
		return
	}
	code := buf[0]
	if code != internalble.ButtonStart && code != internalble.ButtonStop {
		slog.Debug("ignoring unknown control code", "code", code)
		return
	}
	ev := internalble.ButtonEvent{Code: code, ReceivedAt: time.Now()}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	select {
	case m.buttons <- ev:
	default:
		select {
		case <-m.buttons:
			m.droppedButtons++
			slog.Warn("button queue full, dropped oldest", "dropped_total", m.droppedButtons)
		default:
		}
		select {
		case m.buttons <- ev:
		default:
		}
	}
}

func (m *LinkManager) Frames() <-chan internalaudio.Frame {
	return m.frames
}

func (m *LinkManager) Buttons() <-chan internalble.ButtonEvent {
	return m.buttons
}

func (m *LinkManager) State() internalble.ConnState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *LinkManager) DeviceName() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deviceName
}

func (m *LinkManager) setState(s internalble.ConnState) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// terminate closes both streams exactly once. Frames already queued stay
// readable; the closed channels are the terminal event consumers observe.
func (m *LinkManager) terminate(s internalble.ConnState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	if !m.framesClosed {
		close(m.frames)
		m.framesClosed = true
	}
	close(m.buttons)
	m.state = s
}

func (m *LinkManager) Close() error {
	m.mu.Lock()
	device := m.device
	m.mu.Unlock()

	m.terminate(internalble.StateDisconnected)
	if device != (bluetooth.Device{}) {
		if err := device.Disconnect(); err != nil {
			return fmt.Errorf("disconnect: %w", err)
		}
	}
	return nil
}
