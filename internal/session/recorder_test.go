package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/oliverbhull/memo-stt/internal/audio"
	"github.com/oliverbhull/memo-stt/internal/ble"
	"github.com/oliverbhull/memo-stt/internal/capture"
	"github.com/oliverbhull/memo-stt/internal/config"
	"github.com/oliverbhull/memo-stt/internal/hotkey"
)

type fakeListener struct {
	events chan hotkey.Event
}

func newFakeListener() *fakeListener {
	return &fakeListener{events: make(chan hotkey.Event, 16)}
}

func (l *fakeListener) Start() error                  { return nil }
func (l *fakeListener) Events() <-chan hotkey.Event   { return l.events }
func (l *fakeListener) Close() error                  { return nil }
func (l *fakeListener) press()                        { l.events <- hotkey.Event{Kind: hotkey.Pressed, At: time.Now()} }
func (l *fakeListener) release()                      { l.events <- hotkey.Event{Kind: hotkey.Released, At: time.Now()} }
func (l *fakeListener) lockCombo()                    { l.events <- hotkey.Event{Kind: hotkey.LockCombo, At: time.Now()} }

type fakeSource struct {
	mu      sync.Mutex
	frames  chan audio.Frame
	running bool
	starts  int
	stops   int
	failErr error
	seq     uint8
}

func newFakeSource() *fakeSource { return &fakeSource{} }

func (s *fakeSource) Start() (<-chan audio.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return nil, s.failErr
	}
	if s.running {
		return s.frames, nil
	}
	s.frames = make(chan audio.Frame, 256)
	s.running = true
	s.starts++
	return s.frames, nil
}

func (s *fakeSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.running = false
	s.stops++
	close(s.frames)
	return nil
}

func (s *fakeSource) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *fakeSource) startCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts
}

func (s *fakeSource) stopCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stops
}

// emit pushes n contiguous frames of the default frame size.
func (s *fakeSource) emit(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < n; i++ {
		s.frames <- audio.Frame{
			Samples:    make([]int16, audio.SamplesPerFrame),
			SampleRate: audio.SampleRate,
			Channels:   1,
			Seq:        s.seq,
			ReceivedAt: time.Now(),
		}
		s.seq++
	}
}

type fakeLink struct {
	frames     chan audio.Frame
	buttons    chan ble.ButtonEvent
	connectErr error

	mu      sync.Mutex
	gotOpts ble.ConnectOptions
}

func newFakeLink() *fakeLink {
	return &fakeLink{
		frames:  make(chan audio.Frame, 256),
		buttons: make(chan ble.ButtonEvent, 16),
	}
}

func (l *fakeLink) Connect(_ context.Context, opts ble.ConnectOptions) error {
	l.mu.Lock()
	l.gotOpts = opts
	l.mu.Unlock()
	return l.connectErr
}

func (l *fakeLink) Frames() <-chan audio.Frame         { return l.frames }
func (l *fakeLink) Buttons() <-chan ble.ButtonEvent    { return l.buttons }
func (l *fakeLink) State() ble.ConnState               { return ble.StateConnected }
func (l *fakeLink) DeviceName() string                 { return "memo_test" }
func (l *fakeLink) Close() error                       { return nil }

func (l *fakeLink) pressStart() {
	l.buttons <- ble.ButtonEvent{Code: ble.ButtonStart, ReceivedAt: time.Now()}
}

func (l *fakeLink) pressStop() {
	l.buttons <- ble.ButtonEvent{Code: ble.ButtonStop, ReceivedAt: time.Now()}
}

func (l *fakeLink) emit(seqs ...uint8) {
	for _, seq := range seqs {
		l.frames <- audio.Frame{
			Samples:    make([]int16, audio.SamplesPerFrame),
			SampleRate: audio.SampleRate,
			Channels:   1,
			Seq:        seq,
			ReceivedAt: time.Now(),
		}
	}
}

type fakeFinalizer struct {
	done chan FinishedRecording
}

func newFakeFinalizer() *fakeFinalizer {
	return &fakeFinalizer{done: make(chan FinishedRecording, 4)}
}

func (f *fakeFinalizer) Finalize(_ context.Context, rec FinishedRecording) {
	f.done <- rec
}

func testConfig(mode config.InputMode, minDur time.Duration) *config.Config {
	return &config.Config{
		Env:                        "development",
		InputMode:                  mode,
		HotkeyName:                 "f12",
		LockModifierName:           "ctrl",
		MinRecordingDur:            minDur,
		Language:                   "en-US",
		GoogleCloudProjectID:       "test-project",
		GoogleCloudCredentialsJSON: "{}",
	}
}

type recorderHarness struct {
	recorder  *Recorder
	listener  *fakeListener
	source    *fakeSource
	link      *fakeLink
	finalizer *fakeFinalizer
	cancel    context.CancelFunc
	runDone   chan error
}

func startRecorder(t *testing.T, cfg *config.Config) *recorderHarness {
	t.Helper()
	h := &recorderHarness{
		listener:  newFakeListener(),
		source:    newFakeSource(),
		link:      newFakeLink(),
		finalizer: newFakeFinalizer(),
		runDone:   make(chan error, 1),
	}
	h.recorder = NewRecorder(cfg, h.link, h.source, h.listener, h.finalizer)

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.runDone <- h.recorder.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-h.runDone:
		case <-time.After(2 * time.Second):
			t.Error("recorder did not shut down")
		}
	})
	return h
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func (h *recorderHarness) waitFinalized(t *testing.T) FinishedRecording {
	t.Helper()
	select {
	case rec := <-h.finalizer.done:
		return rec
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for finalization")
		return FinishedRecording{}
	}
}

func (h *recorderHarness) assertNoFinalization(t *testing.T) {
	t.Helper()
	select {
	case rec := <-h.finalizer.done:
		t.Fatalf("unexpected finalization of session %s", rec.SessionID)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRecorder_HoldToTalk(t *testing.T) {
	h := startRecorder(t, testConfig(config.InputModeMic, time.Second))

	h.listener.press()
	waitFor(t, "recording state", func() bool { return h.recorder.State() == StateRecording })
	if h.source.startCount() != 1 {
		t.Fatalf("source starts = %d, want 1", h.source.startCount())
	}

	h.source.emit(50) // exactly 1.0 s
	waitFor(t, "buffered audio", func() bool { return h.recorder.BufferedDuration() >= time.Second })
	h.listener.release()

	rec := h.waitFinalized(t)
	if rec.Buffer.Duration() != time.Second {
		t.Fatalf("duration = %s, want 1s", rec.Buffer.Duration())
	}
	if rec.Buffer.Partial {
		t.Fatal("deliberate stop must not be partial")
	}
	if rec.Source != config.InputModeMic {
		t.Fatalf("source = %s, want mic", rec.Source)
	}
	waitFor(t, "idle state", func() bool { return h.recorder.State() == StateIdle })
	if h.source.stopCount() != 1 {
		t.Fatalf("source stops = %d, want 1", h.source.stopCount())
	}
}

func TestRecorder_ReleaseWhileIdleIsNoop(t *testing.T) {
	h := startRecorder(t, testConfig(config.InputModeMic, time.Second))

	h.listener.release()
	h.listener.release()
	h.assertNoFinalization(t)
	if h.recorder.State() != StateIdle {
		t.Fatalf("state = %s, want idle", h.recorder.State())
	}
	if h.source.startCount() != 0 {
		t.Fatalf("source starts = %d, want 0", h.source.startCount())
	}
}

func TestRecorder_LockSequenceIsOneSession(t *testing.T) {
	h := startRecorder(t, testConfig(config.InputModeMic, 100*time.Millisecond))

	h.listener.press()
	waitFor(t, "recording state", func() bool { return h.recorder.State() == StateRecording })
	h.listener.lockCombo()
	h.source.emit(10)
	waitFor(t, "buffered audio", func() bool { return h.recorder.BufferedDuration() >= 200*time.Millisecond })

	// Locked: both releases must be ignored.
	h.listener.release()
	h.listener.release()
	h.assertNoFinalization(t)
	if h.recorder.State() != StateRecording {
		t.Fatalf("state = %s, want recording", h.recorder.State())
	}

	h.listener.press()
	rec := h.waitFinalized(t)
	if rec.Buffer.Duration() != 200*time.Millisecond {
		t.Fatalf("duration = %s, want 200ms", rec.Buffer.Duration())
	}
	if h.source.startCount() != 1 {
		t.Fatalf("source starts = %d, want exactly one session", h.source.startCount())
	}
}

func TestRecorder_LockComboWhileIdleStartsLockedSession(t *testing.T) {
	h := startRecorder(t, testConfig(config.InputModeMic, 100*time.Millisecond))

	h.listener.lockCombo()
	waitFor(t, "recording state", func() bool { return h.recorder.State() == StateRecording })
	h.source.emit(10)
	waitFor(t, "buffered audio", func() bool { return h.recorder.BufferedDuration() >= 200*time.Millisecond })

	h.listener.release()
	h.assertNoFinalization(t)

	h.listener.press()
	h.waitFinalized(t)
	waitFor(t, "idle state", func() bool { return h.recorder.State() == StateIdle })
}

func TestRecorder_TooShortRecordingDiscarded(t *testing.T) {
	h := startRecorder(t, testConfig(config.InputModeMic, time.Second))

	h.listener.press()
	waitFor(t, "recording state", func() bool { return h.recorder.State() == StateRecording })
	h.source.emit(10) // 200 ms, under the 1 s minimum
	waitFor(t, "buffered audio", func() bool { return h.recorder.BufferedDuration() >= 200*time.Millisecond })
	h.listener.release()

	waitFor(t, "idle state", func() bool { return h.recorder.State() == StateIdle })
	h.assertNoFinalization(t)
}

func TestRecorder_MicUnavailableStaysIdle(t *testing.T) {
	h := startRecorder(t, testConfig(config.InputModeMic, time.Second))
	h.source.failErr = capture.ErrDeviceUnavailable

	h.listener.press()
	time.Sleep(20 * time.Millisecond)
	if h.recorder.State() != StateIdle {
		t.Fatalf("state = %s, want idle after device failure", h.recorder.State())
	}
	h.assertNoFinalization(t)
}

func TestRecorder_ButtonStartStopWithGapFill(t *testing.T) {
	h := startRecorder(t, testConfig(config.InputModeBleAudio, 20*time.Millisecond))

	h.link.pressStart()
	waitFor(t, "recording state", func() bool { return h.recorder.State() == StateRecording })
	if h.source.startCount() != 0 {
		t.Fatal("microphone must stay off in ble audio mode")
	}

	h.link.emit(1, 2, 5, 6) // frames 3 and 4 lost in flight
	wantDur := 6 * audio.FrameDuration
	waitFor(t, "buffered audio", func() bool { return h.recorder.BufferedDuration() >= wantDur })
	h.link.pressStop()

	rec := h.waitFinalized(t)
	if got := len(rec.Buffer.Samples); got != 6*audio.SamplesPerFrame {
		t.Fatalf("samples = %d, want %d including silence fill", got, 6*audio.SamplesPerFrame)
	}
	if rec.GapFilledSamples != 2*audio.SamplesPerFrame {
		t.Fatalf("gap filled samples = %d, want %d", rec.GapFilledSamples, 2*audio.SamplesPerFrame)
	}
	if rec.DeviceName != "memo_test" {
		t.Fatalf("device name = %q, want memo_test", rec.DeviceName)
	}
	if rec.Source != config.InputModeBleAudio {
		t.Fatalf("source = %s, want ble", rec.Source)
	}
}

func TestRecorder_ButtonStopIgnoredWhileLocked(t *testing.T) {
	h := startRecorder(t, testConfig(config.InputModeBleAudio, 20*time.Millisecond))

	h.listener.lockCombo()
	waitFor(t, "recording state", func() bool { return h.recorder.State() == StateRecording })
	h.link.emit(0, 1, 2)
	waitFor(t, "buffered audio", func() bool { return h.recorder.BufferedDuration() >= 3*audio.FrameDuration })

	h.link.pressStop()
	h.assertNoFinalization(t)
	if h.recorder.State() != StateRecording {
		t.Fatalf("state = %s, want recording", h.recorder.State())
	}

	h.listener.press()
	h.waitFinalized(t)
}

func TestRecorder_LinkLostSealsPartialSession(t *testing.T) {
	h := startRecorder(t, testConfig(config.InputModeBleAudio, 20*time.Millisecond))

	h.link.pressStart()
	waitFor(t, "recording state", func() bool { return h.recorder.State() == StateRecording })
	h.link.emit(0, 1, 2)
	waitFor(t, "buffered audio", func() bool { return h.recorder.BufferedDuration() >= 3*audio.FrameDuration })

	close(h.link.frames)

	rec := h.waitFinalized(t)
	if !rec.Buffer.Partial {
		t.Fatal("link loss must seal the session as partial")
	}
	waitFor(t, "idle state", func() bool { return h.recorder.State() == StateIdle })
}

func TestRecorder_BleTriggerModeUsesMicAudio(t *testing.T) {
	h := startRecorder(t, testConfig(config.InputModeBleTrigger, 20*time.Millisecond))

	waitFor(t, "trigger-only connect", func() bool {
		h.link.mu.Lock()
		defer h.link.mu.Unlock()
		return h.link.gotOpts.TriggerOnly
	})

	h.link.pressStart()
	waitFor(t, "recording state", func() bool { return h.recorder.State() == StateRecording })
	if h.source.startCount() != 1 {
		t.Fatalf("source starts = %d, want 1", h.source.startCount())
	}

	h.source.emit(5)
	waitFor(t, "buffered audio", func() bool { return h.recorder.BufferedDuration() >= 5*audio.FrameDuration })
	h.link.pressStop()

	rec := h.waitFinalized(t)
	if rec.Source != config.InputModeBleTrigger {
		t.Fatalf("source = %s, want ble_trigger", rec.Source)
	}
}

func TestRecorder_TriggerModeIgnoresFrameStreamClosure(t *testing.T) {
	h := startRecorder(t, testConfig(config.InputModeBleTrigger, 20*time.Millisecond))

	waitFor(t, "trigger-only connect", func() bool {
		h.link.mu.Lock()
		defer h.link.mu.Unlock()
		return h.link.gotOpts.TriggerOnly
	})

	// A trigger-only link never carries audio and closes its frame stream
	// up front; that must not read as link loss.
	close(h.link.frames)

	h.link.pressStart()
	waitFor(t, "recording state", func() bool { return h.recorder.State() == StateRecording })
	h.source.emit(5)
	waitFor(t, "buffered audio", func() bool { return h.recorder.BufferedDuration() >= 5*audio.FrameDuration })

	// Losing the button link mid-session keeps the microphone session
	// alive; the hotkey remains the way to stop it.
	close(h.link.buttons)
	h.assertNoFinalization(t)
	if h.recorder.State() != StateRecording {
		t.Fatalf("state = %s, want recording after button link loss", h.recorder.State())
	}

	h.listener.press()
	rec := h.waitFinalized(t)
	if rec.Buffer.Partial {
		t.Fatal("hotkey stop after button link loss must not be partial")
	}
	waitFor(t, "idle state", func() bool { return h.recorder.State() == StateIdle })
}

func TestRecorder_ShutdownSealsPartialSession(t *testing.T) {
	h := startRecorder(t, testConfig(config.InputModeMic, 20*time.Millisecond))

	h.listener.press()
	waitFor(t, "recording state", func() bool { return h.recorder.State() == StateRecording })
	h.source.emit(5)
	waitFor(t, "buffered audio", func() bool { return h.recorder.BufferedDuration() >= 5*audio.FrameDuration })

	h.cancel()
	rec := h.waitFinalized(t)
	if !rec.Buffer.Partial {
		t.Fatal("shutdown must seal the session as partial")
	}
	select {
	case err := <-h.runDone:
		if err != nil {
			t.Fatalf("run returned error: %v", err)
		}
		// The harness cleanup also receives from runDone; put the
		// result back so it doesn't time out on the one-shot channel.
		h.runDone <- err
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}

func TestRecorder_TriggerAssistDegradesToHotkey(t *testing.T) {
	cfg := testConfig(config.InputModeMic, 20*time.Millisecond)
	cfg.BleTriggerAssist = true

	listener := newFakeListener()
	source := newFakeSource()
	link := newFakeLink()
	link.connectErr = ble.ErrNotFound
	finalizer := newFakeFinalizer()
	r := NewRecorder(cfg, link, source, listener, finalizer)

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() { runDone <- r.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-runDone
	})

	listener.press()
	waitFor(t, "recording state", func() bool { return r.State() == StateRecording })
	source.emit(5)
	waitFor(t, "buffered audio", func() bool { return r.BufferedDuration() >= 5*audio.FrameDuration })
	listener.release()

	select {
	case rec := <-finalizer.done:
		if rec.Source != config.InputModeMic {
			t.Fatalf("source = %s, want mic", rec.Source)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("hotkey session must still work when ble assist fails")
	}
}

func TestRecorder_BleConnectFailureAborts(t *testing.T) {
	listener := newFakeListener()
	source := newFakeSource()
	link := newFakeLink()
	link.connectErr = ble.ErrNotFound
	finalizer := newFakeFinalizer()
	r := NewRecorder(testConfig(config.InputModeBleAudio, time.Second), link, source, listener, finalizer)

	if err := r.Run(context.Background()); err == nil {
		t.Fatal("expected connect failure to abort the run")
	}
}
