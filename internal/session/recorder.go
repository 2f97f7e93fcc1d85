package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oliverbhull/memo-stt/internal/audio"
	"github.com/oliverbhull/memo-stt/internal/ble"
	"github.com/oliverbhull/memo-stt/internal/capture"
	"github.com/oliverbhull/memo-stt/internal/config"
	"github.com/oliverbhull/memo-stt/internal/hotkey"
)

type State int

const (
	StateIdle State = iota
	StateRecording
	StateFinalizing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateFinalizing:
		return "finalizing"
	default:
		return "unknown"
	}
}

type sessionTrigger int

const (
	// triggerHold records while the hotkey stays down.
	triggerHold sessionTrigger = iota
	// triggerLock records until the hotkey is pressed again.
	triggerLock
	// triggerButton records until the peripheral's stop button.
	triggerButton
)

// Recorder arbitrates trigger events from the hotkey and the BLE button
// into one recording session at a time. All transitions happen on the
// Run goroutine; only finalization is handed off.
type Recorder struct {
	cfg       *config.Config
	link      ble.LinkManager
	mic       capture.Source
	keys      hotkey.Listener
	finalizer Finalizer

	mu        sync.Mutex
	state     State
	locked    bool
	trigger   sessionTrigger
	asm       *Assembler
	sessionID string
	startedAt time.Time

	micFrames <-chan audio.Frame

	finalizeWG sync.WaitGroup
}

func NewRecorder(cfg *config.Config, link ble.LinkManager, mic capture.Source, keys hotkey.Listener, finalizer Finalizer) *Recorder {
	return &Recorder{
		cfg:       cfg,
		link:      link,
		mic:       mic,
		keys:      keys,
		finalizer: finalizer,
		state:     StateIdle,
	}
}

// micIsAudioSource reports whether recorded audio comes from the local
// microphone rather than the BLE stream.
func (r *Recorder) micIsAudioSource() bool {
	return r.cfg.InputMode != config.InputModeBleAudio
}

func (r *Recorder) bleButtonsActive() bool {
	return r.cfg.InputMode.UsesBle() ||
		(r.cfg.InputMode == config.InputModeMic && r.cfg.BleTriggerAssist)
}

// Run drains trigger and audio events until the context is canceled. An
// in-flight session is sealed as partial on shutdown, and outstanding
// finalizations are waited for.
func (r *Recorder) Run(ctx context.Context) error {
	var (
		bleFrames  <-chan audio.Frame
		bleButtons <-chan ble.ButtonEvent
	)
	if r.bleButtonsActive() {
		if err := r.link.Connect(ctx, ble.ConnectOptions{
			PreferredName: r.cfg.BleDeviceName,
			TriggerOnly:   r.micIsAudioSource(),
		}); err != nil {
			if r.cfg.InputMode == config.InputModeBleAudio {
				return err
			}
			// Trigger assist is best-effort: the hotkey still works.
			slog.Warn("ble trigger unavailable, continuing with hotkey only", "error", err)
		} else {
			if !r.micIsAudioSource() {
				bleFrames = r.link.Frames()
			}
			bleButtons = r.link.Buttons()
		}
	}

	if err := r.keys.Start(); err != nil {
		return err
	}
	keyEvents := r.keys.Events()

	slog.Info("recorder ready",
		"input_source", string(r.cfg.InputMode),
		"min_duration", r.cfg.MinRecordingDur.String())

	for {
		select {
		case <-ctx.Done():
			r.shutdown()
			r.finalizeWG.Wait()
			return nil

		case ev, ok := <-keyEvents:
			if !ok {
				keyEvents = nil
				continue
			}
			r.handleKey(ev)

		case b, ok := <-bleButtons:
			if !ok {
				bleButtons = nil
				r.handleButtonStreamEnded()
				continue
			}
			r.handleButton(b)

		case f, ok := <-bleFrames:
			if !ok {
				bleFrames = nil
				r.handleLinkLost()
				continue
			}
			r.appendFromBle(f)

		case f, ok := <-r.micFrames:
			if !ok {
				r.handleMicStreamEnded()
				continue
			}
			r.appendFromMic(f)
		}
	}
}

func (r *Recorder) handleKey(ev hotkey.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch ev.Kind {
	case hotkey.Pressed:
		switch r.state {
		case StateIdle:
			r.startSessionLocked(triggerHold)
		case StateRecording:
			if r.locked || r.trigger == triggerButton {
				r.stopSessionLocked(false, "hotkey press")
			}
			// While a hold session is down the press is key repeat noise.
		}

	case hotkey.Released:
		switch r.state {
		case StateIdle:
			slog.Debug("ignoring stray hotkey release while idle")
		case StateRecording:
			if r.trigger == triggerHold && !r.locked {
				r.stopSessionLocked(false, "hotkey release")
			}
		}

	case hotkey.LockCombo:
		switch r.state {
		case StateIdle:
			r.startSessionLocked(triggerLock)
		case StateRecording:
			if !r.locked {
				r.locked = true
				slog.Info("session locked, press hotkey again to stop", "session_id", r.sessionID)
			}
		}
	}
}

func (r *Recorder) handleButton(b ble.ButtonEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch b.Code {
	case ble.ButtonStart:
		if r.state == StateIdle {
			r.startSessionLocked(triggerButton)
		}
	case ble.ButtonStop:
		if r.state != StateRecording {
			return
		}
		if r.locked {
			slog.Debug("ignoring button stop while session is locked", "session_id", r.sessionID)
			return
		}
		r.stopSessionLocked(false, "button stop")
	}
}

func (r *Recorder) appendFromBle(f audio.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateRecording || r.micIsAudioSource() {
		return
	}
	r.asm.Append(f)
}

func (r *Recorder) appendFromMic(f audio.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateRecording {
		return
	}
	r.asm.Append(f)
}

func (r *Recorder) handleLinkLost() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateRecording && !r.micIsAudioSource() {
		slog.Warn("ble link lost mid-recording, sealing partial session", "session_id", r.sessionID)
		r.stopSessionLocked(true, "link lost")
		return
	}
	slog.Warn("ble link lost")
}

// handleButtonStreamEnded reacts to the button stream closing. When the
// microphone carries the audio the session keeps running and the hotkey
// stays usable; in BLE audio mode the frame stream closure seals the
// session instead.
func (r *Recorder) handleButtonStreamEnded() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.micIsAudioSource() {
		slog.Warn("ble button link lost, hotkey triggers remain available")
	}
}

func (r *Recorder) handleMicStreamEnded() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.micFrames = nil
	if r.state == StateRecording && r.micIsAudioSource() {
		slog.Warn("microphone stream ended mid-recording, sealing partial session", "session_id", r.sessionID)
		r.stopSessionLocked(true, "capture failure")
	}
}

func (r *Recorder) shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateRecording {
		r.stopSessionLocked(true, "shutdown")
	}
}

// startSessionLocked must be called with r.mu held.
func (r *Recorder) startSessionLocked(trig sessionTrigger) {
	if r.micIsAudioSource() {
		frames, err := r.mic.Start()
		if err != nil {
			slog.Error("cannot start recording, microphone unavailable", "error", err)
			return
		}
		r.micFrames = frames
	}

	r.state = StateRecording
	r.trigger = trig
	r.locked = trig == triggerLock
	r.asm = NewAssembler(r.cfg.MinRecordingDur)
	r.sessionID = uuid.NewString()
	r.startedAt = time.Now()
	slog.Info("recording started",
		"session_id", r.sessionID,
		"locked", r.locked,
		"source", string(r.cfg.InputMode))
}

// stopSessionLocked must be called with r.mu held. It always lands back
// in Idle: finalization runs on its own goroutine and too-short buffers
// are discarded in place.
func (r *Recorder) stopSessionLocked(partial bool, reason string) {
	r.state = StateFinalizing
	if r.micIsAudioSource() {
		if err := r.mic.Stop(); err != nil {
			slog.Error("failed to stop microphone", "error", err, "session_id", r.sessionID)
		}
		r.micFrames = nil
	}

	buf, err := r.asm.Finish(partial)
	endedAt := time.Now()
	if err != nil {
		if errors.Is(err, ErrBufferTooShort) {
			slog.Warn("recording discarded, below minimum duration",
				"session_id", r.sessionID,
				"duration", r.asm.Duration().String(),
				"reason", reason)
		} else {
			slog.Error("failed to seal recording", "error", err, "session_id", r.sessionID)
		}
		r.resetLocked()
		return
	}

	rec := FinishedRecording{
		SessionID:        r.sessionID,
		Source:           r.cfg.InputMode,
		StartedAt:        r.startedAt,
		EndedAt:          endedAt,
		GapFilledSamples: r.asm.GapFilledSamples(),
		Buffer:           buf,
	}
	if r.link != nil {
		rec.DeviceName = r.link.DeviceName()
	}
	slog.Info("recording stopped",
		"session_id", rec.SessionID,
		"duration", buf.Duration().String(),
		"partial", partial,
		"gap_filled_samples", rec.GapFilledSamples,
		"reason", reason)

	r.finalizeWG.Add(1)
	go func() {
		defer r.finalizeWG.Done()
		r.finalizer.Finalize(context.Background(), rec)
	}()
	r.resetLocked()
}

// resetLocked must be called with r.mu held.
func (r *Recorder) resetLocked() {
	r.state = StateIdle
	r.locked = false
	r.asm = nil
	r.sessionID = ""
}

func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// BufferedDuration reports how much audio the active session has
// accumulated so far. Zero when idle.
func (r *Recorder) BufferedDuration() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.asm == nil {
		return 0
	}
	return r.asm.Duration()
}
