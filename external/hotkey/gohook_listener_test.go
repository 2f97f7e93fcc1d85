package hotkey

import (
	"os"
	"testing"
	"time"

	hook "github.com/robotn/gohook"

	extconfig "github.com/oliverbhull/memo-stt/external/config"
	internalhotkey "github.com/oliverbhull/memo-stt/internal/hotkey"
)

func newTestListener(t *testing.T) *GohookListener {
	t.Helper()
	l, err := NewGohookListener("f9", "ctrl")
	if err != nil {
		t.Fatalf("listener setup failed: %v", err)
	}
	return l
}

func rawKey(kind uint8, code uint16) hook.Event {
	return hook.Event{Kind: kind, Keycode: code}
}

func collect(t *testing.T, events <-chan internalhotkey.Event, n int) []internalhotkey.Event {
	t.Helper()
	out := make([]internalhotkey.Event, 0, n)
	timeout := time.After(2 * time.Second)
	for len(out) < n {
		select {
		case ev, ok := <-events:
			if !ok {
				t.Fatalf("event stream closed after %d of %d events", len(out), n)
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatalf("timed out after %d of %d events", len(out), n)
		}
	}
	return out
}

func TestTranslate_PressHoldRelease(t *testing.T) {
	l := newTestListener(t)
	raw := make(chan hook.Event, 16)
	go l.translate(raw)

	raw <- rawKey(hook.KeyDown, l.triggerCode)
	raw <- rawKey(hook.KeyHold, l.triggerCode)
	raw <- rawKey(hook.KeyHold, l.triggerCode)
	raw <- rawKey(hook.KeyUp, l.triggerCode)
	close(raw)

	got := collect(t, l.Events(), 2)
	if got[0].Kind != internalhotkey.Pressed {
		t.Fatalf("event 0 = %s, want pressed", got[0].Kind)
	}
	if got[1].Kind != internalhotkey.Released {
		t.Fatalf("event 1 = %s, want released", got[1].Kind)
	}
	if _, ok := <-l.Events(); ok {
		t.Fatal("expected event stream to close with the raw stream")
	}
}

func TestTranslate_BouncedPressSwallowed(t *testing.T) {
	l := newTestListener(t)
	raw := make(chan hook.Event, 16)
	done := make(chan struct{})
	go func() {
		l.translate(raw)
		close(done)
	}()

	raw <- rawKey(hook.KeyDown, l.triggerCode)
	raw <- rawKey(hook.KeyUp, l.triggerCode)
	// Arrives well inside the debounce window, so it is switch bounce.
	raw <- rawKey(hook.KeyDown, l.triggerCode)
	raw <- rawKey(hook.KeyUp, l.triggerCode)
	close(raw)
	<-done

	got := collect(t, l.Events(), 2)
	if got[0].Kind != internalhotkey.Pressed || got[1].Kind != internalhotkey.Released {
		t.Fatalf("events = %s, %s; want pressed, released", got[0].Kind, got[1].Kind)
	}
	select {
	case ev, ok := <-l.Events():
		if ok {
			t.Fatalf("unexpected extra event %s", ev.Kind)
		}
	default:
		t.Fatal("expected event stream to be closed")
	}
}

func TestTranslate_ModifierChordEmitsLockCombo(t *testing.T) {
	l := newTestListener(t)
	raw := make(chan hook.Event, 16)
	go l.translate(raw)

	raw <- rawKey(hook.KeyDown, l.modifierCode)
	raw <- rawKey(hook.KeyDown, l.triggerCode)
	raw <- rawKey(hook.KeyUp, l.triggerCode)
	raw <- rawKey(hook.KeyUp, l.modifierCode)
	close(raw)

	got := collect(t, l.Events(), 2)
	if got[0].Kind != internalhotkey.LockCombo {
		t.Fatalf("event 0 = %s, want lock_combo", got[0].Kind)
	}
	if got[1].Kind != internalhotkey.Released {
		t.Fatalf("event 1 = %s, want released", got[1].Kind)
	}
}

func TestTranslate_OtherKeysIgnored(t *testing.T) {
	l := newTestListener(t)
	raw := make(chan hook.Event, 16)
	go l.translate(raw)

	raw <- rawKey(hook.KeyDown, l.triggerCode+100)
	raw <- rawKey(hook.KeyUp, l.triggerCode+100)
	raw <- rawKey(hook.KeyDown, l.triggerCode)
	close(raw)

	got := collect(t, l.Events(), 1)
	if got[0].Kind != internalhotkey.Pressed {
		t.Fatalf("event = %s, want pressed", got[0].Kind)
	}
}

func TestEmit_DropsOldestWhenFull(t *testing.T) {
	l := newTestListener(t)

	for i := 0; i < eventQueueSize; i++ {
		l.emit(internalhotkey.Event{Kind: internalhotkey.Pressed, At: time.Now()})
	}
	l.emit(internalhotkey.Event{Kind: internalhotkey.Released, At: time.Now()})

	var got []internalhotkey.Event
drain:
	for {
		select {
		case ev := <-l.Events():
			got = append(got, ev)
		default:
			break drain
		}
	}
	if len(got) != eventQueueSize {
		t.Fatalf("queued events = %d, want %d", len(got), eventQueueSize)
	}
	if got[len(got)-1].Kind != internalhotkey.Released {
		t.Fatal("newest event must survive the overflow")
	}
}

func TestNewGohookListener_UnknownKey(t *testing.T) {
	if _, err := NewGohookListener("no-such-key", "ctrl"); err == nil {
		t.Fatal("expected error for unknown key name")
	}
}

// The default HOTKEY and LOCK_MODIFIER values must name keys gohook
// actually knows, or the listener can never be constructed out of the box.
func TestNewGohookListener_DefaultEnvKeysResolve(t *testing.T) {
	t.Setenv("GOOGLE_CLOUD_PROJECT_ID", "test-project")
	t.Setenv("GOOGLE_CLOUD_CREDENTIALS_JSON", `{"type":"service_account"}`)
	// t.Setenv registers the restore; unsetting afterwards makes the
	// loader fall back to its declared defaults.
	for _, name := range []string{"HOTKEY", "LOCK_MODIFIER"} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}

	cfg, err := extconfig.Load()
	if err != nil {
		t.Fatalf("config load failed: %v", err)
	}
	if _, err := NewGohookListener(cfg.HotkeyName, cfg.LockModifierName); err != nil {
		t.Fatalf("default key names %q/%q do not resolve: %v", cfg.HotkeyName, cfg.LockModifierName, err)
	}
}
