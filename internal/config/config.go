package config

import (
	"fmt"
	"strings"
	"time"
)

// InputMode selects where audio and start/stop triggers come from.
// It is chosen once at startup and never changes for the process lifetime.
type InputMode string

const (
	// InputModeMic captures from the system microphone, triggered by hotkey.
	InputModeMic InputMode = "mic"
	// InputModeBleAudio streams Opus audio from the BLE peripheral,
	// triggered by its hardware button.
	InputModeBleAudio InputMode = "ble"
	// InputModeBleTrigger uses the BLE button for start/stop while audio
	// comes from the system microphone.
	InputModeBleTrigger InputMode = "ble_trigger"
)

// UsesBle reports whether the mode requires a BLE connection at startup.
func (m InputMode) UsesBle() bool {
	return m == InputModeBleAudio || m == InputModeBleTrigger
}

type Config struct {
	Env              string
	InputMode        InputMode
	HotkeyName       string
	LockModifierName string
	MinRecordingDur  time.Duration
	BleDeviceName    string
	BleTriggerAssist bool
	Language         string
	Vocabulary       []string
	DatabaseURL      string
	WebhookURL       string
	ArchiveDir       string
	Clipboard        bool
	Notify           bool

	GoogleCloudProjectID       string
	GoogleCloudCredentialsJSON string
	GoogleCloudSpeechLocation  string
	GoogleCloudSpeechModel     string
}

func (c *Config) Validate() error {
	for _, req := range c.requiredFieldChecks() {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	switch c.InputMode {
	case InputModeMic, InputModeBleAudio, InputModeBleTrigger:
	default:
		return fmt.Errorf("INPUT_SOURCE must be one of mic, ble, ble_trigger, got %q", c.InputMode)
	}
	if c.MinRecordingDur <= 0 {
		return fmt.Errorf("MIN_RECORDING_DURATION must be positive, got %s", c.MinRecordingDur)
	}
	if c.BleDeviceName != "" && !strings.HasPrefix(strings.ToLower(c.BleDeviceName), "memo_") {
		return fmt.Errorf("MEMO_DEVICE_NAME must start with memo_, got %q", c.BleDeviceName)
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *Config) requiredFieldChecks() []requiredEnvField {
	return []requiredEnvField{
		{name: "INPUT_SOURCE", value: string(c.InputMode)},
		{name: "HOTKEY", value: c.HotkeyName},
		{name: "GOOGLE_CLOUD_PROJECT_ID", value: c.GoogleCloudProjectID},
		{name: "GOOGLE_CLOUD_CREDENTIALS_JSON", value: c.GoogleCloudCredentialsJSON},
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// HistoryEnabled reports whether completed sessions should be persisted.
func (c *Config) HistoryEnabled() bool {
	return c.DatabaseURL != ""
}
