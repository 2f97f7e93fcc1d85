package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	internalconfig "github.com/oliverbhull/memo-stt/internal/config"
)

type envConfig struct {
	Env              string        `env:"ENV" envDefault:"production"`
	InputSource      string        `env:"INPUT_SOURCE" envDefault:"mic"`
	Hotkey           string        `env:"HOTKEY" envDefault:"f12"`
	LockModifier     string        `env:"LOCK_MODIFIER" envDefault:"ctrl"`
	MinRecordingDur  time.Duration `env:"MIN_RECORDING_DURATION" envDefault:"1s"`
	MemoDeviceName   string        `env:"MEMO_DEVICE_NAME"`
	BleTriggerAssist bool          `env:"BLE_TRIGGER_ASSIST" envDefault:"false"`
	Language         string        `env:"TRANSCRIBE_LANGUAGE" envDefault:"en-US"`
	Vocabulary       []string      `env:"VOCAB" envSeparator:","`
	DatabaseURL      string        `env:"DATABASE_URL"`
	WebhookURL       string        `env:"TRANSCRIPT_WEBHOOK_URL"`
	ArchiveDir       string        `env:"ARCHIVE_DIR"`
	Clipboard        bool          `env:"CLIPBOARD" envDefault:"false"`
	Notify           bool          `env:"NOTIFY" envDefault:"false"`

	GoogleCloudProjectID       string `env:"GOOGLE_CLOUD_PROJECT_ID,required"`
	GoogleCloudCredentialsJSON string `env:"GOOGLE_CLOUD_CREDENTIALS_JSON,required"`
	GoogleCloudSpeechLocation  string `env:"GOOGLE_CLOUD_SPEECH_LOCATION" envDefault:"global"`
	GoogleCloudSpeechModel     string `env:"GOOGLE_CLOUD_SPEECH_MODEL" envDefault:"latest_short"`
}

func Load() (*internalconfig.Config, error) {
	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	cfg := &internalconfig.Config{
		Env:              raw.Env,
		InputMode:        internalconfig.InputMode(raw.InputSource),
		HotkeyName:       raw.Hotkey,
		LockModifierName: raw.LockModifier,
		MinRecordingDur:  raw.MinRecordingDur,
		BleDeviceName:    raw.MemoDeviceName,
		BleTriggerAssist: raw.BleTriggerAssist,
		Language:         raw.Language,
		Vocabulary:       raw.Vocabulary,
		DatabaseURL:      raw.DatabaseURL,
		WebhookURL:       raw.WebhookURL,
		ArchiveDir:       raw.ArchiveDir,
		Clipboard:        raw.Clipboard,
		Notify:           raw.Notify,

		GoogleCloudProjectID:       raw.GoogleCloudProjectID,
		GoogleCloudCredentialsJSON: raw.GoogleCloudCredentialsJSON,
		GoogleCloudSpeechLocation:  raw.GoogleCloudSpeechLocation,
		GoogleCloudSpeechModel:     raw.GoogleCloudSpeechModel,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
