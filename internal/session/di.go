package session

import (
	"github.com/samber/do/v2"

	"github.com/oliverbhull/memo-stt/internal/archive"
	"github.com/oliverbhull/memo-stt/internal/ble"
	"github.com/oliverbhull/memo-stt/internal/capture"
	"github.com/oliverbhull/memo-stt/internal/config"
	"github.com/oliverbhull/memo-stt/internal/hotkey"
	"github.com/oliverbhull/memo-stt/internal/notify"
	"github.com/oliverbhull/memo-stt/internal/repository"
	"github.com/oliverbhull/memo-stt/internal/transcriber"
	"github.com/oliverbhull/memo-stt/internal/webhook"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (Finalizer, error) {
		cfg := do.MustInvoke[*config.Config](i)
		stt := do.MustInvoke[transcriber.Transcriber](i)
		repo := do.MustInvoke[repository.Repository](i)
		sender := do.MustInvoke[webhook.Sender](i)
		archiver := do.MustInvoke[archive.Archiver](i)
		notifier := do.MustInvoke[notify.Notifier](i)
		return NewPipeline(cfg, stt, repo, sender, archiver, notifier), nil
	})

	do.Provide(injector, func(i do.Injector) (*Recorder, error) {
		cfg := do.MustInvoke[*config.Config](i)
		link := do.MustInvoke[ble.LinkManager](i)
		mic := do.MustInvoke[capture.Source](i)
		keys := do.MustInvoke[hotkey.Listener](i)
		finalizer := do.MustInvoke[Finalizer](i)
		return NewRecorder(cfg, link, mic, keys, finalizer), nil
	})
}
