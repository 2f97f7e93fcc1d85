package hotkey

import (
	internalconfig "github.com/oliverbhull/memo-stt/internal/config"
	internalhotkey "github.com/oliverbhull/memo-stt/internal/hotkey"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (internalhotkey.Listener, error) {
		cfg := do.MustInvoke[*internalconfig.Config](i)
		return NewGohookListener(cfg.HotkeyName, cfg.LockModifierName)
	})
}
