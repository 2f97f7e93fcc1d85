package notify

import (
	"github.com/samber/do/v2"

	"github.com/oliverbhull/memo-stt/internal/config"
	internalnotify "github.com/oliverbhull/memo-stt/internal/notify"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (internalnotify.Notifier, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewDesktopNotifier(c.Clipboard, c.Notify), nil
	})
}
