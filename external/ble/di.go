package ble

import (
	internalaudio "github.com/oliverbhull/memo-stt/internal/audio"
	internalble "github.com/oliverbhull/memo-stt/internal/ble"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (internalble.LinkManager, error) {
		decoder := do.MustInvoke[internalaudio.Decoder](i)
		return NewLinkManager(decoder), nil
	})
}
