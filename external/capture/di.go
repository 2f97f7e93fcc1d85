package capture

import (
	internalcapture "github.com/oliverbhull/memo-stt/internal/capture"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (internalcapture.Source, error) {
		return NewPortaudioSource(), nil
	})
}
