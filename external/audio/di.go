package audio

import (
	internalaudio "github.com/oliverbhull/memo-stt/internal/audio"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (internalaudio.Decoder, error) {
		return NewOpusDecoder()
	})
}
