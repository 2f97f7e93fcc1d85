package archive

import (
	"github.com/samber/do/v2"

	internalarchive "github.com/oliverbhull/memo-stt/internal/archive"
	"github.com/oliverbhull/memo-stt/internal/config"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (internalarchive.Archiver, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewWavArchiver(c.ArchiveDir), nil
	})
}
