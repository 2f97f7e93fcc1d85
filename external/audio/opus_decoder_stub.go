//go:build !opus

package audio

import (
	internalaudio "github.com/oliverbhull/memo-stt/internal/audio"
)

// Builds without the opus tag (no libopus toolchain available) get a
// decoder that swallows frames; BLE audio mode is effectively disabled.
type noopDecoder struct{}

func NewOpusDecoder() (internalaudio.Decoder, error) {
	return &noopDecoder{}, nil
}

func (d *noopDecoder) DecodeFrame(_ []byte) ([]int16, error)  { return nil, nil }
func (d *noopDecoder) DecodeBundle(_ []byte) ([]int16, error) { return nil, nil }
func (d *noopDecoder) DroppedFrames() uint64                  { return 0 }
