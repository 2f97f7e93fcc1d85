package audio

import (
	"encoding/binary"
	"time"
)

// Buffer is one finished recording: contiguous mono PCM at the pipeline
// rate. Partial marks recordings cut short by a lost link rather than a
// deliberate stop.
type Buffer struct {
	Samples    []int16
	SampleRate int
	Partial    bool
}

func (b *Buffer) Duration() time.Duration {
	if b.SampleRate == 0 {
		return 0
	}
	return time.Duration(len(b.Samples)) * time.Second / time.Duration(b.SampleRate)
}

// PCMBytes renders the samples as little-endian 16-bit PCM, the layout
// both the recognizer and the WAV writer expect.
func (b *Buffer) PCMBytes() []byte {
	out := make([]byte, len(b.Samples)*2)
	for i, s := range b.Samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}
