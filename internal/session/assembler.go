package session

import (
	"errors"
	"log/slog"
	"time"

	"github.com/oliverbhull/memo-stt/internal/audio"
)

var ErrBufferTooShort = errors.New("session: recording shorter than minimum duration")

// Assembler accumulates decoded frames into one contiguous PCM buffer.
// Sequence numbers are 8-bit and wrap; a gap between consecutive frames
// is filled with silence so the recording keeps its wall-clock length.
type Assembler struct {
	minDuration time.Duration

	samples      []int16
	lastSeq      uint8
	haveSeq      bool
	lastFrameLen int
	gapSamples   int
}

func NewAssembler(minDuration time.Duration) *Assembler {
	return &Assembler{
		minDuration:  minDuration,
		lastFrameLen: audio.SamplesPerFrame,
	}
}

func (a *Assembler) Append(f audio.Frame) {
	if a.haveSeq {
		gap := int(f.Seq - a.lastSeq) // wraps at 256
		if gap == 0 {
			slog.Debug("duplicate frame sequence, skipping", "seq", f.Seq)
			return
		}
		for missing := gap - 1; missing > 0; missing-- {
			a.samples = append(a.samples, make([]int16, a.lastFrameLen)...)
			a.gapSamples += a.lastFrameLen
		}
		if gap > 1 {
			slog.Warn("frame gap filled with silence", "missing_frames", gap-1, "seq", f.Seq)
		}
	}
	a.samples = append(a.samples, f.Samples...)
	a.lastSeq = f.Seq
	a.haveSeq = true
	if len(f.Samples) > 0 {
		a.lastFrameLen = len(f.Samples)
	}
}

func (a *Assembler) Duration() time.Duration {
	return time.Duration(len(a.samples)) * time.Second / audio.SampleRate
}

func (a *Assembler) SampleCount() int {
	return len(a.samples)
}

// GapFilledSamples is how much of the buffer is silence inserted for
// lost frames.
func (a *Assembler) GapFilledSamples() int {
	return a.gapSamples
}

// Finish seals the buffer. Recordings below the minimum duration are
// rejected so accidental taps never reach the recognizer.
func (a *Assembler) Finish(partial bool) (*audio.Buffer, error) {
	if a.Duration() < a.minDuration {
		return nil, ErrBufferTooShort
	}
	return &audio.Buffer{
		Samples:    a.samples,
		SampleRate: audio.SampleRate,
		Partial:    partial,
	}, nil
}
