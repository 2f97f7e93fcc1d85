//go:build opus

package audio

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/hraban/opus"
	internalaudio "github.com/oliverbhull/memo-stt/internal/audio"
)

const (
	sampleRate  = internalaudio.SampleRate
	channels    = 1
	frameBudget = internalaudio.SamplesPerFrame
)

// OpusDecoder decodes the memo firmware's 20 ms / 16 kHz mono Opus frames.
// The underlying decoder is stateful and must see every frame of a stream
// in order; corrupt frames are replaced with a packet-loss concealment
// frame so a single bad notification never kills a live recording.
type OpusDecoder struct {
	dec     *opus.Decoder
	dropped atomic.Uint64
}

func NewOpusDecoder() (internalaudio.Decoder, error) {
	dec, err := opus.NewDecoder(sampleRate, channels)
	if err != nil {
		return nil, fmt.Errorf("create opus decoder: %w", err)
	}
	return &OpusDecoder{dec: dec}, nil
}

func (d *OpusDecoder) DecodeFrame(frame []byte) ([]int16, error) {
	if len(frame) == 0 {
		return nil, nil
	}
	pcm := make([]int16, frameBudget)
	n, err := d.dec.Decode(frame, pcm)
	if err != nil {
		d.dropped.Add(1)
		slog.Debug("opus frame corrupt, concealing", "frame_bytes", len(frame), "error", err)
		return d.conceal(), fmt.Errorf("%w: %v", internalaudio.ErrDecode, err)
	}
	return pcm[:n], nil
}

// conceal asks the decoder to synthesize a plausible frame from its
// internal state (Opus PLC).
func (d *OpusDecoder) conceal() []int16 {
	pcm := make([]int16, frameBudget)
	if err := d.dec.DecodePLC(pcm); err != nil {
		// PLC itself failing means we only have silence to offer.
		for i := range pcm {
			pcm[i] = 0
		}
	}
	return pcm
}

// DecodeBundle parses the firmware bundle layout
// [num_frames:1][frame1_size:1][frame1_data:N][frame2_size:1]... and
// concatenates the decoded PCM of every frame. Truncated bundles decode
// as far as they go; corrupt member frames are concealed and counted.
func (d *OpusDecoder) DecodeBundle(bundle []byte) ([]int16, error) {
	if len(bundle) == 0 {
		return nil, nil
	}
	numFrames := int(bundle[0])
	pcm := make([]int16, 0, numFrames*frameBudget)
	offset := 1
	for i := 0; i < numFrames; i++ {
		if offset >= len(bundle) {
			slog.Warn("opus bundle truncated", "frame", i, "declared_frames", numFrames)
			break
		}
		size := int(bundle[offset])
		offset++
		if offset+size > len(bundle) {
			slog.Warn("opus bundle frame exceeds payload", "frame", i, "size", size)
			break
		}
		decoded, err := d.DecodeFrame(bundle[offset : offset+size])
		if err != nil {
			// Already concealed and counted; keep the stream going.
			slog.Debug("concealed frame inside bundle", "frame", i)
		}
		pcm = append(pcm, decoded...)
		offset += size
	}
	return pcm, nil
}

func (d *OpusDecoder) DroppedFrames() uint64 {
	return d.dropped.Load()
}
