// Package audio holds the canonical PCM representation shared by every
// capture source, plus the decoding and resampling contracts that produce it.
package audio

import "time"

const (
	// SampleRate is the canonical rate of every Frame handed downstream.
	SampleRate = 16000
	// FrameDuration is the Opus frame length used by the memo firmware.
	FrameDuration = 20 * time.Millisecond
	// SamplesPerFrame is one 20 ms frame at the canonical rate.
	SamplesPerFrame = SampleRate / 1000 * 20
)

// Frame is one mono PCM chunk in canonical format. Seq is monotonic per
// source (modulo 256 for BLE bundles) and is used downstream to detect gaps
// on a lossy transport. A Frame is owned by whichever stage holds it; it is
// handed between goroutines only through channels, never shared.
type Frame struct {
	Samples    []int16
	SampleRate int
	Channels   int
	Seq        uint8
	ReceivedAt time.Time
}

// Duration is the playback time the frame covers.
func (f Frame) Duration() time.Duration {
	if f.SampleRate == 0 {
		return 0
	}
	return time.Duration(len(f.Samples)) * time.Second / time.Duration(f.SampleRate)
}
