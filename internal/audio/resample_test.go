package audio

import (
	"math"
	"testing"
)

func TestResamplePassThrough(t *testing.T) {
	r := NewResampler(SampleRate)
	in := []int16{1, 2, 3, 4}
	out := r.Process(in)
	if len(out) != len(in) {
		t.Fatalf("expected %d samples, got %d", len(in), len(out))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("sample %d: got %d, want %d", i, out[i], in[i])
		}
	}
}

func TestResampleRatio(t *testing.T) {
	// 48 kHz to 16 kHz is a 3:1 reduction.
	r := NewResampler(48000)
	in := make([]int16, 4800) // 100 ms at 48 kHz
	total := 0
	for i := 0; i < 10; i++ {
		total += len(r.Process(in))
	}
	want := 16000 // 1 s of input
	if diff := total - want; diff < -2 || diff > 2 {
		t.Fatalf("expected ~%d output samples, got %d", want, total)
	}
}

func TestResampleChunkSeamContinuity(t *testing.T) {
	// A resampled sine must be identical whether fed whole or in chunks.
	const inRate = 44100
	sine := make([]int16, inRate/10)
	for i := range sine {
		sine[i] = int16(10000 * math.Sin(2*math.Pi*440*float64(i)/inRate))
	}

	whole := NewResampler(inRate).Process(sine)

	chunked := NewResampler(inRate)
	var pieced []int16
	for off := 0; off < len(sine); off += 123 {
		end := off + 123
		if end > len(sine) {
			end = len(sine)
		}
		pieced = append(pieced, chunked.Process(sine[off:end])...)
	}

	// Float accumulation order differs between the two paths, so allow a
	// one-count and one-LSB tolerance; anything larger is a seam click.
	if diff := len(whole) - len(pieced); diff < -1 || diff > 1 {
		t.Fatalf("length mismatch: whole %d, chunked %d", len(whole), len(pieced))
	}
	n := len(whole)
	if len(pieced) < n {
		n = len(pieced)
	}
	for i := 0; i < n; i++ {
		d := int(whole[i]) - int(pieced[i])
		if d < -1 || d > 1 {
			t.Fatalf("sample %d differs: whole %d, chunked %d", i, whole[i], pieced[i])
		}
	}
}

func TestFrameDuration(t *testing.T) {
	f := Frame{Samples: make([]int16, SamplesPerFrame), SampleRate: SampleRate}
	if f.Duration() != FrameDuration {
		t.Fatalf("expected %s, got %s", FrameDuration, f.Duration())
	}
	if (Frame{}).Duration() != 0 {
		t.Fatal("empty frame should have zero duration")
	}
}
