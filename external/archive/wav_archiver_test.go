package archive

import (
	"context"
	"os"
	"testing"

	"github.com/go-audio/wav"

	internalaudio "github.com/oliverbhull/memo-stt/internal/audio"
)

func TestSave_DisabledWithoutDir(t *testing.T) {
	archiver := NewWavArchiver("")
	path, err := archiver.Save(context.Background(), "abc", &internalaudio.Buffer{
		Samples:    make([]int16, internalaudio.SampleRate),
		SampleRate: internalaudio.SampleRate,
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if path != "" {
		t.Fatalf("expected empty path, got %q", path)
	}
}

func TestSave_WritesDecodableWav(t *testing.T) {
	dir := t.TempDir()
	archiver := NewWavArchiver(dir)

	samples := make([]int16, internalaudio.SampleRate*2)
	for i := range samples {
		samples[i] = int16(i % 1000)
	}
	path, err := archiver.Save(context.Background(), "deadbeef", &internalaudio.Buffer{
		Samples:    samples,
		SampleRate: internalaudio.SampleRate,
	})
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	got, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode archive: %v", err)
	}
	if got.Format.SampleRate != internalaudio.SampleRate {
		t.Fatalf("sample rate = %d, want %d", got.Format.SampleRate, internalaudio.SampleRate)
	}
	if got.Format.NumChannels != 1 {
		t.Fatalf("channels = %d, want 1", got.Format.NumChannels)
	}
	if len(got.Data) != len(samples) {
		t.Fatalf("samples = %d, want %d", len(got.Data), len(samples))
	}
	for i := 0; i < len(samples); i += 997 {
		if int16(got.Data[i]) != samples[i] {
			t.Fatalf("sample %d = %d, want %d", i, got.Data[i], samples[i])
		}
	}
}
