// Package archive writes finished recordings to WAV files on disk.
package archive

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	internalaudio "github.com/oliverbhull/memo-stt/internal/audio"
	internalarchive "github.com/oliverbhull/memo-stt/internal/archive"
)

const wavBitDepth = 16

// WavArchiver writes one file per recording under the configured
// directory, named by start timestamp and session id. An empty directory
// disables archiving.
type WavArchiver struct {
	dir string
}

func NewWavArchiver(dir string) internalarchive.Archiver {
	return &WavArchiver{dir: dir}
}

func (a *WavArchiver) Save(_ context.Context, sessionID string, buf *internalaudio.Buffer) (string, error) {
	if a.dir == "" {
		return "", nil
	}
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return "", fmt.Errorf("create archive dir: %w", err)
	}

	name := fmt.Sprintf("%s_%s.wav", time.Now().Format("20060102T150405"), sessionID)
	path := filepath.Join(a.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create archive file: %w", err)
	}

	enc := wav.NewEncoder(f, buf.SampleRate, wavBitDepth, 1, 1)
	data := make([]int, len(buf.Samples))
	for i, s := range buf.Samples {
		data[i] = int(s)
	}
	intBuf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: buf.SampleRate},
		Data:           data,
		SourceBitDepth: wavBitDepth,
	}
	if err := enc.Write(intBuf); err != nil {
		_ = enc.Close()
		_ = f.Close()
		return "", fmt.Errorf("write wav data: %w", err)
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("finalize wav: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close archive file: %w", err)
	}

	slog.Info("recording archived", "path", path, "samples", len(buf.Samples))
	return path, nil
}
