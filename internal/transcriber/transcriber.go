// Package transcriber defines the speech-to-text collaborator contract.
package transcriber

import (
	"context"
	"errors"

	"github.com/oliverbhull/memo-stt/internal/audio"
)

var ErrNoSpeech = errors.New("transcriber: no speech recognized")

// Request carries one finished recording. Vocabulary entries bias
// recognition toward domain terms.
type Request struct {
	SessionID  string
	Buffer     *audio.Buffer
	Language   string
	Vocabulary []string
}

type Transcriber interface {
	Transcribe(ctx context.Context, req Request) (string, error)
}
