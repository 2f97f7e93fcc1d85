// Package transcriber implements speech recognition with the Cloud
// Speech v2 batch API.
package transcriber

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"cloud.google.com/go/auth/credentials"
	speech "cloud.google.com/go/speech/apiv2"
	speechpb "cloud.google.com/go/speech/apiv2/speechpb"
	"google.golang.org/api/option"

	"github.com/oliverbhull/memo-stt/internal/audio"
	"github.com/oliverbhull/memo-stt/internal/transcriber"
)

const (
	speechAPIEndpointPort = 443
	vocabularyBoost       = 10
)

type CloudSpeechConfig struct {
	ProjectID       string
	CredentialsJSON string
	Language        string
	Location        string
	Model           string
}

type CloudSpeechTranscriber struct {
	projectID       string
	credentialsJSON string
	defaultLanguage string
	location        string
	model           string
}

func NewCloudSpeechTranscriber(cfg CloudSpeechConfig) transcriber.Transcriber {
	return &CloudSpeechTranscriber{
		projectID:       cfg.ProjectID,
		credentialsJSON: cfg.CredentialsJSON,
		defaultLanguage: cfg.Language,
		location:        strings.TrimSpace(cfg.Location),
		model:           strings.TrimSpace(cfg.Model),
	}
}

func (t *CloudSpeechTranscriber) Transcribe(ctx context.Context, req transcriber.Request) (string, error) {
	language := req.Language
	if language == "" {
		language = t.defaultLanguage
	}
	slog.Info("submitting recording for recognition",
		"session_id", req.SessionID,
		"duration", req.Buffer.Duration().String(),
		"language", language,
		"location", t.location,
		"model", t.model)

	creds, err := credentials.DetectDefault(&credentials.DetectOptions{
		CredentialsJSON: []byte(t.credentialsJSON),
		Scopes:          []string{"https://www.googleapis.com/auth/cloud-platform"},
	})
	if err != nil {
		return "", fmt.Errorf("detect credentials: %w", err)
	}

	opts := []option.ClientOption{
		option.WithAuthCredentials(creds),
	}
	if t.location != "global" {
		opts = append(opts, option.WithEndpoint(fmt.Sprintf("%s-speech.googleapis.com:%d", t.location, speechAPIEndpointPort)))
	}

	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("create speech client: %w", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			slog.Debug("speech client close", "error", err)
		}
	}()

	resp, err := client.Recognize(ctx, &speechpb.RecognizeRequest{
		Recognizer: fmt.Sprintf("projects/%s/locations/%s/recognizers/_", t.projectID, t.location),
		Config: &speechpb.RecognitionConfig{
			Model:         t.model,
			LanguageCodes: []string{language},
			DecodingConfig: &speechpb.RecognitionConfig_ExplicitDecodingConfig{
				ExplicitDecodingConfig: &speechpb.ExplicitDecodingConfig{
					Encoding:          speechpb.ExplicitDecodingConfig_LINEAR16,
					SampleRateHertz:   audio.SampleRate,
					AudioChannelCount: 1,
				},
			},
			Features:   &speechpb.RecognitionFeatures{EnableAutomaticPunctuation: true},
			Adaptation: adaptationFor(req.Vocabulary),
		},
		AudioSource: &speechpb.RecognizeRequest_Content{Content: req.Buffer.PCMBytes()},
	})
	if err != nil {
		return "", fmt.Errorf("recognize: %w", err)
	}

	var parts []string
	for _, result := range resp.GetResults() {
		alts := result.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		if text := strings.TrimSpace(alts[0].GetTranscript()); text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return "", transcriber.ErrNoSpeech
	}
	text := strings.Join(parts, " ")
	slog.Info("recognition finished", "session_id", req.SessionID, "chars", len(text))
	return text, nil
}

// adaptationFor turns the configured vocabulary into an inline phrase
// set. Nil when no vocabulary is configured so the request omits the
// adaptation block entirely.
func adaptationFor(vocabulary []string) *speechpb.SpeechAdaptation {
	var phrases []*speechpb.PhraseSet_Phrase
	for _, v := range vocabulary {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		phrases = append(phrases, &speechpb.PhraseSet_Phrase{Value: v, Boost: vocabularyBoost})
	}
	if len(phrases) == 0 {
		return nil
	}
	return &speechpb.SpeechAdaptation{
		PhraseSets: []*speechpb.SpeechAdaptation_AdaptationPhraseSet{
			{
				Value: &speechpb.SpeechAdaptation_AdaptationPhraseSet_InlinePhraseSet{
					InlinePhraseSet: &speechpb.PhraseSet{Phrases: phrases},
				},
			},
		},
	}
}
