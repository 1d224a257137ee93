// Package tts serves cached OpenAI text-to-speech audio for the chat relay.
package tts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Synthesizer turns text into encoded audio
type Synthesizer interface {
	Synthesize(ctx context.Context, model, voice, format, text string) ([]byte, error)
}

// CacheKey is the first 40 hex chars of sha256("model|voice|format|text")
func CacheKey(model, voice, format, text string) string {
	sum := sha256.Sum256([]byte(model + "|" + voice + "|" + format + "|" + text))
	return hex.EncodeToString(sum[:])[:40]
}

// FallbackModels lists the models to try in order, starting with m
func FallbackModels(m string) []string {
	models := []string{m}
	if m != "tts-1" && m != "tts-1-hd" {
		models = append(models, "tts-1")
	}
	if strings.Contains(m, "mini") && !contains(models, "gpt-4o-mini-tts") {
		models = append(models, "gpt-4o-mini-tts")
	}
	return models
}

// MimeType maps an audio format to its content type
func MimeType(format string) string {
	if format == "mp3" {
		return "audio/mpeg"
	}
	return "audio/" + format
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// OpenAISynthesizer calls the OpenAI speech endpoint
type OpenAISynthesizer struct {
	client openai.Client
}

func NewOpenAISynthesizer(apiKey string, opts ...option.RequestOption) *OpenAISynthesizer {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &OpenAISynthesizer{client: openai.NewClient(opts...)}
}

func (s *OpenAISynthesizer) Synthesize(ctx context.Context, model, voice, format, text string) ([]byte, error) {
	res, err := s.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model:          openai.SpeechModel(model),
		Voice:          openai.AudioSpeechNewParamsVoice(voice),
		Input:          text,
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormat(format),
	})
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("speech request failed: %s", res.Status)
	}
	audio, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}
	return audio, nil
}
