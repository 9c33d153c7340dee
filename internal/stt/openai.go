package stt

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	ProviderOpenAI = "openai"

	DefaultModel = "whisper-1"
)

// OpenAIConfig configures the OpenAI-compatible transcription client.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Prompt  string
	Timeout time.Duration
}

// OpenAI transcribes artifacts through the audio transcriptions endpoint.
type OpenAI struct {
	client openai.Client
	model  string
	prompt string
}

// NewOpenAI validates cfg and builds a client.
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("openai api key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		// The service never retries; one call per session.
		option.WithMaxRetries(0),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}

	return &OpenAI{
		client: openai.NewClient(opts...),
		model:  model,
		prompt: strings.TrimSpace(cfg.Prompt),
	}, nil
}

// Transcribe uploads the artifact and returns the plain transcript text.
func (o *OpenAI) Transcribe(ctx context.Context, artifact Artifact, language string) (string, error) {
	file, err := os.Open(artifact.Path)
	if err != nil {
		return "", &TranscriptionError{Provider: ProviderOpenAI, Err: fmt.Errorf("open artifact: %w", err)}
	}
	defer file.Close()

	params := openai.AudioTranscriptionNewParams{
		File:  file,
		Model: openai.AudioModel(o.model),
	}
	if lang := strings.TrimSpace(language); lang != "" {
		params.Language = openai.String(lang)
	}
	if o.prompt != "" {
		params.Prompt = openai.String(o.prompt)
	}

	resp, err := o.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", &TranscriptionError{Provider: ProviderOpenAI, Err: err}
	}
	return resp.Text, nil
}

// Model returns the configured model name.
func (o *OpenAI) Model() string { return o.model }

// CheckModel asks the endpoint for the configured model. It authenticates the
// key without uploading audio.
func (o *OpenAI) CheckModel(ctx context.Context) error {
	model, err := o.client.Models.Get(ctx, o.model)
	if err != nil {
		return &TranscriptionError{Provider: ProviderOpenAI, Err: err}
	}
	if model.ID != o.model {
		return &TranscriptionError{Provider: ProviderOpenAI, Err: fmt.Errorf("endpoint returned model %q for %q", model.ID, o.model)}
	}
	return nil
}
