package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/nguyentantai21042004/audio-transcriber/internal/config"
)

// audioTranscriber is the subset of *openai.Client used here.
type audioTranscriber interface {
	CreateTranscription(ctx context.Context, request openai.AudioRequest) (openai.AudioResponse, error)
}

type openAIEngine struct {
	client      audioTranscriber
	model       string
	language    string
	temperature float32
}

func newOpenAI(cfg config.EngineConfig) (*openAIEngine, error) {
	if strings.TrimSpace(cfg.OpenAI.APIKey) == "" {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY is not set", ErrEngineConfig)
	}

	clientCfg := openai.DefaultConfig(cfg.OpenAI.APIKey)
	if cfg.OpenAI.BaseURL != "" {
		clientCfg.BaseURL = cfg.OpenAI.BaseURL
	}

	return &openAIEngine{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.OpenAI.Model,
		language:    normalizeLanguage(cfg.Language),
		temperature: float32(cfg.Temperature),
	}, nil
}

func (e *openAIEngine) Name() string {
	return "openai (" + e.model + ")"
}

func (e *openAIEngine) Transcribe(ctx context.Context, audioPath string) (Transcript, error) {
	start := time.Now()

	resp, err := e.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:       e.model,
		FilePath:    audioPath,
		Language:    e.language,
		Temperature: e.temperature,
		Format:      openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return Transcript{}, &Error{Backend: "openai", Stage: StageTranscribing, Err: err}
	}

	return Transcript{
		Text:    strings.TrimSpace(resp.Text),
		Elapsed: time.Since(start),
	}, nil
}

func (e *openAIEngine) Close() error { return nil }
