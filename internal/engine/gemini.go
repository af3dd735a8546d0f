package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/nguyentantai21042004/audio-transcriber/internal/config"
	"github.com/nguyentantai21042004/audio-transcriber/internal/logger"
)

// maxInlineAudio is the request size limit for inline audio parts.
const maxInlineAudio = 20 << 20

const transcribePrompt = `Transcribe this audio recording verbatim.
- Language hint: %s.
- Output only the spoken words as plain text, no timestamps, no speaker labels, no commentary.
- Separate paragraphs with a blank line.
- Keep every Vietnamese diacritic exactly (ă, â, đ, ê, ô, ơ, ư and all tone marks).`

var audioMIMETypes = map[string]string{
	".mp3":  "audio/mp3",
	".m4a":  "audio/mp4",
	".wav":  "audio/wav",
	".flac": "audio/flac",
	".ogg":  "audio/ogg",
	".aac":  "audio/aac",
	".wma":  "audio/x-ms-wma",
	".webm": "audio/webm",
}

// contentGenerator is the subset of genai.Models used here.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type geminiEngine struct {
	models      []contentGenerator
	currentKey  int
	model       string
	language    string
	temperature float32
	logger      logger.Logger
	readFile    func(name string) ([]byte, error)
}

// newGemini creates one client per API key for the whole run.
func newGemini(ctx context.Context, cfg config.EngineConfig, log logger.Logger) (*geminiEngine, error) {
	if len(cfg.Gemini.APIKeys) == 0 {
		return nil, fmt.Errorf("%w: GEMINI_API_KEYS or GEMINI_API_KEY is not set", ErrEngineConfig)
	}

	models := make([]contentGenerator, 0, len(cfg.Gemini.APIKeys))
	for i, key := range cfg.Gemini.APIKeys {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  key,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: create gemini client %d: %v", ErrEngineConfig, i+1, err)
		}
		models = append(models, client.Models)
	}

	language := normalizeLanguage(cfg.Language)
	if language == "" {
		language = "detect automatically"
	}

	return &geminiEngine{
		models:      models,
		model:       cfg.Gemini.Model,
		language:    language,
		temperature: float32(cfg.Temperature),
		logger:      log,
		readFile:    os.ReadFile,
	}, nil
}

func (g *geminiEngine) Name() string {
	return "gemini (" + g.model + ")"
}

func (g *geminiEngine) Transcribe(ctx context.Context, audioPath string) (Transcript, error) {
	start := time.Now()

	data, err := g.readFile(audioPath)
	if err != nil {
		return Transcript{}, g.fail(StagePreprocessing, fmt.Errorf("read audio: %w", err))
	}
	if len(data) == 0 {
		return Transcript{}, g.fail(StagePreprocessing, fmt.Errorf("audio file is empty"))
	}
	if len(data) > maxInlineAudio {
		return Transcript{}, g.fail(StagePreprocessing, fmt.Errorf("audio is %d bytes, inline limit is %d", len(data), maxInlineAudio))
	}

	mime, ok := audioMIMETypes[strings.ToLower(filepath.Ext(audioPath))]
	if !ok {
		mime = "audio/mpeg"
	}
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(fmt.Sprintf(transcribePrompt, g.language)),
			genai.NewPartFromBytes(data, mime),
		}, genai.RoleUser),
	}

	text, err := g.generate(ctx, contents)
	if err != nil {
		return Transcript{}, g.fail(StageTranscribing, err)
	}

	return Transcript{
		Text:    strings.TrimSpace(text),
		Elapsed: time.Since(start),
	}, nil
}

// generate sends the request and rotates API keys on 429 / quota errors.
func (g *geminiEngine) generate(ctx context.Context, contents []*genai.Content) (string, error) {
	temperature := g.temperature
	genCfg := &genai.GenerateContentConfig{Temperature: &temperature}

	var lastErr error
	for range len(g.models) {
		result, err := g.models[g.currentKey].GenerateContent(ctx, g.model, contents, genCfg)
		if err != nil {
			if isRateLimited(err) {
				g.logger.Warn(ctx, "Key %d rate limited, rotating...", g.currentKey+1)
				g.rotateKey()
				lastErr = err
				continue
			}
			return "", fmt.Errorf("generate content: %w", err)
		}

		if result != nil && len(result.Candidates) > 0 && result.Candidates[0].Content != nil {
			var text strings.Builder
			for _, part := range result.Candidates[0].Content.Parts {
				if part != nil && part.Text != "" {
					text.WriteString(part.Text)
				}
			}
			if text.Len() > 0 {
				return text.String(), nil
			}
		}
		return "", fmt.Errorf("empty response from Gemini")
	}

	return "", fmt.Errorf("all API keys exhausted: %w", lastErr)
}

func (g *geminiEngine) rotateKey() {
	g.currentKey = (g.currentKey + 1) % len(g.models)
}

func (g *geminiEngine) fail(stage string, err error) error {
	return &Error{Backend: "gemini", Stage: stage, Err: err}
}

func (g *geminiEngine) Close() error { return nil }

func isRateLimited(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "quota") || strings.Contains(msg, "RESOURCE_EXHAUSTED")
}
