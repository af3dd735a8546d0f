package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/nguyentantai21042004/audio-transcriber/internal/config"
	"github.com/nguyentantai21042004/audio-transcriber/internal/logger"
	"github.com/nguyentantai21042004/audio-transcriber/pkg/executor"
)

// New builds the engine selected by cfg.Backend. It validates everything the
// backend needs up front so a bad setup fails before the batch starts.
func New(ctx context.Context, cfg config.EngineConfig, exec executor.Executor, log logger.Logger) (Engine, error) {
	switch cfg.Backend {
	case config.BackendWhisperCPP, "":
		w, err := newWhisperCPP(ctx, cfg, exec, log)
		if err != nil {
			return nil, err
		}
		return w, nil
	case config.BackendOpenAI:
		warnDevice(ctx, cfg, log)
		return newOpenAI(cfg)
	case config.BackendGemini:
		warnDevice(ctx, cfg, log)
		return newGemini(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrEngineConfig, cfg.Backend)
	}
}

func warnDevice(ctx context.Context, cfg config.EngineConfig, log logger.Logger) {
	if cfg.Device != "" && cfg.Device != config.DeviceAuto {
		log.Warn(ctx, "Device %q is ignored by the remote %s backend", cfg.Device, cfg.Backend)
	}
}

// normalizeLanguage maps "auto" and empty language to no override.
func normalizeLanguage(raw string) string {
	lang := strings.TrimSpace(raw)
	if lang == "" || strings.EqualFold(lang, "auto") {
		return ""
	}
	return lang
}
