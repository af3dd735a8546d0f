package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load reads a YAML configuration file on top of the defaults, then picks up
// API keys from the environment.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	LoadEnv(cfg)
	return cfg, nil
}

// LoadEnv loads a .env file from the working directory when one exists and
// copies secrets into cfg. Values already in the process environment win.
func LoadEnv(cfg *Config) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: ignoring malformed .env: %v\n", err)
	}

	if key := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); key != "" {
		cfg.Engine.OpenAI.APIKey = key
	}
	if base := strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")); base != "" && cfg.Engine.OpenAI.BaseURL == "" {
		cfg.Engine.OpenAI.BaseURL = base
	}

	var keys []string
	for _, k := range strings.Split(os.Getenv("GEMINI_API_KEYS"), ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		if k := strings.TrimSpace(os.Getenv("GEMINI_API_KEY")); k != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) > 0 {
		cfg.Engine.Gemini.APIKeys = keys
	}
}
