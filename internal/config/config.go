package config

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

type Config struct {
	Engine  EngineConfig  `yaml:"engine"`
	Paths   PathsConfig   `yaml:"paths"`
	Export  ExportConfig  `yaml:"export"`
	Watch   WatchConfig   `yaml:"watch"`
	Logging LoggingConfig `yaml:"logging"`
}

type EngineConfig struct {
	Backend     string        `yaml:"backend"`
	ModelSize   string        `yaml:"model_size"`
	Device      string        `yaml:"device"`
	Language    string        `yaml:"language"`
	Temperature float64       `yaml:"temperature"`
	Threads     int           `yaml:"threads"`
	Whisper     WhisperConfig `yaml:"whisper"`
	OpenAI      OpenAIConfig  `yaml:"openai"`
	Gemini      GeminiConfig  `yaml:"gemini"`
}

type WhisperConfig struct {
	// Mode is "server" (model loaded once per run) or "cli" (one process per file).
	Mode           string        `yaml:"mode"`
	ServerPath     string        `yaml:"server_path"`
	StartupTimeout time.Duration `yaml:"startup_timeout"`
	BinaryPath     string        `yaml:"binary_path"`
	FFmpegPath     string        `yaml:"ffmpeg_path"`
	ModelDir       string        `yaml:"model_dir"`
	ModelPath      string        `yaml:"model_path"`
}

type OpenAIConfig struct {
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"-"`
}

type GeminiConfig struct {
	Model   string   `yaml:"model"`
	APIKeys []string `yaml:"-"`
}

type PathsConfig struct {
	Root          string `yaml:"root"`
	SuccessLog    string `yaml:"success_log"`
	ErrorLog      string `yaml:"error_log"`
	ProcessedList string `yaml:"processed_list"`
}

type ExportConfig struct {
	PDFFont             string `yaml:"pdf_font"`
	PDFFontSize         int    `yaml:"pdf_font_size"`
	DocxFont            string `yaml:"docx_font"`
	DocxFontSize        int    `yaml:"docx_font_size"`
	Title               bool   `yaml:"title"`
	SkipExistingOutputs bool   `yaml:"skip_existing_outputs"`
}

type WatchConfig struct {
	Enabled bool          `yaml:"enabled"`
	Settle  time.Duration `yaml:"settle"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

const (
	BackendWhisperCPP = "whispercpp"
	BackendOpenAI     = "openai"
	BackendGemini     = "gemini"

	WhisperModeServer = "server"
	WhisperModeCLI    = "cli"

	DeviceAuto = "auto"
	DeviceCPU  = "cpu"
	DeviceCUDA = "cuda"
)

// ModelSizes lists the whisper model names accepted by model_size.
var ModelSizes = []string{
	"tiny", "tiny.en", "base", "base.en", "small", "small.en", "medium", "medium.en",
	"large", "large-v1", "large-v2", "large-v3", "large-v3-turbo",
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	// Validate only fails on a missing root, which the caller supplies later.
	_ = cfg.Validate()
	return cfg
}

// Validate checks enums and fills defaults. It must be called again after
// command-line overrides are applied.
func (c *Config) Validate() error {
	if c.Engine.Backend == "" {
		c.Engine.Backend = BackendWhisperCPP
	}
	c.Engine.Backend = strings.ToLower(strings.TrimSpace(c.Engine.Backend))
	switch c.Engine.Backend {
	case BackendWhisperCPP, BackendOpenAI, BackendGemini:
	default:
		return fmt.Errorf("engine.backend: unsupported value %q (whispercpp, openai, gemini)", c.Engine.Backend)
	}

	if c.Engine.Device == "" {
		c.Engine.Device = DeviceAuto
	}
	c.Engine.Device = strings.ToLower(strings.TrimSpace(c.Engine.Device))
	if c.Engine.Device == "gpu" {
		c.Engine.Device = DeviceCUDA
	}
	switch c.Engine.Device {
	case DeviceAuto, DeviceCPU, DeviceCUDA:
	default:
		return fmt.Errorf("engine.device: unsupported value %q (auto, cpu, cuda)", c.Engine.Device)
	}

	if c.Engine.ModelSize == "" {
		c.Engine.ModelSize = "large"
	}
	if c.Engine.Backend == BackendWhisperCPP && c.Engine.Whisper.ModelPath == "" &&
		!slices.Contains(ModelSizes, c.Engine.ModelSize) {
		return fmt.Errorf("engine.model_size: unsupported value %q", c.Engine.ModelSize)
	}
	if c.Engine.Language == "" {
		c.Engine.Language = "vi"
	}
	if c.Engine.Temperature < 0 || c.Engine.Temperature > 1 {
		return fmt.Errorf("engine.temperature must be within [0, 1], got %v", c.Engine.Temperature)
	}
	if c.Engine.Threads == 0 {
		c.Engine.Threads = 8
	}
	if c.Engine.Whisper.Mode == "" {
		c.Engine.Whisper.Mode = WhisperModeServer
	}
	c.Engine.Whisper.Mode = strings.ToLower(strings.TrimSpace(c.Engine.Whisper.Mode))
	switch c.Engine.Whisper.Mode {
	case WhisperModeServer, WhisperModeCLI:
	default:
		return fmt.Errorf("engine.whisper.mode: unsupported value %q (server, cli)", c.Engine.Whisper.Mode)
	}
	if c.Engine.Whisper.ServerPath == "" {
		c.Engine.Whisper.ServerPath = "whisper-server"
	}
	if c.Engine.Whisper.StartupTimeout == 0 {
		c.Engine.Whisper.StartupTimeout = 2 * time.Minute
	}
	if c.Engine.Whisper.BinaryPath == "" {
		c.Engine.Whisper.BinaryPath = "whisper-cli"
	}
	if c.Engine.Whisper.FFmpegPath == "" {
		c.Engine.Whisper.FFmpegPath = "ffmpeg"
	}
	if c.Engine.Whisper.ModelDir == "" {
		c.Engine.Whisper.ModelDir = "models"
	}
	if c.Engine.OpenAI.Model == "" {
		c.Engine.OpenAI.Model = "whisper-1"
	}
	if c.Engine.Gemini.Model == "" {
		c.Engine.Gemini.Model = "gemini-2.5-flash"
	}

	if c.Paths.SuccessLog == "" {
		c.Paths.SuccessLog = "transcribe_log_success.txt"
	}
	if c.Paths.ErrorLog == "" {
		c.Paths.ErrorLog = "transcribe_log_error.txt"
	}
	if c.Paths.ProcessedList == "" {
		c.Paths.ProcessedList = "transcribe_processed_files.txt"
	}

	if c.Export.PDFFontSize == 0 {
		c.Export.PDFFontSize = 12
	}
	if c.Export.DocxFont == "" {
		c.Export.DocxFont = "Times New Roman"
	}
	if c.Export.DocxFontSize == 0 {
		c.Export.DocxFontSize = 13
	}

	if c.Watch.Settle == 0 {
		c.Watch.Settle = 2 * time.Second
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	if c.Paths.Root == "" {
		return fmt.Errorf("paths.root is required")
	}
	return nil
}

// ResolveState returns absolute locations of the success log, error log and
// processed list. Relative names live inside the root folder.
func (c *Config) ResolveState() (successLog, errorLog, processed string, err error) {
	root, err := filepath.Abs(c.Paths.Root)
	if err != nil {
		return "", "", "", fmt.Errorf("resolve root: %w", err)
	}
	resolve := func(p string) string {
		if filepath.IsAbs(p) {
			return filepath.Clean(p)
		}
		return filepath.Join(root, p)
	}
	return resolve(c.Paths.SuccessLog), resolve(c.Paths.ErrorLog), resolve(c.Paths.ProcessedList), nil
}
