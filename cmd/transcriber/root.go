package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/nguyentantai21042004/audio-transcriber/internal/config"
	"github.com/nguyentantai21042004/audio-transcriber/internal/scanner"
	"github.com/spf13/cobra"
)

const defaultConfigFile = "config.yaml"

type options struct {
	configPath   string
	engine       string
	model        string
	device       string
	lang         string
	font         string
	logLevel     string
	logFormat    string
	settle       time.Duration
	watch        bool
	skipExisting bool
	strict       bool
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "transcriber [flags] <root>",
		Short:         "Transcribe every audio file in a folder to .txt, .docx and .pdf",
		Long:          rootLong(),
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var root string
			if len(args) == 1 {
				root = args[0]
			}
			cfg, err := opts.loadConfig(cmd, root)
			if err != nil {
				return &exitError{code: exitFatal, err: err}
			}
			return run(cmd.Context(), cfg, opts.strict, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	bindFlags(rootCmd, opts)
	rootCmd.AddCommand(newConvertCommand(opts))
	return rootCmd
}

func rootLong() string {
	return "Scans the root folder for audio files, skips those already listed in the processed-files record,\n" +
		"transcribes the rest one at a time and writes the transcript beside each file as .txt, .docx and .pdf.\n\n" +
		"Supported audio: " + strings.Join(scanner.SupportedExtensions(), " ") + "\n\n" +
		exitStatusHelp
}

// exitStatusHelp is shared by every command.
const exitStatusHelp = `Exit status:
  0    the run completed, even if some files failed (see the error log)
  1    configuration error, invalid root, or the processed-files record or a run log could not be written
  2    --strict was set and at least one file failed
  130  interrupted by SIGINT or SIGTERM before the batch finished`

// bindFlags registers the flags shared with subcommands as persistent and the
// transcription flags on the root command only.
func bindFlags(cmd *cobra.Command, opts *options) {
	shared := cmd.PersistentFlags()
	shared.StringVarP(&opts.configPath, "config", "c", "", "Configuration file path (default ./config.yaml when present)")
	shared.StringVar(&opts.font, "font", "", "TrueType font used for PDF output")
	shared.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	shared.StringVar(&opts.logFormat, "log-format", "", "Log format: text or json")
	shared.BoolVar(&opts.strict, "strict", false, "Exit with status 2 when any file failed")

	flags := cmd.Flags()
	flags.StringVar(&opts.engine, "engine", "", "Transcription backend: whispercpp, openai or gemini")
	flags.StringVarP(&opts.model, "model", "m", "", "Model size, e.g. small, medium, large-v3")
	flags.StringVarP(&opts.device, "device", "d", "", "Compute device: auto, cpu or cuda")
	flags.StringVarP(&opts.lang, "lang", "l", "", "Spoken language code, or auto to detect")
	flags.DurationVar(&opts.settle, "settle", 0, "Watch mode: how long a new file must stay unchanged")
	flags.BoolVarP(&opts.watch, "watch", "w", false, "Keep watching the root folder after the batch")
	flags.BoolVar(&opts.skipExisting, "skip-existing", false, "Mark files whose .txt, .docx and .pdf already exist as processed")
}

// loadConfig applies defaults, then the YAML file, then explicitly set flags.
func (o *options) loadConfig(cmd *cobra.Command, root string) (*config.Config, error) {
	path := o.configPath
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			path = defaultConfigFile
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("stat %s: %w", defaultConfigFile, err)
		}
	}

	var cfg *config.Config
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = &config.Config{}
		config.LoadEnv(cfg)
	}

	if root != "" {
		cfg.Paths.Root = root
	}

	flags := cmd.Flags()
	if flags.Changed("engine") {
		cfg.Engine.Backend = o.engine
	}
	if flags.Changed("model") {
		cfg.Engine.ModelSize = o.model
		// An explicit size wins over a model file pinned in the config.
		cfg.Engine.Whisper.ModelPath = ""
	}
	if flags.Changed("device") {
		cfg.Engine.Device = o.device
	}
	if flags.Changed("lang") {
		cfg.Engine.Language = o.lang
	}
	if flags.Changed("font") {
		cfg.Export.PDFFont = o.font
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = o.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = o.logFormat
	}
	if flags.Changed("settle") {
		cfg.Watch.Settle = o.settle
	}
	if flags.Changed("watch") {
		cfg.Watch.Enabled = o.watch
	}
	if flags.Changed("skip-existing") {
		cfg.Export.SkipExistingOutputs = o.skipExisting
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
