package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/nguyentantai21042004/audio-transcriber/internal/config"
	"github.com/nguyentantai21042004/audio-transcriber/internal/logger"
	"github.com/nguyentantai21042004/audio-transcriber/pkg/executor"
)

// whisperCPP converts every file with ffmpeg and transcribes it with
// whisper.cpp. In server mode the model is loaded once into a resident
// whisper-server for the whole run; cli mode starts whisper-cli per file.
type whisperCPP struct {
	cfg       config.EngineConfig
	executor  executor.Executor
	logger    logger.Logger
	ffmpeg    string
	model     string
	binary    string
	server    executor.Process
	client    audioTranscriber
	mkdirTemp func(dir, pattern string) (string, error)
	removeAll func(path string) error
	readFile  func(name string) ([]byte, error)
}

func newWhisperCPP(ctx context.Context, cfg config.EngineConfig, exec executor.Executor, log logger.Logger) (*whisperCPP, error) {
	ffmpeg, err := exec.LookPath(cfg.Whisper.FFmpegPath)
	if err != nil {
		return nil, fmt.Errorf("%w: ffmpeg: %v", ErrEngineConfig, err)
	}
	model, err := resolveModelPath(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEngineConfig, err)
	}

	w := &whisperCPP{
		cfg:       cfg,
		executor:  exec,
		logger:    log,
		ffmpeg:    ffmpeg,
		model:     model,
		mkdirTemp: os.MkdirTemp,
		removeAll: os.RemoveAll,
		readFile:  os.ReadFile,
	}

	if cfg.Whisper.Mode == config.WhisperModeCLI {
		binary, err := exec.LookPath(cfg.Whisper.BinaryPath)
		if err != nil {
			return nil, fmt.Errorf("%w: whisper.cpp binary: %v", ErrEngineConfig, err)
		}
		w.binary = binary
		log.Warn(ctx, "whisper.cpp cli mode reloads %s for every file", filepath.Base(model))
		return w, nil
	}

	if err := w.startServer(ctx); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *whisperCPP) Name() string {
	mode := config.WhisperModeServer
	if w.server == nil {
		mode = config.WhisperModeCLI
	}
	return fmt.Sprintf("whisper.cpp %s (%s, %s)", mode, filepath.Base(w.model), w.cfg.Device)
}

// Transcribe converts the input to 16kHz mono WAV in a private temp dir and
// hands it to whisper.cpp.
func (w *whisperCPP) Transcribe(ctx context.Context, audioPath string) (Transcript, error) {
	start := time.Now()

	tempDir, err := w.mkdirTemp("", "transcriber-*")
	if err != nil {
		return Transcript{}, w.fail(StagePreprocessing, fmt.Errorf("create temp workspace: %w", err))
	}
	defer func() {
		if err := w.removeAll(tempDir); err != nil {
			w.logger.Warn(ctx, "Failed to cleanup temp dir %s: %v", tempDir, err)
		}
	}()

	wavPath := filepath.Join(tempDir, "audio-16k-mono.wav")
	if _, err := w.executor.Execute(ctx, w.ffmpeg, buildFFmpegArgs(audioPath, wavPath)...); err != nil {
		return Transcript{}, w.fail(StagePreprocessing, err)
	}

	var text string
	if w.server != nil {
		text, err = w.transcribeServer(ctx, wavPath)
	} else {
		text, err = w.transcribeCLI(ctx, wavPath, filepath.Join(tempDir, "transcript"))
	}
	if err != nil {
		return Transcript{}, err
	}

	return Transcript{
		Text:    strings.TrimSpace(text),
		Elapsed: time.Since(start),
	}, nil
}

func (w *whisperCPP) transcribeCLI(ctx context.Context, wavPath, textBase string) (string, error) {
	w.logger.Debug(ctx, "Starting whisper.cpp with %d threads on %s", w.cfg.Threads, w.cfg.Device)
	if _, err := w.executor.Execute(ctx, w.binary, w.buildWhisperArgs(wavPath, textBase)...); err != nil {
		return "", w.fail(StageTranscribing, err)
	}

	content, err := w.readFile(textBase + ".txt")
	if err != nil {
		return "", w.fail(StageReading, fmt.Errorf("whisper.cpp finished without a transcript: %w", err))
	}
	return string(content), nil
}

// Close stops the resident whisper-server, releasing the model.
func (w *whisperCPP) Close() error {
	if w.server == nil {
		return nil
	}
	return w.server.Stop()
}

func (w *whisperCPP) fail(stage string, err error) error {
	return &Error{Backend: "whisper.cpp", Stage: stage, Err: err}
}

// buildFFmpegArgs builds preprocessing args for mono 16k PCM WAV output.
func buildFFmpegArgs(inputPath, outPath string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", inputPath,
		"-vn",          // No video
		"-ar", "16000", // 16kHz sample rate
		"-ac", "1", // Mono
		"-c:a", "pcm_s16le",
		outPath,
	}
}

// buildWhisperArgs builds whisper-cli args for txt transcript export.
// -ng disables GPU offload when the cpu device is forced.
func (w *whisperCPP) buildWhisperArgs(audioPath, textBase string) []string {
	args := []string{
		"-m", w.model,
		"-f", audioPath,
		"-of", textBase,
		"-otxt",
		"-t", strconv.Itoa(w.cfg.Threads),
		"-tp", strconv.FormatFloat(w.cfg.Temperature, 'f', -1, 64),
	}
	if lang := normalizeLanguage(w.cfg.Language); lang != "" {
		args = append(args, "-l", lang)
	}
	if w.cfg.Device == config.DeviceCPU {
		args = append(args, "-ng")
	}
	return args
}

// resolveModelPath returns the ggml model for the configured size, or the
// explicit model_path (a file, or a directory holding .bin/.gguf files).
func resolveModelPath(cfg config.EngineConfig) (string, error) {
	if explicit := strings.TrimSpace(cfg.Whisper.ModelPath); explicit != "" {
		return modelFromPath(explicit)
	}

	var tried []string
	for _, name := range modelFileNames(cfg.ModelSize) {
		path := filepath.Join(cfg.Whisper.ModelDir, name)
		tried = append(tried, path)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", fmt.Errorf("no whisper.cpp model for size %q (looked for %s)", cfg.ModelSize, strings.Join(tried, ", "))
}

func modelFileNames(size string) []string {
	names := []string{"ggml-" + size + ".bin"}
	if size == "large" {
		names = append(names, "ggml-large-v3.bin")
	}
	return names
}

func modelFromPath(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("cannot access model path: %s", path)
	}
	if !info.IsDir() {
		return path, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return "", fmt.Errorf("cannot read model directory: %s", path)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".bin" || ext == ".gguf" {
			names = append(names, entry.Name())
		}
	}
	if len(names) == 0 {
		return "", fmt.Errorf("no .bin or .gguf model files found in: %s", path)
	}
	sort.Strings(names)
	return filepath.Join(path, names[0]), nil
}
