package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/nguyentantai21042004/audio-transcriber/internal/config"
	"github.com/nguyentantai21042004/audio-transcriber/internal/logger"
	"github.com/nguyentantai21042004/audio-transcriber/pkg/executor"
)

// fakeExecutor simulates command execution order and outcomes.
type fakeExecutor struct {
	lookPath func(name string) (string, error)
	run      func(ctx context.Context, name string, args ...string) (executor.Result, error)
	calls    []string
	starts   [][]string
	proc     *fakeProcess
}

func (f *fakeExecutor) Execute(ctx context.Context, name string, args ...string) (executor.Result, error) {
	f.calls = append(f.calls, name)
	if f.run == nil {
		return executor.Result{}, nil
	}
	return f.run(ctx, name, args...)
}

func (f *fakeExecutor) Start(name string, args ...string) (executor.Process, error) {
	f.starts = append(f.starts, append([]string{name}, args...))
	if f.proc == nil {
		f.proc = newFakeProcess()
	}
	return f.proc, nil
}

func (f *fakeExecutor) LookPath(name string) (string, error) {
	if f.lookPath == nil {
		return "/usr/bin/" + name, nil
	}
	return f.lookPath(name)
}

// fakeProcess is a resident process that runs until Stop or exit.
type fakeProcess struct {
	done  chan struct{}
	once  sync.Once
	err   error
	stops int
}

func newFakeProcess() *fakeProcess {
	return &fakeProcess{done: make(chan struct{})}
}

func (p *fakeProcess) Done() <-chan struct{} { return p.done }

func (p *fakeProcess) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

func (p *fakeProcess) Stop() error {
	p.stops++
	p.exit(errors.New("stopped"))
	return nil
}

func (p *fakeProcess) exit(err error) {
	p.once.Do(func() {
		p.err = err
		close(p.done)
	})
}

// stubServer replaces port selection, readiness polling and the HTTP client
// so server mode runs against client without a real whisper-server.
func stubServer(t *testing.T, client audioTranscriber) *string {
	t.Helper()
	origPort, origWait, origClient := freePort, waitForServer, newServerClient
	t.Cleanup(func() {
		freePort, waitForServer, newServerClient = origPort, origWait, origClient
	})

	var baseURL string
	freePort = func() (int, error) { return 18080, nil }
	waitForServer = func(ctx context.Context, addr string, proc executor.Process, timeout time.Duration) error {
		return nil
	}
	newServerClient = func(url string) audioTranscriber {
		baseURL = url
		return client
	}
	return &baseURL
}

func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func argValue(args []string, key string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == key {
			return args[i+1]
		}
	}
	return ""
}

func testEngineConfig(t *testing.T) config.EngineConfig {
	t.Helper()
	modelDir := t.TempDir()
	mustWriteFile(t, filepath.Join(modelDir, "ggml-medium.bin"), "model")

	cfg := config.Config{
		Engine: config.EngineConfig{
			ModelSize: "medium",
			Device:    "cpu",
			Language:  "vi",
			Whisper:   config.WhisperConfig{ModelDir: modelDir},
		},
		Paths: config.PathsConfig{Root: "unused"},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	return cfg.Engine
}

func testCLIConfig(t *testing.T) config.EngineConfig {
	t.Helper()
	cfg := testEngineConfig(t)
	cfg.Whisper.Mode = config.WhisperModeCLI
	return cfg
}

func TestWhisperCPPCLITranscribeSuccess(t *testing.T) {
	cfg := testCLIConfig(t)
	var whisperArgs []string
	exec := &fakeExecutor{
		run: func(ctx context.Context, name string, args ...string) (executor.Result, error) {
			switch name {
			case "/usr/bin/ffmpeg":
				mustWriteFile(t, args[len(args)-1], "wav")
			case "/usr/bin/whisper-cli":
				whisperArgs = append([]string{}, args...)
				mustWriteFile(t, argValue(args, "-of")+".txt", "  Xin chào các bạn.\n")
			default:
				t.Fatalf("unexpected command %q", name)
			}
			return executor.Result{}, nil
		},
	}

	eng, err := New(context.Background(), cfg, exec, logger.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer eng.Close()

	tr, err := eng.Transcribe(context.Background(), "/audio/a.mp3")
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if tr.Text != "Xin chào các bạn." {
		t.Errorf("Text = %q", tr.Text)
	}
	if !slices.Equal(exec.calls, []string{"/usr/bin/ffmpeg", "/usr/bin/whisper-cli"}) {
		t.Errorf("calls = %v", exec.calls)
	}
	if len(exec.starts) != 0 {
		t.Errorf("cli mode should not start a server: %v", exec.starts)
	}
	if argValue(whisperArgs, "-l") != "vi" {
		t.Errorf("language arg missing: %v", whisperArgs)
	}
	if !slices.Contains(whisperArgs, "-ng") {
		t.Errorf("cpu device should pass -ng: %v", whisperArgs)
	}
	if !strings.HasSuffix(argValue(whisperArgs, "-m"), "ggml-medium.bin") {
		t.Errorf("model arg = %q", argValue(whisperArgs, "-m"))
	}
	if _, err := os.Stat(filepath.Dir(argValue(whisperArgs, "-of"))); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("temp dir should be removed, stat err = %v", err)
	}
}

func TestWhisperCPPCLIStageErrors(t *testing.T) {
	tests := []struct {
		name      string
		failOn    string
		wantStage string
	}{
		{"ffmpeg fails on corrupt input", "/usr/bin/ffmpeg", StagePreprocessing},
		{"whisper fails", "/usr/bin/whisper-cli", StageTranscribing},
		{"no transcript written", "", StageReading},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &fakeExecutor{
				run: func(ctx context.Context, name string, args ...string) (executor.Result, error) {
					if name == tt.failOn {
						return executor.Result{ExitCode: 1}, errors.New("exit status 1")
					}
					return executor.Result{}, nil
				},
			}
			eng, err := New(context.Background(), testCLIConfig(t), exec, logger.Nop())
			if err != nil {
				t.Fatal(err)
			}

			_, err = eng.Transcribe(context.Background(), "/audio/c.mp3")
			var engErr *Error
			if !errors.As(err, &engErr) {
				t.Fatalf("Transcribe() error = %v, want *Error", err)
			}
			if engErr.Stage != tt.wantStage {
				t.Errorf("Stage = %q, want %q", engErr.Stage, tt.wantStage)
			}
		})
	}
}

func TestWhisperCPPAutoDeviceAndLanguage(t *testing.T) {
	cfg := testCLIConfig(t)
	cfg.Device = config.DeviceAuto
	cfg.Language = "auto"

	w, err := newWhisperCPP(context.Background(), cfg, &fakeExecutor{}, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	args := w.buildWhisperArgs("in.wav", "out")
	if slices.Contains(args, "-ng") || slices.Contains(args, "-l") {
		t.Errorf("auto device/language should add no flags: %v", args)
	}

	serverArgs := w.buildServerArgs(9000)
	if slices.Contains(serverArgs, "-ng") || argValue(serverArgs, "-l") != "auto" {
		t.Errorf("server args = %v", serverArgs)
	}
}

// countingTranscriber answers every request and records the files it saw.
type countingTranscriber struct {
	mu    sync.Mutex
	reqs  []openai.AudioRequest
	texts []string
	err   error
}

func (c *countingTranscriber) CreateTranscription(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reqs = append(c.reqs, req)
	if c.err != nil {
		return openai.AudioResponse{}, c.err
	}
	if len(c.texts) == 0 {
		return openai.AudioResponse{Text: "ok"}, nil
	}
	text := c.texts[0]
	c.texts = c.texts[1:]
	return openai.AudioResponse{Text: text}, nil
}

func TestWhisperCPPServerLoadsModelOnce(t *testing.T) {
	client := &countingTranscriber{texts: []string{" một ", "hai\n", "ba"}}
	baseURL := stubServer(t, client)

	exec := &fakeExecutor{
		run: func(ctx context.Context, name string, args ...string) (executor.Result, error) {
			if name != "/usr/bin/ffmpeg" {
				t.Fatalf("unexpected command %q %v", name, args)
			}
			mustWriteFile(t, args[len(args)-1], "wav")
			return executor.Result{}, nil
		},
	}
	eng, err := New(context.Background(), testEngineConfig(t), exec, logger.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	var got []string
	for _, name := range []string{"a.mp3", "b.m4a", "c.wav"} {
		tr, err := eng.Transcribe(context.Background(), "/audio/"+name)
		if err != nil {
			t.Fatalf("Transcribe(%s) error = %v", name, err)
		}
		got = append(got, tr.Text)
	}

	if !slices.Equal(got, []string{"một", "hai", "ba"}) {
		t.Errorf("texts = %q", got)
	}
	if len(exec.starts) != 1 {
		t.Fatalf("server starts = %d, want 1", len(exec.starts))
	}
	start := exec.starts[0]
	if start[0] != "/usr/bin/whisper-server" {
		t.Errorf("started %q", start[0])
	}
	if !strings.HasSuffix(argValue(start[1:], "-m"), "ggml-medium.bin") {
		t.Errorf("model arg = %v", start)
	}
	if argValue(start[1:], "--port") != "18080" || argValue(start[1:], "-l") != "vi" || !slices.Contains(start, "-ng") {
		t.Errorf("server args = %v", start)
	}
	for _, name := range exec.calls {
		if name != "/usr/bin/ffmpeg" {
			t.Errorf("per-file command %q, want only ffmpeg", name)
		}
	}
	if len(client.reqs) != 3 {
		t.Errorf("requests = %d, want 3", len(client.reqs))
	}
	for _, req := range client.reqs {
		if filepath.Base(req.FilePath) != "audio-16k-mono.wav" || req.Language != "vi" {
			t.Errorf("request = %+v", req)
		}
	}
	if *baseURL != "http://127.0.0.1:18080/v1" {
		t.Errorf("base URL = %q", *baseURL)
	}

	if err := eng.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if exec.proc.stops != 1 {
		t.Errorf("stops = %d, want 1", exec.proc.stops)
	}
}

func TestWhisperCPPServerFailures(t *testing.T) {
	ffmpegOK := func(ctx context.Context, name string, args ...string) (executor.Result, error) {
		mustWriteFile(t, args[len(args)-1], "wav")
		return executor.Result{}, nil
	}

	t.Run("server exited", func(t *testing.T) {
		client := &countingTranscriber{}
		stubServer(t, client)
		exec := &fakeExecutor{run: ffmpegOK}
		eng, err := New(context.Background(), testEngineConfig(t), exec, logger.Nop())
		if err != nil {
			t.Fatal(err)
		}
		exec.proc.exit(errors.New("command 'whisper-server' exited: signal: killed"))

		_, err = eng.Transcribe(context.Background(), "/audio/a.mp3")
		var engErr *Error
		if !errors.As(err, &engErr) || engErr.Stage != StageTranscribing {
			t.Fatalf("Transcribe() error = %v, want transcribing *Error", err)
		}
		if len(client.reqs) != 0 {
			t.Errorf("requests sent to a dead server: %d", len(client.reqs))
		}
	})

	t.Run("request fails", func(t *testing.T) {
		client := &countingTranscriber{err: errors.New("500 failed to read audio")}
		stubServer(t, client)
		eng, err := New(context.Background(), testEngineConfig(t), &fakeExecutor{run: ffmpegOK}, logger.Nop())
		if err != nil {
			t.Fatal(err)
		}
		defer eng.Close()

		_, err = eng.Transcribe(context.Background(), "/audio/a.mp3")
		var engErr *Error
		if !errors.As(err, &engErr) || engErr.Stage != StageTranscribing {
			t.Errorf("Transcribe() error = %v, want transcribing *Error", err)
		}
	})

	t.Run("never ready", func(t *testing.T) {
		stubServer(t, &countingTranscriber{})
		waitForServer = func(ctx context.Context, addr string, proc executor.Process, timeout time.Duration) error {
			return errors.New("no listener")
		}
		exec := &fakeExecutor{}
		_, err := New(context.Background(), testEngineConfig(t), exec, logger.Nop())
		if !errors.Is(err, ErrEngineConfig) {
			t.Fatalf("New() error = %v, want ErrEngineConfig", err)
		}
		if exec.proc == nil || exec.proc.stops != 1 {
			t.Errorf("unready server should be stopped")
		}
	})
}

func TestWaitForListener(t *testing.T) {
	t.Run("process exits first", func(t *testing.T) {
		proc := newFakeProcess()
		proc.exit(errors.New("exit status 1"))
		err := waitForListener(context.Background(), "127.0.0.1:1", proc, time.Minute)
		if err == nil || !strings.Contains(err.Error(), "exit status 1") {
			t.Errorf("waitForListener() error = %v", err)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		err := waitForListener(context.Background(), "127.0.0.1:1", newFakeProcess(), 50*time.Millisecond)
		if err == nil {
			t.Error("waitForListener() should time out")
		}
	})
}

func TestNewWhisperCPPConfigErrors(t *testing.T) {
	for _, tt := range []struct {
		mode   string
		binary string
	}{
		{config.WhisperModeCLI, "whisper-cli"},
		{config.WhisperModeServer, "whisper-server"},
	} {
		t.Run("missing "+tt.binary, func(t *testing.T) {
			exec := &fakeExecutor{lookPath: func(name string) (string, error) {
				if name == tt.binary {
					return "", errors.New("not found")
				}
				return "/usr/bin/" + name, nil
			}}
			cfg := testEngineConfig(t)
			cfg.Whisper.Mode = tt.mode
			_, err := New(context.Background(), cfg, exec, logger.Nop())
			if !errors.Is(err, ErrEngineConfig) {
				t.Errorf("New() error = %v, want ErrEngineConfig", err)
			}
			if len(exec.starts) != 0 {
				t.Errorf("nothing should start: %v", exec.starts)
			}
		})
	}

	t.Run("missing model", func(t *testing.T) {
		cfg := testEngineConfig(t)
		cfg.ModelSize = "tiny"
		_, err := New(context.Background(), cfg, &fakeExecutor{}, logger.Nop())
		if !errors.Is(err, ErrEngineConfig) {
			t.Errorf("New() error = %v, want ErrEngineConfig", err)
		}
	})

	t.Run("unknown backend", func(t *testing.T) {
		cfg := testEngineConfig(t)
		cfg.Backend = "vosk"
		_, err := New(context.Background(), cfg, &fakeExecutor{}, logger.Nop())
		if !errors.Is(err, ErrEngineConfig) {
			t.Errorf("New() error = %v, want ErrEngineConfig", err)
		}
	})
}

func TestResolveModelPath(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "ggml-large-v3.bin"), "m")
	mustWriteFile(t, filepath.Join(dir, "custom", "b.gguf"), "m")
	mustWriteFile(t, filepath.Join(dir, "custom", "a.bin"), "m")

	tests := []struct {
		name string
		cfg  config.EngineConfig
		want string
	}{
		{
			name: "large falls back to large-v3",
			cfg:  config.EngineConfig{ModelSize: "large", Whisper: config.WhisperConfig{ModelDir: dir}},
			want: filepath.Join(dir, "ggml-large-v3.bin"),
		},
		{
			name: "explicit directory picks first model",
			cfg:  config.EngineConfig{Whisper: config.WhisperConfig{ModelPath: filepath.Join(dir, "custom")}},
			want: filepath.Join(dir, "custom", "a.bin"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveModelPath(tt.cfg)
			if err != nil {
				t.Fatalf("resolveModelPath() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("resolveModelPath() = %q, want %q", got, tt.want)
			}
		})
	}
}
