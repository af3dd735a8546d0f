package engine

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/nguyentantai21042004/audio-transcriber/internal/config"
	"github.com/nguyentantai21042004/audio-transcriber/pkg/executor"
)

const (
	serverHost         = "127.0.0.1"
	serverPollInterval = 200 * time.Millisecond

	// whisper-server answers OpenAI-style multipart requests on this path.
	serverInferencePath = "/v1/audio/transcriptions"
)

var (
	freePort        = pickFreePort
	waitForServer   = waitForListener
	newServerClient = func(baseURL string) audioTranscriber {
		cfg := openai.DefaultConfig("")
		cfg.BaseURL = baseURL
		return openai.NewClientWithConfig(cfg)
	}
)

// startServer launches whisper-server with the model and waits until it
// accepts connections. The model stays loaded until Close.
func (w *whisperCPP) startServer(ctx context.Context) error {
	binary, err := w.executor.LookPath(w.cfg.Whisper.ServerPath)
	if err != nil {
		return fmt.Errorf("%w: whisper-server binary: %v", ErrEngineConfig, err)
	}
	port, err := freePort()
	if err != nil {
		return fmt.Errorf("%w: pick whisper-server port: %v", ErrEngineConfig, err)
	}

	addr := net.JoinHostPort(serverHost, strconv.Itoa(port))
	w.logger.Info(ctx, "Loading %s into whisper-server on %s", w.model, addr)

	proc, err := w.executor.Start(binary, w.buildServerArgs(port)...)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEngineConfig, err)
	}
	if err := waitForServer(ctx, addr, proc, w.cfg.Whisper.StartupTimeout); err != nil {
		proc.Stop()
		return fmt.Errorf("%w: whisper-server not ready: %v", ErrEngineConfig, err)
	}

	w.server = proc
	w.client = newServerClient("http://" + addr + "/v1")
	w.logger.Info(ctx, "whisper-server ready")
	return nil
}

// buildServerArgs builds whisper-server args. Language and device are fixed
// for the run; temperature is sent with each request.
func (w *whisperCPP) buildServerArgs(port int) []string {
	lang := normalizeLanguage(w.cfg.Language)
	if lang == "" {
		lang = "auto"
	}
	args := []string{
		"-m", w.model,
		"--host", serverHost,
		"--port", strconv.Itoa(port),
		"--inference-path", serverInferencePath,
		"-t", strconv.Itoa(w.cfg.Threads),
		"-l", lang,
	}
	if w.cfg.Device == config.DeviceCPU {
		args = append(args, "-ng")
	}
	return args
}

func (w *whisperCPP) transcribeServer(ctx context.Context, wavPath string) (string, error) {
	select {
	case <-w.server.Done():
		return "", w.fail(StageTranscribing, w.server.Err())
	default:
	}

	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:       "whisper-1",
		FilePath:    wavPath,
		Language:    normalizeLanguage(w.cfg.Language),
		Temperature: float32(w.cfg.Temperature),
		Format:      openai.AudioResponseFormatJSON,
	})
	if err != nil {
		if exitErr := w.server.Err(); exitErr != nil {
			err = fmt.Errorf("%w (%v)", err, exitErr)
		}
		return "", w.fail(StageTranscribing, err)
	}
	return resp.Text, nil
}

func pickFreePort() (int, error) {
	l, err := net.Listen("tcp", net.JoinHostPort(serverHost, "0"))
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// waitForListener polls addr until it accepts a TCP connection, the process
// exits, ctx ends or timeout passes.
func waitForListener(ctx context.Context, addr string, proc executor.Process, timeout time.Duration) error {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(serverPollInterval)
	defer ticker.Stop()

	for {
		conn, err := net.DialTimeout("tcp", addr, time.Second)
		if err == nil {
			conn.Close()
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-proc.Done():
			return proc.Err()
		case <-deadline.C:
			return fmt.Errorf("no listener on %s after %s", addr, timeout)
		case <-ticker.C:
		}
	}
}
