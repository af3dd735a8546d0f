package converter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/nguyentantai21042004/audio-transcriber/internal/config"
	"github.com/nguyentantai21042004/audio-transcriber/internal/exporter"
	"github.com/nguyentantai21042004/audio-transcriber/internal/logger"
	"github.com/nguyentantai21042004/audio-transcriber/internal/runlog"
	"github.com/nguyentantai21042004/audio-transcriber/internal/scanner"
)

const vietnameseText = "Xin chào các bạn.\nHôm nay chúng ta học tiếng Việt.\n\nĐây là đoạn thứ hai: ư ơ ă â ê ô đ."

type fakeExporter struct {
	name, ext string
	fail      error
	texts     map[string]string
}

func (e *fakeExporter) Name() string { return e.name }
func (e *fakeExporter) Ext() string  { return e.ext }

func (e *fakeExporter) Export(text, target string) error {
	if e.texts == nil {
		e.texts = map[string]string{}
	}
	e.texts[filepath.Base(target)] = text
	if e.fail != nil {
		return e.fail
	}
	return os.WriteFile(target, []byte(text), 0o644)
}

type harness struct {
	t         *testing.T
	root      string
	errorLog  string
	processed string
	txt       *fakeExporter
	docx      *fakeExporter
	pdf       *fakeExporter
	runlog    runlog.RunLog
}

func newHarness(t *testing.T, files map[string]string) *harness {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(root, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	h := &harness{
		t:         t,
		root:      root,
		errorLog:  filepath.Join(root, "transcribe_log_error.txt"),
		processed: filepath.Join(root, "transcribe_processed_files.txt"),
		txt:       &fakeExporter{name: "text", ext: ".txt"},
		docx:      &fakeExporter{name: "docx", ext: ".docx"},
		pdf:       &fakeExporter{name: "pdf", ext: ".pdf"},
	}
	rl, err := runlog.Open(filepath.Join(root, "transcribe_log_success.txt"), h.errorLog)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { rl.Close() })
	h.runlog = rl
	return h
}

func (h *harness) run(ctx context.Context) (Summary, error) {
	conv := New(Dependencies{
		Scanner:   scanner.NewWithExtensions(".txt"),
		RunLog:    h.runlog,
		Exporters: []exporter.Exporter{h.txt, h.docx, h.pdf},
		Exclude: []string{
			filepath.Join(h.root, "transcribe_log_success.txt"),
			h.errorLog,
			h.processed,
		},
	}, logger.Nop())
	return conv.Run(ctx, h.root)
}

func (h *harness) exists(name string) bool {
	_, err := os.Stat(filepath.Join(h.root, name))
	return err == nil
}

func TestConvertVietnameseTranscript(t *testing.T) {
	h := newHarness(t, map[string]string{
		"bài giảng.txt": "\uFEFF" + vietnameseText,
		"a.mp3":         "audio",
	})

	sum, err := h.run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sum.Found != 1 || sum.Converted != 1 || sum.Failed != 0 {
		t.Errorf("summary = %+v, want 1 converted", sum)
	}

	for _, name := range []string{"bài giảng.docx", "bài giảng.pdf"} {
		if !h.exists(name) {
			t.Errorf("%s not written", name)
		}
	}
	if diff := cmp.Diff(vietnameseText, h.docx.texts["bài giảng.docx"]); diff != "" {
		t.Errorf("docx text mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(vietnameseText, h.pdf.texts["bài giảng.pdf"]); diff != "" {
		t.Errorf("pdf text mismatch (-want +got):\n%s", diff)
	}
	if len(h.txt.texts) != 0 {
		t.Errorf("transcript rewritten by the text exporter: %v", h.txt.texts)
	}
	if h.exists("transcribe_processed_files.txt") {
		t.Error("conversion touched the processed-files record")
	}
}

func TestConvertGlyphFailureIsLogged(t *testing.T) {
	h := newHarness(t, map[string]string{
		"a.txt": "xin chào",
		"b.txt": "emoji \U0001F600",
	})
	h.pdf.fail = fmt.Errorf("%w: arial.ttf lacks %q", exporter.ErrMissingGlyph, "\U0001F600")

	sum, err := h.run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sum.Found != 2 || sum.Failed != 2 || sum.Converted != 0 {
		t.Fatalf("summary = %+v, want 2 failed", sum)
	}
	if !errors.Is(sum.Failures[1].Err, exporter.ErrMissingGlyph) {
		t.Errorf("failure = %v, want ErrMissingGlyph", sum.Failures[1].Err)
	}
	// docx is still attempted when pdf fails.
	if !h.exists("b.docx") {
		t.Error("b.docx not written")
	}

	data, err := os.ReadFile(h.errorLog)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("error log = %q, want 2 entries", lines)
	}
	want := "| ERROR | " + filepath.Join(h.root, "b.txt") + " | pdf: font has no glyph for character"
	if !strings.Contains(lines[1], want) {
		t.Errorf("error entry = %q, want it to contain %q", lines[1], want)
	}
	if h.exists("transcribe_processed_files.txt") {
		t.Error("conversion touched the processed-files record")
	}
}

func TestConvertSkipsStateFilesAndBadInput(t *testing.T) {
	h := newHarness(t, map[string]string{
		"transcribe_processed_files.txt": "/audio/a.mp3\n",
		"latin1.txt":                     "caf\xe9",
	})

	sum, err := h.run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sum.Found != 1 || sum.Failed != 1 {
		t.Fatalf("summary = %+v, want only latin1.txt found and failed", sum)
	}
	if got := sum.Failures[0].Err.Error(); !strings.Contains(got, "not valid UTF-8") {
		t.Errorf("failure = %q", got)
	}
	if _, ok := h.docx.texts["transcribe_processed_files.docx"]; ok {
		t.Error("processed-files record was converted")
	}
}

type brokenRunLog struct{}

func (brokenRunLog) Success(string, time.Duration) error { return nil }
func (brokenRunLog) Failure(string, error) error {
	return fmt.Errorf("%w: disk full", runlog.ErrLogIO)
}
func (brokenRunLog) Close() error { return nil }

func TestConvertRunLogFailureIsFatal(t *testing.T) {
	h := newHarness(t, map[string]string{"a.txt": "a", "b.txt": "b"})
	h.runlog = brokenRunLog{}
	h.docx.fail = errors.New("save document: permission denied")

	sum, err := h.run(context.Background())
	if !errors.Is(err, runlog.ErrLogIO) {
		t.Fatalf("Run() error = %v, want ErrLogIO", err)
	}
	if sum.Found != 1 {
		t.Errorf("Found = %d, want the run to stop at the first file", sum.Found)
	}
}

func TestConvertInvalidRootAndCancel(t *testing.T) {
	h := newHarness(t, map[string]string{"a.txt": "a"})

	conv := New(Dependencies{Scanner: scanner.NewWithExtensions(".txt"), RunLog: h.runlog}, logger.Nop())
	if _, err := conv.Run(context.Background(), filepath.Join(h.root, "missing")); !errors.Is(err, scanner.ErrInvalidRoot) {
		t.Errorf("Run() error = %v, want ErrInvalidRoot", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sum, err := h.run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if sum.Found != 0 {
		t.Errorf("Found = %d after cancellation", sum.Found)
	}
}

func TestConvertWithRealExporters(t *testing.T) {
	if _, err := exporter.FindFont(""); err != nil {
		t.Skipf("no Vietnamese-capable font on this machine: %v", err)
	}
	cfg := config.Default()
	cfg.Export.Title = true
	exporters, err := exporter.New(cfg.Export)
	if err != nil {
		t.Skipf("font not embeddable: %v", err)
	}

	h := newHarness(t, map[string]string{"bài 1.txt": vietnameseText})
	conv := New(Dependencies{
		Scanner:   scanner.NewWithExtensions(".txt"),
		RunLog:    h.runlog,
		Exporters: exporters,
	}, logger.Nop())

	sum, err := conv.Run(context.Background(), h.root)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sum.Converted != 1 {
		t.Fatalf("summary = %+v, failures = %v", sum, sum.Failures)
	}
	for _, name := range []string{"bài 1.docx", "bài 1.pdf"} {
		if !h.exists(name) {
			t.Errorf("%s not written", name)
		}
	}
	data, err := os.ReadFile(filepath.Join(h.root, "bài 1.txt"))
	if err != nil || string(data) != vietnameseText {
		t.Errorf("transcript changed: %q, %v", data, err)
	}
}
