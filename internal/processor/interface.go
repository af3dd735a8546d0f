package processor

import (
	"context"
	"errors"
	"time"

	"github.com/nguyentantai21042004/audio-transcriber/internal/runlog"
	"github.com/nguyentantai21042004/audio-transcriber/internal/scanner"
	"github.com/nguyentantai21042004/audio-transcriber/internal/store"
)

// Processor drives candidates through transcription and export, one at a time.
type Processor interface {
	// Run processes every candidate under root. Per-file failures are logged
	// and counted; only store/log I/O errors and cancellation are returned.
	Run(ctx context.Context, root string) (Summary, error)
	// ProcessFile takes one candidate to a terminal state.
	ProcessFile(ctx context.Context, c scanner.Candidate) (State, error)
	// HandlePath processes a single file reported by the watcher.
	HandlePath(ctx context.Context, path string) error
}

// State is the lifecycle position of a candidate.
type State int

const (
	StateDiscovered State = iota
	StateSkipped
	StateSkippedExisting
	StateTranscribing
	StateExporting
	StateCompleted
	StateFailed
	// StateInterrupted means the run was cancelled while the file was in
	// flight. Nothing is logged or marked, so the next run retries it.
	StateInterrupted
)

func (s State) String() string {
	switch s {
	case StateDiscovered:
		return "discovered"
	case StateSkipped:
		return "skipped"
	case StateSkippedExisting:
		return "skipped-existing"
	case StateTranscribing:
		return "transcribing"
	case StateExporting:
		return "exporting"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// Summary counts terminal outcomes for one Run.
type Summary struct {
	Found           int
	Skipped         int
	SkippedExisting int
	Succeeded       int
	Failed          int
	Interrupted     int
	Elapsed         time.Duration
	Failures        []FileError
}

// FileError is a recovered per-file failure.
type FileError struct {
	Path  string
	Stage string
	Err   error
}

func (e FileError) Error() string {
	return e.Stage + " " + e.Path + ": " + e.Err.Error()
}

func (e FileError) Unwrap() error { return e.Err }

// IsFatal reports whether err breaks the resume or audit guarantees and must
// abort the batch.
func IsFatal(err error) bool {
	return errors.Is(err, store.ErrStoreIO) || errors.Is(err, runlog.ErrLogIO)
}
