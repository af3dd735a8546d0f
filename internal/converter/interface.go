package converter

import (
	"context"
	"time"
)

// Converter rebuilds the .docx and .pdf artifacts of existing .txt
// transcripts. It never reads or writes the processed-files record.
type Converter interface {
	// Run converts every .txt directly inside root. Per-file failures are
	// logged and counted; only run log I/O, an invalid root or cancellation
	// end the run early.
	Run(ctx context.Context, root string) (Summary, error)
}

// Summary counts the outcome of one conversion run.
type Summary struct {
	Found     int
	Converted int
	Failed    int
	Elapsed   time.Duration
	Failures  []Failure
}

// Failure is one transcript that could not be converted.
type Failure struct {
	Path string
	Err  error
}
