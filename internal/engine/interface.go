package engine

import (
	"context"
	"time"
)

// Engine turns one audio file into text. Implementations are selected once
// per run and are not safe for concurrent Transcribe calls.
type Engine interface {
	Name() string
	Transcribe(ctx context.Context, audioPath string) (Transcript, error)
	// Close releases the model/device handle acquired by New.
	Close() error
}

// Transcript is the text produced for one audio file.
type Transcript struct {
	Text    string
	Elapsed time.Duration
}
