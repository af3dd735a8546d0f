package engine

import (
	"errors"
	"fmt"
)

// ErrEngineConfig marks failures to build an engine: missing binaries,
// models or credentials. These abort the run before any file is touched.
var ErrEngineConfig = errors.New("engine configuration")

const (
	StagePreprocessing = "preprocessing"
	StageTranscribing  = "transcribing"
	StageReading       = "reading"
)

// Error is a per-file transcription failure tagged with the backend stage.
type Error struct {
	Backend string
	Stage   string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s %s: %v", e.Backend, e.Stage, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
