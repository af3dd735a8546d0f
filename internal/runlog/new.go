package runlog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrLogIO wraps every failure to append to or close a run log.
var ErrLogIO = errors.New("run log I/O")

const timeLayout = "2006-01-02 15:04:05"

type implRunLog struct {
	success *os.File
	errors  *os.File
	now     func() time.Time
}

// Open creates (if needed) and opens both logs for appending.
func Open(successPath, errorPath string) (RunLog, error) {
	success, err := openAppend(successPath)
	if err != nil {
		return nil, err
	}
	errs, err := openAppend(errorPath)
	if err != nil {
		success.Close()
		return nil, err
	}

	return &implRunLog{
		success: success,
		errors:  errs,
		now:     time.Now,
	}, nil
}

func openAppend(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create log dir: %v", ErrLogIO, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrLogIO, path, err)
	}
	return f, nil
}
