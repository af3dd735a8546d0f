package runlog

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Success appends "<time> | SUCCESS | <path> | <seconds> sec".
func (l *implRunLog) Success(path string, elapsed time.Duration) error {
	line := fmt.Sprintf("%s | SUCCESS | %s | %.2f sec\n", l.now().Format(timeLayout), entryPath(path), elapsed.Seconds())
	return write(l.success, line)
}

// Failure appends "<time> | ERROR | <path> | <cause>" with the cause on one line.
func (l *implRunLog) Failure(path string, cause error) error {
	msg := "unknown error"
	if cause != nil {
		msg = oneLine(cause.Error())
	}
	line := fmt.Sprintf("%s | ERROR | %s | %s\n", l.now().Format(timeLayout), entryPath(path), msg)
	return write(l.errors, line)
}

func (l *implRunLog) Close() error {
	var errs []error
	for _, f := range []*os.File{l.success, l.errors} {
		if f == nil {
			continue
		}
		if err := f.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			errs = append(errs, fmt.Errorf("%w: close %s: %v", ErrLogIO, f.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func write(f *os.File, line string) error {
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("%w: append %s: %v", ErrLogIO, f.Name(), err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("%w: sync %s: %v", ErrLogIO, f.Name(), err)
	}
	return nil
}

// entryPath quotes a path holding a line break so every entry stays one line.
func entryPath(path string) string {
	if strings.ContainsAny(path, "\r\n") {
		return strconv.Quote(path)
	}
	return path
}

func oneLine(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return "unknown error"
	}
	return s
}
