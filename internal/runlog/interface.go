package runlog

import "time"

// RunLog appends one human-readable entry per terminal outcome to the
// success and error logs kept in the root folder.
type RunLog interface {
	Success(path string, elapsed time.Duration) error
	Failure(path string, cause error) error
	Close() error
}
