package watcher

import "context"

// Watcher feeds audio files that appear in the root folder to a handler,
// one file at a time.
type Watcher interface {
	// Start blocks until ctx is cancelled, then waits for the in-flight file.
	Start(ctx context.Context) error
	Stop() error
}

// EventHandler is a function that handles file events
type EventHandler func(ctx context.Context, filePath string) error
