package watcher

import (
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/nguyentantai21042004/audio-transcriber/internal/logger"
)

const (
	defaultSettle = 2 * time.Second
	queueSize     = 256
)

// New watches root (not recursively). A file is handed over once its size
// has not changed for settle.
func New(root string, handler EventHandler, log logger.Logger, settle time.Duration) (Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	if err := watcher.Add(root); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("add watch path: %w", err)
	}

	if settle <= 0 {
		settle = defaultSettle
	}

	return &implWatcher{
		root:    root,
		handler: handler,
		logger:  log,
		watcher: watcher,
		settle:  settle,
		pending: make(map[string]*pendingFile),
		queued:  make(map[string]struct{}),
		queue:   make(chan string, queueSize),
		now:     time.Now,
	}, nil
}
