package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/nguyentantai21042004/audio-transcriber/internal/logger"
	"github.com/nguyentantai21042004/audio-transcriber/internal/scanner"
)

type pendingFile struct {
	size int64
	seen time.Time
}

type implWatcher struct {
	root    string
	handler EventHandler
	logger  logger.Logger
	watcher *fsnotify.Watcher
	settle  time.Duration

	// pending is owned by the Start goroutine.
	pending map[string]*pendingFile

	mu     sync.Mutex
	queued map[string]struct{}
	queue  chan string
	wg     sync.WaitGroup

	now func() time.Time
}

// Start monitors the root folder and processes settled audio files on a
// single worker goroutine.
func (w *implWatcher) Start(ctx context.Context) error {
	w.logger.Info(ctx, "File watcher started (settle: %s). Monitoring: %s", w.settle, w.root)

	w.wg.Add(1)
	go w.work(ctx)

	ticker := time.NewTicker(w.pollInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info(ctx, "Waiting for ongoing processing to complete...")
			w.wg.Wait()
			w.logger.Info(ctx, "File watcher stopped")
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			w.observe(ctx, event)

		case <-ticker.C:
			w.flush(ctx)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error(ctx, "Watcher error: %v", err)
		}
	}
}

// Stop closes the file watcher
func (w *implWatcher) Stop() error {
	return w.watcher.Close()
}

func (w *implWatcher) observe(ctx context.Context, event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	if strings.HasPrefix(filepath.Base(event.Name), ".") || !scanner.IsSupported(event.Name) {
		w.logger.Debug(ctx, "Ignoring %s", event.Name)
		return
	}

	if pf, ok := w.pending[event.Name]; ok {
		pf.seen = w.now()
		return
	}
	w.logger.Info(ctx, "New audio detected: %s", event.Name)
	w.pending[event.Name] = &pendingFile{size: -1, seen: w.now()}
}

// flush queues every pending file whose size has been stable for the
// settle delay.
func (w *implWatcher) flush(ctx context.Context) {
	now := w.now()
	for path, pf := range w.pending {
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			delete(w.pending, path)
			continue
		}
		if info.Size() != pf.size {
			pf.size = info.Size()
			pf.seen = now
			continue
		}
		if now.Sub(pf.seen) < w.settle {
			continue
		}

		w.mu.Lock()
		_, dup := w.queued[path]
		if !dup {
			select {
			case w.queue <- path:
				w.queued[path] = struct{}{}
			default:
				// Queue full; retry on the next tick.
				w.mu.Unlock()
				continue
			}
		}
		w.mu.Unlock()

		delete(w.pending, path)
		if !dup {
			w.logger.Debug(ctx, "Queued %s", path)
		}
	}
}

func (w *implWatcher) work(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case path := <-w.queue:
			w.mu.Lock()
			delete(w.queued, path)
			w.mu.Unlock()

			if err := w.handler(ctx, path); err != nil {
				w.logger.Error(ctx, "Failed to process %s: %v", path, err)
			}
		}
	}
}

func (w *implWatcher) pollInterval() time.Duration {
	interval := w.settle / 4
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	if interval > time.Second {
		interval = time.Second
	}
	return interval
}
