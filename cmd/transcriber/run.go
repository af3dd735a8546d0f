package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/google/uuid"
	"github.com/nguyentantai21042004/audio-transcriber/internal/config"
	"github.com/nguyentantai21042004/audio-transcriber/internal/engine"
	"github.com/nguyentantai21042004/audio-transcriber/internal/exporter"
	"github.com/nguyentantai21042004/audio-transcriber/internal/logger"
	"github.com/nguyentantai21042004/audio-transcriber/internal/processor"
	"github.com/nguyentantai21042004/audio-transcriber/internal/runlog"
	"github.com/nguyentantai21042004/audio-transcriber/internal/scanner"
	"github.com/nguyentantai21042004/audio-transcriber/internal/store"
	"github.com/nguyentantai21042004/audio-transcriber/internal/watcher"
	"github.com/nguyentantai21042004/audio-transcriber/pkg/executor"
)

// run executes one batch over cfg.Paths.Root and, when enabled, keeps
// watching the folder afterwards.
func run(ctx context.Context, cfg *config.Config, strict bool, out, errOut io.Writer) error {
	log := logger.NewWithOptions(logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: errOut,
	})
	ctx = logger.WithRunID(ctx, uuid.NewString())

	log.Info(ctx, "Audio transcriber starting on %s/%s (%d CPUs)", runtime.GOOS, runtime.GOARCH, runtime.NumCPU())
	log.Info(ctx, "Root: %s | engine: %s | model: %s | device: %s | language: %s",
		cfg.Paths.Root, cfg.Engine.Backend, cfg.Engine.ModelSize, cfg.Engine.Device, cfg.Engine.Language)
	log.Info(ctx, "Audio formats: %s", strings.Join(scanner.SupportedExtensions(), " "))

	if err := checkRoot(cfg.Paths.Root); err != nil {
		log.Error(ctx, "%v", err)
		return &exitError{code: exitFatal, err: err}
	}

	exporters, err := exporter.New(cfg.Export)
	if err != nil {
		log.Error(ctx, "PDF export unavailable: %v", err)
		return &exitError{code: exitFatal, err: err}
	}

	successPath, errorPath, processedPath, err := cfg.ResolveState()
	if err != nil {
		return &exitError{code: exitFatal, err: err}
	}

	eng, err := engine.New(ctx, cfg.Engine, executor.New(), log)
	if err != nil {
		log.Error(ctx, "Failed to initialise engine: %v", err)
		return &exitError{code: exitFatal, err: err}
	}
	defer eng.Close()

	st, err := store.Open(processedPath)
	if err != nil {
		return &exitError{code: exitFatal, err: err}
	}
	defer st.Close()

	rl, err := runlog.Open(successPath, errorPath)
	if err != nil {
		return &exitError{code: exitFatal, err: err}
	}
	defer rl.Close()

	proc := processor.New(cfg, processor.Dependencies{
		Scanner:   scanner.New(),
		Store:     st,
		RunLog:    rl,
		Engine:    eng,
		Exporters: exporters,
	}, log)

	report := func(sum processor.Summary) {
		fmt.Fprintln(out, renderSummary(sum))
		if len(sum.Failures) > 0 {
			fmt.Fprintln(out, renderFailures(sum.Failures))
		}
	}
	sum, err := runAndWatch(ctx, cfg, proc, log, report)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn(ctx, "Batch interrupted; unfinished files will be retried on the next run")
			return err
		}
		log.Error(ctx, "Batch aborted: %v", err)
		return &exitError{code: exitFatal, err: err}
	}

	if strict && sum.Failed > 0 {
		return &exitError{code: exitStrict}
	}
	return nil
}

// runAndWatch runs the batch and hands its summary to report. In watch mode
// the watcher is started before the scan, so files that appear while the
// batch runs are queued, and it keeps running until ctx ends or a store/log
// write fails. Cancellation during the batch is returned; after the batch it
// is the normal end of watch mode.
func runAndWatch(ctx context.Context, cfg *config.Config, proc processor.Processor, log logger.Logger, report func(processor.Summary)) (processor.Summary, error) {
	if !cfg.Watch.Enabled {
		sum, err := proc.Run(ctx, cfg.Paths.Root)
		report(sum)
		return sum, err
	}

	watchCtx, stop := context.WithCancelCause(ctx)
	defer stop(nil)

	handler := func(ctx context.Context, path string) error {
		err := proc.HandlePath(ctx, path)
		if err != nil && processor.IsFatal(err) {
			stop(err)
		}
		return err
	}

	w, err := watcher.New(cfg.Paths.Root, handler, log, cfg.Watch.Settle)
	if err != nil {
		return processor.Summary{}, fmt.Errorf("start watcher: %w", err)
	}
	defer w.Stop()

	watchDone := make(chan error, 1)
	go func() {
		watchDone <- w.Start(watchCtx)
	}()

	sum, err := proc.Run(ctx, cfg.Paths.Root)
	report(sum)
	if err != nil {
		stop(err)
		<-watchDone
		return sum, err
	}

	log.Info(ctx, "Watching %s for new audio. Press Ctrl+C to stop", cfg.Paths.Root)
	werr := <-watchDone
	if cause := context.Cause(watchCtx); processor.IsFatal(cause) {
		return sum, cause
	}
	if werr != nil && watchCtx.Err() == nil {
		return sum, fmt.Errorf("watcher: %w", werr)
	}
	log.Info(ctx, "Watch mode stopped")
	return sum, nil
}

func checkRoot(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("%w: %v", scanner.ErrInvalidRoot, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", scanner.ErrInvalidRoot, root)
	}
	return nil
}
