package processor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/nguyentantai21042004/audio-transcriber/internal/logger"
	"github.com/nguyentantai21042004/audio-transcriber/internal/scanner"
	"github.com/nguyentantai21042004/audio-transcriber/internal/store"
)

const (
	stageKey        = "key"
	stageTranscribe = "transcribe"
	stageExport     = "export"
)

// Run scans root and processes every candidate in order.
func (p *implProcessor) Run(ctx context.Context, root string) (Summary, error) {
	start := time.Now()
	var sum Summary

	candidates, err := p.scanner.Scan(ctx, root)
	if err != nil {
		return sum, fmt.Errorf("scan: %w", err)
	}

	p.logger.Info(ctx, "Starting batch in %s (engine=%s, %d already processed)", root, p.engine.Name(), p.store.Len())

	for c := range candidates {
		sum.Found++
		state, ferr, err := p.processFile(ctx, c)
		sum.record(state, ferr)
		if err != nil {
			sum.Elapsed = time.Since(start)
			return sum, err
		}
	}
	sum.Elapsed = time.Since(start)

	if err := ctx.Err(); err != nil {
		return sum, err
	}

	p.logger.Info(ctx, "Batch finished in %s: found=%d skipped=%d succeeded=%d failed=%d",
		sum.Elapsed.Round(time.Millisecond), sum.Found, sum.Skipped+sum.SkippedExisting, sum.Succeeded, sum.Failed)
	return sum, nil
}

func (s *Summary) record(state State, ferr *FileError) {
	switch state {
	case StateSkipped:
		s.Skipped++
	case StateSkippedExisting:
		s.SkippedExisting++
	case StateCompleted:
		s.Succeeded++
	case StateFailed:
		s.Failed++
	case StateInterrupted:
		s.Interrupted++
	}
	if ferr != nil {
		s.Failures = append(s.Failures, *ferr)
	}
}

// ProcessFile takes one candidate to a terminal state.
func (p *implProcessor) ProcessFile(ctx context.Context, c scanner.Candidate) (State, error) {
	state, _, err := p.processFile(ctx, c)
	return state, err
}

// HandlePath processes a file reported by the watcher. Unsupported files are ignored.
func (p *implProcessor) HandlePath(ctx context.Context, path string) error {
	c, err := p.scanner.Inspect(path)
	if err != nil {
		if errors.Is(err, scanner.ErrUnsupported) {
			p.logger.Debug(ctx, "Ignoring %s: %v", path, err)
			return nil
		}
		return err
	}

	state, err := p.ProcessFile(ctx, c)
	if err != nil {
		return err
	}
	p.logger.Debug(ctx, "%s -> %s", c.Name(), state)
	return nil
}

// processFile returns the terminal state, the recovered per-file failure if
// any, and a non-nil error only for fatal I/O or cancellation.
func (p *implProcessor) processFile(ctx context.Context, c scanner.Candidate) (State, *FileError, error) {
	if err := p.sem.acquire(ctx); err != nil {
		return StateInterrupted, nil, err
	}
	defer p.sem.release()

	ctx = logger.WithFile(ctx, c.Name())

	key, err := store.Key(c.Path)
	if err != nil {
		return p.fail(ctx, c, stageKey, err)
	}

	if p.store.Contains(key) {
		p.logger.Debug(ctx, "Already processed, skipping")
		return StateSkipped, nil, nil
	}

	if p.cfg.Export.SkipExistingOutputs && p.artifactsExist(c) {
		if err := p.store.Mark(key); err != nil {
			return StateFailed, nil, err
		}
		p.logger.Info(ctx, "Outputs already exist, marked as processed")
		return StateSkippedExisting, nil, nil
	}

	if err := ctx.Err(); err != nil {
		return StateInterrupted, nil, err
	}

	p.logger.Info(ctx, "Transcribing %s", c.Path)
	transcript, err := p.engine.Transcribe(ctx, c.Path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			p.logger.Warn(ctx, "Interrupted during transcription, will retry on next run")
			return StateInterrupted, nil, ctxErr
		}
		return p.fail(ctx, c, stageTranscribe, err)
	}

	if err := p.export(ctx, c, transcript.Text); err != nil {
		return p.fail(ctx, c, stageExport, err)
	}

	if err := p.runlog.Success(c.Path, transcript.Elapsed); err != nil {
		return StateFailed, nil, err
	}
	if err := p.store.Mark(key); err != nil {
		return StateFailed, nil, err
	}

	p.logger.Info(ctx, "Completed in %s", transcript.Elapsed.Round(time.Millisecond))
	return StateCompleted, nil, nil
}

// export attempts every exporter and joins their failures.
func (p *implProcessor) export(ctx context.Context, c scanner.Candidate, text string) error {
	var errs []error
	for _, exp := range p.exporters {
		target := c.ArtifactPath(exp.Ext())
		if err := exp.Export(text, target); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", exp.Name(), err))
			continue
		}
		p.logger.Debug(ctx, "Wrote %s", target)
	}
	return errors.Join(errs...)
}

func (p *implProcessor) fail(ctx context.Context, c scanner.Candidate, stage string, cause error) (State, *FileError, error) {
	p.logger.Error(ctx, "Failed at %s: %s", stage, logger.FormatError(cause))
	if err := p.runlog.Failure(c.Path, cause); err != nil {
		return StateFailed, nil, err
	}
	return StateFailed, &FileError{Path: c.Path, Stage: stage, Err: cause}, nil
}

func (p *implProcessor) artifactsExist(c scanner.Candidate) bool {
	for _, exp := range p.exporters {
		info, err := os.Stat(c.ArtifactPath(exp.Ext()))
		if err != nil || !info.Mode().IsRegular() {
			return false
		}
	}
	return len(p.exporters) > 0
}
