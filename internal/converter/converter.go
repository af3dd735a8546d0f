package converter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/nguyentantai21042004/audio-transcriber/internal/logger"
	"github.com/nguyentantai21042004/audio-transcriber/internal/scanner"
)

// Run scans root for transcripts and exports each one in file-name order.
func (c *implConverter) Run(ctx context.Context, root string) (Summary, error) {
	start := time.Now()
	var sum Summary

	candidates, err := c.scanner.Scan(ctx, root)
	if err != nil {
		return sum, fmt.Errorf("scan: %w", err)
	}

	c.logger.Info(ctx, "Converting transcripts in %s", root)

	for cand := range candidates {
		if _, skip := c.exclude[cand.Path]; skip {
			continue
		}
		sum.Found++

		fctx := logger.WithFile(ctx, cand.Name())
		if err := c.convert(cand); err != nil {
			c.logger.Error(fctx, "Conversion failed: %v", err)
			sum.Failed++
			sum.Failures = append(sum.Failures, Failure{Path: cand.Path, Err: err})
			if lerr := c.runlog.Failure(cand.Path, err); lerr != nil {
				sum.Elapsed = time.Since(start)
				return sum, lerr
			}
			continue
		}
		sum.Converted++
		c.logger.Info(fctx, "Converted")
	}
	sum.Elapsed = time.Since(start)

	if err := ctx.Err(); err != nil {
		return sum, err
	}

	c.logger.Info(ctx, "Conversion finished in %s: found=%d converted=%d failed=%d",
		sum.Elapsed.Round(time.Millisecond), sum.Found, sum.Converted, sum.Failed)
	return sum, nil
}

// convert attempts every exporter even after one fails.
func (c *implConverter) convert(cand scanner.Candidate) error {
	data, err := os.ReadFile(cand.Path)
	if err != nil {
		return fmt.Errorf("read transcript: %w", err)
	}
	if !utf8.Valid(data) {
		return fmt.Errorf("read transcript: %s is not valid UTF-8", cand.Name())
	}
	text := strings.TrimPrefix(string(data), "\uFEFF")

	var errs []error
	for _, exp := range c.exporters {
		if err := exp.Export(text, cand.ArtifactPath(exp.Ext())); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", exp.Name(), err))
		}
	}
	return errors.Join(errs...)
}
