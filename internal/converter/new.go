package converter

import (
	"path/filepath"

	"github.com/nguyentantai21042004/audio-transcriber/internal/exporter"
	"github.com/nguyentantai21042004/audio-transcriber/internal/logger"
	"github.com/nguyentantai21042004/audio-transcriber/internal/runlog"
	"github.com/nguyentantai21042004/audio-transcriber/internal/scanner"
)

// Dependencies are the components a Converter drives. Exporters with the
// .txt extension are ignored so a transcript is never rewritten by itself.
type Dependencies struct {
	Scanner   scanner.Scanner
	RunLog    runlog.RunLog
	Exporters []exporter.Exporter
	// Exclude lists .txt files that are not transcripts (run logs, the
	// processed-files record).
	Exclude []string
}

type implConverter struct {
	scanner   scanner.Scanner
	runlog    runlog.RunLog
	exporters []exporter.Exporter
	exclude   map[string]struct{}
	logger    logger.Logger
}

// New creates a new Converter instance
func New(deps Dependencies, log logger.Logger) Converter {
	c := &implConverter{
		scanner: deps.Scanner,
		runlog:  deps.RunLog,
		exclude: make(map[string]struct{}, len(deps.Exclude)),
		logger:  log,
	}
	for _, exp := range deps.Exporters {
		if exp.Ext() != ".txt" {
			c.exporters = append(c.exporters, exp)
		}
	}
	for _, p := range deps.Exclude {
		if abs, err := filepath.Abs(p); err == nil {
			c.exclude[abs] = struct{}{}
		}
	}
	return c
}
