package processor

import (
	"github.com/nguyentantai21042004/audio-transcriber/internal/config"
	"github.com/nguyentantai21042004/audio-transcriber/internal/engine"
	"github.com/nguyentantai21042004/audio-transcriber/internal/exporter"
	"github.com/nguyentantai21042004/audio-transcriber/internal/logger"
	"github.com/nguyentantai21042004/audio-transcriber/internal/runlog"
	"github.com/nguyentantai21042004/audio-transcriber/internal/scanner"
	"github.com/nguyentantai21042004/audio-transcriber/internal/store"
)

// Dependencies are the run-scoped components a Processor drives. The caller
// owns their lifecycle and closes them after the run.
type Dependencies struct {
	Scanner   scanner.Scanner
	Store     store.Store
	RunLog    runlog.RunLog
	Engine    engine.Engine
	Exporters []exporter.Exporter
}

type implProcessor struct {
	cfg       *config.Config
	scanner   scanner.Scanner
	store     store.Store
	runlog    runlog.RunLog
	engine    engine.Engine
	exporters []exporter.Exporter
	logger    logger.Logger

	// one slot: the engine is never shared between the batch and the watcher
	sem *semaphore
}

// New creates a new Processor instance
func New(cfg *config.Config, deps Dependencies, log logger.Logger) Processor {
	return &implProcessor{
		cfg:       cfg,
		scanner:   deps.Scanner,
		store:     deps.Store,
		runlog:    deps.RunLog,
		engine:    deps.Engine,
		exporters: deps.Exporters,
		logger:    log,
		sem:       newSemaphore(1),
	}
}
