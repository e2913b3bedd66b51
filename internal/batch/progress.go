package batch

import (
	"log/slog"
	"sync"
	"time"
)

// ProgressCallback receives progress notifications from Run.
type ProgressCallback interface {
	OnStart(total int)
	OnProgress(current, total int)
	OnComplete()
	OnError(index int, err error)
}

// NoOpProgressCallback ignores all notifications.
type NoOpProgressCallback struct{}

func (NoOpProgressCallback) OnStart(int)         {}
func (NoOpProgressCallback) OnProgress(int, int) {}
func (NoOpProgressCallback) OnComplete()         {}
func (NoOpProgressCallback) OnError(int, error)  {}

// LogProgressCallback reports progress through slog, at most once per interval.
type LogProgressCallback struct {
	mu         sync.Mutex
	logger     *slog.Logger
	interval   time.Duration
	lastUpdate time.Time
	start      time.Time
	errors     int
}

// NewLogProgressCallback creates a reporter writing to logger (slog.Default() if nil).
func NewLogProgressCallback(logger *slog.Logger, interval time.Duration) *LogProgressCallback {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogProgressCallback{logger: logger, interval: interval}
}

func (p *LogProgressCallback) OnStart(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.start = time.Now()
	p.errors = 0
	p.logger.Debug("Batch started", "total", total)
}

func (p *LogProgressCallback) OnProgress(current, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	if current < total && now.Sub(p.lastUpdate) < p.interval {
		return
	}
	p.lastUpdate = now
	p.logger.Debug("Batch progress", "current", current, "total", total)
}

func (p *LogProgressCallback) OnComplete() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logger.Debug("Batch finished", "errors", p.errors, "duration", time.Since(p.start).String())
}

func (p *LogProgressCallback) OnError(index int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errors++
	p.logger.Debug("Batch item failed", "index", index, "error", err)
}

// Errors returns the number of failed items seen since the last OnStart.
func (p *LogProgressCallback) Errors() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.errors
}
