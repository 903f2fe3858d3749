package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/custodia-labs/integra/internal/core/ports/driven"
)

// Janitor periodically sweeps expired entries out of the key-value store.
// Backends that expire keys natively make Cleanup a no-op, so running the
// janitor is always safe.
type Janitor struct {
	store    driven.KVStore
	logger   *slog.Logger
	interval time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// JanitorConfig holds configuration for the janitor.
type JanitorConfig struct {
	Store    driven.KVStore
	Logger   *slog.Logger
	Interval time.Duration
}

// NewJanitor creates a new cleanup janitor.
func NewJanitor(cfg JanitorConfig) *Janitor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Minute
	}

	return &Janitor{
		store:    cfg.Store,
		logger:   logger,
		interval: interval,
	}
}

// Start begins the sweep loop.
// It runs until Stop is called or the context is cancelled.
func (j *Janitor) Start(ctx context.Context) {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return
	}
	j.running = true
	j.stopCh = make(chan struct{})
	j.doneCh = make(chan struct{})
	j.mu.Unlock()

	j.logger.Info("janitor starting", "interval", j.interval)

	go j.sweepLoop(ctx)
}

// Stop gracefully stops the janitor.
func (j *Janitor) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	close(j.stopCh)
	j.mu.Unlock()

	<-j.doneCh

	j.mu.Lock()
	j.running = false
	j.mu.Unlock()

	j.logger.Info("janitor stopped")
}

func (j *Janitor) sweepLoop(ctx context.Context) {
	defer close(j.doneCh)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("janitor context cancelled")
			return
		case <-j.stopCh:
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *Janitor) sweep(ctx context.Context) {
	start := time.Now()
	if err := j.store.Cleanup(ctx); err != nil {
		j.logger.Error("cleanup sweep failed", "error", err)
		return
	}
	j.logger.Debug("cleanup sweep completed", "duration", time.Since(start))
}
