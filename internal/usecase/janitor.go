package usecase

import (
	"context"
	"time"

	"MarketPulse/internal/service/progress"
	applogger "MarketPulse/pkg/logger"
)

// Pruner drops idle per-client state.
type Pruner interface {
	Prune() int
}

// Janitor periodically removes finished jobs nobody streamed and idle
// rate-limit buckets.
type Janitor struct {
	registry  *progress.Registry
	limiter   Pruner
	retention time.Duration
	interval  time.Duration
	l         *applogger.Logger
}

func NewJanitor(registry *progress.Registry, limiter Pruner, retention, interval time.Duration, l *applogger.Logger) *Janitor {
	if interval <= 0 {
		interval = time.Minute
	}
	if l == nil {
		l = applogger.NewNop()
	}
	return &Janitor{registry: registry, limiter: limiter, retention: retention, interval: interval, l: l}
}

// Run sweeps until ctx ends.
func (j *Janitor) Run(ctx context.Context) {
	t := time.NewTicker(j.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			j.SweepOnce()
		}
	}
}

// SweepOnce performs a single pass and returns the removed job ids.
func (j *Janitor) SweepOnce() []string {
	removed := j.registry.Sweep(j.retention)
	if len(removed) > 0 {
		j.l.Info("swept finished jobs", applogger.Int("count", len(removed)), applogger.Strings("job_ids", removed))
	}
	if j.limiter != nil {
		if n := j.limiter.Prune(); n > 0 {
			j.l.Debug("pruned rate limit buckets", applogger.Int("count", n))
		}
	}
	return removed
}
