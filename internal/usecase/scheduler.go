package usecase

import (
	"context"
	"fmt"
	"sync"

	"MarketPulse/internal/domain/models"
	applogger "MarketPulse/pkg/logger"

	"github.com/robfig/cron/v3"
)

// JobStarter launches one analysis.
type JobStarter interface {
	Start(ctx context.Context, source string) (string, error)
}

// JobDrainer consumes a job's events without a client.
type JobDrainer interface {
	Drain(ctx context.Context, id string) (models.ProgressEvent, error)
}

// AnalysisScheduler starts analyses on a cron schedule and drains each one.
type AnalysisScheduler struct {
	spec    string
	jobs    JobStarter
	drainer JobDrainer
	l       *applogger.Logger

	cron *cron.Cron
	ctx  context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup
}

func NewAnalysisScheduler(spec string, jobs JobStarter, drainer JobDrainer, l *applogger.Logger) *AnalysisScheduler {
	if l == nil {
		l = applogger.NewNop()
	}
	ctx, stop := context.WithCancel(context.Background())
	return &AnalysisScheduler{
		spec:    spec,
		jobs:    jobs,
		drainer: drainer,
		l:       l,
		cron:    cron.New(),
		ctx:     ctx,
		stop:    stop,
	}
}

// Enabled reports whether a schedule is configured.
func (s *AnalysisScheduler) Enabled() bool { return s.spec != "" }

// Start registers the schedule and starts the cron loop. It is a no-op
// without a schedule.
func (s *AnalysisScheduler) Start() error {
	if !s.Enabled() {
		return nil
	}
	if _, err := s.cron.AddFunc(s.spec, s.Trigger); err != nil {
		return fmt.Errorf("invalid analysis schedule %q: %w", s.spec, err)
	}
	s.cron.Start()
	s.l.Info("analysis schedule active", applogger.String("schedule", s.spec))
	return nil
}

// Trigger starts one scheduled analysis and drains it in the background.
func (s *AnalysisScheduler) Trigger() {
	id, err := s.jobs.Start(s.ctx, SourceSchedule)
	if err != nil {
		s.l.Warn("scheduled analysis not started", applogger.Error(err))
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := s.drainer.Drain(s.ctx, id); err != nil {
			s.l.Warn("scheduled analysis drain ended early", applogger.String("job_id", id), applogger.Error(err))
		}
	}()
}

// Stop halts the schedule and waits for in-flight drains. When ctx ends
// first, the drains are cancelled.
func (s *AnalysisScheduler) Stop(ctx context.Context) error {
	defer s.stop()
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		return ctx.Err()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
