package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"MarketPulse/internal/domain/models"
	domrepo "MarketPulse/internal/domain/repository"
	"MarketPulse/internal/service/progress"
	applogger "MarketPulse/pkg/logger"
)

// Job sources.
const (
	SourceHTTP     = "http"
	SourceSchedule = "schedule"
	SourceKafka    = "kafka"
)

var ErrShuttingDown = errors.New("analysis service is shutting down")

// JobRunner executes one analysis against a sink.
type JobRunner interface {
	Run(ctx context.Context, jobID string, sink ProgressSink) models.ProgressEvent
}

// AnalysisJobs registers jobs and runs each one in its own goroutine, detached
// from the caller's context.
type AnalysisJobs struct {
	registry *progress.Registry
	runner   JobRunner
	metrics  domrepo.Metrics
	l        *applogger.Logger

	base   context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
	active atomic.Int64
}

func NewAnalysisJobs(registry *progress.Registry, runner JobRunner, metrics domrepo.Metrics, l *applogger.Logger) *AnalysisJobs {
	if l == nil {
		l = applogger.NewNop()
	}
	base, cancel := context.WithCancel(context.Background())
	return &AnalysisJobs{
		registry: registry,
		runner:   runner,
		metrics:  metrics,
		l:        l,
		base:     base,
		cancel:   cancel,
	}
}

// Start registers a new job and launches it. It returns as soon as the job
// id exists; registry failures are reported here.
func (j *AnalysisJobs) Start(ctx context.Context, source string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return "", ErrShuttingDown
	}
	id, ch, err := j.registry.Create()
	if err != nil {
		j.mu.Unlock()
		return "", fmt.Errorf("register job: %w", err)
	}
	j.wg.Add(1)
	j.mu.Unlock()

	j.metrics.RecordJobStarted(source)
	j.metrics.SetActiveJobs(int(j.active.Add(1)))
	j.l.Info("analysis job scheduled", applogger.String("job_id", id), applogger.String("source", source))

	go j.run(id, ch)
	return id, nil
}

func (j *AnalysisJobs) run(id string, ch *progress.Channel) {
	defer j.wg.Done()
	defer func() {
		j.metrics.SetActiveJobs(int(j.active.Add(-1)))
	}()
	defer func() {
		if r := recover(); r != nil {
			j.l.Error("analysis job panicked", applogger.String("job_id", id), applogger.Any("panic", r))
			_ = ch.Publish(models.FailedEvent(models.FailureAnalysis, "unexpected fault during analysis"))
		}
	}()
	j.runner.Run(j.base, id, ch)
}

// Active returns the number of jobs still running.
func (j *AnalysisJobs) Active() int {
	return int(j.active.Load())
}

// Shutdown refuses new jobs, cancels running ones and waits for them to
// publish their terminal events.
func (j *AnalysisJobs) Shutdown(ctx context.Context) error {
	j.mu.Lock()
	j.closed = true
	j.mu.Unlock()
	j.cancel()

	done := make(chan struct{})
	go func() {
		j.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
