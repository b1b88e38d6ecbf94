package usecase

import (
	"context"
	"errors"
	"time"

	"MarketPulse/internal/domain/models"
	"MarketPulse/internal/service/progress"
	applogger "MarketPulse/pkg/logger"
)

// EndReason says why a stream stopped.
type EndReason string

const (
	EndCompleted  EndReason = "completed"
	EndFailed     EndReason = "failed"
	EndTimeout    EndReason = "timeout"
	EndInvalidJob EndReason = "invalid_job"
	EndDisconnect EndReason = "disconnect"
	EndWriteError EndReason = "write_error"
)

// EmitFunc delivers one event to a client.
type EmitFunc func(models.ProgressEvent) error

// ProgressStreamer drains a job channel to a client. Every exit path removes
// the job from the registry.
type ProgressStreamer struct {
	registry *progress.Registry
	idle     time.Duration
	l        *applogger.Logger
}

func NewProgressStreamer(registry *progress.Registry, idle time.Duration, l *applogger.Logger) *ProgressStreamer {
	if idle <= 0 {
		idle = 60 * time.Second
	}
	if l == nil {
		l = applogger.NewNop()
	}
	return &ProgressStreamer{registry: registry, idle: idle, l: l}
}

// Stream forwards events of job id to emit until a terminal event, the idle
// timeout, or ctx ending. Unknown or already-streamed ids get a single
// invalid_job notice.
func (s *ProgressStreamer) Stream(ctx context.Context, id string, emit EmitFunc) (EndReason, error) {
	ch, ok := s.registry.Claim(id)
	if !ok {
		return EndInvalidJob, emit(models.FailedEvent(models.FailureInvalidJob, models.MsgInvalidJob))
	}
	defer s.registry.Remove(id)

	for {
		ev, err := ch.Next(ctx, s.idle)
		if errors.Is(err, progress.ErrIdleTimeout) {
			s.l.Warn("progress stream idle timeout", applogger.String("job_id", id), applogger.Duration("idle", s.idle))
			return EndTimeout, emit(models.FailedEvent(models.FailureTimeout, models.MsgTimeout))
		}
		if err != nil {
			return EndDisconnect, err
		}
		if err := emit(ev); err != nil {
			return EndWriteError, err
		}
		if ev.Terminal() {
			if ev.Kind == models.EventCompleted {
				return EndCompleted, nil
			}
			return EndFailed, nil
		}
	}
}

// Drain consumes job id with no client attached, logging each event. Used by
// job sources that have nobody to stream to.
func (s *ProgressStreamer) Drain(ctx context.Context, id string) (models.ProgressEvent, error) {
	var last models.ProgressEvent
	l := s.l.With(applogger.String("job_id", id))
	_, err := s.Stream(ctx, id, func(ev models.ProgressEvent) error {
		last = ev
		if ev.Terminal() {
			l.Info("analysis job finished",
				applogger.String("type", string(ev.Kind)),
				applogger.String("status", ev.Stage),
			)
			return nil
		}
		l.Debug("analysis progress", applogger.String("status", ev.Stage), applogger.Int("progress", ev.Percent))
		return nil
	})
	return last, err
}
