package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"MarketPulse/internal/domain/models"
	"MarketPulse/internal/service/progress"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type runnerFunc func(ctx context.Context, id string, sink ProgressSink) models.ProgressEvent

func (f runnerFunc) Run(ctx context.Context, id string, sink ProgressSink) models.ProgressEvent {
	return f(ctx, id, sink)
}

func TestJobsStartReturnsImmediately(t *testing.T) {
	reg := progress.NewRegistry()
	release := make(chan struct{})
	m := newCountingMetrics()
	jobs := NewAnalysisJobs(reg, runnerFunc(func(ctx context.Context, id string, sink ProgressSink) models.ProgressEvent {
		<-release
		ev := models.CompletedEvent(&models.AnalysisReport{})
		_ = sink.Publish(ev)
		return ev
	}), m, nil)

	id, err := jobs.Start(context.Background(), SourceHTTP)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	_, ok := reg.Lookup(id)
	assert.True(t, ok)
	assert.Equal(t, 1, jobs.Active())

	close(release)
	require.NoError(t, jobs.Shutdown(context.Background()))
	assert.Equal(t, 0, jobs.Active())
	assert.Equal(t, 1, m.started[SourceHTTP])
}

func TestJobsRunDetachedFromRequestContext(t *testing.T) {
	reg := progress.NewRegistry()
	var sawCancel atomic.Bool
	jobs := NewAnalysisJobs(reg, runnerFunc(func(ctx context.Context, id string, sink ProgressSink) models.ProgressEvent {
		time.Sleep(10 * time.Millisecond)
		sawCancel.Store(ctx.Err() != nil)
		ev := models.CompletedEvent(&models.AnalysisReport{})
		_ = sink.Publish(ev)
		return ev
	}), newCountingMetrics(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	_, err := jobs.Start(ctx, SourceHTTP)
	require.NoError(t, err)
	cancel()

	time.Sleep(30 * time.Millisecond)
	assert.False(t, sawCancel.Load())
	require.NoError(t, jobs.Shutdown(context.Background()))
}

func TestJobsRegistryFull(t *testing.T) {
	reg := progress.NewRegistry(progress.WithMaxJobs(1))
	block := make(chan struct{})
	jobs := NewAnalysisJobs(reg, runnerFunc(func(ctx context.Context, id string, sink ProgressSink) models.ProgressEvent {
		<-block
		return models.ProgressEvent{}
	}), newCountingMetrics(), nil)

	_, err := jobs.Start(context.Background(), SourceHTTP)
	require.NoError(t, err)
	_, err = jobs.Start(context.Background(), SourceHTTP)
	assert.ErrorIs(t, err, progress.ErrRegistryFull)

	close(block)
	require.NoError(t, jobs.Shutdown(context.Background()))
}

func TestJobsPanicPublishesFailure(t *testing.T) {
	reg := progress.NewRegistry()
	jobs := NewAnalysisJobs(reg, runnerFunc(func(context.Context, string, ProgressSink) models.ProgressEvent {
		panic("kaboom")
	}), newCountingMetrics(), nil)

	id, err := jobs.Start(context.Background(), SourceHTTP)
	require.NoError(t, err)
	require.NoError(t, jobs.Shutdown(context.Background()))

	ch, ok := reg.Lookup(id)
	require.True(t, ok)
	ev, err := ch.Next(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, models.EventFailed, ev.Kind)
	assert.Equal(t, "unexpected fault during analysis", ev.Message)
}

func TestJobsShutdownCancelsAndRefuses(t *testing.T) {
	reg := progress.NewRegistry()
	jobs := NewAnalysisJobs(reg, runnerFunc(func(ctx context.Context, id string, sink ProgressSink) models.ProgressEvent {
		<-ctx.Done()
		ev := models.FailedEvent(models.FailureAnalysis, "cancelled")
		_ = sink.Publish(ev)
		return ev
	}), newCountingMetrics(), nil)

	_, err := jobs.Start(context.Background(), SourceHTTP)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, jobs.Shutdown(ctx))

	_, err = jobs.Start(context.Background(), SourceHTTP)
	assert.ErrorIs(t, err, ErrShuttingDown)
}

func TestConcurrentJobsStreamIndependently(t *testing.T) {
	const n = 8
	reg := progress.NewRegistry()
	jobs := NewAnalysisJobs(reg, runnerFunc(func(ctx context.Context, id string, sink ProgressSink) models.ProgressEvent {
		for p := 10; p <= 80; p += 10 {
			_ = sink.Publish(models.UpdateEvent(fmt.Sprintf("%s:%d", id, p), p))
			time.Sleep(time.Millisecond)
		}
		ev := models.CompletedEvent(&models.AnalysisReport{})
		_ = sink.Publish(ev)
		return ev
	}), newCountingMetrics(), nil)
	streamer := NewProgressStreamer(reg, time.Second, nil)

	ids := make([]string, n)
	var startWg sync.WaitGroup
	for i := 0; i < n; i++ {
		startWg.Add(1)
		go func(i int) {
			defer startWg.Done()
			id, err := jobs.Start(context.Background(), SourceHTTP)
			assert.NoError(t, err)
			ids[i] = id
		}(i)
	}
	startWg.Wait()

	seen := map[string]bool{}
	for _, id := range ids {
		require.NotEmpty(t, id)
		require.False(t, seen[id], "duplicate job id %s", id)
		seen[id] = true
	}

	collectors := make([]*collector, n)
	reasons := make([]EndReason, n)
	var streamWg sync.WaitGroup
	for i, id := range ids {
		collectors[i] = &collector{}
		streamWg.Add(1)
		go func(i int, id string) {
			defer streamWg.Done()
			reason, err := streamer.Stream(context.Background(), id, collectors[i].emit)
			assert.NoError(t, err)
			reasons[i] = reason
		}(i, id)
	}
	streamWg.Wait()
	require.NoError(t, jobs.Shutdown(context.Background()))

	for i, id := range ids {
		assert.Equal(t, EndCompleted, reasons[i])
		events := collectors[i].events
		require.Len(t, events, 9)
		assert.Equal(t, []int{10, 20, 30, 40, 50, 60, 70, 80, 100}, percents(events))
		for _, ev := range events[:8] {
			assert.True(t, strings.HasPrefix(ev.Stage, id+":"), "job %s received %q", id, ev.Stage)
		}
		assert.Equal(t, models.EventCompleted, events[8].Kind)
	}
	assert.Equal(t, 0, reg.Len())
}
