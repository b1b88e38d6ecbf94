package progress

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"MarketPulse/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelFIFO(t *testing.T) {
	ch := newChannel(time.Now)
	for _, p := range []int{10, 20, 40} {
		require.NoError(t, ch.Publish(models.UpdateEvent(fmt.Sprintf("stage %d", p), p)))
	}
	require.NoError(t, ch.Publish(models.CompletedEvent(nil)))
	assert.Len(t, ch.queue, 4)

	got := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		ev, err := ch.Next(context.Background(), time.Second)
		require.NoError(t, err)
		got = append(got, ev.Percent)
	}
	assert.Equal(t, []int{10, 20, 40, 100}, got)
}

func TestChannelRejectsAfterTerminal(t *testing.T) {
	ch := newChannel(time.Now)
	require.NoError(t, ch.Publish(models.FailedEvent(models.FailureAnalysis, "boom")))
	assert.True(t, ch.Sealed())
	assert.ErrorIs(t, ch.Publish(models.UpdateEvent("late", 100)), ErrChannelClosed)
	assert.ErrorIs(t, ch.Publish(models.CompletedEvent(nil)), ErrChannelClosed)
	assert.Len(t, ch.queue, 1)
}

func TestChannelRejectsRegression(t *testing.T) {
	ch := newChannel(time.Now)
	require.NoError(t, ch.Publish(models.UpdateEvent("a", 40)))
	assert.ErrorIs(t, ch.Publish(models.UpdateEvent("b", 20)), ErrProgressRegressed)
	require.NoError(t, ch.Publish(models.UpdateEvent("c", 40)))
}

func TestChannelRejectsPercentOutOfRange(t *testing.T) {
	ch := newChannel(time.Now)
	assert.ErrorIs(t, ch.Publish(models.UpdateEvent("negative", -1)), ErrProgressRange)
	assert.ErrorIs(t, ch.Publish(models.UpdateEvent("overflow", 101)), ErrProgressRange)
	assert.Empty(t, ch.queue)

	require.NoError(t, ch.Publish(models.UpdateEvent("start", 0)))
	require.NoError(t, ch.Publish(models.UpdateEvent("done", 100)))
	assert.False(t, ch.Sealed())
}

func TestChannelNextTimesOut(t *testing.T) {
	ch := newChannel(time.Now)
	start := time.Now()
	_, err := ch.Next(context.Background(), 30*time.Millisecond)
	assert.ErrorIs(t, err, ErrIdleTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestChannelNextHonoursContext(t *testing.T) {
	ch := newChannel(time.Now)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ch.Next(ctx, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestChannelWakesWaitingConsumer(t *testing.T) {
	ch := newChannel(time.Now)
	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = ch.Publish(models.UpdateEvent("late", 10))
	}()
	ev, err := ch.Next(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, 10, ev.Percent)
}

func TestChannelConcurrentProducerConsumer(t *testing.T) {
	ch := newChannel(time.Now)
	const n = 500
	go func() {
		for i := 0; i < n; i++ {
			_ = ch.Publish(models.UpdateEvent("step", i*100/n))
		}
		_ = ch.Publish(models.CompletedEvent(nil))
	}()

	last := -1
	count := 0
	for {
		ev, err := ch.Next(context.Background(), time.Second)
		require.NoError(t, err)
		require.GreaterOrEqual(t, ev.Percent, last)
		last = ev.Percent
		count++
		if ev.Terminal() {
			break
		}
	}
	assert.Equal(t, n+1, count)
}

func TestRegistryCreateDistinctIDs(t *testing.T) {
	r := NewRegistry()
	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		id, ch, err := r.Create()
		require.NoError(t, err)
		require.NotNil(t, ch)
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
	assert.Equal(t, 200, r.Len())
}

func TestRegistryRetriesOnCollision(t *testing.T) {
	ids := []string{"a", "a", "b"}
	i := 0
	gen := func() string {
		id := ids[i%len(ids)]
		i++
		return id
	}
	r := NewRegistry(WithIDGenerator(gen))

	first, _, err := r.Create()
	require.NoError(t, err)
	second, _, err := r.Create()
	require.NoError(t, err)
	assert.Equal(t, "a", first)
	assert.Equal(t, "b", second)
}

func TestRegistryRemoveIsIdempotent(t *testing.T) {
	r := NewRegistry()
	id, _, err := r.Create()
	require.NoError(t, err)

	assert.True(t, r.Remove(id))
	assert.False(t, r.Remove(id))
	assert.False(t, r.Remove("never-existed"))
	_, ok := r.Lookup(id)
	assert.False(t, ok)
	assert.Equal(t, 0, r.Len())
}

func TestRegistryClaimIsExclusive(t *testing.T) {
	r := NewRegistry()
	id, created, err := r.Create()
	require.NoError(t, err)

	ch, ok := r.Claim(id)
	require.True(t, ok)
	assert.Same(t, created, ch)

	_, ok = r.Claim(id)
	assert.False(t, ok)
	_, ok = r.Claim("unknown")
	assert.False(t, ok)
}

func TestRegistryMaxJobs(t *testing.T) {
	r := NewRegistry(WithMaxJobs(2))
	id, _, err := r.Create()
	require.NoError(t, err)
	_, _, err = r.Create()
	require.NoError(t, err)
	_, _, err = r.Create()
	assert.ErrorIs(t, err, ErrRegistryFull)

	r.Remove(id)
	_, _, err = r.Create()
	assert.NoError(t, err)
}

func TestRegistrySweepRemovesOnlyStaleTerminal(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	r := NewRegistry(WithClock(clock))

	done, doneCh, err := r.Create()
	require.NoError(t, err)
	require.NoError(t, doneCh.Publish(models.CompletedEvent(nil)))

	running, runningCh, err := r.Create()
	require.NoError(t, err)
	require.NoError(t, runningCh.Publish(models.UpdateEvent("x", 10)))

	assert.Empty(t, r.Sweep(time.Minute))

	now = now.Add(2 * time.Minute)
	removed := r.Sweep(time.Minute)
	assert.Equal(t, []string{done}, removed)

	_, ok := r.Lookup(running)
	assert.True(t, ok)
	assert.Equal(t, 1, r.Len())
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				id, ch, err := r.Create()
				if err != nil {
					t.Error(err)
					return
				}
				_ = ch.Publish(models.UpdateEvent("x", 10))
				if _, ok := r.Lookup(id); !ok {
					t.Errorf("missing %s", id)
				}
				r.Remove(id)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, r.Len())
}
