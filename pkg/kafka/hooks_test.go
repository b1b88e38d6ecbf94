package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	applogger "MarketPulse/pkg/logger"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHookChainOrder(t *testing.T) {
	var calls []string
	mk := func(name string) ConsumerHook {
		return HookFuncs{
			Before: func(ctx context.Context, topic string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
				calls = append(calls, "before:"+name)
				return ctx, km, append(data, name...), nil
			},
			After: func(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {
				calls = append(calls, "after:"+name)
			},
		}
	}
	chain := NewHookChain(mk("a"), nil, mk("b"))

	_, _, data, err := chain.BeforeHandle(context.Background(), "t", kafka.Message{}, []byte(">"))
	require.NoError(t, err)
	assert.Equal(t, ">ab", string(data))

	chain.AfterHandle(context.Background(), "t", kafka.Message{}, data, nil)
	assert.Equal(t, []string{"before:a", "before:b", "after:b", "after:a"}, calls)
}

func TestHookChainRecoversPanic(t *testing.T) {
	chain := NewHookChain(HookFuncs{
		Before: func(context.Context, string, kafka.Message, []byte) (context.Context, kafka.Message, []byte, error) {
			panic("boom")
		},
		After: func(context.Context, string, kafka.Message, []byte, error) {
			panic("boom again")
		},
	})

	_, _, _, err := chain.BeforeHandle(context.Background(), "t", kafka.Message{}, nil)
	var herr *HookError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, "ERR_PANIC", herr.Code)

	assert.NotPanics(t, func() {
		chain.AfterHandle(context.Background(), "t", kafka.Message{}, nil, nil)
	})
}

func TestLoggingHook(t *testing.T) {
	hook := NewLoggingHook(applogger.NewNop(), 8)
	km := kafka.Message{Headers: []kafka.Header{{Key: "trace_id", Value: []byte("abc")}}}

	ctx, _, _, err := hook.BeforeHandle(context.Background(), "t", km, []byte("{}"))
	require.NoError(t, err)
	assert.Equal(t, "abc", TraceID(ctx))
	_, ok := StartTime(ctx)
	assert.True(t, ok)

	_, _, _, err = hook.BeforeHandle(context.Background(), "t", km, []byte("0123456789"))
	var herr *HookError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, "ERR_PAYLOAD_TOO_LARGE", herr.Code)

	assert.NotPanics(t, func() {
		hook.AfterHandle(ctx, "t", km, nil, errors.New("failed"))
		hook.OnError(ctx, "t", km, nil, errors.New("failed"))
	})
}

func TestBackoffWithJitter(t *testing.T) {
	for attempt := 1; attempt <= 10; attempt++ {
		d := backoffWithJitter(10*time.Millisecond, 100*time.Millisecond, attempt)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 100*time.Millisecond)
	}
}

func TestConsumerSetup(t *testing.T) {
	_, err := NewConsumer()
	require.Error(t, err)

	c, err := NewConsumer(WithConsumerBrokers([]string{"localhost:9092"}), WithConsumerWorkers(2))
	require.NoError(t, err)
	require.Error(t, c.Start())

	assert.Same(t, c.partitionLock("t", 0), c.partitionLock("t", 0))
	assert.NotSame(t, c.partitionLock("t", 0), c.partitionLock("t", 1))
	require.NoError(t, c.Stop(context.Background()))
}
