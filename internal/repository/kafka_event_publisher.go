package repository

import (
	"context"
	"io"
	"time"

	"MarketPulse/internal/domain/models"
	domrepo "MarketPulse/internal/domain/repository"
	pkgkafka "MarketPulse/pkg/kafka"

	"github.com/segmentio/kafka-go"
)

// KafkaEventPublisher writes terminal job events keyed by job id. The job id
// also travels as the trace_id header so consumers can correlate logs.
type KafkaEventPublisher struct {
	producer pkgkafka.Publisher
	topic    string
	now      func() time.Time
}

var _ domrepo.EventPublisher = (*KafkaEventPublisher)(nil)

func NewKafkaEventPublisher(producer pkgkafka.Publisher, topic string) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: producer, topic: topic, now: time.Now}
}

// JobEventMessage is the payload published for each finished job.
type JobEventMessage struct {
	JobID       string               `json:"job_id"`
	Event       models.ProgressEvent `json:"event"`
	PublishedAt string               `json:"published_at"`
}

func (p *KafkaEventPublisher) PublishEvent(ctx context.Context, jobID string, ev models.ProgressEvent) error {
	msg := JobEventMessage{
		JobID:       jobID,
		Event:       ev,
		PublishedAt: p.now().UTC().Format(time.RFC3339),
	}
	return p.producer.Publish(ctx, p.topic, []byte(jobID), msg,
		kafka.Header{Key: "trace_id", Value: []byte(jobID)},
		kafka.Header{Key: "event_type", Value: []byte(ev.Kind)},
	)
}

func (p *KafkaEventPublisher) Close() error {
	if c, ok := p.producer.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
