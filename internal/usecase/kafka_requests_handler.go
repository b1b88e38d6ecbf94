package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"MarketPulse/internal/domain/models"
	pkgkafka "MarketPulse/pkg/kafka"
	applogger "MarketPulse/pkg/logger"
)

// KafkaAnalysisRequestHandler starts one analysis per request message and
// drains it in the background. The message body is optional JSON.
type KafkaAnalysisRequestHandler struct {
	topic   string
	jobs    JobStarter
	drainer JobDrainer
	l       *applogger.Logger

	base context.Context
	wg   sync.WaitGroup
}

var _ pkgkafka.MessageHandler = (*KafkaAnalysisRequestHandler)(nil)

func NewKafkaAnalysisRequestHandler(topic string, jobs JobStarter, drainer JobDrainer, l *applogger.Logger) *KafkaAnalysisRequestHandler {
	if l == nil {
		l = applogger.NewNop()
	}
	return &KafkaAnalysisRequestHandler{
		topic:   topic,
		jobs:    jobs,
		drainer: drainer,
		l:       l,
		base:    context.Background(),
	}
}

func (h *KafkaAnalysisRequestHandler) Topic() string { return h.topic }

func (h *KafkaAnalysisRequestHandler) Handle(ctx context.Context, b []byte) error {
	var req models.AnalysisRequestMessage
	if len(b) > 0 {
		if err := json.Unmarshal(b, &req); err != nil {
			return fmt.Errorf("decode analysis request: %w", err)
		}
	}
	id, err := h.jobs.Start(ctx, SourceKafka)
	if err != nil {
		return fmt.Errorf("start analysis: %w", err)
	}
	h.l.Info("analysis requested via kafka",
		applogger.String("job_id", id),
		applogger.String("requested_by", req.RequestedBy),
	)

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		if _, err := h.drainer.Drain(h.base, id); err != nil {
			h.l.Warn("requested analysis drain ended early", applogger.String("job_id", id), applogger.Error(err))
		}
	}()
	return nil
}

// Wait blocks until every drain started by Handle has returned.
func (h *KafkaAnalysisRequestHandler) Wait() {
	h.wg.Wait()
}
