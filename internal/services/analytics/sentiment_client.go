package analytics

import (
	"context"
	"fmt"
	"math"
	"time"

	domsvc "MarketPulse/internal/domain/service"
)

// HTTPSentimentScorer delegates polarity scoring to a remote model service
// exposing POST /sentiment {"text": "..."} -> {"polarity": float}.
type HTTPSentimentScorer struct {
	*HTTPServiceBase
}

var _ domsvc.SentimentScorer = (*HTTPSentimentScorer)(nil)

func NewHTTPSentimentScorer(baseURL string, timeout time.Duration) *HTTPSentimentScorer {
	return &HTTPSentimentScorer{HTTPServiceBase: NewHTTPServiceBase(baseURL, timeout, 2)}
}

type sentimentRequest struct {
	Text string `json:"text"`
}

type sentimentResponse struct {
	Polarity *float64 `json:"polarity"`
}

func (s *HTTPSentimentScorer) Score(ctx context.Context, text string) (float64, error) {
	var resp sentimentResponse
	if err := s.PostJSON(ctx, "/sentiment", sentimentRequest{Text: text}, &resp); err != nil {
		return 0, err
	}
	if resp.Polarity == nil || math.IsNaN(*resp.Polarity) {
		return 0, fmt.Errorf("sentiment service: missing polarity")
	}
	return math.Max(-1, math.Min(1, *resp.Polarity)), nil
}
