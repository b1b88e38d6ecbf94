package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPSentimentScorer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sentiment", r.URL.Path)
		var req sentimentRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		polarity := 0.4
		if req.Text == "huge" {
			polarity = 3
		}
		_ = json.NewEncoder(w).Encode(map[string]float64{"polarity": polarity})
	}))
	defer srv.Close()

	s := NewHTTPSentimentScorer(srv.URL, time.Second)
	got, err := s.Score(context.Background(), "fine")
	require.NoError(t, err)
	assert.Equal(t, 0.4, got)

	got, err = s.Score(context.Background(), "huge")
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)
}

func TestHTTPSentimentScorerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewHTTPSentimentScorer(srv.URL, time.Second).Score(context.Background(), "text")
	assert.Error(t, err)

	_, err = NewHTTPSentimentScorer("", time.Second).Score(context.Background(), "text")
	assert.Error(t, err)
}

func TestHTTPSentimentScorerMissingPolarity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := NewHTTPSentimentScorer(srv.URL, time.Second).Score(context.Background(), "text")
	assert.Error(t, err)
}
