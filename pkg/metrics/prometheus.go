package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	jobsStarted   *prometheus.CounterVec
	jobsFinished  *prometheus.CounterVec
	jobDuration   *prometheus.HistogramVec
	activeJobs    prometheus.Gauge
	stageLatency  *prometheus.HistogramVec
	providerError *prometheus.CounterVec
}

// New creates a recorder registered on reg (the default registry when nil).
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		jobsStarted: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketpulse_jobs_started_total",
				Help: "Analysis jobs started, by trigger",
			},
			[]string{"source"},
		),
		jobsFinished: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketpulse_jobs_finished_total",
				Help: "Analysis jobs finished, by outcome",
			},
			[]string{"outcome"},
		),
		jobDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "marketpulse_job_duration_seconds",
				Help:    "Wall time of analysis jobs",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"outcome"},
		),
		activeJobs: f.NewGauge(prometheus.GaugeOpts{
			Name: "marketpulse_jobs_active",
			Help: "Entries currently held in the job registry",
		}),
		stageLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "marketpulse_stage_duration_seconds",
				Help:    "Duration of analysis stages in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		providerError: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketpulse_provider_errors_total",
				Help: "Data provider failures that degraded to empty data",
			},
			[]string{"provider"},
		),
	}
}

func (r *Recorder) RecordJobStarted(source string) {
	r.jobsStarted.WithLabelValues(source).Inc()
}

func (r *Recorder) RecordJobFinished(outcome string, seconds float64) {
	r.jobsFinished.WithLabelValues(outcome).Inc()
	r.jobDuration.WithLabelValues(outcome).Observe(seconds)
}

func (r *Recorder) RecordStageLatency(stage string, seconds float64) {
	r.stageLatency.WithLabelValues(stage).Observe(seconds)
}

func (r *Recorder) RecordProviderError(provider string) {
	r.providerError.WithLabelValues(provider).Inc()
}

func (r *Recorder) SetActiveJobs(n int) {
	r.activeJobs.Set(float64(n))
}

// Noop discards all observations.
type Noop struct{}

func (Noop) RecordJobStarted(string)            {}
func (Noop) RecordJobFinished(string, float64)  {}
func (Noop) RecordStageLatency(string, float64) {}
func (Noop) RecordProviderError(string)         {}
func (Noop) SetActiveJobs(int)                  {}
