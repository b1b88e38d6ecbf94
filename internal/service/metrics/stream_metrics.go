package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	StreamsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "marketpulse",
			Subsystem: "stream",
			Name:      "active",
			Help:      "Progress streams currently being served",
		},
		[]string{"transport"},
	)

	StreamTerminations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "marketpulse",
			Subsystem: "stream",
			Name:      "terminations_total",
			Help:      "Progress streams ended, by reason",
		},
		[]string{"transport", "reason"},
	)

	StreamEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "marketpulse",
			Subsystem: "stream",
			Name:      "events_total",
			Help:      "Progress events delivered to clients",
		},
		[]string{"transport", "type"},
	)
)

// Register adds the stream collectors to reg once per process.
func Register(reg prometheus.Registerer) {
	once.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		reg.MustRegister(StreamsActive, StreamTerminations, StreamEvents)
	})
}
