package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus records vote protocol events into Prometheus collectors.
type Prometheus struct {
	outcomes *prometheus.CounterVec
	steps    *prometheus.HistogramVec
}

// NewPrometheus builds a recorder and registers its collectors with reg.
// Pass prometheus.DefaultRegisterer for the default registry.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	outcomes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pollgate",
			Name:      "vote_outcomes_total",
			Help:      "Finished vote attempts by outcome code",
		},
		[]string{"code"},
	)

	steps := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pollgate",
			Name:      "step_latency_seconds",
			Help:      "Latency of vote protocol steps",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"step"},
	)

	for _, c := range []prometheus.Collector{outcomes, steps} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return &Prometheus{outcomes: outcomes, steps: steps}, nil
}

func (p *Prometheus) IncOutcome(code string) {
	p.outcomes.WithLabelValues(code).Inc()
}

func (p *Prometheus) ObserveStep(step string, d time.Duration) {
	p.steps.WithLabelValues(step).Observe(d.Seconds())
}
