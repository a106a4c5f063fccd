package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Delivery tracks delivery attempts. A nil *Delivery is valid and records nothing.
type Delivery struct {
	attempts *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewDelivery registers the delivery metrics on reg.
func NewDelivery(reg prometheus.Registerer) (*Delivery, error) {
	d := &Delivery{
		// Labels:
		// - mode:    "link" or "attachment"
		// - outcome: "sent" or the error kind that ended the attempt
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "docsend",
				Subsystem: "delivery",
				Name:      "attempts_total",
				Help:      "Delivery attempts by mode and outcome.",
			},
			[]string{"mode", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "docsend",
				Subsystem: "delivery",
				Name:      "duration_seconds",
				Help:      "Duration of delivery attempts.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
	}
	for _, c := range []prometheus.Collector{d.attempts, d.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Observe records one finished attempt.
func (d *Delivery) Observe(mode, outcome string, elapsed time.Duration) {
	if d == nil {
		return
	}
	d.attempts.WithLabelValues(mode, outcome).Inc()
	d.duration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}
