package throttle

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors updated on every admission.
// A nil *Metrics records nothing.
type Metrics struct {
	Admitted prometheus.Counter
	Canceled prometheus.Counter
	Wait     prometheus.Histogram
}

// NewMetrics creates and registers the throttle collectors with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Admitted: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "rpcthrottle",
				Name:      "admitted_total",
				Help:      "Total calls admitted by the throttle",
			},
		),
		Canceled: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "rpcthrottle",
				Name:      "canceled_total",
				Help:      "Total calls abandoned while waiting for admission",
			},
		),
		Wait: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "rpcthrottle",
				Name:      "admission_wait_seconds",
				Help:      "Time spent waiting for admission, jitter included",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
		),
	}
}

func (m *Metrics) observe(waited time.Duration, err error) {
	if m == nil {
		return
	}

	m.Wait.Observe(waited.Seconds())
	if err != nil {
		m.Canceled.Inc()
		return
	}
	m.Admitted.Inc()
}
