package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roach88/intentd/internal/engine"
)

// metrics holds the server's prometheus collectors. Each Server owns its
// own registry so multiple servers (tests) never collide on registration.
type metrics struct {
	registry *prometheus.Registry

	intentsCreated   prometheus.Counter
	intentsCancelled prometheus.Counter
	killsTotal       prometheus.Counter
	watchStreams     prometheus.Gauge
}

func newMetrics(eng *engine.Engine) *metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &metrics{
		registry: reg,
		intentsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "intentd_intents_created_total",
			Help: "Number of intents accepted for execution",
		}),
		intentsCancelled: factory.NewCounter(prometheus.CounterOpts{
			Name: "intentd_intents_cancelled_total",
			Help: "Number of intents cancelled via the API (kill sweeps included)",
		}),
		killsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "intentd_kills_total",
			Help: "Number of emergency kill sweeps issued",
		}),
		watchStreams: factory.NewGauge(prometheus.GaugeOpts{
			Name: "intentd_watch_streams",
			Help: "Number of currently open transition event streams",
		}),
	}

	// Queue depth is sampled from the engine on scrape rather than pushed,
	// matching the engine's full-scan queueStatus semantics.
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "intentd_queue_pending",
		Help: "Intents currently in PENDING",
	}, func() float64 { return float64(eng.QueueStatus().Pending) })
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "intentd_queue_executing",
		Help: "Intents currently in an intermediate executing state",
	}, func() float64 { return float64(eng.QueueStatus().Executing) })
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "intentd_running_workers",
		Help: "Registered long-running workers",
	}, func() float64 { return float64(eng.QueueStatus().RunningWorkers) })
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "intentd_paused",
		Help: "1 while global execution is paused",
	}, func() float64 {
		if eng.ControlStatus().Paused {
			return 1
		}
		return 0
	})

	return m
}
