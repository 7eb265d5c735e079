package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	serviceStarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "svcup",
			Subsystem: "service",
			Name:      "starts_total",
			Help:      "Number of successful service starts.",
		}, []string{"name"},
	)
	serviceStops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "svcup",
			Subsystem: "service",
			Name:      "stops_total",
			Help:      "Number of service stops (graceful or kill).",
		}, []string{"name"},
	)
	launchFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "svcup",
			Subsystem: "service",
			Name:      "launch_failures_total",
			Help:      "Number of launches that died within the grace period.",
		}, []string{"name"},
	)
	staleHandles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "svcup",
			Subsystem: "service",
			Name:      "stale_handles_total",
			Help:      "Number of recorded pids found dead at stop time.",
		}, []string{"name"},
	)
	serviceUp = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "svcup",
			Subsystem: "service",
			Name:      "up",
			Help:      "1 when the health endpoint answers, 0.5 when only the port is bound, 0 otherwise.",
		}, []string{"name"},
	)
)

// Register registers all collectors on r. Safe to call once per process;
// duplicate registration returns the underlying prometheus error.
func Register(r prometheus.Registerer) error {
	cs := []prometheus.Collector{serviceStarts, serviceStops, launchFailures, staleHandles, serviceUp}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Registered reports whether Register completed.
func Registered() bool { return regOK.Load() }

func IncStart(name string)         { serviceStarts.WithLabelValues(name).Inc() }
func IncStop(name string)          { serviceStops.WithLabelValues(name).Inc() }
func IncLaunchFailure(name string) { launchFailures.WithLabelValues(name).Inc() }
func IncStaleHandle(name string)   { staleHandles.WithLabelValues(name).Inc() }

// SetUp records the status classification for a service: 1 online, 0.5 port
// bound without a health answer, 0 offline.
func SetUp(name string, v float64) { serviceUp.WithLabelValues(name).Set(v) }

// Handler returns the /metrics handler for g. A nil g serves the default
// gatherer, matching collectors registered via the default registerer.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
