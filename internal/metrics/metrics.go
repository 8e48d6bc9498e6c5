package metrics

import (
	"errors"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Package-level Prometheus collectors. The supervisor is a short-lived job,
// so there is nothing to scrape; counters accumulate during one invocation
// and are pushed to a Pushgateway when one is configured.
var (
	regOK atomic.Bool

	daemonStarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "drover",
			Subsystem: "daemon",
			Name:      "starts_total",
			Help:      "Number of successful daemon starts (including idempotent no-ops).",
		}, []string{"daemon"},
	)
	daemonStops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "drover",
			Subsystem: "daemon",
			Name:      "stops_total",
			Help:      "Number of stops (including idempotent no-ops).",
		}, []string{"daemon"},
	)
	startFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "drover",
			Subsystem: "daemon",
			Name:      "start_failures_total",
			Help:      "Number of failed starts by failure kind.",
		}, []string{"daemon", "reason"},
	)
	startWait = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "drover",
			Subsystem: "daemon",
			Name:      "start_wait_seconds",
			Help:      "Observed wall-clock wait until the readiness probe answered.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"daemon"},
	)
)

// Register registers all metrics with the provided registerer. It is safe to
// call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{daemonStarts, daemonStops, startFailures, startWait}
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

// Lightweight helpers used by the supervisor. They no-op until Register has
// been called.

func IncStart(daemon string) {
	if regOK.Load() {
		daemonStarts.WithLabelValues(daemon).Inc()
	}
}

func IncStop(daemon string) {
	if regOK.Load() {
		daemonStops.WithLabelValues(daemon).Inc()
	}
}

func IncStartFailure(daemon, reason string) {
	if regOK.Load() {
		startFailures.WithLabelValues(daemon, reason).Inc()
	}
}

func ObserveStartWait(daemon string, seconds float64) {
	if regOK.Load() {
		startWait.WithLabelValues(daemon).Observe(seconds)
	}
}

// Push sends the accumulated counters to the Pushgateway at url under the
// given job name. Add (not Push) so concurrent invocations on other hosts do
// not clobber each other's groups.
func Push(url, job string) error {
	if url == "" {
		return nil
	}
	return push.New(url, job).
		Collector(daemonStarts).
		Collector(daemonStops).
		Collector(startFailures).
		Collector(startWait).
		Add()
}
