package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type RouteOutcome string

const (
	RouteOutcomeOK          RouteOutcome = "ok"
	RouteOutcomeStale       RouteOutcome = "stale"
	RouteOutcomeNoRoute     RouteOutcome = "no_route"
	RouteOutcomeUnavailable RouteOutcome = "unavailable"
)

// Metrics is safe to use as a nil pointer, every recorder becomes a no-op.
type Metrics struct {
	activeMaps        prometheus.Gauge
	searches          prometheus.Counter
	routeComputations *prometheus.CounterVec
	geolocationEvents *prometheus.CounterVec
	feedLoads         *prometheus.CounterVec
}

// NewMetrics registers the collectors with reg, or the default registerer when reg is nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	metrics := &Metrics{
		activeMaps: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "campusnav_active_maps",
			Help: "The number of open map sessions",
		}),
		searches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "campusnav_searches_total",
			Help: "The total number of location searches",
		}),
		routeComputations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campusnav_route_computations_total",
			Help: "The total number of finished route computations by outcome",
		}, []string{"outcome"}),
		geolocationEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campusnav_geolocation_events_total",
			Help: "The total number of geolocation events by type",
		}, []string{"type"}),
		feedLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campusnav_feed_loads_total",
			Help: "The total number of feed loads by feed and outcome",
		}, []string{"feed", "outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	metrics.register(reg)
	return metrics
}

func (m *Metrics) register(reg prometheus.Registerer) {
	reg.MustRegister(m.activeMaps)
	reg.MustRegister(m.searches)
	reg.MustRegister(m.routeComputations)
	reg.MustRegister(m.geolocationEvents)
	reg.MustRegister(m.feedLoads)
}

func (m *Metrics) IncrementActiveMaps() {
	if m == nil {
		return
	}
	m.activeMaps.Inc()
}

func (m *Metrics) DecrementActiveMaps() {
	if m == nil {
		return
	}
	m.activeMaps.Dec()
}

func (m *Metrics) IncrementSearches() {
	if m == nil {
		return
	}
	m.searches.Inc()
}

func (m *Metrics) IncrementRouteComputations(outcome RouteOutcome) {
	if m == nil {
		return
	}
	m.routeComputations.WithLabelValues(string(outcome)).Inc()
}

func (m *Metrics) IncrementGeolocationEvents(eventType string) {
	if m == nil {
		return
	}
	m.geolocationEvents.WithLabelValues(eventType).Inc()
}

func (m *Metrics) IncrementFeedLoads(feed string, ok bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	m.feedLoads.WithLabelValues(feed, outcome).Inc()
}
