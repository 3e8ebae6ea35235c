package metrics_test

import (
	"testing"

	"github.com/USA-RedDragon/campus-nav/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorders(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)

	m.IncrementActiveMaps()
	m.IncrementActiveMaps()
	m.DecrementActiveMaps()
	m.IncrementSearches()
	m.IncrementRouteComputations(metrics.RouteOutcomeOK)
	m.IncrementRouteComputations(metrics.RouteOutcomeStale)
	m.IncrementGeolocationEvents("position")
	m.IncrementFeedLoads("buildings", false)

	count, err := testutil.GatherAndCount(reg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// active maps, searches, two route outcomes, one geolocation type, one feed series
	if count != 6 {
		t.Errorf("expected 6 series, got %d", count)
	}
}

func TestNilMetrics(t *testing.T) {
	t.Parallel()

	var m *metrics.Metrics
	m.IncrementActiveMaps()
	m.DecrementActiveMaps()
	m.IncrementSearches()
	m.IncrementRouteComputations(metrics.RouteOutcomeNoRoute)
	m.IncrementGeolocationEvents("error")
	m.IncrementFeedLoads("paths", true)
}
