package routing_test

import (
	"context"
	"testing"

	"github.com/USA-RedDragon/campus-nav/internal/geo"
	"github.com/USA-RedDragon/campus-nav/internal/routing"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A square of walkways with a shortcut across one corner.
func walkways() []orb.LineString {
	a := orb.Point{77.0370, 28.6100}
	b := orb.Point{77.0400, 28.6100}
	c := orb.Point{77.0400, 28.6120}
	d := orb.Point{77.0370, 28.6120}
	return []orb.LineString{
		{a, b, c},
		{c, d, a},
		{a, c},
	}
}

func TestGraphShortestPath(t *testing.T) {
	t.Parallel()
	g := routing.NewGraph(walkways(), routing.GraphOptions{})
	assert.Equal(t, 4, g.Vertices())

	from := geo.Coordinate{Lat: 28.6100, Lng: 77.0370}
	to := geo.Coordinate{Lat: 28.6120, Lng: 77.0400}
	route, err := g.ComputeRoute(context.Background(), from, to)
	require.NoError(t, err)

	direct := geo.Distance(from, to)
	assert.InDelta(t, direct, route.Distance, 0.01)
	// from, a, c, to
	assert.Len(t, route.Path, 4)
	assert.InDelta(t, direct/routing.DefaultWalkingSpeed, route.Duration.Seconds(), 0.01)
}

func TestGraphIncludesSnapLegs(t *testing.T) {
	t.Parallel()
	g := routing.NewGraph(walkways(), routing.GraphOptions{WalkingSpeed: 2})

	from := geo.Coordinate{Lat: 28.6101, Lng: 77.0370}
	to := geo.Coordinate{Lat: 28.6100, Lng: 77.0400}
	route, err := g.ComputeRoute(context.Background(), from, to)
	require.NoError(t, err)

	snap := geo.Distance(from, geo.Coordinate{Lat: 28.6100, Lng: 77.0370})
	edge := geo.Distance(geo.Coordinate{Lat: 28.6100, Lng: 77.0370}, to)
	assert.InDelta(t, snap+edge, route.Distance, 0.01)
	assert.InDelta(t, (snap+edge)/2, route.Duration.Seconds(), 0.01)
}

func TestGraphTooFarFromNetwork(t *testing.T) {
	t.Parallel()
	g := routing.NewGraph(walkways(), routing.GraphOptions{MaxSnapDistance: 50})
	far := geo.Coordinate{Lat: 28.7000, Lng: 77.0370}
	_, err := g.ComputeRoute(context.Background(), far, geo.Coordinate{Lat: 28.6100, Lng: 77.0370})
	assert.ErrorIs(t, err, routing.ErrNoRouteFound)
}

func TestGraphDisconnected(t *testing.T) {
	t.Parallel()
	g := routing.NewGraph([]orb.LineString{
		{{77.0370, 28.6100}, {77.0375, 28.6100}},
		{{77.0390, 28.6100}, {77.0395, 28.6100}},
	}, routing.GraphOptions{})
	_, err := g.ComputeRoute(context.Background(),
		geo.Coordinate{Lat: 28.6100, Lng: 77.0370},
		geo.Coordinate{Lat: 28.6100, Lng: 77.0395})
	assert.ErrorIs(t, err, routing.ErrNoRouteFound)
}

func TestGraphEmpty(t *testing.T) {
	t.Parallel()
	g := routing.NewGraph(nil, routing.GraphOptions{})
	_, err := g.ComputeRoute(context.Background(), library, sports)
	assert.ErrorIs(t, err, routing.ErrRoutingUnavailable)
}

func TestGraphSameVertex(t *testing.T) {
	t.Parallel()
	g := routing.NewGraph(walkways(), routing.GraphOptions{})
	at := geo.Coordinate{Lat: 28.6100, Lng: 77.0370}
	route, err := g.ComputeRoute(context.Background(), at, at)
	require.NoError(t, err)
	assert.InDelta(t, 0, route.Distance, 1e-9)
}
