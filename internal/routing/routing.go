package routing

import (
	"context"
	"time"

	"github.com/USA-RedDragon/campus-nav/internal/geo"
	"github.com/go-errors/errors"
	"github.com/paulmach/orb"
)

var (
	ErrRoutingUnavailable = errors.New("routing service unavailable")
	ErrNoRouteFound       = errors.New("no route found")
)

// Route is a walking path between two coordinates. Distance is in meters.
type Route struct {
	Path     orb.LineString
	Distance float64
	Duration time.Duration
}

// Router computes a route between two coordinates. Implementations return
// errors wrapping ErrRoutingUnavailable or ErrNoRouteFound.
type Router interface {
	ComputeRoute(ctx context.Context, from, to geo.Coordinate) (*Route, error)
}

// RouterFunc adapts a function to a Router.
type RouterFunc func(ctx context.Context, from, to geo.Coordinate) (*Route, error)

func (f RouterFunc) ComputeRoute(ctx context.Context, from, to geo.Coordinate) (*Route, error) {
	return f(ctx, from, to)
}
