package routing

import (
	"context"
	"errors"
	"log/slog"

	"github.com/USA-RedDragon/campus-nav/internal/geo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type fallback struct {
	primary   Router
	secondary Router
}

// Fallback tries secondary only when primary is unavailable. A NoRouteFound
// answer from primary is final.
func Fallback(primary, secondary Router) Router {
	return &fallback{primary: primary, secondary: secondary}
}

func (f *fallback) ComputeRoute(ctx context.Context, from, to geo.Coordinate) (*Route, error) {
	route, err := f.primary.ComputeRoute(ctx, from, to)
	if err == nil || !errors.Is(err, ErrRoutingUnavailable) || ctx.Err() != nil {
		return route, err
	}
	slog.Warn("Primary router unavailable, falling back", "error", err)
	return f.secondary.ComputeRoute(ctx, from, to)
}

type traced struct {
	backend string
	next    Router
	tracer  trace.Tracer
}

// Traced wraps next in a routing.compute span.
func Traced(backend string, next Router) Router {
	return &traced{backend: backend, next: next, tracer: otel.Tracer("github.com/USA-RedDragon/campus-nav/internal/routing")}
}

func (t *traced) ComputeRoute(ctx context.Context, from, to geo.Coordinate) (*Route, error) {
	ctx, span := t.tracer.Start(ctx, "routing.compute", trace.WithAttributes(
		attribute.String("routing.backend", t.backend),
		attribute.String("routing.from", from.String()),
		attribute.String("routing.to", to.String()),
	))
	defer span.End()

	route, err := t.next.ComputeRoute(ctx, from, to)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.Float64("routing.distance", route.Distance),
		attribute.Float64("routing.duration", route.Duration.Seconds()),
	)
	return route, nil
}
