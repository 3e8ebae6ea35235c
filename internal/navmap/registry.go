package navmap

import (
	"context"
	"log/slog"

	"github.com/USA-RedDragon/campus-nav/internal/metrics"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
)

// Factory builds the collaborators of a new map. Every call must return
// fresh state so maps never share a gazetteer, tracker or session.
type Factory func(id string) (Options, error)

// Registry tracks the live maps by id. Callers own every handle they create
// and release it with Dispose.
type Registry struct {
	factory Factory
	metrics *metrics.Metrics
	maps    *xsync.MapOf[string, *Map]
}

func NewRegistry(factory Factory, metrics *metrics.Metrics) *Registry {
	return &Registry{
		factory: factory,
		metrics: metrics,
		maps:    xsync.NewMapOf[string, *Map](),
	}
}

// Create opens a new map. A map whose building feed is unavailable is still
// returned, its FeedErr reports the failure.
func (r *Registry) Create(ctx context.Context) (*Map, error) {
	id := uuid.NewString()
	opts, err := r.factory(id)
	if err != nil {
		return nil, err
	}
	m := New(id, opts)
	if err := m.Open(ctx); err != nil {
		if !IsFeedUnavailable(err) {
			m.Dispose()
			return nil, err
		}
		slog.Warn("Map opened without a fresh building feed", "map", id, "error", err)
	}
	r.maps.Store(id, m)
	r.metrics.IncrementActiveMaps()
	slog.Info("Map created", "map", id)
	return m, nil
}

func (r *Registry) Get(id string) (*Map, bool) {
	return r.maps.Load(id)
}

// Dispose releases the map with the given id. It reports false for unknown ids.
func (r *Registry) Dispose(id string) bool {
	m, ok := r.maps.LoadAndDelete(id)
	if !ok {
		return false
	}
	m.Dispose()
	r.metrics.DecrementActiveMaps()
	return true
}

func (r *Registry) DisposeAll() {
	r.maps.Range(func(id string, _ *Map) bool {
		r.Dispose(id)
		return true
	})
}

func (r *Registry) Len() int {
	return r.maps.Size()
}
