package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/USA-RedDragon/campus-nav/internal/geo"
	"github.com/USA-RedDragon/campus-nav/internal/metrics"
	"github.com/USA-RedDragon/campus-nav/internal/render"
	"github.com/USA-RedDragon/campus-nav/internal/routing"
	goerrors "github.com/go-errors/errors"
)

type State string

const (
	StateIdle         State = "Idle"
	StatePartiallySet State = "PartiallySet"
	StateComputing    State = "Computing"
	StateReady        State = "Ready"
)

var ErrEndpointsIncomplete = goerrors.New("both endpoints must be set")

// Endpoint is anything a route can start or end at. A false second return
// from Coordinate means the position is not known yet.
type Endpoint interface {
	Name() string
	Coordinate() (geo.Coordinate, bool)
}

type Summary struct {
	DistanceMeters  int `json:"distance_meters"`
	DurationMinutes int `json:"duration_minutes"`
}

func summarize(route *routing.Route) Summary {
	return Summary{
		DistanceMeters:  int(math.Round(math.Max(route.Distance, 0))),
		DurationMinutes: int(math.Round(math.Max(route.Duration.Seconds(), 0) / 60)),
	}
}

// Snapshot is a consistent view of the session at one transition.
type Snapshot struct {
	State   State    `json:"state"`
	Start   string   `json:"start,omitempty"`
	End     string   `json:"end,omitempty"`
	Summary *Summary `json:"summary,omitempty"`
	Error   string   `json:"error,omitempty"`
	Err     error    `json:"-"`
}

type Options struct {
	// Timeout bounds each route computation. Zero means no bound beyond the router's own.
	Timeout time.Duration
	Style   render.Style
	Metrics *metrics.Metrics
	// Listener receives every transition in order. It must not call back
	// into the Manager.
	Listener func(Snapshot)
}

// Manager owns the start and end of one route and keeps at most one
// computed path on the surface. Only the most recent request may change
// state, results of superseded computations are dropped.
type Manager struct {
	router  routing.Router
	surface render.Surface
	opts    Options

	ctx        context.Context
	cancelAll  context.CancelFunc
	inflight   sync.WaitGroup
	notifyLock sync.Mutex

	mu      sync.Mutex
	start   Endpoint
	end     Endpoint
	state   State
	summary *Summary
	route   *routing.Route
	lastErr error
	token   uint64
	cancel  context.CancelFunc
	closed  bool
}

func NewManager(router routing.Router, surface render.Surface, opts Options) *Manager {
	if surface == nil {
		surface = render.Discard
	}
	if opts.Style.Kind == "" {
		opts.Style = render.RoutePath
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		router:    router,
		surface:   surface,
		opts:      opts,
		ctx:       ctx,
		cancelAll: cancel,
		state:     StateIdle,
	}
}

// SetStart replaces the start endpoint. nil unsets it.
func (m *Manager) SetStart(e Endpoint) {
	m.update(func() { m.start = e })
}

// SetEnd replaces the end endpoint. nil unsets it.
func (m *Manager) SetEnd(e Endpoint) {
	m.update(func() { m.end = e })
}

// SetEndpoints replaces both endpoints as one change.
func (m *Manager) SetEndpoints(start, end Endpoint) {
	m.update(func() {
		m.start = start
		m.end = end
	})
}

// Clear unsets both endpoints and removes the route.
func (m *Manager) Clear() {
	m.update(func() {
		m.start = nil
		m.end = nil
	})
}

// Retry recomputes the route for the current endpoints, typically after a failure.
func (m *Manager) Retry() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	if m.start == nil || m.end == nil {
		m.mu.Unlock()
		return ErrEndpointsIncomplete
	}
	m.reconcileLocked()
	m.unlockAndNotify()
	return nil
}

// Reroute recomputes when e is one of the current endpoints, for example
// after the user's position moved. Endpoints are compared by identity. It
// reports whether a recompute started.
func (m *Manager) Reroute(e Endpoint) bool {
	m.mu.Lock()
	if m.closed || e == nil || (m.start != e && m.end != e) || m.start == nil || m.end == nil {
		m.mu.Unlock()
		return false
	}
	m.reconcileLocked()
	started := m.state == StateComputing
	m.unlockAndNotify()
	return started
}

func (m *Manager) update(mutate func()) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	mutate()
	m.reconcileLocked()
	m.unlockAndNotify()
}

// reconcileLocked supersedes any in-flight computation and moves to the
// state implied by the endpoints, starting a computation when both resolve.
func (m *Manager) reconcileLocked() {
	m.token++
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}

	hadPath := m.route != nil || m.state == StateComputing
	m.summary = nil
	m.route = nil
	m.lastErr = nil
	if hadPath {
		m.surface.ClearPath()
	}

	if m.start == nil && m.end == nil {
		m.state = StateIdle
		return
	}
	if m.start == nil || m.end == nil {
		m.state = StatePartiallySet
		return
	}
	from, ok := m.start.Coordinate()
	if !ok {
		m.state = StatePartiallySet
		return
	}
	to, ok := m.end.Coordinate()
	if !ok {
		m.state = StatePartiallySet
		return
	}

	m.state = StateComputing
	var ctx context.Context
	var cancel context.CancelFunc
	if m.opts.Timeout > 0 {
		ctx, cancel = context.WithTimeout(m.ctx, m.opts.Timeout)
	} else {
		ctx, cancel = context.WithCancel(m.ctx)
	}
	m.cancel = cancel
	token := m.token
	m.inflight.Add(1)
	go m.compute(ctx, cancel, token, from, to)
}

func (m *Manager) compute(ctx context.Context, cancel context.CancelFunc, token uint64, from, to geo.Coordinate) {
	defer m.inflight.Done()
	defer cancel()

	route, err := m.router.ComputeRoute(ctx, from, to)

	m.mu.Lock()
	if token != m.token || m.closed {
		m.mu.Unlock()
		m.opts.Metrics.IncrementRouteComputations(metrics.RouteOutcomeStale)
		slog.Debug("Discarding superseded route result", "from", from, "to", to)
		return
	}
	m.cancel = nil

	if err == nil && route == nil {
		err = routing.ErrNoRouteFound
	}
	if err != nil {
		err = classify(err)
		slog.Warn("Route computation failed", "from", from, "to", to, "error", err)
		if errors.Is(err, routing.ErrNoRouteFound) {
			m.opts.Metrics.IncrementRouteComputations(metrics.RouteOutcomeNoRoute)
		} else {
			m.opts.Metrics.IncrementRouteComputations(metrics.RouteOutcomeUnavailable)
		}
		m.surface.ClearPath()
		m.summary = nil
		m.route = nil
		m.lastErr = err
		m.state = StatePartiallySet
		m.unlockAndNotify()
		return
	}

	summary := summarize(route)
	m.surface.ClearPath()
	m.surface.ShowPath(route.Path, m.opts.Style)
	m.route = route
	m.summary = &summary
	m.lastErr = nil
	m.state = StateReady
	m.opts.Metrics.IncrementRouteComputations(metrics.RouteOutcomeOK)
	m.unlockAndNotify()
}

// classify reduces any router failure to NoRouteFound or RoutingUnavailable.
func classify(err error) error {
	if errors.Is(err, routing.ErrNoRouteFound) || errors.Is(err, routing.ErrRoutingUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", routing.ErrRoutingUnavailable, err)
}

// unlockAndNotify releases mu and delivers the snapshot taken under it.
// notifyLock is taken before mu is released so listeners see transitions in order.
func (m *Manager) unlockAndNotify() {
	snap := m.snapshotLocked()
	m.notifyLock.Lock()
	m.mu.Unlock()
	defer m.notifyLock.Unlock()
	if m.opts.Listener != nil {
		m.opts.Listener(snap)
	}
}

func (m *Manager) snapshotLocked() Snapshot {
	snap := Snapshot{State: m.state, Err: m.lastErr}
	if m.start != nil {
		snap.Start = m.start.Name()
	}
	if m.end != nil {
		snap.End = m.end.Name()
	}
	if m.summary != nil {
		s := *m.summary
		snap.Summary = &s
	}
	if m.lastErr != nil {
		snap.Error = ErrorCode(m.lastErr)
	}
	return snap
}

// ErrorCode names a route failure the way it is shown to users.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, routing.ErrNoRouteFound):
		return "NoRouteFound"
	default:
		return "RoutingUnavailable"
	}
}

func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Summary is only available in the Ready state.
func (m *Manager) Summary() (Summary, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.summary == nil {
		return Summary{}, false
	}
	return *m.summary, true
}

func (m *Manager) Route() *routing.Route {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.route
}

func (m *Manager) Endpoints() (start, end Endpoint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.start, m.end
}

// Err is the failure of the last computation, nil unless it failed.
func (m *Manager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Wait blocks until no computation is in flight.
func (m *Manager) Wait() {
	m.inflight.Wait()
}

// Close cancels in-flight work and turns every later mutation into a no-op.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.token++
	m.mu.Unlock()
	m.cancelAll()
	m.inflight.Wait()
}
