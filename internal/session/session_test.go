package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/USA-RedDragon/campus-nav/internal/geo"
	"github.com/USA-RedDragon/campus-nav/internal/render"
	"github.com/USA-RedDragon/campus-nav/internal/routing"
	"github.com/USA-RedDragon/campus-nav/internal/session"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type place struct {
	name  string
	coord geo.Coordinate
	known bool
}

func (p *place) Name() string { return p.name }

func (p *place) Coordinate() (geo.Coordinate, bool) { return p.coord, p.known }

func newPlace(name string, lat, lng float64) *place {
	return &place{name: name, coord: geo.Coordinate{Lat: lat, Lng: lng}, known: true}
}

var (
	userLocation  = newPlace("Your Location", 28.6095, 77.0360)
	library       = newPlace("Library", 28.610, 77.037)
	sportsComplex = newPlace("Sports Complex", 28.612, 77.040)
)

func straightLine(_ context.Context, from, to geo.Coordinate) (*routing.Route, error) {
	d := geo.Distance(from, to)
	return &routing.Route{
		Path:     orb.LineString{from.Point(), to.Point()},
		Distance: d,
		Duration: time.Duration(d / 1.4 * float64(time.Second)),
	}, nil
}

type pending struct {
	from, to geo.Coordinate
	result   chan *routing.Route
}

// gatedRouter blocks every computation until the test releases it and ignores
// cancellation, like a backend that answers late.
type gatedRouter struct {
	calls chan *pending
}

func newGatedRouter() *gatedRouter {
	return &gatedRouter{calls: make(chan *pending, 8)}
}

func (g *gatedRouter) ComputeRoute(_ context.Context, from, to geo.Coordinate) (*routing.Route, error) {
	p := &pending{from: from, to: to, result: make(chan *routing.Route, 1)}
	g.calls <- p
	return <-p.result, nil
}

func (g *gatedRouter) next(t *testing.T) *pending {
	t.Helper()
	select {
	case p := <-g.calls:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("no route computation started")
		return nil
	}
}

func (p *pending) release(distance float64) {
	p.result <- &routing.Route{
		Path:     orb.LineString{p.from.Point(), p.to.Point()},
		Distance: distance,
		Duration: time.Duration(distance) * time.Second,
	}
}

type stateLog struct {
	mu        sync.Mutex
	snapshots []session.Snapshot
}

func (l *stateLog) record(s session.Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.snapshots = append(l.snapshots, s)
}

func (l *stateLog) states() []session.State {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]session.State, len(l.snapshots))
	for i, s := range l.snapshots {
		out[i] = s.State
	}
	return out
}

func TestRouteFromUserLocation(t *testing.T) {
	t.Parallel()
	router := newGatedRouter()
	surface := render.NewRecorder()
	log := &stateLog{}
	m := session.NewManager(router, surface, session.Options{Listener: log.record})
	defer m.Close()

	assert.Equal(t, session.StateIdle, m.State())
	m.SetStart(userLocation)
	assert.Equal(t, session.StatePartiallySet, m.State())
	m.SetEnd(library)
	assert.Equal(t, session.StateComputing, m.State())

	call := router.next(t)
	assert.Equal(t, userLocation.coord, call.from)
	assert.Equal(t, library.coord, call.to)
	call.release(152.4)
	m.Wait()

	assert.Equal(t, []session.State{session.StatePartiallySet, session.StateComputing, session.StateReady}, log.states())
	summary, ok := m.Summary()
	require.True(t, ok)
	assert.Equal(t, 152, summary.DistanceMeters)
	assert.Equal(t, 3, summary.DurationMinutes)
	assert.Len(t, surface.Paths(), 1)

	snap := m.Snapshot()
	assert.Equal(t, "Your Location", snap.Start)
	assert.Equal(t, "Library", snap.End)
	assert.Empty(t, snap.Error)
}

func TestStaleComputationDiscarded(t *testing.T) {
	t.Parallel()
	router := newGatedRouter()
	surface := render.NewRecorder()
	m := session.NewManager(router, surface, session.Options{})
	defer m.Close()

	m.SetStart(userLocation)
	m.SetEnd(library)
	first := router.next(t)
	m.SetEnd(sportsComplex)
	second := router.next(t)

	second.release(400)
	assert.Eventually(t, func() bool { return m.State() == session.StateReady }, 2*time.Second, 5*time.Millisecond)
	first.release(100)
	m.Wait()

	assert.Equal(t, session.StateReady, m.State())
	summary, ok := m.Summary()
	require.True(t, ok)
	assert.Equal(t, 400, summary.DistanceMeters)
	paths := surface.Paths()
	require.Len(t, paths, 1)
	assert.Equal(t, sportsComplex.coord.Point(), paths[0][1])
	assert.Equal(t, "Sports Complex", m.Snapshot().End)
}

func TestStaleComputationResolvingFirst(t *testing.T) {
	t.Parallel()
	router := newGatedRouter()
	m := session.NewManager(router, render.NewRecorder(), session.Options{})
	defer m.Close()

	m.SetStart(userLocation)
	m.SetEnd(library)
	first := router.next(t)
	m.SetEnd(sportsComplex)
	second := router.next(t)

	first.release(100)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, session.StateComputing, m.State())
	_, ok := m.Summary()
	assert.False(t, ok)

	second.release(400)
	m.Wait()
	summary, ok := m.Summary()
	require.True(t, ok)
	assert.Equal(t, 400, summary.DistanceMeters)
}

func TestSingleActivePath(t *testing.T) {
	t.Parallel()
	surface := render.NewRecorder()
	m := session.NewManager(routing.RouterFunc(straightLine), surface, session.Options{})
	defer m.Close()

	m.SetStart(library)
	m.SetEnd(sportsComplex)
	m.Wait()
	require.Equal(t, session.StateReady, m.State())
	m.SetEnd(userLocation)
	m.Wait()
	require.Equal(t, session.StateReady, m.State())

	paths := surface.Paths()
	require.Len(t, paths, 1)
	assert.Equal(t, userLocation.coord.Point(), paths[0][1])
}

func TestClear(t *testing.T) {
	t.Parallel()
	surface := render.NewRecorder()
	m := session.NewManager(routing.RouterFunc(straightLine), surface, session.Options{})
	defer m.Close()

	m.SetStart(library)
	m.SetEnd(sportsComplex)
	m.Wait()
	require.Equal(t, session.StateReady, m.State())

	m.Clear()
	assert.Equal(t, session.StateIdle, m.State())
	assert.Empty(t, surface.Paths())
	_, ok := m.Summary()
	assert.False(t, ok)
	start, end := m.Endpoints()
	assert.Nil(t, start)
	assert.Nil(t, end)
	assert.Nil(t, m.Route())
}

func TestFailureRetainsEndpoints(t *testing.T) {
	t.Parallel()
	var mu sync.Mutex
	down := true
	router := routing.RouterFunc(func(ctx context.Context, from, to geo.Coordinate) (*routing.Route, error) {
		mu.Lock()
		defer mu.Unlock()
		if down {
			return nil, routing.ErrRoutingUnavailable
		}
		return straightLine(ctx, from, to)
	})
	surface := render.NewRecorder()
	m := session.NewManager(router, surface, session.Options{})
	defer m.Close()

	m.SetStart(library)
	m.SetEnd(sportsComplex)
	m.Wait()

	assert.Equal(t, session.StatePartiallySet, m.State())
	assert.ErrorIs(t, m.Err(), routing.ErrRoutingUnavailable)
	assert.Equal(t, "RoutingUnavailable", m.Snapshot().Error)
	_, ok := m.Summary()
	assert.False(t, ok)
	assert.Empty(t, surface.Paths())
	start, end := m.Endpoints()
	assert.Equal(t, library, start)
	assert.Equal(t, sportsComplex, end)

	mu.Lock()
	down = false
	mu.Unlock()
	require.NoError(t, m.Retry())
	m.Wait()
	assert.Equal(t, session.StateReady, m.State())
	assert.NoError(t, m.Err())
	assert.Len(t, surface.Paths(), 1)
}

func TestFailureClearsPreviousRoute(t *testing.T) {
	t.Parallel()
	router := routing.RouterFunc(func(ctx context.Context, from, to geo.Coordinate) (*routing.Route, error) {
		if to == sportsComplex.coord {
			return nil, routing.ErrNoRouteFound
		}
		return straightLine(ctx, from, to)
	})
	surface := render.NewRecorder()
	m := session.NewManager(router, surface, session.Options{})
	defer m.Close()

	m.SetStart(userLocation)
	m.SetEnd(library)
	m.Wait()
	require.Equal(t, session.StateReady, m.State())

	m.SetEnd(sportsComplex)
	m.Wait()
	assert.Equal(t, session.StatePartiallySet, m.State())
	assert.ErrorIs(t, m.Err(), routing.ErrNoRouteFound)
	assert.Equal(t, "NoRouteFound", m.Snapshot().Error)
	assert.Empty(t, surface.Paths())
	assert.Nil(t, m.Snapshot().Summary)
}

func TestUnexpectedErrorIsUnavailable(t *testing.T) {
	t.Parallel()
	router := routing.RouterFunc(func(context.Context, geo.Coordinate, geo.Coordinate) (*routing.Route, error) {
		return nil, errors.New("boom")
	})
	m := session.NewManager(router, nil, session.Options{})
	defer m.Close()
	m.SetEndpoints(library, sportsComplex)
	m.Wait()
	assert.ErrorIs(t, m.Err(), routing.ErrRoutingUnavailable)
}

func TestRetryNeedsBothEndpoints(t *testing.T) {
	t.Parallel()
	m := session.NewManager(routing.RouterFunc(straightLine), nil, session.Options{})
	defer m.Close()
	m.SetEnd(library)
	assert.ErrorIs(t, m.Retry(), session.ErrEndpointsIncomplete)
}

func TestEndpointWithoutCoordinate(t *testing.T) {
	t.Parallel()
	calls := 0
	router := routing.RouterFunc(func(ctx context.Context, from, to geo.Coordinate) (*routing.Route, error) {
		calls++
		return straightLine(ctx, from, to)
	})
	m := session.NewManager(router, nil, session.Options{})
	defer m.Close()

	m.SetStart(&place{name: "Your Location"})
	m.SetEnd(library)
	m.Wait()
	assert.Equal(t, session.StatePartiallySet, m.State())
	assert.Equal(t, 0, calls)
}

func TestUnsetCancelsInFlight(t *testing.T) {
	t.Parallel()
	started := make(chan struct{})
	cancelled := make(chan struct{})
	router := routing.RouterFunc(func(ctx context.Context, _, _ geo.Coordinate) (*routing.Route, error) {
		close(started)
		<-ctx.Done()
		close(cancelled)
		return nil, ctx.Err()
	})
	surface := render.NewRecorder()
	m := session.NewManager(router, surface, session.Options{})
	defer m.Close()

	m.SetStart(library)
	m.SetEnd(sportsComplex)
	<-started
	m.SetEnd(nil)

	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("computation was not cancelled")
	}
	m.Wait()
	assert.Equal(t, session.StatePartiallySet, m.State())
	assert.NoError(t, m.Err())
	assert.Empty(t, surface.Paths())
}

func TestTimeout(t *testing.T) {
	t.Parallel()
	router := routing.RouterFunc(func(ctx context.Context, _, _ geo.Coordinate) (*routing.Route, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	m := session.NewManager(router, nil, session.Options{Timeout: 20 * time.Millisecond})
	defer m.Close()
	m.SetEndpoints(library, sportsComplex)
	m.Wait()
	assert.Equal(t, session.StatePartiallySet, m.State())
	assert.ErrorIs(t, m.Err(), routing.ErrRoutingUnavailable)
	assert.ErrorIs(t, m.Err(), context.DeadlineExceeded)
}

func TestReroute(t *testing.T) {
	t.Parallel()
	user := newPlace("Your Location", 28.6095, 77.0360)
	m := session.NewManager(routing.RouterFunc(straightLine), nil, session.Options{})
	defer m.Close()

	assert.False(t, m.Reroute(user))
	m.SetStart(user)
	m.SetEnd(library)
	m.Wait()
	before, _ := m.Summary()

	assert.False(t, m.Reroute(sportsComplex))
	user.coord = geo.Coordinate{Lat: 28.6050, Lng: 77.0300}
	assert.True(t, m.Reroute(user))
	m.Wait()
	after, ok := m.Summary()
	require.True(t, ok)
	assert.Greater(t, after.DistanceMeters, before.DistanceMeters)
}

func TestSummaryRounding(t *testing.T) {
	t.Parallel()
	cases := []struct {
		distance float64
		duration time.Duration
		meters   int
		minutes  int
	}{
		{412.6, 297300 * time.Millisecond, 413, 5},
		{412.4, 89 * time.Second, 412, 1},
		{0, 0, 0, 0},
		{10, 29 * time.Second, 10, 0},
		{10, 30 * time.Second, 10, 1},
	}
	for _, tc := range cases {
		router := routing.RouterFunc(func(context.Context, geo.Coordinate, geo.Coordinate) (*routing.Route, error) {
			return &routing.Route{Distance: tc.distance, Duration: tc.duration}, nil
		})
		m := session.NewManager(router, nil, session.Options{})
		m.SetEndpoints(library, sportsComplex)
		m.Wait()
		summary, ok := m.Summary()
		require.True(t, ok)
		assert.Equal(t, tc.meters, summary.DistanceMeters)
		assert.Equal(t, tc.minutes, summary.DurationMinutes)
		m.Close()
	}
}

func TestCloseIsFinal(t *testing.T) {
	t.Parallel()
	router := newGatedRouter()
	m := session.NewManager(router, nil, session.Options{})
	m.SetEndpoints(library, sportsComplex)
	call := router.next(t)
	go call.release(10)
	m.Close()
	m.Close()

	m.SetEnd(userLocation)
	_, end := m.Endpoints()
	assert.Equal(t, sportsComplex, end)
	_, ok := m.Summary()
	assert.False(t, ok)
	assert.NoError(t, m.Retry())
}

func TestListenerSeesLastWrite(t *testing.T) {
	t.Parallel()
	log := &stateLog{}
	m := session.NewManager(routing.RouterFunc(straightLine), nil, session.Options{Listener: log.record})
	defer m.Close()

	m.SetStart(userLocation)
	for i := 0; i < 20; i++ {
		if i%2 == 0 {
			m.SetEnd(library)
		} else {
			m.SetEnd(sportsComplex)
		}
	}
	m.Wait()

	final := m.Snapshot()
	assert.Equal(t, session.StateReady, final.State)
	assert.Equal(t, "Sports Complex", final.End)
	states := log.states()
	assert.Equal(t, session.StateReady, states[len(states)-1])
	log.mu.Lock()
	last := log.snapshots[len(log.snapshots)-1]
	log.mu.Unlock()
	assert.Equal(t, "Sports Complex", last.End)
	require.NotNil(t, last.Summary)
	assert.Equal(t, final.Summary, last.Summary)
}
