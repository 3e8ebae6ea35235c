package navmap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/USA-RedDragon/campus-nav/internal/gazetteer"
	"github.com/USA-RedDragon/campus-nav/internal/geo"
	"github.com/USA-RedDragon/campus-nav/internal/geolocation"
	"github.com/USA-RedDragon/campus-nav/internal/metrics"
	"github.com/USA-RedDragon/campus-nav/internal/render"
	"github.com/USA-RedDragon/campus-nav/internal/resolver"
	"github.com/USA-RedDragon/campus-nav/internal/routing"
	"github.com/USA-RedDragon/campus-nav/internal/session"
	goerrors "github.com/go-errors/errors"
	"github.com/paulmach/orb"
)

// UserLocationName is the searchable name of the user's own position.
const UserLocationName = "Your Location"

const (
	DefaultZoom      = 17
	DefaultFocusZoom = 19
)

var (
	ErrUnknownLocation = goerrors.New("unknown location")
	ErrPositionUnknown = goerrors.New("user position is not known yet")
	ErrNoGeolocation   = goerrors.New("geolocation is not configured")
	ErrPushUnsupported = goerrors.New("geolocation source does not accept pushed positions")
	ErrNotLocating     = goerrors.New("geolocation is not running")
	ErrDisposed        = goerrors.New("map has been disposed")
)

type BuildingLoader interface {
	Load(ctx context.Context) ([]gazetteer.Location, error)
	Source() string
}

type PathLoader interface {
	Load(ctx context.Context) ([]orb.LineString, error)
}

// SnapshotStore keeps the last good building list per feed.
type SnapshotStore interface {
	Save(ctx context.Context, feed string, locations []gazetteer.Location) error
	Load(ctx context.Context, feed string) ([]gazetteer.Location, error)
}

type Options struct {
	Buildings BuildingLoader
	Paths     PathLoader
	Snapshots SnapshotStore

	// Router computes routes. With WalkwayGraph set, a graph built from the
	// path feed answers when Router is nil or unavailable.
	Router       routing.Router
	WalkwayGraph bool
	Graph        routing.GraphOptions
	RouteTimeout time.Duration

	Surface            render.Surface
	Geolocation        geolocation.Source
	GeolocationOptions geolocation.Options
	// RerouteDistance is how far in meters the user has to move before a
	// route that starts or ends at their position is recomputed.
	RerouteDistance float64

	Search              resolver.Options
	Center              geo.Coordinate
	Zoom                int
	FocusZoom           int
	PopularDestinations []string

	Metrics *metrics.Metrics

	OnSelect  func(name string)
	OnNotice  func(err error)
	OnSession func(session.Snapshot)
	OnDispose func()
}

// Broadcast makes b the drawing surface and publishes selections, notices
// and session transitions to its subscribers. It replaces the callbacks.
func (o Options) Broadcast(b *render.Broadcaster) Options {
	o.Surface = b
	o.OnSession = func(snap session.Snapshot) {
		cmd, err := render.SessionCommand(snap)
		if err != nil {
			slog.Error("Failed to encode session snapshot", "error", err)
			return
		}
		b.Publish(cmd)
	}
	o.OnSelect = func(name string) {
		b.Publish(render.SelectedCommand(name))
	}
	o.OnNotice = func(err error) {
		b.Publish(render.NoticeCommand(err.Error()))
	}
	o.OnDispose = b.Close
	return o
}

// Map is one independent navigation view: its own gazetteer, search index,
// tracker and route session.
type Map struct {
	id      string
	opts    Options
	surface render.Surface
	session *session.Manager
	tracker *geolocation.Tracker

	ctx       context.Context
	cancel    context.CancelFunc
	consumers sync.WaitGroup

	routerMu sync.RWMutex
	router   routing.Router
	walkways []orb.LineString

	mu         sync.Mutex
	index      *resolver.Resolver
	loaded     bool
	feedErr    error
	user       *resolver.Entry
	fix        *geolocation.Fix
	routedFrom *geo.Coordinate
	notice     error
	closed     bool
}

func New(id string, opts Options) *Map {
	if opts.Surface == nil {
		opts.Surface = render.Discard
	}
	if opts.Zoom <= 0 {
		opts.Zoom = DefaultZoom
	}
	if opts.FocusZoom <= 0 {
		opts.FocusZoom = DefaultFocusZoom
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Map{
		id:      id,
		opts:    opts,
		surface: opts.Surface,
		ctx:     ctx,
		cancel:  cancel,
		index:   resolver.New(nil, opts.Search),
	}
	if opts.Geolocation != nil {
		m.tracker = geolocation.NewTracker(opts.Geolocation)
	}
	m.installRouter(nil)
	m.session = session.NewManager(routing.RouterFunc(m.computeRoute), opts.Surface, session.Options{
		Timeout:  opts.RouteTimeout,
		Metrics:  opts.Metrics,
		Listener: opts.OnSession,
	})
	return m
}

func (m *Map) ID() string {
	return m.id
}

// Surface is what the map draws on.
func (m *Map) Surface() render.Surface {
	return m.surface
}

// Open loads both feeds and draws the initial map. A building feed failure
// is returned but leaves the map usable. Path feed failures are only logged.
func (m *Map) Open(ctx context.Context) error {
	err := m.load(ctx)
	m.mu.Lock()
	if !m.closed {
		m.surface.CenterOn(m.opts.Center, m.opts.Zoom)
	}
	m.mu.Unlock()
	return err
}

// Reload fetches the feeds again and replaces the gazetteer wholesale. On
// failure the previous gazetteer stays in place.
func (m *Map) Reload(ctx context.Context) error {
	return m.load(ctx)
}

func (m *Map) load(ctx context.Context) error {
	if m.isClosed() {
		return ErrDisposed
	}

	feed := m.opts.Buildings.Source()
	locations, err := m.opts.Buildings.Load(ctx)
	if err == nil {
		m.saveSnapshot(ctx, feed, locations)
	} else {
		m.mu.Lock()
		m.feedErr = err
		loaded := m.loaded
		m.mu.Unlock()
		if loaded {
			slog.Warn("Building feed unavailable, keeping the current gazetteer", "map", m.id, "feed", feed, "error", err)
			return err
		}
		locations = m.restoreSnapshot(ctx, feed)
		if len(locations) == 0 {
			slog.Warn("Building feed unavailable and no snapshot to fall back on", "map", m.id, "feed", feed, "error", err)
			m.loadPaths(ctx)
			return err
		}
		slog.Warn("Building feed unavailable, serving the last snapshot", "map", m.id, "feed", feed, "locations", len(locations), "error", err)
	}

	m.install(locations, err)
	m.loadPaths(ctx)
	return err
}

func (m *Map) saveSnapshot(ctx context.Context, feed string, locations []gazetteer.Location) {
	if m.opts.Snapshots == nil {
		return
	}
	if err := m.opts.Snapshots.Save(ctx, feed, locations); err != nil {
		slog.Warn("Failed to save gazetteer snapshot", "map", m.id, "feed", feed, "error", err)
	}
}

func (m *Map) restoreSnapshot(ctx context.Context, feed string) []gazetteer.Location {
	if m.opts.Snapshots == nil {
		return nil
	}
	locations, err := m.opts.Snapshots.Load(ctx, feed)
	if err != nil {
		slog.Warn("Failed to load gazetteer snapshot", "map", m.id, "feed", feed, "error", err)
		return nil
	}
	return locations
}

func (m *Map) install(locations []gazetteer.Location, feedErr error) {
	index := resolver.New(locations, m.opts.Search)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	if m.user != nil {
		index.Add(m.user)
	}
	m.index = index
	m.loaded = true
	m.feedErr = feedErr

	render.ClearMarkers(m.surface)
	for _, loc := range locations {
		style := render.BuildingMarker
		style.Label = loc.Name
		m.surface.ShowMarker(loc.Coordinate, style)
	}
	if m.user != nil {
		if c, ok := m.user.Coordinate(); ok {
			m.surface.ShowMarker(c, render.UserMarker)
		}
	}
	slog.Info("Gazetteer loaded", "map", m.id, "locations", len(locations))
}

func (m *Map) loadPaths(ctx context.Context) {
	if m.opts.Paths == nil {
		return
	}
	lines, err := m.opts.Paths.Load(ctx)
	if err != nil {
		slog.Warn("Walkway feed unavailable", "map", m.id, "error", err)
		return
	}
	m.installRouter(lines)
}

func (m *Map) installRouter(lines []orb.LineString) {
	router := m.opts.Router
	if m.opts.WalkwayGraph && len(lines) > 0 {
		graph := routing.Traced("graph", routing.NewGraph(lines, m.opts.Graph))
		if router == nil {
			router = graph
		} else {
			router = routing.Fallback(router, graph)
		}
	}

	m.routerMu.Lock()
	defer m.routerMu.Unlock()
	m.router = router
	if lines != nil {
		m.walkways = lines
	}
}

func (m *Map) computeRoute(ctx context.Context, from, to geo.Coordinate) (*routing.Route, error) {
	m.routerMu.RLock()
	router := m.router
	m.routerMu.RUnlock()
	if router == nil {
		return nil, fmt.Errorf("%w: no routing backend", routing.ErrRoutingUnavailable)
	}
	return router.ComputeRoute(ctx, from, to)
}

// Walkways is the last successfully loaded path network.
func (m *Map) Walkways() []orb.LineString {
	m.routerMu.RLock()
	defer m.routerMu.RUnlock()
	return m.walkways
}

// FeedErr is the error of the most recent building load, nil after a success.
func (m *Map) FeedErr() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.feedErr
}

func (m *Map) resolver() *resolver.Resolver {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index
}

// Search returns up to limit locations matching query, best first.
func (m *Map) Search(query string, limit int) []gazetteer.Location {
	m.opts.Metrics.IncrementSearches()
	return m.resolver().Search(query, limit)
}

// PopularDestinations lists the configured shortcuts that exist in the
// current gazetteer, in configured order.
func (m *Map) PopularDestinations() []gazetteer.Location {
	index := m.resolver()
	out := make([]gazetteer.Location, 0, len(m.opts.PopularDestinations))
	for _, name := range m.opts.PopularDestinations {
		if e, ok := index.Lookup(name); ok {
			out = append(out, e.Location())
		}
	}
	return out
}

func (m *Map) lookupLocked(name string) (*resolver.Entry, error) {
	if e, ok := m.index.Lookup(name); ok {
		return e, nil
	}
	if m.user == nil && strings.EqualFold(strings.TrimSpace(name), UserLocationName) {
		return nil, ErrPositionUnknown
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownLocation, name)
}

// SelectStart sets the start to the named location. An empty name unsets it.
func (m *Map) SelectStart(name string) error {
	return m.selectEndpoint(name, m.session.SetStart)
}

// SelectEnd sets the end to the named location. An empty name unsets it.
func (m *Map) SelectEnd(name string) error {
	return m.selectEndpoint(name, m.session.SetEnd)
}

func (m *Map) selectEndpoint(name string, set func(session.Endpoint)) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrDisposed
	}
	if strings.TrimSpace(name) == "" {
		set(nil)
		m.mu.Unlock()
		return nil
	}
	e, err := m.lookupLocked(name)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	set(e)
	m.markRoutedLocked()
	m.mu.Unlock()

	m.notifySelected(e.Name())
	return nil
}

// MarkerClick makes the clicked location the destination and focuses on it.
func (m *Map) MarkerClick(name string) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrDisposed
	}
	e, err := m.lookupLocked(name)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	m.session.SetEnd(e)
	m.markRoutedLocked()
	if c, ok := e.Coordinate(); ok {
		m.surface.CenterOn(c, m.opts.FocusZoom)
	}
	m.mu.Unlock()

	m.notifySelected(e.Name())
	return nil
}

// GoTo routes to the best match for query. When no start is set and the
// user's position is known, the route starts there.
func (m *Map) GoTo(query string) (gazetteer.Location, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return gazetteer.Location{}, ErrDisposed
	}
	ranked := m.index.Rank(query, 1)
	if len(ranked) == 0 {
		m.mu.Unlock()
		return gazetteer.Location{}, fmt.Errorf("%w: %q", ErrUnknownLocation, query)
	}
	dest := ranked[0].Entry
	if start, _ := m.session.Endpoints(); start == nil && m.user != nil {
		m.session.SetEndpoints(m.user, dest)
	} else {
		m.session.SetEnd(dest)
	}
	m.markRoutedLocked()
	if c, ok := dest.Coordinate(); ok {
		m.surface.CenterOn(c, m.opts.FocusZoom)
	}
	m.mu.Unlock()

	m.notifySelected(dest.Name())
	return dest.Location(), nil
}

// markRoutedLocked remembers where the user was when a route through their
// position was last requested.
func (m *Map) markRoutedLocked() {
	if m.user == nil {
		return
	}
	start, end := m.session.Endpoints()
	if start != m.user && end != m.user {
		return
	}
	if c, ok := m.user.Coordinate(); ok {
		m.routedFrom = &c
	}
}

func (m *Map) notifySelected(name string) {
	if m.opts.OnSelect != nil {
		m.opts.OnSelect(name)
	}
}

// Locate starts the geolocation tracker. It reports false when it was
// already running.
func (m *Map) Locate() (bool, error) {
	if m.tracker == nil {
		return false, ErrNoGeolocation
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false, ErrDisposed
	}
	events, started := m.tracker.Start(m.ctx, m.opts.GeolocationOptions)
	if started {
		m.consumers.Add(1)
		go m.consume(events)
	}
	return started, nil
}

// Deliver hands a client-reported event to a push geolocation source,
// starting the tracker first when needed.
func (m *Map) Deliver(ev geolocation.Event) error {
	push, ok := m.opts.Geolocation.(*geolocation.PushSource)
	if !ok {
		return ErrPushUnsupported
	}
	if _, err := m.Locate(); err != nil {
		return err
	}
	if !push.Deliver(ev) {
		return ErrNotLocating
	}
	return nil
}

func (m *Map) consume(events <-chan geolocation.Event) {
	defer m.consumers.Done()
	for ev := range events {
		m.handle(ev)
	}
}

func (m *Map) handle(ev geolocation.Event) {
	m.opts.Metrics.IncrementGeolocationEvents(string(ev.GetType()))
	switch ev := ev.(type) {
	case geolocation.PositionEvent:
		m.applyFix(ev.Fix)
	case geolocation.ErrorEvent:
		err := ev.Err()
		slog.Warn("Location unavailable", "map", m.id, "reason", ev.Reason, "error", err)
		m.mu.Lock()
		m.notice = err
		m.mu.Unlock()
		if m.opts.OnNotice != nil {
			m.opts.OnNotice(err)
		}
	}
}

func (m *Map) applyFix(fix geolocation.Fix) {
	c := fix.Coordinate
	if !c.Valid() {
		slog.Warn("Ignoring invalid position", "map", m.id, "coordinate", c)
		return
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.notice = nil
	m.fix = &fix
	if m.user == nil {
		m.user = resolver.NewEntry(gazetteer.Location{Name: UserLocationName, Coordinate: c})
		m.index.Add(m.user)
	} else {
		m.user.SetCoordinate(c)
	}
	m.surface.ShowMarker(c, render.UserMarker)

	selected := false
	start, end := m.session.Endpoints()
	switch {
	case start == nil:
		m.session.SetStart(m.user)
		m.routedFrom = &c
		selected = true
	case start == m.user || end == m.user:
		if m.routedFrom == nil || geo.Distance(*m.routedFrom, c) > m.opts.RerouteDistance {
			if m.session.Reroute(m.user) {
				m.routedFrom = &c
			}
		}
	}
	m.mu.Unlock()

	if selected {
		m.notifySelected(UserLocationName)
	}
}

// Position is the most recent fix, if any.
func (m *Map) Position() (geolocation.Fix, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fix == nil {
		return geolocation.Fix{}, false
	}
	return *m.fix, true
}

// LocationNotice is the last geolocation failure, cleared by the next fix.
func (m *Map) LocationNotice() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notice
}

func (m *Map) Clear() {
	m.session.Clear()
}

func (m *Map) Retry() error {
	if m.isClosed() {
		return ErrDisposed
	}
	return m.session.Retry()
}

func (m *Map) Snapshot() session.Snapshot {
	return m.session.Snapshot()
}

// Route is the currently displayed route, nil unless the session is Ready.
func (m *Map) Route() *routing.Route {
	return m.session.Route()
}

// Wait blocks until no route computation is in flight.
func (m *Map) Wait() {
	m.session.Wait()
}

func (m *Map) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Dispose stops the tracker and the route session. Later calls do nothing.
func (m *Map) Dispose() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.mu.Unlock()

	m.cancel()
	if m.tracker != nil {
		m.tracker.Stop()
	}
	m.consumers.Wait()
	m.session.Close()
	if m.opts.OnDispose != nil {
		m.opts.OnDispose()
	}
	slog.Debug("Map disposed", "map", m.id)
}

// IsFeedUnavailable reports whether err came from a building or path feed.
func IsFeedUnavailable(err error) bool {
	return errors.Is(err, gazetteer.ErrFeedUnavailable)
}
