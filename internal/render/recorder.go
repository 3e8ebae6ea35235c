package render

import (
	"sync"

	"github.com/USA-RedDragon/campus-nav/internal/geo"
	"github.com/paulmach/orb"
)

type Marker struct {
	Coordinate geo.Coordinate
	Style      Style
}

// Recorder keeps the current picture a surface would show. ShowPath adds
// a path and ClearPath removes them all, so a caller that forgets to clear
// leaves more than one path behind.
type Recorder struct {
	mu       sync.Mutex
	markers  []Marker
	paths    []orb.LineString
	center   *geo.Coordinate
	zoom     int
	commands []Command
	noLog    bool
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) log(cmd Command) {
	if !r.noLog {
		r.commands = append(r.commands, cmd)
	}
}

func (r *Recorder) ShowMarker(c geo.Coordinate, style Style) {
	r.mu.Lock()
	defer r.mu.Unlock()
	// The user marker moves rather than multiplying.
	if style.Kind == StyleUser {
		for i := range r.markers {
			if r.markers[i].Style.Kind == StyleUser {
				r.markers[i] = Marker{Coordinate: c, Style: style}
				r.log(ShowMarkerCommand(c, style))
				return
			}
		}
	}
	r.markers = append(r.markers, Marker{Coordinate: c, Style: style})
	r.log(ShowMarkerCommand(c, style))
}

func (r *Recorder) ShowPath(path orb.LineString, style Style) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path.Clone())
	r.log(ShowPathCommand(path, style))
}

func (r *Recorder) ClearPath() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = nil
	r.log(ClearPathCommand())
}

func (r *Recorder) ClearMarkers() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markers = nil
	r.log(ClearMarkersCommand())
}

func (r *Recorder) CenterOn(c geo.Coordinate, zoom int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.center = &c
	r.zoom = zoom
	r.log(CenterOnCommand(c, zoom))
}

func (r *Recorder) Markers() []Marker {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Marker, len(r.markers))
	copy(out, r.markers)
	return out
}

func (r *Recorder) Paths() []orb.LineString {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]orb.LineString, len(r.paths))
	copy(out, r.paths)
	return out
}

func (r *Recorder) Center() (geo.Coordinate, int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.center == nil {
		return geo.Coordinate{}, 0, false
	}
	return *r.center, r.zoom, true
}

// Commands is every call received, in order.
func (r *Recorder) Commands() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Command, len(r.commands))
	copy(out, r.commands)
	return out
}

// Replay returns the commands that redraw the current picture from scratch.
func (r *Recorder) Replay() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Command, 0, len(r.markers)+len(r.paths)+3)
	out = append(out, ClearMarkersCommand())
	if r.center != nil {
		out = append(out, CenterOnCommand(*r.center, r.zoom))
	}
	for _, m := range r.markers {
		out = append(out, ShowMarkerCommand(m.Coordinate, m.Style))
	}
	out = append(out, ClearPathCommand())
	for _, p := range r.paths {
		out = append(out, ShowPathCommand(p, RoutePath))
	}
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markers = nil
	r.paths = nil
	r.center = nil
	r.zoom = 0
	r.commands = nil
}
