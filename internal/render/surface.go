package render

import (
	"github.com/USA-RedDragon/campus-nav/internal/geo"
	"github.com/paulmach/orb"
)

type StyleKind string

const (
	StyleBuilding StyleKind = "building"
	StyleUser     StyleKind = "user"
	StyleRoute    StyleKind = "route"
)

type Style struct {
	Kind  StyleKind `json:"kind"`
	Label string    `json:"label,omitempty"`
	Color string    `json:"color,omitempty"`
}

var (
	BuildingMarker = Style{Kind: StyleBuilding}
	UserMarker     = Style{Kind: StyleUser, Label: "Your Location", Color: "#2563eb"}
	RoutePath      = Style{Kind: StyleRoute, Color: "#6FA1EC"}
)

// Surface is anything that can draw the map. Calls must not block for long,
// they are made while navigation state is being updated.
type Surface interface {
	ShowMarker(c geo.Coordinate, style Style)
	ShowPath(path orb.LineString, style Style)
	ClearPath()
	CenterOn(c geo.Coordinate, zoom int)
}

// MarkerClearer is implemented by surfaces that can drop every marker at once.
type MarkerClearer interface {
	ClearMarkers()
}

// ClearMarkers clears s when it supports it.
func ClearMarkers(s Surface) {
	if mc, ok := s.(MarkerClearer); ok {
		mc.ClearMarkers()
	}
}

type multi []Surface

// Multi duplicates every call to each surface in order.
func Multi(surfaces ...Surface) Surface {
	return multi(surfaces)
}

func (m multi) ShowMarker(c geo.Coordinate, style Style) {
	for _, s := range m {
		s.ShowMarker(c, style)
	}
}

func (m multi) ShowPath(path orb.LineString, style Style) {
	for _, s := range m {
		s.ShowPath(path, style)
	}
}

func (m multi) ClearPath() {
	for _, s := range m {
		s.ClearPath()
	}
}

func (m multi) CenterOn(c geo.Coordinate, zoom int) {
	for _, s := range m {
		s.CenterOn(c, zoom)
	}
}

func (m multi) ClearMarkers() {
	for _, s := range m {
		ClearMarkers(s)
	}
}

// Discard ignores every call.
var Discard Surface = multi(nil)
