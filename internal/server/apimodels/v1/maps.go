package v1

import (
	"github.com/USA-RedDragon/campus-nav/internal/gazetteer"
	"github.com/USA-RedDragon/campus-nav/internal/session"
	"github.com/paulmach/orb/geojson"
)

type CreateMapResponse struct {
	ID    string `json:"id"`
	Token string `json:"token"`
	// FeedError is set when the map opened without a fresh building feed.
	FeedError string `json:"feed_error,omitempty"`
}

// EndpointRequest selects a location by name. An empty name unsets the endpoint.
type EndpointRequest struct {
	Name string `json:"name"`
}

type MarkerClickRequest struct {
	Name string `json:"name" binding:"required"`
}

type GoToRequest struct {
	Query string `json:"query" binding:"required"`
}

type Location struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

func NewLocation(loc gazetteer.Location) Location {
	return Location{
		Name: loc.Name,
		Lat:  loc.Coordinate.Lat,
		Lng:  loc.Coordinate.Lng,
	}
}

func NewLocations(locs []gazetteer.Location) []Location {
	out := make([]Location, 0, len(locs))
	for _, loc := range locs {
		out = append(out, NewLocation(loc))
	}
	return out
}

type RouteResponse struct {
	session.Snapshot
	Path *geojson.Geometry `json:"path,omitempty"`
}

type LocateResponse struct {
	Started bool `json:"started"`
}

type PositionResponse struct {
	Known    bool    `json:"known"`
	Lat      float64 `json:"lat,omitempty"`
	Lng      float64 `json:"lng,omitempty"`
	Accuracy float64 `json:"accuracy,omitempty"`
	Notice   string  `json:"notice,omitempty"`
}
