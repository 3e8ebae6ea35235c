package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/USA-RedDragon/campus-nav/internal/geo"
	"github.com/USA-RedDragon/campus-nav/internal/utils"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

const (
	DefaultOSRMURL     = "http://localhost:5000"
	DefaultOSRMProfile = "foot"
)

// OSRM queries the route service of an OSRM server.
type OSRM struct {
	baseURL string
	profile string
	client  *http.Client
}

func NewOSRM(baseURL, profile string, client *http.Client) *OSRM {
	if baseURL == "" {
		baseURL = DefaultOSRMURL
	}
	if profile == "" {
		profile = DefaultOSRMProfile
	}
	return &OSRM{baseURL: strings.TrimRight(baseURL, "/"), profile: profile, client: client}
}

type osrmResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Routes  []osrmRoute `json:"routes"`
}

type osrmRoute struct {
	Geometry *geojson.Geometry `json:"geometry"`
	Distance float64           `json:"distance"`
	Duration float64           `json:"duration"`
}

func formatCoordinate(c geo.Coordinate) string {
	return strconv.FormatFloat(c.Lng, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lat, 'f', -1, 64)
}

func (o *OSRM) routeURL(from, to geo.Coordinate) string {
	return fmt.Sprintf("%s/route/v1/%s/%s;%s?overview=full&geometries=geojson",
		o.baseURL, o.profile, formatCoordinate(from), formatCoordinate(to))
}

func (o *OSRM) ComputeRoute(ctx context.Context, from, to geo.Coordinate) (*Route, error) {
	resp, err := utils.HTTPRequestWithClient(ctx, o.client, http.MethodGet, o.routeURL(from, to), nil, map[string]string{
		"Accept": "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRoutingUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: unexpected status code %d", ErrRoutingUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRoutingUnavailable, err)
	}

	var parsed osrmResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %w", ErrRoutingUnavailable, err)
	}

	switch parsed.Code {
	case "Ok":
	case "NoRoute", "NoSegment":
		return nil, fmt.Errorf("%w: %s", ErrNoRouteFound, parsed.Message)
	default:
		return nil, fmt.Errorf("%w: %s %s", ErrRoutingUnavailable, parsed.Code, parsed.Message)
	}
	if len(parsed.Routes) == 0 {
		return nil, ErrNoRouteFound
	}

	best := parsed.Routes[0]
	route := &Route{
		Distance: best.Distance,
		Duration: time.Duration(best.Duration * float64(time.Second)),
	}
	if best.Geometry != nil {
		if ls, ok := best.Geometry.Geometry().(orb.LineString); ok {
			route.Path = ls
		}
	}
	if len(route.Path) == 0 {
		route.Path = orb.LineString{from.Point(), to.Point()}
	}
	return route, nil
}
