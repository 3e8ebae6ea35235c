package geo

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

const earthRadiusMeters = 6371000

// Coordinate is a WGS84 latitude/longitude pair in degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lng)
}

// Valid reports whether the coordinate is finite and inside the WGS84 bounds.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lng, 0) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// Point converts to an orb point, which is ordered [lng, lat].
func (c Coordinate) Point() orb.Point {
	return orb.Point{c.Lng, c.Lat}
}

func FromPoint(p orb.Point) Coordinate {
	return Coordinate{Lat: p.Lat(), Lng: p.Lon()}
}

func degToRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// Haversine returns the distance between two GPS coordinates in meters.
func Haversine(startLat, startLng, endLat, endLng float64) float64 {
	phi1 := degToRad(startLat)
	phi2 := degToRad(endLat)
	deltaPhi := degToRad(endLat - startLat)
	deltaLambda := degToRad(endLng - startLng)

	a := math.Pow(math.Sin(deltaPhi/2), 2) + math.Cos(phi1)*math.Cos(phi2)*
		math.Pow(math.Sin(deltaLambda/2), 2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// Distance is Haversine between two coordinates.
func Distance(a, b Coordinate) float64 {
	return Haversine(a.Lat, a.Lng, b.Lat, b.Lng)
}

// PathLength sums the Haversine length of every segment of a polyline.
func PathLength(ls orb.LineString) float64 {
	var total float64
	for i := 1; i < len(ls); i++ {
		total += Distance(FromPoint(ls[i-1]), FromPoint(ls[i]))
	}
	return total
}
