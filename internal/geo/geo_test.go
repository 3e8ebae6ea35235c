package geo_test

import (
	"math"
	"testing"

	"github.com/USA-RedDragon/campus-nav/internal/geo"
	"github.com/paulmach/orb"
)

var (
	library       = geo.Coordinate{Lat: 28.610, Lng: 77.037}
	sportsComplex = geo.Coordinate{Lat: 28.612, Lng: 77.040}
	devonTower    = geo.Coordinate{Lat: 35.4669626, Lng: -97.5280147}
	anthemBrewing = geo.Coordinate{Lat: 35.4674537, Lng: -97.5331325}
	gatewayArch   = geo.Coordinate{Lat: 38.6251432, Lng: -90.1970501}
	liberty       = geo.Coordinate{Lat: 40.6892494, Lng: -74.0445004}
)

func TestHaversine(t *testing.T) {
	t.Parallel()

	dist := math.Round(geo.Haversine(devonTower.Lat, devonTower.Lng, anthemBrewing.Lat, anthemBrewing.Lng))
	if dist != 467 {
		t.Errorf("expected 467 meters between Devon Tower and Anthem Brewing, got %f", dist)
	}

	dist = math.Round(geo.Distance(anthemBrewing, devonTower))
	if dist != 467 {
		t.Errorf("expected 467 meters between Anthem Brewing and Devon Tower, got %f", dist)
	}

	dist = math.Round(geo.Distance(gatewayArch, liberty))
	if dist != 1399606 {
		t.Errorf("expected 1399606 meters between Gateway Arch and Statue of Liberty, got %f", dist)
	}

	if d := geo.Distance(library, library); d != 0 {
		t.Errorf("expected zero distance to self, got %f", d)
	}
}

func TestCampusDistance(t *testing.T) {
	t.Parallel()

	dist := geo.Distance(library, sportsComplex)
	if dist < 300 || dist > 400 {
		t.Errorf("expected Library to Sports Complex between 300 and 400 meters, got %f", dist)
	}
}

func TestPointRoundTrip(t *testing.T) {
	t.Parallel()

	p := library.Point()
	if p[0] != library.Lng || p[1] != library.Lat {
		t.Errorf("expected [lng, lat] ordering, got %v", p)
	}
	if back := geo.FromPoint(p); back != library {
		t.Errorf("expected %v, got %v", library, back)
	}
}

func TestPathLength(t *testing.T) {
	t.Parallel()

	ls := orb.LineString{library.Point(), sportsComplex.Point(), library.Point()}
	want := 2 * geo.Distance(library, sportsComplex)
	if got := geo.PathLength(ls); math.Abs(got-want) > 1e-6 {
		t.Errorf("expected %f, got %f", want, got)
	}
	if got := geo.PathLength(nil); got != 0 {
		t.Errorf("expected 0 for empty path, got %f", got)
	}
}

func TestValid(t *testing.T) {
	t.Parallel()

	if !library.Valid() {
		t.Error("expected campus coordinate to be valid")
	}
	invalid := []geo.Coordinate{
		{Lat: 91, Lng: 0},
		{Lat: 0, Lng: -181},
		{Lat: math.NaN(), Lng: 0},
		{Lat: 0, Lng: math.Inf(1)},
	}
	for _, c := range invalid {
		if c.Valid() {
			t.Errorf("expected %v to be invalid", c)
		}
	}
}
