package gazetteer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/USA-RedDragon/campus-nav/internal/geo"
	"github.com/USA-RedDragon/campus-nav/internal/metrics"
	"github.com/go-errors/errors"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

const nameProperty = "name"

var ErrFeedUnavailable = errors.New("feed unavailable")

// FeedError reports a failed fetch or parse of a feed. It matches ErrFeedUnavailable.
type FeedError struct {
	Feed string
	Err  error
}

func (e *FeedError) Error() string {
	return fmt.Sprintf("feed %s unavailable: %v", e.Feed, e.Err)
}

func (e *FeedError) Unwrap() error {
	return e.Err
}

func (e *FeedError) Is(target error) bool {
	return target == ErrFeedUnavailable
}

// Location is a named campus point. Locations are never mutated after loading.
type Location struct {
	Name       string         `json:"name"`
	Coordinate geo.Coordinate `json:"coordinate"`
}

type Loader struct {
	source  Source
	metrics *metrics.Metrics
}

func NewLoader(source Source, metrics *metrics.Metrics) *Loader {
	return &Loader{source: source, metrics: metrics}
}

func (l *Loader) Source() string {
	return l.source.String()
}

// Load fetches the building feed and returns its named point features in feed order.
// It may be called again at any time, each call performs a fresh fetch.
func (l *Loader) Load(ctx context.Context) ([]Location, error) {
	fc, err := fetchFeatureCollection(ctx, l.source)
	if err != nil {
		l.metrics.IncrementFeedLoads("buildings", false)
		return nil, err
	}

	locations := make([]Location, 0, len(fc.Features))
	for i, feature := range fc.Features {
		point, ok := feature.Geometry.(orb.Point)
		if !ok {
			slog.Debug("Skipping non-point building feature", "feed", l.source.String(), "index", i)
			continue
		}
		name := strings.TrimSpace(feature.Properties.MustString(nameProperty, ""))
		if name == "" {
			slog.Warn("Skipping building feature without a name", "feed", l.source.String(), "index", i)
			continue
		}
		coord := geo.FromPoint(point)
		if !coord.Valid() {
			slog.Warn("Skipping building feature with invalid coordinate", "feed", l.source.String(), "name", name)
			continue
		}
		locations = append(locations, Location{Name: name, Coordinate: coord})
	}

	l.metrics.IncrementFeedLoads("buildings", true)
	slog.Info("Loaded building feed", "feed", l.source.String(), "locations", len(locations))
	return locations, nil
}

type PathLoader struct {
	source  Source
	metrics *metrics.Metrics
}

func NewPathLoader(source Source, metrics *metrics.Metrics) *PathLoader {
	return &PathLoader{source: source, metrics: metrics}
}

// Load fetches the walkway feed and flattens its line features into polylines.
func (l *PathLoader) Load(ctx context.Context) ([]orb.LineString, error) {
	fc, err := fetchFeatureCollection(ctx, l.source)
	if err != nil {
		l.metrics.IncrementFeedLoads("paths", false)
		return nil, err
	}

	var lines []orb.LineString
	for _, feature := range fc.Features {
		switch g := feature.Geometry.(type) {
		case orb.LineString:
			if len(g) > 1 {
				lines = append(lines, g)
			}
		case orb.MultiLineString:
			for _, ls := range g {
				if len(ls) > 1 {
					lines = append(lines, ls)
				}
			}
		}
	}

	l.metrics.IncrementFeedLoads("paths", true)
	slog.Info("Loaded path feed", "feed", l.source.String(), "lines", len(lines))
	return lines, nil
}

func fetchFeatureCollection(ctx context.Context, src Source) (*geojson.FeatureCollection, error) {
	data, err := readFeed(ctx, src)
	if err != nil {
		return nil, &FeedError{Feed: src.String(), Err: err}
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, &FeedError{Feed: src.String(), Err: fmt.Errorf("failed to parse feature collection: %w", err)}
	}
	if fc.Type != "FeatureCollection" {
		return nil, &FeedError{Feed: src.String(), Err: fmt.Errorf("unexpected geojson type %q", fc.Type)}
	}
	return fc, nil
}
