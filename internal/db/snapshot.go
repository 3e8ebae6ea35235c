package db

import (
	"context"
	"fmt"

	"github.com/USA-RedDragon/campus-nav/internal/db/models"
	"github.com/USA-RedDragon/campus-nav/internal/gazetteer"
	"github.com/USA-RedDragon/campus-nav/internal/geo"
	"gorm.io/gorm"
)

// SnapshotStore keeps the last successfully loaded gazetteer per feed.
type SnapshotStore struct {
	db *gorm.DB
}

func NewSnapshotStore(db *gorm.DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

func (s *SnapshotStore) Save(ctx context.Context, feed string, locations []gazetteer.Location) error {
	buildings := make([]models.Building, len(locations))
	for i, loc := range locations {
		buildings[i] = models.Building{
			Name:      loc.Name,
			Latitude:  loc.Coordinate.Lat,
			Longitude: loc.Coordinate.Lng,
		}
	}
	if err := models.ReplaceBuildings(ctx, s.db, feed, buildings); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// Load returns the snapshot for feed in its original order, empty if none was saved.
func (s *SnapshotStore) Load(ctx context.Context, feed string) ([]gazetteer.Location, error) {
	buildings, err := models.FindBuildingsByFeed(ctx, s.db, feed)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	locations := make([]gazetteer.Location, len(buildings))
	for i, b := range buildings {
		locations[i] = gazetteer.Location{
			Name:       b.Name,
			Coordinate: geo.Coordinate{Lat: b.Latitude, Lng: b.Longitude},
		}
	}
	return locations, nil
}
