package models

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Building is one row of a gazetteer snapshot, keyed by the feed it came from.
type Building struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Feed      string    `json:"feed" gorm:"index:idx_feed_position,priority:1"`
	Position  int       `json:"position" gorm:"index:idx_feed_position,priority:2"`
	Name      string    `json:"name"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	CreatedAt time.Time `json:"created_at"`
}

func (b Building) TableName() string {
	return "buildings"
}

func FindBuildingsByFeed(ctx context.Context, db *gorm.DB, feed string) ([]Building, error) {
	var buildings []Building
	err := db.WithContext(ctx).Where(&Building{Feed: feed}).Order("position asc").Find(&buildings).Error
	return buildings, err
}

// ReplaceBuildings swaps the snapshot for feed with buildings in one transaction.
func ReplaceBuildings(ctx context.Context, db *gorm.DB, feed string, buildings []Building) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("feed = ?", feed).Delete(&Building{}).Error; err != nil {
			return err
		}
		if len(buildings) == 0 {
			return nil
		}
		for i := range buildings {
			buildings[i].Feed = feed
			buildings[i].Position = i
		}
		return tx.CreateInBatches(buildings, 100).Error
	})
}
