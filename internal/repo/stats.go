// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// for conditional responses (ETag generation) on the reference catalog.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-recipes-backend/internal/domain"
)

// CatalogStats summarizes the tag and ingredient tables. The catalog is
// append-only (loaded by CLI), so row counts and the highest ids change
// whenever its content does.
type CatalogStats struct {
	Tags            int64
	MaxTagID        uint
	Ingredients     int64
	MaxIngredientID uint
}

// GetCatalogStats returns aggregate metadata for the catalog tables.
//
// It executes four lightweight queries. On an empty catalog every field
// is zero.
func GetCatalogStats(ctx context.Context, db *gorm.DB) (CatalogStats, error) {
	var st CatalogStats
	q := db.WithContext(ctx)

	if err := q.Model(&domain.Tag{}).Count(&st.Tags).Error; err != nil {
		return CatalogStats{}, err
	}
	if err := q.Model(&domain.Ingredient{}).Count(&st.Ingredients).Error; err != nil {
		return CatalogStats{}, err
	}

	// Fetch the top row instead of MAX() so SQLite returns a typed integer.
	if st.Tags > 0 {
		var row struct{ ID uint }
		if err := q.Model(&domain.Tag{}).Select("id").Order("id DESC").Limit(1).Scan(&row).Error; err != nil {
			return CatalogStats{}, err
		}
		st.MaxTagID = row.ID
	}
	if st.Ingredients > 0 {
		var row struct{ ID uint }
		if err := q.Model(&domain.Ingredient{}).Select("id").Order("id DESC").Limit(1).Scan(&row).Error; err != nil {
			return CatalogStats{}, err
		}
		st.MaxIngredientID = row.ID
	}
	return st, nil
}
