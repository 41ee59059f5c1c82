// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the reference
// catalog: tags and ingredients.
//
// Both lists are small and unpaginated. Ingredient search is a prefix match
// on the case-folded SearchName column, which is portable across SQLite and
// Postgres and does not depend on collation support.
package repo

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-recipes-backend/internal/domain"
)

// ListTags returns all tags ordered by name.
func ListTags(ctx context.Context, db *gorm.DB) ([]domain.Tag, error) {
	var out []domain.Tag
	err := db.WithContext(ctx).Order("name ASC, id ASC").Find(&out).Error
	return out, err
}

// GetTag fetches a tag by id, or ErrNotFound.
func GetTag(ctx context.Context, db *gorm.DB, id uint) (*domain.Tag, error) {
	var t domain.Tag
	if err := db.WithContext(ctx).First(&t, id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// FindTagsByIDs returns the tags whose ids are in ids. Missing ids are
// simply absent from the result.
func FindTagsByIDs(ctx context.Context, db *gorm.DB, ids []uint) ([]domain.Tag, error) {
	var out []domain.Tag
	if len(ids) == 0 {
		return out, nil
	}
	err := db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&out).Error
	return out, err
}

// InsertTags bulk-inserts tags, skipping rows that collide with an existing
// unique name, color or slug. It returns the number of inserted rows.
func InsertTags(ctx context.Context, db *gorm.DB, tags []domain.Tag) (int64, error) {
	if len(tags) == 0 {
		return 0, nil
	}
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(&tags, 200)
	return res.RowsAffected, res.Error
}

// ListIngredients returns ingredients whose name starts with prefix
// (case-insensitive), ordered by name. An empty prefix returns everything.
func ListIngredients(ctx context.Context, db *gorm.DB, prefix string) ([]domain.Ingredient, error) {
	var out []domain.Ingredient
	q := db.WithContext(ctx).Model(&domain.Ingredient{})
	if p := strings.TrimSpace(prefix); p != "" {
		q = q.Where(`search_name LIKE ? ESCAPE '\'`, escapeLike(domain.FoldName(p))+"%")
	}
	err := q.Order("name ASC, measurement_unit ASC").Find(&out).Error
	return out, err
}

// GetIngredient fetches an ingredient by id, or ErrNotFound.
func GetIngredient(ctx context.Context, db *gorm.DB, id uint) (*domain.Ingredient, error) {
	var i domain.Ingredient
	if err := db.WithContext(ctx).First(&i, id).Error; err != nil {
		return nil, err
	}
	return &i, nil
}

// FindIngredientsByIDs returns the ingredients whose ids are in ids.
func FindIngredientsByIDs(ctx context.Context, db *gorm.DB, ids []uint) ([]domain.Ingredient, error) {
	var out []domain.Ingredient
	if len(ids) == 0 {
		return out, nil
	}
	err := db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&out).Error
	return out, err
}

// CountIngredients returns the number of ingredients in the catalog.
func CountIngredients(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Ingredient{}).Count(&total).Error
	return total, err
}

// InsertIngredients bulk-inserts ingredients, skipping (name, unit) pairs
// that already exist. It returns the number of inserted rows.
func InsertIngredients(ctx context.Context, db *gorm.DB, items []domain.Ingredient) (int64, error) {
	if len(items) == 0 {
		return 0, nil
	}
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(&items, 500)
	return res.RowsAffected, res.Error
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
