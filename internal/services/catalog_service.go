// Package services – CatalogService
//
// This file implements read access to tags and ingredients and the bulk
// loaders used by the CLI. Loaders parse CSV, validate each row and insert
// in batches, skipping rows that already exist.
package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/tbourn/go-recipes-backend/internal/domain"
	"github.com/tbourn/go-recipes-backend/internal/repo"
)

// CatalogService serves the tag and ingredient reference data.
type CatalogService struct {
	DB *gorm.DB

	validate *validator.Validate
}

// NewCatalogService constructs a CatalogService.
func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{DB: db, validate: newValidator()}
}

// ListTags returns every tag ordered by name.
func (s *CatalogService) ListTags(ctx context.Context) ([]domain.Tag, error) {
	return repo.ListTags(ctx, s.DB)
}

// GetTag returns a tag or ErrTagNotFound.
func (s *CatalogService) GetTag(ctx context.Context, id uint) (*domain.Tag, error) {
	t, err := repo.GetTag(ctx, s.DB, id)
	if isNotFound(err) {
		return nil, ErrTagNotFound
	}
	return t, err
}

// SearchIngredients returns ingredients whose name starts with prefix,
// case-insensitively.
func (s *CatalogService) SearchIngredients(ctx context.Context, prefix string) ([]domain.Ingredient, error) {
	return repo.ListIngredients(ctx, s.DB, prefix)
}

// GetIngredient returns an ingredient or ErrIngredientNotFound.
func (s *CatalogService) GetIngredient(ctx context.Context, id uint) (*domain.Ingredient, error) {
	i, err := repo.GetIngredient(ctx, s.DB, id)
	if isNotFound(err) {
		return nil, ErrIngredientNotFound
	}
	return i, err
}

// Stats returns catalog metadata for conditional GETs.
func (s *CatalogService) Stats(ctx context.Context) (repo.CatalogStats, error) {
	return repo.GetCatalogStats(ctx, s.DB)
}

type ingredientRow struct {
	Name string `csv:"name"             validate:"required,max=200"`
	Unit string `csv:"measurement_unit" validate:"required,max=200"`
}

type tagRow struct {
	Name  string `csv:"name"  validate:"required,max=200"`
	Color string `csv:"color" validate:"required,hexcolor,len=7"`
	Slug  string `csv:"slug"  validate:"required,max=200,slug"`
}

// LoadResult summarizes a CSV import.
type LoadResult struct {
	Read     int
	Inserted int64
	Skipped  bool // the catalog was already populated and force was not set
}

// LoadIngredientsCSV imports "name,measurement_unit" rows. When the
// ingredient table is non-empty the import is skipped unless force is set.
// A header row whose first cell is "name" is ignored.
func (s *CatalogService) LoadIngredientsCSV(ctx context.Context, r io.Reader, force bool) (LoadResult, error) {
	if !force {
		n, err := repo.CountIngredients(ctx, s.DB)
		if err != nil {
			return LoadResult{}, err
		}
		if n > 0 {
			return LoadResult{Skipped: true}, nil
		}
	}
	records, err := readCSV(r, 2)
	if err != nil {
		return LoadResult{}, err
	}
	items := make([]domain.Ingredient, 0, len(records))
	for i, rec := range records {
		row := ingredientRow{Name: strings.TrimSpace(rec[0]), Unit: strings.TrimSpace(rec[1])}
		if err := s.validate.Struct(row); err != nil {
			return LoadResult{}, fieldErrors(err, fmt.Sprintf("line %d: ", i+1))
		}
		items = append(items, domain.Ingredient{Name: row.Name, MeasurementUnit: row.Unit})
	}
	n, err := repo.InsertIngredients(ctx, s.DB, items)
	return LoadResult{Read: len(items), Inserted: n}, err
}

// LoadTagsCSV imports "name,color,slug" rows. Rows colliding with an
// existing tag are skipped.
func (s *CatalogService) LoadTagsCSV(ctx context.Context, r io.Reader) (LoadResult, error) {
	records, err := readCSV(r, 3)
	if err != nil {
		return LoadResult{}, err
	}
	tags := make([]domain.Tag, 0, len(records))
	for i, rec := range records {
		row := tagRow{
			Name:  strings.TrimSpace(rec[0]),
			Color: strings.ToUpper(strings.TrimSpace(rec[1])),
			Slug:  strings.TrimSpace(rec[2]),
		}
		if err := s.validate.Struct(row); err != nil {
			return LoadResult{}, fieldErrors(err, fmt.Sprintf("line %d: ", i+1))
		}
		tags = append(tags, domain.Tag{Name: row.Name, Color: row.Color, Slug: row.Slug})
	}
	n, err := repo.InsertTags(ctx, s.DB, tags)
	return LoadResult{Read: len(tags), Inserted: n}, err
}

// readCSV reads every record, requiring exactly cols columns and dropping
// a leading "name,..." header.
func readCSV(r io.Reader, cols int) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = cols
	cr.TrimLeadingSpace = true
	var out [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, Invalid("csv", err.Error())
		}
		if len(out) == 0 && strings.EqualFold(strings.TrimSpace(rec[0]), "name") {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}
