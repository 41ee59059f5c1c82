// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Recipe
// aggregate: the recipe row, its tag links (recipe_tags) and its quantified
// ingredient rows (recipe_ingredients).
//
// Writes that touch more than one table are expected to run inside a
// transaction owned by the caller (see services.RecipeService):
//
//	err := db.Transaction(func(tx *gorm.DB) error {
//	    if err := repo.CreateRecipe(ctx, tx, r); err != nil {
//	        return err
//	    }
//	    if err := repo.ReplaceRecipeTags(ctx, tx, r.ID, tagIDs); err != nil {
//	        return err
//	    }
//	    return repo.ReplaceRecipeIngredients(ctx, tx, r.ID, items)
//	})
//
// Reads preload the author, tags and ingredient rows (with their catalog
// ingredient) so the read representation can be built without N+1 queries.
package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-recipes-backend/internal/domain"
)

// RecipeFilter narrows recipe listings. Zero values mean "no filter".
type RecipeFilter struct {
	AuthorID    uint     // only recipes by this author
	TagSlugs    []string // recipes carrying any of these tags
	FavoritedBy uint     // only recipes favorited by this user
	InCartOf    uint     // only recipes in this user's shopping cart
}

func (f RecipeFilter) apply(q *gorm.DB) *gorm.DB {
	if f.AuthorID != 0 {
		q = q.Where("recipes.author_id = ?", f.AuthorID)
	}
	if len(f.TagSlugs) > 0 {
		q = q.Where(`recipes.id IN (
			SELECT recipe_tags.recipe_id FROM recipe_tags
			JOIN tags ON tags.id = recipe_tags.tag_id
			WHERE tags.slug IN ?)`, f.TagSlugs)
	}
	if f.FavoritedBy != 0 {
		q = q.Where("recipes.id IN (SELECT recipe_id FROM favorites WHERE user_id = ?)", f.FavoritedBy)
	}
	if f.InCartOf != 0 {
		q = q.Where("recipes.id IN (SELECT recipe_id FROM shopping_cart WHERE user_id = ?)", f.InCartOf)
	}
	return q
}

func withRecipeGraph(q *gorm.DB) *gorm.DB {
	return q.
		Preload("Author").
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("tags.id ASC") }).
		Preload("Ingredients", func(db *gorm.DB) *gorm.DB { return db.Order("recipe_ingredients.id ASC") }).
		Preload("Ingredients.Ingredient")
}

// CountRecipes returns the number of recipes matching f.
func CountRecipes(ctx context.Context, db *gorm.DB, f RecipeFilter) (int64, error) {
	var total int64
	err := f.apply(db.WithContext(ctx).Model(&domain.Recipe{})).Count(&total).Error
	return total, err
}

// ListRecipesPage returns recipes matching f, newest first, with their
// author, tags and ingredients preloaded.
func ListRecipesPage(ctx context.Context, db *gorm.DB, f RecipeFilter, offset, limit int) ([]domain.Recipe, error) {
	var out []domain.Recipe
	q := f.apply(db.WithContext(ctx).Model(&domain.Recipe{}))
	err := withRecipeGraph(q).
		Order("recipes.pub_date DESC, recipes.id DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// GetRecipe fetches a recipe with its full graph, or ErrNotFound.
func GetRecipe(ctx context.Context, db *gorm.DB, id uint) (*domain.Recipe, error) {
	var r domain.Recipe
	if err := withRecipeGraph(db.WithContext(ctx)).First(&r, id).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// GetRecipeRow fetches only the recipe row, or ErrNotFound.
func GetRecipeRow(ctx context.Context, db *gorm.DB, id uint) (*domain.Recipe, error) {
	var r domain.Recipe
	if err := db.WithContext(ctx).First(&r, id).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateRecipe inserts the recipe row only; associations are written with
// ReplaceRecipeTags and ReplaceRecipeIngredients.
func CreateRecipe(ctx context.Context, db *gorm.DB, r *domain.Recipe) error {
	return db.WithContext(ctx).Omit(clause.Associations).Create(r).Error
}

// UpdateRecipeColumns applies a partial column update. Returns ErrNotFound
// if the recipe does not exist.
func UpdateRecipeColumns(ctx context.Context, db *gorm.DB, id uint, cols map[string]any) error {
	if len(cols) == 0 {
		return nil
	}
	res := db.WithContext(ctx).
		Model(&domain.Recipe{}).
		Where("id = ?", id).
		Updates(cols)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ReplaceRecipeTags drops every tag link of the recipe and inserts tagIDs.
func ReplaceRecipeTags(ctx context.Context, db *gorm.DB, recipeID uint, tagIDs []uint) error {
	db = db.WithContext(ctx)
	if err := db.Exec("DELETE FROM recipe_tags WHERE recipe_id = ?", recipeID).Error; err != nil {
		return err
	}
	if len(tagIDs) == 0 {
		return nil
	}
	rows := make([]map[string]any, 0, len(tagIDs))
	for _, id := range tagIDs {
		rows = append(rows, map[string]any{"recipe_id": recipeID, "tag_id": id})
	}
	return db.Table("recipe_tags").Create(&rows).Error
}

// ReplaceRecipeIngredients deletes all ingredient rows of the recipe and
// inserts items. It is a full replacement, not a merge.
func ReplaceRecipeIngredients(ctx context.Context, db *gorm.DB, recipeID uint, items []domain.RecipeIngredient) error {
	db = db.WithContext(ctx)
	if err := db.Where("recipe_id = ?", recipeID).Delete(&domain.RecipeIngredient{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].ID = 0
		items[i].RecipeID = recipeID
	}
	return db.Omit(clause.Associations).Create(&items).Error
}

// DeleteRecipe removes the recipe together with its links, ingredient rows
// and membership rows. Returns ErrNotFound if nothing was deleted.
func DeleteRecipe(ctx context.Context, db *gorm.DB, id uint) error {
	db = db.WithContext(ctx)
	for _, stmt := range []string{
		"DELETE FROM recipe_tags WHERE recipe_id = ?",
		"DELETE FROM recipe_ingredients WHERE recipe_id = ?",
		"DELETE FROM favorites WHERE recipe_id = ?",
		"DELETE FROM shopping_cart WHERE recipe_id = ?",
	} {
		if err := db.Exec(stmt, id).Error; err != nil {
			return err
		}
	}
	res := db.Delete(&domain.Recipe{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListRecipesByAuthor returns up to limit recipes by authorID, newest first.
// limit <= 0 means no limit.
func ListRecipesByAuthor(ctx context.Context, db *gorm.DB, authorID uint, limit int) ([]domain.Recipe, error) {
	var out []domain.Recipe
	q := db.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order("pub_date DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// CountRecipesByAuthors returns recipe counts keyed by author id. Authors
// without recipes are absent from the map.
func CountRecipesByAuthors(ctx context.Context, db *gorm.DB, authorIDs []uint) (map[uint]int64, error) {
	out := make(map[uint]int64, len(authorIDs))
	if len(authorIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		AuthorID uint
		Total    int64
	}
	err := db.WithContext(ctx).
		Model(&domain.Recipe{}).
		Select("author_id, COUNT(*) AS total").
		Where("author_id IN ?", authorIDs).
		Group("author_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.AuthorID] = r.Total
	}
	return out, nil
}
