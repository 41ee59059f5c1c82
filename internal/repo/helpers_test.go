package repo

import (
	"context"
	"testing"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-recipes-backend/internal/domain"
)

// newTestDB opens a unique in-memory database per test so schemas never
// leak across tests. With migrate=false the schema is left empty, which
// lets tests exercise "missing table" error paths.
func newTestDB(t *testing.T, migrate bool) *gorm.DB {
	t.Helper()
	dsn := "file:repo_" + uuid.NewString() + "?mode=memory&cache=shared&_pragma=foreign_keys(1)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if migrate {
		if err := AutoMigrate(db); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	if sqlDB, err := db.DB(); err == nil {
		t.Cleanup(func() { _ = sqlDB.Close() })
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username string) *domain.User {
	t.Helper()
	u := &domain.User{Email: username + "@example.com", Username: username, PasswordHash: "x", IsActive: true}
	if err := CreateUser(context.Background(), db, u); err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return u
}

func seedIngredient(t *testing.T, db *gorm.DB, name, unit string) *domain.Ingredient {
	t.Helper()
	i := &domain.Ingredient{Name: name, MeasurementUnit: unit}
	if err := db.Create(i).Error; err != nil {
		t.Fatalf("seed ingredient %s: %v", name, err)
	}
	return i
}

func seedTag(t *testing.T, db *gorm.DB, name, color, slug string) *domain.Tag {
	t.Helper()
	tg := &domain.Tag{Name: name, Color: color, Slug: slug}
	if err := db.Create(tg).Error; err != nil {
		t.Fatalf("seed tag %s: %v", name, err)
	}
	return tg
}

// seedRecipe creates a recipe with the given ingredient amounts and tags.
func seedRecipe(t *testing.T, db *gorm.DB, author uint, name string, amounts map[uint]int, tags ...uint) *domain.Recipe {
	t.Helper()
	ctx := context.Background()
	r := &domain.Recipe{AuthorID: author, Name: name, Image: "/media/x.png", Text: "t", CookingTime: 10}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := CreateRecipe(ctx, tx, r); err != nil {
			return err
		}
		if err := ReplaceRecipeTags(ctx, tx, r.ID, tags); err != nil {
			return err
		}
		items := make([]domain.RecipeIngredient, 0, len(amounts))
		for id, amt := range amounts {
			items = append(items, domain.RecipeIngredient{IngredientID: id, Amount: amt})
		}
		return ReplaceRecipeIngredients(ctx, tx, r.ID, items)
	})
	if err != nil {
		t.Fatalf("seed recipe %s: %v", name, err)
	}
	return r
}
