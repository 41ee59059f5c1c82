package domain

import (
	"testing"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newDomainDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:domain_" + uuid.NewString() + "?mode=memory&cache=shared&_pragma=foreign_keys(1)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

func migrateAll(t *testing.T, db *gorm.DB) {
	t.Helper()
	if err := db.AutoMigrate(
		&User{}, &Follow{}, &Tag{}, &Ingredient{},
		&Recipe{}, &RecipeIngredient{}, &Favorite{}, &ShoppingCart{}, &RevokedToken{},
	); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
}

func TestTableNames(t *testing.T) {
	cases := map[string]string{
		User{}.TableName():             "users",
		Follow{}.TableName():           "follows",
		Tag{}.TableName():              "tags",
		Ingredient{}.TableName():       "ingredients",
		Recipe{}.TableName():           "recipes",
		RecipeIngredient{}.TableName(): "recipe_ingredients",
		Favorite{}.TableName():         "favorites",
		ShoppingCart{}.TableName():     "shopping_cart",
		RevokedToken{}.TableName():     "revoked_tokens",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("TableName() = %q; want %q", got, want)
		}
	}
}

func TestMembershipSet(t *testing.T) {
	if !SetFavorites.Valid() || !SetShoppingCart.Valid() || MembershipSet("x").Valid() {
		t.Fatalf("Valid() unexpected")
	}
	if SetFavorites.Table() != "favorites" || SetShoppingCart.Table() != "shopping_cart" {
		t.Fatalf("Table() unexpected")
	}
	if f, ok := SetFavorites.NewRow(1, 2).(*Favorite); !ok || f.UserID != 1 || f.RecipeID != 2 {
		t.Fatalf("NewRow(favorites) = %#v", SetFavorites.NewRow(1, 2))
	}
	if c, ok := SetShoppingCart.NewRow(3, 4).(*ShoppingCart); !ok || c.UserID != 3 || c.RecipeID != 4 {
		t.Fatalf("NewRow(cart) = %#v", SetShoppingCart.NewRow(3, 4))
	}
	if _, ok := SetShoppingCart.Model().(*ShoppingCart); !ok {
		t.Fatalf("Model(cart) wrong type")
	}
}

func TestIngredient_SearchNameFolded(t *testing.T) {
	db := newDomainDB(t)
	migrateAll(t, db)

	ing := &Ingredient{Name: "Äpfel", MeasurementUnit: "g"}
	if err := db.Create(ing).Error; err != nil {
		t.Fatalf("insert: %v", err)
	}
	if ing.SearchName != FoldName("äpfel") {
		t.Fatalf("SearchName = %q; want folded name", ing.SearchName)
	}
	// same name, different unit is allowed; same pair is not
	if err := db.Create(&Ingredient{Name: "Äpfel", MeasurementUnit: "kg"}).Error; err != nil {
		t.Fatalf("insert other unit: %v", err)
	}
	if err := db.Create(&Ingredient{Name: "Äpfel", MeasurementUnit: "g"}).Error; err == nil {
		t.Fatalf("expected unique violation on (name, measurement_unit)")
	}
}

func TestMigrations_Constraints_AndCascades(t *testing.T) {
	db := newDomainDB(t)
	migrateAll(t, db)
	m := db.Migrator()

	for _, idx := range []struct {
		model any
		name  string
	}{
		{&Follow{}, "ux_follow_user_author"},
		{&RecipeIngredient{}, "ux_recipe_ingredient"},
		{&Favorite{}, "ux_favorite_user_recipe"},
		{&ShoppingCart{}, "ux_cart_user_recipe"},
		{&Ingredient{}, "ux_ingredient_name_unit"},
	} {
		if !m.HasIndex(idx.model, idx.name) {
			t.Fatalf("expected index %s on %T", idx.name, idx.model)
		}
	}
	if !m.HasTable("recipe_tags") {
		t.Fatalf("expected join table recipe_tags")
	}

	alice := &User{Email: "a@x.io", Username: "alice", PasswordHash: "h", IsActive: true}
	bob := &User{Email: "b@x.io", Username: "bob", PasswordHash: "h", IsActive: true}
	if err := db.Create(alice).Error; err != nil {
		t.Fatalf("insert alice: %v", err)
	}
	if err := db.Create(bob).Error; err != nil {
		t.Fatalf("insert bob: %v", err)
	}

	// self-follow is rejected by the check constraint
	if err := db.Create(&Follow{UserID: alice.ID, AuthorID: alice.ID}).Error; err == nil {
		t.Fatalf("expected check violation on self-follow")
	}
	if err := db.Create(&Follow{UserID: alice.ID, AuthorID: bob.ID}).Error; err != nil {
		t.Fatalf("follow: %v", err)
	}
	if err := db.Create(&Follow{UserID: alice.ID, AuthorID: bob.ID}).Error; err == nil {
		t.Fatalf("expected unique violation on duplicate follow")
	}

	salt := &Ingredient{Name: "Salt", MeasurementUnit: "g"}
	if err := db.Create(salt).Error; err != nil {
		t.Fatalf("insert ingredient: %v", err)
	}

	// cooking_time must be >= 1
	if err := db.Create(&Recipe{AuthorID: bob.ID, Name: "r", Image: "i", Text: "t", CookingTime: 0}).Error; err == nil {
		t.Fatalf("expected check violation for cooking_time=0")
	}
	r := &Recipe{AuthorID: bob.ID, Name: "Soup", Image: "i", Text: "t", CookingTime: 1}
	if err := db.Create(r).Error; err != nil {
		t.Fatalf("insert recipe: %v", err)
	}
	if err := db.Create(&RecipeIngredient{RecipeID: r.ID, IngredientID: salt.ID, Amount: 0}).Error; err == nil {
		t.Fatalf("expected check violation for amount=0")
	}
	if err := db.Create(&RecipeIngredient{RecipeID: r.ID, IngredientID: salt.ID, Amount: 5}).Error; err != nil {
		t.Fatalf("insert recipe ingredient: %v", err)
	}
	if err := db.Create(&RecipeIngredient{RecipeID: r.ID, IngredientID: salt.ID, Amount: 3}).Error; err == nil {
		t.Fatalf("expected unique violation on (recipe_id, ingredient_id)")
	}
	if err := db.Create(SetFavorites.NewRow(alice.ID, r.ID)).Error; err != nil {
		t.Fatalf("favorite: %v", err)
	}
	if err := db.Create(SetFavorites.NewRow(alice.ID, r.ID)).Error; err == nil {
		t.Fatalf("expected unique violation on duplicate favorite")
	}
	if err := db.Create(SetShoppingCart.NewRow(alice.ID, r.ID)).Error; err != nil {
		t.Fatalf("cart: %v", err)
	}

	// CASCADE: deleting the recipe removes its dependent rows
	if err := db.Delete(&Recipe{}, r.ID).Error; err != nil {
		t.Fatalf("delete recipe: %v", err)
	}
	for _, model := range []any{&RecipeIngredient{}, &Favorite{}, &ShoppingCart{}} {
		var cnt int64
		if err := db.Model(model).Where("recipe_id = ?", r.ID).Count(&cnt).Error; err != nil {
			t.Fatalf("count %T: %v", model, err)
		}
		if cnt != 0 {
			t.Fatalf("expected %T rows to cascade-delete, got %d", model, cnt)
		}
	}
}
