// Package domain defines the persistence models for users, follows, the
// tag/ingredient catalog, recipes and the per-user membership sets
// (favorites and shopping cart). These types are mapped with GORM and are
// shared across the repository and service layers.
package domain

import (
	"time"

	"golang.org/x/text/cases"
	"gorm.io/gorm"
)

// User is an account. Email is the login identifier.
//
// Fields:
//   - Email / Username: both unique.
//   - PasswordHash: bcrypt hash, never serialized.
//   - IsActive: inactive accounts cannot obtain tokens.
type User struct {
	ID           uint      `json:"id"         gorm:"primaryKey"`
	Email        string    `json:"email"      gorm:"type:varchar(254);not null;uniqueIndex:ux_users_email"`
	Username     string    `json:"username"   gorm:"type:varchar(150);not null;uniqueIndex:ux_users_username"`
	FirstName    string    `json:"first_name" gorm:"type:varchar(150);not null;default:''"`
	LastName     string    `json:"last_name"  gorm:"type:varchar(150);not null;default:''"`
	PasswordHash string    `json:"-"          gorm:"type:varchar(128);not null"`
	IsActive     bool      `json:"-"          gorm:"not null;default:true"`
	DateJoined   time.Time `json:"-"          gorm:"not null;autoCreateTime"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Follow is a directed edge: UserID follows AuthorID.
// Self-follows are rejected by a check constraint.
type Follow struct {
	ID        uint      `json:"id"        gorm:"primaryKey"`
	UserID    uint      `json:"user_id"   gorm:"not null;uniqueIndex:ux_follow_user_author,priority:1;check:chk_follow_not_self,user_id <> author_id"`
	AuthorID  uint      `json:"author_id" gorm:"not null;uniqueIndex:ux_follow_user_author,priority:2;index"`
	CreatedAt time.Time `json:"created_at"`

	User   User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Author User `json:"-" gorm:"foreignKey:AuthorID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Follow.
func (Follow) TableName() string { return "follows" }

// Tag is reference data attached to recipes. Name, Color (#RRGGBB) and
// Slug are each unique.
type Tag struct {
	ID    uint   `json:"id"    gorm:"primaryKey"`
	Name  string `json:"name"  gorm:"type:varchar(200);not null;uniqueIndex:ux_tags_name"`
	Color string `json:"color" gorm:"type:varchar(7);not null;uniqueIndex:ux_tags_color"`
	Slug  string `json:"slug"  gorm:"type:varchar(200);not null;uniqueIndex:ux_tags_slug"`
}

// TableName returns the database table name for Tag.
func (Tag) TableName() string { return "tags" }

// Ingredient is reference data. The (name, measurement_unit) pair is unique.
// SearchName holds the case-folded name used for prefix search.
type Ingredient struct {
	ID              uint   `json:"id"               gorm:"primaryKey"`
	Name            string `json:"name"             gorm:"type:varchar(200);not null;uniqueIndex:ux_ingredient_name_unit,priority:1"`
	MeasurementUnit string `json:"measurement_unit" gorm:"type:varchar(200);not null;uniqueIndex:ux_ingredient_name_unit,priority:2"`
	SearchName      string `json:"-"                gorm:"type:varchar(200);not null;index:idx_ingredient_search"`
}

// TableName returns the database table name for Ingredient.
func (Ingredient) TableName() string { return "ingredients" }

// BeforeSave keeps SearchName in sync with Name.
func (i *Ingredient) BeforeSave(*gorm.DB) error {
	i.SearchName = FoldName(i.Name)
	return nil
}

// FoldName returns the Unicode case-folded form of s.
func FoldName(s string) string {
	return cases.Fold().String(s)
}

// Recipe is owned by exactly one author. Its tag links and ingredient rows
// are written together with the recipe row.
//
// Fields:
//   - CookingTime: minutes, at least 1 (enforced by DB constraint).
//   - Image: public URL of the stored image.
//   - PubDate: publication time; lists are ordered newest first.
//   - Ingredients: quantified ingredient rows, cascade-deleted with the recipe.
type Recipe struct {
	ID          uint      `json:"id"           gorm:"primaryKey"`
	AuthorID    uint      `json:"author_id"    gorm:"not null;index:idx_recipes_author"`
	Name        string    `json:"name"         gorm:"type:varchar(200);not null"`
	Image       string    `json:"image"        gorm:"type:varchar(512);not null"`
	Text        string    `json:"text"         gorm:"type:text;not null"`
	CookingTime int       `json:"cooking_time" gorm:"not null;check:chk_recipes_cooking_time,cooking_time >= 1"`
	PubDate     time.Time `json:"pub_date"     gorm:"not null;autoCreateTime;index:idx_recipes_pub_date"`

	Author      User               `json:"-" gorm:"foreignKey:AuthorID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Tags        []Tag              `json:"-" gorm:"many2many:recipe_tags;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Ingredients []RecipeIngredient `json:"-" gorm:"foreignKey:RecipeID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Recipe.
func (Recipe) TableName() string { return "recipes" }

// RecipeIngredient is the quantified join row between a recipe and an
// ingredient. (recipe_id, ingredient_id) is unique and amount is positive.
type RecipeIngredient struct {
	ID           uint `json:"id"            gorm:"primaryKey"`
	RecipeID     uint `json:"recipe_id"     gorm:"not null;uniqueIndex:ux_recipe_ingredient,priority:1"`
	IngredientID uint `json:"ingredient_id" gorm:"not null;uniqueIndex:ux_recipe_ingredient,priority:2;index"`
	Amount       int  `json:"amount"        gorm:"not null;check:chk_recipe_ingredient_amount,amount > 0"`

	Ingredient Ingredient `json:"-" gorm:"foreignKey:IngredientID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for RecipeIngredient.
func (RecipeIngredient) TableName() string { return "recipe_ingredients" }

// Favorite marks a recipe as a user's favorite. (user_id, recipe_id) is unique.
type Favorite struct {
	ID        uint      `json:"id"        gorm:"primaryKey"`
	UserID    uint      `json:"user_id"   gorm:"not null;uniqueIndex:ux_favorite_user_recipe,priority:1"`
	RecipeID  uint      `json:"recipe_id" gorm:"not null;uniqueIndex:ux_favorite_user_recipe,priority:2;index"`
	CreatedAt time.Time `json:"created_at"`

	User   User   `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Recipe Recipe `json:"-" gorm:"foreignKey:RecipeID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Favorite.
func (Favorite) TableName() string { return "favorites" }

// ShoppingCart queues a recipe for shopping-list aggregation.
// (user_id, recipe_id) is unique.
type ShoppingCart struct {
	ID        uint      `json:"id"        gorm:"primaryKey"`
	UserID    uint      `json:"user_id"   gorm:"not null;uniqueIndex:ux_cart_user_recipe,priority:1"`
	RecipeID  uint      `json:"recipe_id" gorm:"not null;uniqueIndex:ux_cart_user_recipe,priority:2;index"`
	CreatedAt time.Time `json:"created_at"`

	User   User   `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Recipe Recipe `json:"-" gorm:"foreignKey:RecipeID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for ShoppingCart.
func (ShoppingCart) TableName() string { return "shopping_cart" }

// MembershipSet names one of the (user, recipe) membership sets.
type MembershipSet string

const (
	SetFavorites    MembershipSet = "favorites"
	SetShoppingCart MembershipSet = "shopping_cart"
)

// Valid reports whether s is a known set.
func (s MembershipSet) Valid() bool {
	return s == SetFavorites || s == SetShoppingCart
}

// Model returns a zero value of the set's row type, for use with
// db.Model / db.Delete.
func (s MembershipSet) Model() any {
	if s == SetShoppingCart {
		return &ShoppingCart{}
	}
	return &Favorite{}
}

// NewRow builds a row for the set.
func (s MembershipSet) NewRow(userID, recipeID uint) any {
	now := time.Now().UTC()
	if s == SetShoppingCart {
		return &ShoppingCart{UserID: userID, RecipeID: recipeID, CreatedAt: now}
	}
	return &Favorite{UserID: userID, RecipeID: recipeID, CreatedAt: now}
}

// Table returns the table backing the set.
func (s MembershipSet) Table() string {
	if s == SetShoppingCart {
		return ShoppingCart{}.TableName()
	}
	return Favorite{}.TableName()
}

// RevokedToken records a logged-out token id until its natural expiry.
// Used when no Redis denylist is configured.
type RevokedToken struct {
	JTI       string    `gorm:"type:varchar(64);primaryKey"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

// TableName returns the database table name for RevokedToken.
func (RevokedToken) TableName() string { return "revoked_tokens" }
