package repo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-recipes-backend/internal/domain"
)

func TestReplaceRecipeIngredients_FullReplace(t *testing.T) {
	db := newTestDB(t, true)
	ctx := context.Background()

	author := seedUser(t, db, "chef")
	salt := seedIngredient(t, db, "Salt", "g")
	flour := seedIngredient(t, db, "Flour", "g")
	sugar := seedIngredient(t, db, "Sugar", "g")

	r := seedRecipe(t, db, author.ID, "Bread", map[uint]int{salt.ID: 5, flour.ID: 500})

	err := ReplaceRecipeIngredients(ctx, db, r.ID, []domain.RecipeIngredient{{IngredientID: sugar.ID, Amount: 20}})
	require.NoError(t, err)

	got, err := GetRecipe(ctx, db, r.ID)
	require.NoError(t, err)
	require.Len(t, got.Ingredients, 1)
	assert.Equal(t, sugar.ID, got.Ingredients[0].IngredientID)
	assert.Equal(t, "Sugar", got.Ingredients[0].Ingredient.Name)

	var old int64
	require.NoError(t, db.Model(&domain.RecipeIngredient{}).
		Where("recipe_id = ? AND ingredient_id IN ?", r.ID, []uint{salt.ID, flour.ID}).
		Count(&old).Error)
	assert.Zero(t, old)
}

func TestReplaceRecipeIngredients_DuplicateRejectedByStore(t *testing.T) {
	db := newTestDB(t, true)
	ctx := context.Background()
	author := seedUser(t, db, "chef")
	salt := seedIngredient(t, db, "Salt", "g")
	r := seedRecipe(t, db, author.ID, "Soup", nil)

	err := ReplaceRecipeIngredients(ctx, db, r.ID, []domain.RecipeIngredient{
		{IngredientID: salt.ID, Amount: 1},
		{IngredientID: salt.ID, Amount: 2},
	})
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
}

func TestReplaceRecipeTags_AndGraph(t *testing.T) {
	db := newTestDB(t, true)
	ctx := context.Background()
	author := seedUser(t, db, "chef")
	b := seedTag(t, db, "Breakfast", "#E26C2D", "breakfast")
	l := seedTag(t, db, "Lunch", "#49B64E", "lunch")

	r := seedRecipe(t, db, author.ID, "Eggs", nil, b.ID)
	require.NoError(t, ReplaceRecipeTags(ctx, db, r.ID, []uint{l.ID}))

	got, err := GetRecipe(ctx, db, r.ID)
	require.NoError(t, err)
	require.Len(t, got.Tags, 1)
	assert.Equal(t, "lunch", got.Tags[0].Slug)
	assert.Equal(t, "chef", got.Author.Username)
}

func TestListRecipesPage_Filters(t *testing.T) {
	db := newTestDB(t, true)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	b := seedTag(t, db, "Breakfast", "#E26C2D", "breakfast")
	d := seedTag(t, db, "Dinner", "#8775D2", "dinner")

	r1 := seedRecipe(t, db, alice.ID, "Pancakes", nil, b.ID)
	r2 := seedRecipe(t, db, alice.ID, "Steak", nil, d.ID)
	r3 := seedRecipe(t, db, bob.ID, "Omelette", nil, b.ID, d.ID)

	require.NoError(t, AddMembership(ctx, db, domain.SetFavorites, bob.ID, r1.ID))
	require.NoError(t, AddMembership(ctx, db, domain.SetShoppingCart, bob.ID, r2.ID))

	ids := func(f RecipeFilter) []uint {
		t.Helper()
		rs, err := ListRecipesPage(ctx, db, f, 0, 10)
		require.NoError(t, err)
		n, err := CountRecipes(ctx, db, f)
		require.NoError(t, err)
		require.EqualValues(t, len(rs), n)
		out := make([]uint, 0, len(rs))
		for _, r := range rs {
			out = append(out, r.ID)
		}
		return out
	}

	// newest first
	assert.Equal(t, []uint{r3.ID, r2.ID, r1.ID}, ids(RecipeFilter{}))
	assert.Equal(t, []uint{r2.ID, r1.ID}, ids(RecipeFilter{AuthorID: alice.ID}))
	assert.Equal(t, []uint{r3.ID, r1.ID}, ids(RecipeFilter{TagSlugs: []string{"breakfast"}}))
	// any-of semantics; r3 must not be duplicated
	assert.Equal(t, []uint{r3.ID, r2.ID, r1.ID}, ids(RecipeFilter{TagSlugs: []string{"breakfast", "dinner"}}))
	assert.Equal(t, []uint{r1.ID}, ids(RecipeFilter{FavoritedBy: bob.ID}))
	assert.Equal(t, []uint{r2.ID}, ids(RecipeFilter{InCartOf: bob.ID}))
	assert.Empty(t, ids(RecipeFilter{FavoritedBy: alice.ID}))

	page, err := ListRecipesPage(ctx, db, RecipeFilter{}, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, r2.ID, page[0].ID)
}

func TestDeleteRecipe_RemovesDependents(t *testing.T) {
	db := newTestDB(t, true)
	ctx := context.Background()
	u := seedUser(t, db, "chef")
	salt := seedIngredient(t, db, "Salt", "g")
	tg := seedTag(t, db, "Lunch", "#49B64E", "lunch")
	r := seedRecipe(t, db, u.ID, "Soup", map[uint]int{salt.ID: 3}, tg.ID)
	require.NoError(t, AddMembership(ctx, db, domain.SetFavorites, u.ID, r.ID))
	require.NoError(t, AddMembership(ctx, db, domain.SetShoppingCart, u.ID, r.ID))

	require.NoError(t, DeleteRecipe(ctx, db, r.ID))

	_, err := GetRecipeRow(ctx, db, r.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	for _, table := range []string{"recipe_tags", "recipe_ingredients", "favorites", "shopping_cart"} {
		var n int64
		require.NoError(t, db.Table(table).Where("recipe_id = ?", r.ID).Count(&n).Error)
		assert.Zero(t, n, table)
	}

	assert.ErrorIs(t, DeleteRecipe(ctx, db, r.ID), ErrNotFound)
}

func TestUpdateRecipeColumns(t *testing.T) {
	db := newTestDB(t, true)
	ctx := context.Background()
	u := seedUser(t, db, "chef")
	r := seedRecipe(t, db, u.ID, "Soup", nil)

	require.NoError(t, UpdateRecipeColumns(ctx, db, r.ID, map[string]any{"name": "Stew", "cooking_time": 45}))
	got, err := GetRecipeRow(ctx, db, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "Stew", got.Name)
	assert.Equal(t, 45, got.CookingTime)

	require.NoError(t, UpdateRecipeColumns(ctx, db, r.ID, nil))
	assert.ErrorIs(t, UpdateRecipeColumns(ctx, db, 999, map[string]any{"name": "x"}), ErrNotFound)
}

func TestRecipesByAuthor(t *testing.T) {
	db := newTestDB(t, true)
	ctx := context.Background()
	a := seedUser(t, db, "alice")
	b := seedUser(t, db, "bob")
	seedRecipe(t, db, a.ID, "One", nil)
	seedRecipe(t, db, a.ID, "Two", nil)
	last := seedRecipe(t, db, a.ID, "Three", nil)

	rs, err := ListRecipesByAuthor(ctx, db, a.ID, 2)
	require.NoError(t, err)
	require.Len(t, rs, 2)
	assert.Equal(t, last.ID, rs[0].ID)

	all, err := ListRecipesByAuthor(ctx, db, a.ID, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	counts, err := CountRecipesByAuthors(ctx, db, []uint{a.ID, b.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 3, counts[a.ID])
	assert.Zero(t, counts[b.ID])
}
