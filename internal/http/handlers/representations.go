package handlers

import (
	"github.com/tbourn/go-recipes-backend/internal/domain"
	"github.com/tbourn/go-recipes-backend/internal/services"
)

// UserResponse is a user as seen by the requesting viewer.
type UserResponse struct {
	ID           uint   `json:"id" example:"1"`
	Email        string `json:"email" example:"vpupkin@yandex.ru"`
	Username     string `json:"username" example:"vasya.pupkin"`
	FirstName    string `json:"first_name" example:"Вася"`
	LastName     string `json:"last_name" example:"Пупкин"`
	IsSubscribed bool   `json:"is_subscribed" example:"false"`
}

// CreatedUserResponse is returned on registration; it has no viewer flags.
type CreatedUserResponse struct {
	ID        uint   `json:"id" example:"1"`
	Email     string `json:"email" example:"vpupkin@yandex.ru"`
	Username  string `json:"username" example:"vasya.pupkin"`
	FirstName string `json:"first_name" example:"Вася"`
	LastName  string `json:"last_name" example:"Пупкин"`
}

// IngredientAmountResponse is one ingredient line of a recipe.
type IngredientAmountResponse struct {
	ID              uint   `json:"id" example:"1123"`
	Name            string `json:"name" example:"Картофель отварной"`
	MeasurementUnit string `json:"measurement_unit" example:"г"`
	Amount          int    `json:"amount" example:"1"`
}

// RecipeResponse is the read representation of a recipe.
type RecipeResponse struct {
	ID               uint                       `json:"id" example:"0"`
	Tags             []domain.Tag               `json:"tags"`
	Author           UserResponse               `json:"author"`
	Ingredients      []IngredientAmountResponse `json:"ingredients"`
	IsFavorited      bool                       `json:"is_favorited"`
	IsInShoppingCart bool                       `json:"is_in_shopping_cart"`
	Name             string                     `json:"name" example:"string"`
	Image            string                     `json:"image" example:"http://foodgram.example.org/media/recipes/images/image.jpeg"`
	Text             string                     `json:"text" example:"string"`
	CookingTime      int                        `json:"cooking_time" example:"1"`
}

// ShortRecipeResponse is the compact recipe form used in membership
// responses and subscription listings.
type ShortRecipeResponse struct {
	ID          uint   `json:"id" example:"0"`
	Name        string `json:"name" example:"string"`
	Image       string `json:"image" example:"http://foodgram.example.org/media/recipes/images/image.jpeg"`
	CookingTime int    `json:"cooking_time" example:"1"`
}

// SubscriptionResponse is a followed author with a recipe summary.
type SubscriptionResponse struct {
	UserResponse
	Recipes      []ShortRecipeResponse `json:"recipes"`
	RecipesCount int64                 `json:"recipes_count" example:"0"`
}

func toUser(u domain.User, subscribed bool) UserResponse {
	return UserResponse{
		ID:           u.ID,
		Email:        u.Email,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		IsSubscribed: subscribed,
	}
}

func toUsers(views []services.UserView) []UserResponse {
	out := make([]UserResponse, 0, len(views))
	for _, v := range views {
		out = append(out, toUser(v.User, v.IsSubscribed))
	}
	return out
}

func toShortRecipe(r domain.Recipe) ShortRecipeResponse {
	return ShortRecipeResponse{ID: r.ID, Name: r.Name, Image: r.Image, CookingTime: r.CookingTime}
}

func toRecipe(v services.RecipeView) RecipeResponse {
	r := v.Recipe
	tags := r.Tags
	if tags == nil {
		tags = []domain.Tag{}
	}
	ings := make([]IngredientAmountResponse, 0, len(r.Ingredients))
	for _, ri := range r.Ingredients {
		ings = append(ings, IngredientAmountResponse{
			ID:              ri.IngredientID,
			Name:            ri.Ingredient.Name,
			MeasurementUnit: ri.Ingredient.MeasurementUnit,
			Amount:          ri.Amount,
		})
	}
	return RecipeResponse{
		ID:               r.ID,
		Tags:             tags,
		Author:           toUser(r.Author, v.AuthorSubscribed),
		Ingredients:      ings,
		IsFavorited:      v.IsFavorited,
		IsInShoppingCart: v.IsInShoppingCart,
		Name:             r.Name,
		Image:            r.Image,
		Text:             r.Text,
		CookingTime:      r.CookingTime,
	}
}

func toRecipes(views []services.RecipeView) []RecipeResponse {
	out := make([]RecipeResponse, 0, len(views))
	for _, v := range views {
		out = append(out, toRecipe(v))
	}
	return out
}

func toSubscription(v services.AuthorView) SubscriptionResponse {
	recipes := make([]ShortRecipeResponse, 0, len(v.Recipes))
	for _, r := range v.Recipes {
		recipes = append(recipes, toShortRecipe(r))
	}
	return SubscriptionResponse{
		UserResponse: toUser(v.User, v.IsSubscribed),
		Recipes:      recipes,
		RecipesCount: v.RecipesCount,
	}
}
