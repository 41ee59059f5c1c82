// Recipe HTTP handlers.
//
// This file exposes REST endpoints for recipes:
//   - GET    /recipes/        (list, filtered, paginated)
//   - POST   /recipes/        (create, Idempotency-Key aware)
//   - GET    /recipes/{id}/   (retrieve)
//   - PATCH  /recipes/{id}/   (partial update, author only)
//   - DELETE /recipes/{id}/   (delete, author only)
//
// Idempotency:
// If the client supplies an Idempotency-Key header on create and the same
// user already created a recipe with that key, the original recipe is
// returned with `Idempotency-Replayed: true` and nothing new is written.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-recipes-backend/internal/http/middleware"
	"github.com/tbourn/go-recipes-backend/internal/services"
	"github.com/tbourn/go-recipes-backend/internal/utils"
)

//
// DTOs
//

// IngredientAmountRequest references a catalog ingredient with an amount.
type IngredientAmountRequest struct {
	ID     uint `json:"id" binding:"required" example:"1123"`
	Amount int  `json:"amount" example:"10"`
}

// RecipeRequest is the JSON payload for creating or updating a recipe.
// On PATCH any subset of fields may be sent; tags and ingredients replace
// the current lists when present.
type RecipeRequest struct {
	Ingredients []IngredientAmountRequest `json:"ingredients" binding:"omitempty,dive"`
	Tags        []uint                    `json:"tags" example:"1,2"`
	// Base64 data URI, e.g. "data:image/png;base64,iVBORw0KGgo..."
	Image       *string `json:"image" example:"data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABAgMAAABieywaAAAACVBMVEUAAAD///9fX1/S0ecCAAAACXBIWXMAAA7EAAAOxAGVKw4bAAAACklEQVQImWNoAAAAggCByxOyYQAAAABJRU5ErkJggg=="`
	Name        *string `json:"name" example:"Нечто съедобное (это не точно)"`
	Text        *string `json:"text" example:"Приготовьте как нибудь"`
	CookingTime *int    `json:"cooking_time" example:"5"`
}

func (r RecipeRequest) input() services.RecipeInput {
	in := services.RecipeInput{
		Name:        r.Name,
		Text:        r.Text,
		Image:       r.Image,
		CookingTime: r.CookingTime,
		Tags:        r.Tags,
	}
	if r.Ingredients != nil {
		in.Ingredients = make([]services.IngredientAmount, 0, len(r.Ingredients))
		for _, ia := range r.Ingredients {
			in.Ingredients = append(in.Ingredients, services.IngredientAmount{ID: ia.ID, Amount: ia.Amount})
		}
	}
	return in
}

// ListRecipes godoc
// @ID          listRecipes
// @Summary     List recipes (filtered, paginated)
// @Description Newest first. is_favorited and is_in_shopping_cart apply only to authenticated requests.
// @Tags        Recipes
// @Produce     json
// @Param       page                 query     int       false  "Page number"     minimum(1) default(1)
// @Param       limit                query     int       false  "Items per page"  minimum(1) maximum(100)
// @Param       author               query     int       false  "Author ID"
// @Param       tags                 query     []string  false  "Tag slugs (any of)"  collectionFormat(multi)
// @Param       is_favorited         query     int       false  "1 to show only favorites"  Enums(0, 1)
// @Param       is_in_shopping_cart  query     int       false  "1 to show only cart"       Enums(0, 1)
// @Success     200                  {object}  handlers.Page[handlers.RecipeResponse]
// @Router      /recipes/ [get]
func (h *Handlers) ListRecipes(c *gin.Context) {
	page, limit := h.pagination(c)
	q := services.RecipeQuery{
		Tags:             c.QueryArray("tags"),
		IsFavorited:      utils.ParseBool(c.Query("is_favorited")),
		IsInShoppingCart: utils.ParseBool(c.Query("is_in_shopping_cart")),
	}
	if a, valid := utils.ParseID(c.Query("author")); valid {
		q.AuthorID = a
	}
	views, total, err := h.svc.Recipes.List(c.Request.Context(), currentUser(c), q, page, limit)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, newPage(c, toRecipes(views), total, page, limit))
}

// GetRecipe godoc
// @ID          getRecipe
// @Summary     Get a recipe
// @Tags        Recipes
// @Produce     json
// @Param       id   path      int  true  "Recipe ID"
// @Success     200  {object}  handlers.RecipeResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Recipe not found"
// @Router      /recipes/{id}/ [get]
func (h *Handlers) GetRecipe(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	v, err := h.svc.Recipes.Get(c.Request.Context(), currentUser(c), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, toRecipe(*v))
}

// CreateRecipe godoc
// @ID          createRecipe
// @Summary     Create a recipe
// @Description Supports idempotency via the Idempotency-Key header (same key, same recipe).
// @Tags        Recipes
// @Accept      json
// @Produce     json
// @Security    TokenAuth
// @Param       Idempotency-Key  header    string                  false  "Idempotency key for safe retries (UUID recommended)"
// @Param       body             body      handlers.RecipeRequest  true   "Recipe"
// @Success     201              {object}  handlers.RecipeResponse
// @Header      201              {string}  Idempotency-Replayed  "true when served from a previous identical request"
// @Failure     400              {object}  handlers.ErrorResponse  "Validation error"
// @Failure     401              {object}  handlers.ErrorResponse  "Authentication required"
// @Router      /recipes/ [post]
func (h *Handlers) CreateRecipe(c *gin.Context) {
	var req RecipeRequest
	if !bindJSON(c, &req) {
		return
	}
	key, _ := middleware.GetIdempotencyKey(c)
	v, replayed, err := h.svc.Recipes.CreateIdempotent(c.Request.Context(), currentUser(c), key, req.input())
	if err != nil {
		failErr(c, err)
		return
	}
	if replayed {
		c.Header(middleware.HeaderIdempotencyReplayed, "true")
	}
	ok(c, http.StatusCreated, toRecipe(*v))
}

// UpdateRecipe godoc
// @ID          updateRecipe
// @Summary     Update a recipe (partial)
// @Tags        Recipes
// @Accept      json
// @Produce     json
// @Security    TokenAuth
// @Param       id    path      int                     true  "Recipe ID"
// @Param       body  body      handlers.RecipeRequest  true  "Fields to change"
// @Success     200   {object}  handlers.RecipeResponse
// @Failure     400   {object}  handlers.ErrorResponse  "Validation error"
// @Failure     401   {object}  handlers.ErrorResponse  "Authentication required"
// @Failure     403   {object}  handlers.ErrorResponse  "Not the author"
// @Failure     404   {object}  handlers.ErrorResponse  "Recipe not found"
// @Router      /recipes/{id}/ [patch]
func (h *Handlers) UpdateRecipe(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	var req RecipeRequest
	if !bindJSON(c, &req) {
		return
	}
	v, err := h.svc.Recipes.Update(c.Request.Context(), currentUser(c), id, req.input())
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, toRecipe(*v))
}

// DeleteRecipe godoc
// @ID          deleteRecipe
// @Summary     Delete a recipe
// @Tags        Recipes
// @Security    TokenAuth
// @Param       id   path  int  true  "Recipe ID"
// @Success     204  {string}  string  "No Content"
// @Failure     401  {object}  handlers.ErrorResponse  "Authentication required"
// @Failure     403  {object}  handlers.ErrorResponse  "Not the author"
// @Failure     404  {object}  handlers.ErrorResponse  "Recipe not found"
// @Router      /recipes/{id}/ [delete]
func (h *Handlers) DeleteRecipe(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	if err := h.svc.Recipes.Delete(c.Request.Context(), currentUser(c), id); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}
