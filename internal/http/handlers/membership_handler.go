// Favorite, shopping cart and shopping list handlers.
//
// Both membership sets share one status contract: 201 with the short
// recipe on add, 204 on remove, 400 when the recipe is already present or
// absent, 404 when the recipe does not exist.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-recipes-backend/internal/domain"
	"github.com/tbourn/go-recipes-backend/internal/services"
)

const shoppingListFilename = "shopping_list.txt"

func (h *Handlers) addMember(c *gin.Context, set domain.MembershipSet) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	r, err := h.svc.Memberships.Add(c.Request.Context(), set, currentUser(c), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, toShortRecipe(*r))
}

func (h *Handlers) removeMember(c *gin.Context, set domain.MembershipSet) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	if err := h.svc.Memberships.Remove(c.Request.Context(), set, currentUser(c), id); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}

// AddFavorite godoc
// @ID          addFavorite
// @Summary     Add a recipe to favorites
// @Tags        Recipes
// @Produce     json
// @Security    TokenAuth
// @Param       id   path      int  true  "Recipe ID"
// @Success     201  {object}  handlers.ShortRecipeResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Already in favorites"
// @Failure     401  {object}  handlers.ErrorResponse  "Authentication required"
// @Failure     404  {object}  handlers.ErrorResponse  "Recipe not found"
// @Router      /recipes/{id}/favorite/ [post]
func (h *Handlers) AddFavorite(c *gin.Context) { h.addMember(c, domain.SetFavorites) }

// RemoveFavorite godoc
// @ID          removeFavorite
// @Summary     Remove a recipe from favorites
// @Tags        Recipes
// @Security    TokenAuth
// @Param       id   path  int  true  "Recipe ID"
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Not in favorites"
// @Failure     401  {object}  handlers.ErrorResponse  "Authentication required"
// @Failure     404  {object}  handlers.ErrorResponse  "Recipe not found"
// @Router      /recipes/{id}/favorite/ [delete]
func (h *Handlers) RemoveFavorite(c *gin.Context) { h.removeMember(c, domain.SetFavorites) }

// AddToCart godoc
// @ID          addToCart
// @Summary     Add a recipe to the shopping cart
// @Tags        Recipes
// @Produce     json
// @Security    TokenAuth
// @Param       id   path      int  true  "Recipe ID"
// @Success     201  {object}  handlers.ShortRecipeResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Already in the cart"
// @Failure     401  {object}  handlers.ErrorResponse  "Authentication required"
// @Failure     404  {object}  handlers.ErrorResponse  "Recipe not found"
// @Router      /recipes/{id}/shopping_cart/ [post]
func (h *Handlers) AddToCart(c *gin.Context) { h.addMember(c, domain.SetShoppingCart) }

// RemoveFromCart godoc
// @ID          removeFromCart
// @Summary     Remove a recipe from the shopping cart
// @Tags        Recipes
// @Security    TokenAuth
// @Param       id   path  int  true  "Recipe ID"
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Not in the cart"
// @Failure     401  {object}  handlers.ErrorResponse  "Authentication required"
// @Failure     404  {object}  handlers.ErrorResponse  "Recipe not found"
// @Router      /recipes/{id}/shopping_cart/ [delete]
func (h *Handlers) RemoveFromCart(c *gin.Context) { h.removeMember(c, domain.SetShoppingCart) }

// DownloadShoppingCart godoc
// @ID          downloadShoppingCart
// @Summary     Download the shopping list
// @Description Ingredients of every recipe in the cart, summed per name and unit.
// @Tags        Recipes
// @Produce     plain
// @Security    TokenAuth
// @Success     200  {string}  string  "1. Salt (g) — 8"
// @Header      200  {string}  Content-Disposition  "attachment; filename=\"shopping_list.txt\""
// @Failure     400  {object}  handlers.ErrorResponse  "Shopping cart is empty"
// @Failure     401  {object}  handlers.ErrorResponse  "Authentication required"
// @Router      /recipes/download_shopping_cart/ [get]
func (h *Handlers) DownloadShoppingCart(c *gin.Context) {
	lines, err := h.svc.Shopping.ShoppingList(c.Request.Context(), currentUser(c))
	if err != nil {
		failErr(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+shoppingListFilename+`"`)
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(services.RenderShoppingList(lines)))
}
