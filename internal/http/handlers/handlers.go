// Package handlers exposes the REST endpoints of the recipe API.
//
// Handlers are transport-thin: they bind and validate input, call the
// application services through the interfaces below, and translate results
// into the JSON representations clients consume. Error kinds returned by
// services are mapped onto statuses in one place (failErr).
package handlers

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-recipes-backend/internal/domain"
	"github.com/tbourn/go-recipes-backend/internal/http/middleware"
	"github.com/tbourn/go-recipes-backend/internal/repo"
	"github.com/tbourn/go-recipes-backend/internal/services"
	"github.com/tbourn/go-recipes-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// AuthService issues and revokes tokens.
type AuthService interface {
	Login(ctx context.Context, email, password string) (string, error)
	Logout(ctx context.Context, claims *services.Claims) error
}

// UserService manages accounts.
type UserService interface {
	Register(ctx context.Context, in services.RegisterInput) (*domain.User, error)
	Get(ctx context.Context, viewerID, id uint) (*services.UserView, error)
	ListPage(ctx context.Context, viewerID uint, page, pageSize int) ([]services.UserView, int64, error)
	SetPassword(ctx context.Context, userID uint, current, next string) error
}

// FollowService manages subscriptions between users.
type FollowService interface {
	Follow(ctx context.Context, userID, authorID uint, recipesLimit int) (*services.AuthorView, error)
	Unfollow(ctx context.Context, userID, authorID uint) error
	Subscriptions(ctx context.Context, userID uint, page, pageSize, recipesLimit int) ([]services.AuthorView, int64, error)
}

// CatalogService serves tags and ingredients.
type CatalogService interface {
	ListTags(ctx context.Context) ([]domain.Tag, error)
	GetTag(ctx context.Context, id uint) (*domain.Tag, error)
	SearchIngredients(ctx context.Context, prefix string) ([]domain.Ingredient, error)
	GetIngredient(ctx context.Context, id uint) (*domain.Ingredient, error)
	Stats(ctx context.Context) (repo.CatalogStats, error)
}

// RecipeService owns recipe reads and writes.
type RecipeService interface {
	CreateIdempotent(ctx context.Context, authorID uint, key string, in services.RecipeInput) (*services.RecipeView, bool, error)
	Get(ctx context.Context, viewerID, id uint) (*services.RecipeView, error)
	List(ctx context.Context, viewerID uint, q services.RecipeQuery, page, pageSize int) ([]services.RecipeView, int64, error)
	Update(ctx context.Context, userID, id uint, in services.RecipeInput) (*services.RecipeView, error)
	Delete(ctx context.Context, userID, id uint) error
}

// MembershipService toggles favorites and shopping cart entries.
type MembershipService interface {
	Add(ctx context.Context, set domain.MembershipSet, userID, recipeID uint) (*domain.Recipe, error)
	Remove(ctx context.Context, set domain.MembershipSet, userID, recipeID uint) error
}

// ShoppingService aggregates the shopping cart.
type ShoppingService interface {
	ShoppingList(ctx context.Context, userID uint) ([]repo.ShoppingLine, error)
}

//
// Handler wiring
//

// Services bundles the dependencies of Handlers.
type Services struct {
	Auth        AuthService
	Users       UserService
	Follows     FollowService
	Catalog     CatalogService
	Recipes     RecipeService
	Memberships MembershipService
	Shopping    ShoppingService
}

// Handlers groups every HTTP endpoint of the API.
type Handlers struct {
	svc      Services
	pageSize int
}

// New constructs Handlers. pageSize is the default page size for paginated
// lists (clients may override it with ?limit=).
func New(svc Services, pageSize int) *Handlers {
	if pageSize <= 0 {
		pageSize = 6
	}
	return &Handlers{svc: svc, pageSize: pageSize}
}

//
// Helpers
//

const maxPageSize = 100

// currentUser returns the authenticated user id, or 0 for anonymous requests.
func currentUser(c *gin.Context) uint {
	id, _ := middleware.UserID(c)
	return id
}

// pathID parses the named path parameter. Non-numeric ids answer 404 since
// no such resource can exist.
func pathID(c *gin.Context, name string) (uint, bool) {
	id, ok := utils.ParseID(c.Param(name))
	if !ok {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "not found")
	}
	return id, ok
}

// pagination reads ?page= and ?limit=, clamped to [1, 100].
func (h *Handlers) pagination(c *gin.Context) (page, limit int) {
	page = utils.AtoiDefault(c.Query("page"), 1)
	if page < 1 {
		page = 1
	}
	limit = utils.AtoiDefault(c.Query("limit"), h.pageSize)
	if limit < 1 {
		limit = h.pageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}

// recipesLimit reads ?recipes_limit=; absent or invalid means no limit.
func recipesLimit(c *gin.Context) int {
	n := utils.AtoiDefault(c.Query("recipes_limit"), 0)
	if n < 0 {
		return 0
	}
	return n
}

// bindJSON decodes the body into dst. Binding failures are answered with
// 400 and false is returned.
func bindJSON(c *gin.Context, dst any) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}
	if fields := bindingFields(err); len(fields) > 0 {
		verr := &services.ValidationError{Fields: fields}
		failFields(c, http.StatusBadRequest, ErrCodeValidation, verr.Error(), fields)
		return false
	}
	if err == io.EOF {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "request body is empty")
		return false
	}
	fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
	return false
}

//
// Pagination envelope
//

// Page is the envelope of every paginated list. Next and Previous are
// absolute URLs, or null at either end.
type Page[T any] struct {
	Count    int64   `json:"count" example:"123"`
	Next     *string `json:"next" example:"http://foodgram.example.org/api/recipes/?page=4"`
	Previous *string `json:"previous" example:"http://foodgram.example.org/api/recipes/?page=2"`
	Results  []T     `json:"results"`
}

func newPage[T any](c *gin.Context, items []T, total int64, page, limit int) Page[T] {
	if items == nil {
		items = []T{}
	}
	p := Page[T]{Count: total, Results: items}
	if int64(page*limit) < total {
		next := pageURL(c, page+1)
		p.Next = &next
	}
	if page > 1 {
		prev := pageURL(c, page-1)
		p.Previous = &prev
	}
	return p
}

// pageURL rebuilds the request URL with page replaced. Page 1 drops the
// parameter entirely.
func pageURL(c *gin.Context, page int) string {
	u := url.URL{
		Scheme: "http",
		Host:   c.Request.Host,
		Path:   c.Request.URL.Path,
	}
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		u.Scheme = "https"
	}
	q := c.Request.URL.Query()
	if page <= 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(page))
	}
	u.RawQuery = q.Encode()
	return u.String()
}
