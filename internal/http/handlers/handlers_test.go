package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-recipes-backend/internal/domain"
	"github.com/tbourn/go-recipes-backend/internal/http/middleware"
	"github.com/tbourn/go-recipes-backend/internal/repo"
	"github.com/tbourn/go-recipes-backend/internal/services"
	"github.com/tbourn/go-recipes-backend/internal/storage"
)

const testSecret = "handlers-test-secret-0123"

var testImage = "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("\x89PNG handler"))

// ---------- test DB + wiring ----------

func newHandlerDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:handlers_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		t.Cleanup(func() { _ = sqlDB.Close() })
	}
	return db
}

type testEnv struct {
	db   *gorm.DB
	auth *services.AuthService
	r    *gin.Engine
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if err := RegisterBindingValidators(); err != nil {
		t.Fatalf("validators: %v", err)
	}

	db := newHandlerDB(t)
	images, err := storage.NewLocalStore(t.TempDir(), "http://media.test/media")
	if err != nil {
		t.Fatalf("local store: %v", err)
	}
	auth := services.NewAuthService(db, testSecret, time.Hour, nil)
	users := services.NewUserService(db)
	users.HashCost = bcrypt.MinCost

	h := New(Services{
		Auth:        auth,
		Users:       users,
		Follows:     &services.FollowService{DB: db},
		Catalog:     services.NewCatalogService(db),
		Recipes:     services.NewRecipeService(db, images, nil, time.Hour),
		Memberships: services.NewMembershipService(db, nil),
		Shopping:    &services.ShoppingService{DB: db},
	}, 2)

	r := gin.New()
	r.Use(middleware.Authenticate(auth))
	authed := middleware.RequireAuth()

	r.POST("/auth/token/login/", h.Login)
	r.POST("/auth/token/logout/", authed, h.Logout)

	r.GET("/users/", h.ListUsers)
	r.POST("/users/", h.RegisterUser)
	r.GET("/users/me/", authed, h.Me)
	r.POST("/users/set_password/", authed, h.SetPassword)
	r.GET("/users/subscriptions/", authed, h.Subscriptions)
	r.GET("/users/:id/", h.GetUser)
	r.POST("/users/:id/subscribe/", authed, h.Subscribe)
	r.DELETE("/users/:id/subscribe/", authed, h.Unsubscribe)

	r.GET("/tags/", h.ListTags)
	r.GET("/tags/:id/", h.GetTag)
	r.GET("/ingredients/", h.ListIngredients)
	r.GET("/ingredients/:id/", h.GetIngredient)

	r.GET("/recipes/", h.ListRecipes)
	r.POST("/recipes/", authed, middleware.IdempotencyValidator(middleware.IdempotencyOptions{}, nil), h.CreateRecipe)
	r.GET("/recipes/download_shopping_cart/", authed, h.DownloadShoppingCart)
	r.GET("/recipes/:id/", h.GetRecipe)
	r.PATCH("/recipes/:id/", authed, h.UpdateRecipe)
	r.DELETE("/recipes/:id/", authed, h.DeleteRecipe)
	r.POST("/recipes/:id/favorite/", authed, h.AddFavorite)
	r.DELETE("/recipes/:id/favorite/", authed, h.RemoveFavorite)
	r.POST("/recipes/:id/shopping_cart/", authed, h.AddToCart)
	r.DELETE("/recipes/:id/shopping_cart/", authed, h.RemoveFromCart)

	return &testEnv{db: db, auth: auth, r: r}
}

// do sends a request; body may be nil, a string or any JSON-marshalable value.
func (e *testEnv) do(t *testing.T, method, path, token string, body any, hdr ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if rd != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	return w
}

// user creates an active account and returns it with a valid token.
func (e *testEnv) user(t *testing.T, username string) (*domain.User, string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-pass"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u := &domain.User{
		Email:        username + "@example.com",
		Username:     username,
		FirstName:    "First",
		LastName:     "Last",
		PasswordHash: string(hash),
		IsActive:     true,
	}
	if err := repo.CreateUser(context.Background(), e.db, u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	tok, err := e.auth.Issue(u.ID)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return u, tok
}

func (e *testEnv) ingredient(t *testing.T, name, unit string) *domain.Ingredient {
	t.Helper()
	i := &domain.Ingredient{Name: name, MeasurementUnit: unit}
	if err := e.db.Create(i).Error; err != nil {
		t.Fatalf("create ingredient: %v", err)
	}
	return i
}

func (e *testEnv) tag(t *testing.T, slug, color string) *domain.Tag {
	t.Helper()
	tg := &domain.Tag{Name: slug, Color: color, Slug: slug}
	if err := e.db.Create(tg).Error; err != nil {
		t.Fatalf("create tag: %v", err)
	}
	return tg
}

// recipe creates a recipe through the API and returns its id.
func (e *testEnv) recipe(t *testing.T, token, name string, tags []uint, ings ...IngredientAmountRequest) uint {
	t.Helper()
	w := e.do(t, http.MethodPost, "/recipes/", token, recipeBody(name, tags, ings...))
	if w.Code != http.StatusCreated {
		t.Fatalf("create recipe: %d %s", w.Code, w.Body.String())
	}
	var got RecipeResponse
	decode(t, w, &got)
	return got.ID
}

func recipeBody(name string, tags []uint, ings ...IngredientAmountRequest) map[string]any {
	if tags == nil {
		tags = []uint{}
	}
	return map[string]any{
		"name":         name,
		"text":         "Mix and serve.",
		"image":        testImage,
		"cooking_time": 10,
		"tags":         tags,
		"ingredients":  ings,
	}
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dst); err != nil {
		t.Fatalf("json: %v (body=%s)", err, w.Body.String())
	}
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var er ErrorResponse
	decode(t, w, &er)
	return er.Code
}

// ---------- pagination helpers ----------

func TestPagination_ClampsAndLinks(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := New(Services{}, 0)
	if h.pageSize != 6 {
		t.Fatalf("default page size = %d; want 6", h.pageSize)
	}

	cases := []struct {
		query     string
		wantPage  int
		wantLimit int
	}{
		{"", 1, 6},
		{"?page=3&limit=10", 3, 10},
		{"?page=0&limit=0", 1, 6},
		{"?page=x&limit=1000", 1, maxPageSize},
	}
	for _, tc := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/recipes/"+tc.query, nil)
		page, limit := h.pagination(c)
		if page != tc.wantPage || limit != tc.wantLimit {
			t.Fatalf("%q -> (%d, %d); want (%d, %d)", tc.query, page, limit, tc.wantPage, tc.wantLimit)
		}
	}

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "http://api.test/recipes/?page=2&limit=2&tags=lunch", nil)
	p := newPage(c, []int{3, 4}, 5, 2, 2)
	if p.Next == nil || *p.Next != "http://api.test/recipes/?limit=2&page=3&tags=lunch" {
		t.Fatalf("next = %v", p.Next)
	}
	if p.Previous == nil || *p.Previous != "http://api.test/recipes/?limit=2&tags=lunch" {
		t.Fatalf("previous = %v", p.Previous)
	}

	last := newPage[int](c, nil, 4, 2, 2)
	if last.Next != nil || last.Results == nil {
		t.Fatalf("last page should have no next and non-nil results: %+v", last)
	}
}

func TestPathID_NonNumericIs404(t *testing.T) {
	env := newEnv(t)
	for _, path := range []string{"/recipes/abc/", "/users/0/", "/tags/-1/"} {
		w := env.do(t, http.MethodGet, path, "", nil)
		if w.Code != http.StatusNotFound {
			t.Fatalf("%s -> %d; want 404", path, w.Code)
		}
	}
}
