// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// authentication, idempotency, rate limiting, CORS and security headers.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic router setup; all dependencies injected
package httpapi

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "github.com/tbourn/go-recipes-backend/docs" // registers the OpenAPI document
	"github.com/tbourn/go-recipes-backend/internal/config"
	"github.com/tbourn/go-recipes-backend/internal/http/handlers"
	"github.com/tbourn/go-recipes-backend/internal/http/middleware"
	"github.com/tbourn/go-recipes-backend/internal/repo"
	"github.com/tbourn/go-recipes-backend/internal/services"
	"github.com/tbourn/go-recipes-backend/internal/storage"
)

// maxBodyBytes caps request bodies. Recipe images arrive inline as base64.
const maxBodyBytes = 10 << 20

// Deps are the long-lived resources the routes are built from.
type Deps struct {
	DB     *gorm.DB
	Images storage.ImageStore
	// Denylist stores revoked token ids. Nil falls back to the database.
	Denylist services.Denylist
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts the public API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Authenticate: optional token → user id (401 on a bad token)
//  8. ContextLogger: request-scoped logger carrying user_id
//  9. Idempotency validator (before rate limiter to allow bypass on replay)
//  10. Rate limiter (per user/IP, bypass on replay)
//  11. CORS, security headers and gzip
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) error {
	if err := handlers.RegisterBindingValidators(); err != nil {
		return err
	}
	r.HandleMethodNotAllowed = true
	db := deps.DB
	apiBase := cfg.APIBasePath
	if apiBase == "/" {
		apiBase = ""
	}

	authSvc := services.NewAuthService(db, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, deps.Denylist)

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{middleware.HeaderIdempotencyKey},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit
	r.Use(limitBody(maxBodyBytes))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7-8) Identity, then the logger that carries it
	r.Use(middleware.Authenticate(authSvc))
	r.Use(middleware.ContextLogger())

	// 9) Idempotency validation (before rate limiting)
	createRecipePath := apiBase + "/recipes/"
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
			Scope: func(c *gin.Context) string {
				if c.Request.Method == http.MethodPost && c.FullPath() == createRecipePath {
					return services.ScopeRecipeCreate
				}
				return ""
			},
		},
		func(ctx context.Context, userID uint, scope, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, userID, scope, key, now)
			if err != nil || rec == nil {
				return false, err
			}
			return true, nil
		},
	))

	// 10) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP()).
		Skip("/health", "/metrics")
	r.Use(rl.Handler())

	// 11) CORS posture (safe defaults: allow all if none configured)
	corsCfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderIdempotencyKey},
		ExposeHeaders: []string{
			"X-Request-ID", "Content-Length", "Content-Disposition", "ETag",
			middleware.HeaderIdempotencyReplayed,
		},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		corsCfg.AllowAllOrigins = true
	} else {
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		corsCfg.AllowOrigins = cfg.CORS.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:           cfg.Security.EnableHSTS,
		HSTSMaxAge:           cfg.Security.HSTSMaxAge,
		NoStoreAuthenticated: true,
		EnablePolicy:         true,
	}))

	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			err = sqlDB.PingContext(ctx)
			cancel()
		}
		if err != nil {
			middleware.LoggerFrom(c).Error().Err(err).Msg("health: database unreachable")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Locally stored recipe images
	if cfg.Media.Backend == "local" {
		if prefix := mediaPrefix(cfg.Media.BaseURL); prefix != "" {
			r.Static(prefix, cfg.Media.Dir)
		}
	}

	// Dependency injection: services ← repo/db/storage
	metrics := middleware.DomainMetrics{}
	h := handlers.New(handlers.Services{
		Auth:        authSvc,
		Users:       services.NewUserService(db),
		Follows:     &services.FollowService{DB: db},
		Catalog:     services.NewCatalogService(db),
		Recipes:     services.NewRecipeService(db, deps.Images, metrics, cfg.IdempotencyTTL),
		Memberships: services.NewMembershipService(db, metrics),
		Shopping:    &services.ShoppingService{DB: db},
	}, cfg.PageSize)

	authed := middleware.RequireAuth()
	api := groupWithPrefix(r, apiBase)
	{
		// Auth
		api.POST("/auth/token/login/", h.Login)
		api.POST("/auth/token/logout/", authed, h.Logout)

		// Users and follows
		api.GET("/users/", h.ListUsers)
		api.POST("/users/", h.RegisterUser)
		api.GET("/users/me/", authed, h.Me)
		api.POST("/users/set_password/", authed, h.SetPassword)
		api.GET("/users/subscriptions/", authed, h.Subscriptions)
		api.GET("/users/:id/", h.GetUser)
		api.POST("/users/:id/subscribe/", authed, h.Subscribe)
		api.DELETE("/users/:id/subscribe/", authed, h.Unsubscribe)

		// Catalog
		api.GET("/tags/", h.ListTags)
		api.GET("/tags/:id/", h.GetTag)
		api.GET("/ingredients/", h.ListIngredients)
		api.GET("/ingredients/:id/", h.GetIngredient)

		// Recipes
		api.GET("/recipes/", h.ListRecipes)
		api.POST("/recipes/", authed, h.CreateRecipe)
		api.GET("/recipes/download_shopping_cart/", authed, h.DownloadShoppingCart)
		api.GET("/recipes/:id/", h.GetRecipe)
		api.PATCH("/recipes/:id/", authed, h.UpdateRecipe)
		api.DELETE("/recipes/:id/", authed, h.DeleteRecipe)

		// Favorites and shopping cart
		api.POST("/recipes/:id/favorite/", authed, h.AddFavorite)
		api.DELETE("/recipes/:id/favorite/", authed, h.RemoveFavorite)
		api.POST("/recipes/:id/shopping_cart/", authed, h.AddToCart)
		api.DELETE("/recipes/:id/shopping_cart/", authed, h.RemoveFromCart)
	}
	return nil
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}

// mediaPrefix extracts the URL path under which local images are served.
// "/media" and "http://host/media" both yield "/media"; a bare host yields "".
func mediaPrefix(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	p := strings.TrimRight(u.Path, "/")
	if p == "" || !strings.HasPrefix(p, "/") {
		return ""
	}
	return p
}
