package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"gorm.io/gorm"

	"github.com/tbourn/go-recipes-backend/internal/cache"
	"github.com/tbourn/go-recipes-backend/internal/config"
	httpapi "github.com/tbourn/go-recipes-backend/internal/http"
	"github.com/tbourn/go-recipes-backend/internal/observability"
	"github.com/tbourn/go-recipes-backend/internal/repo"
	"github.com/tbourn/go-recipes-backend/internal/services"
	"github.com/tbourn/go-recipes-backend/internal/storage"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP API",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "migrate",
				Usage:   "apply schema migrations before serving",
				Value:   true,
				EnvVars: []string{"AUTO_MIGRATE"},
			},
		},
		Action: func(c *cli.Context) error {
			return serve(c.Context, appConfig(c), c.Bool("migrate"))
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "create or update database tables",
		Action: func(c *cli.Context) error {
			db, closeDB, err := openDB(appConfig(c))
			if err != nil {
				return err
			}
			defer closeDB()
			if err := repo.AutoMigrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			log.Info().Msg("schema is up to date")
			return nil
		},
	}
}

func loadIngredientsCommand() *cli.Command {
	return &cli.Command{
		Name:  "load-ingredients",
		Usage: "import ingredients from a name,measurement_unit CSV",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Value: "data/ingredients.csv", EnvVars: []string{"INGREDIENTS_CSV"}},
			&cli.BoolFlag{Name: "force", Usage: "import even when ingredients already exist"},
		},
		Action: func(c *cli.Context) error {
			return withCatalog(c, func(ctx context.Context, svc *services.CatalogService, f *os.File) (services.LoadResult, error) {
				return svc.LoadIngredientsCSV(ctx, f, c.Bool("force"))
			})
		},
	}
}

func loadTagsCommand() *cli.Command {
	return &cli.Command{
		Name:  "load-tags",
		Usage: "import tags from a name,color,slug CSV",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Value: "data/tags.csv", EnvVars: []string{"TAGS_CSV"}},
		},
		Action: func(c *cli.Context) error {
			return withCatalog(c, func(ctx context.Context, svc *services.CatalogService, f *os.File) (services.LoadResult, error) {
				return svc.LoadTagsCSV(ctx, f)
			})
		},
	}
}

// withCatalog opens the store and the --file CSV, runs load and logs the
// outcome.
func withCatalog(c *cli.Context, load func(context.Context, *services.CatalogService, *os.File) (services.LoadResult, error)) error {
	db, closeDB, err := openDB(appConfig(c))
	if err != nil {
		return err
	}
	defer closeDB()
	if err := repo.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	path := c.String("file")
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	res, err := load(c.Context, services.NewCatalogService(db), f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if res.Skipped {
		log.Info().Str("file", path).Msg("catalog already populated; use --force to import anyway")
		return nil
	}
	log.Info().Str("file", path).Int("read", res.Read).Int64("inserted", res.Inserted).Msg("catalog import finished")
	return nil
}

func openDB(cfg config.Config) (*gorm.DB, func(), error) {
	dsn := cfg.DB.Path
	if cfg.DB.Driver == "postgres" {
		dsn = cfg.DB.URL
	}
	db, err := repo.Open(cfg.DB.Driver, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", cfg.DB.Driver, err)
	}
	closeDB := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return db, closeDB, nil
}

func serve(parent context.Context, cfg config.Config, migrate bool) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, appVersion())
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, closeDB, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer closeDB()
	if err := observability.InstrumentDB(db, cfg.OTEL); err != nil {
		return fmt.Errorf("gorm tracing: %w", err)
	}
	if migrate {
		if err := repo.AutoMigrate(db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	images, err := storage.New(ctx, cfg.Media)
	if err != nil {
		return fmt.Errorf("media: %w", err)
	}

	var denylist services.Denylist
	if cfg.Auth.RedisURL != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg.Auth.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		denylist = cache.NewRedisDenylist(rdb)
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	if err := httpapi.RegisterRoutes(r, httpapi.Deps{DB: db, Images: images, Denylist: denylist}, cfg); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("api", cfg.APIBasePath).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(sctx)
}
