// Command foodgram runs the recipe sharing API and its maintenance tasks.
//
// @title                      Foodgram API
// @version                    1.0
// @description                Recipe sharing: users, follows, tags, ingredients, recipes, favorites and shopping lists.
// @license.name               MIT
// @license.url                https://opensource.org/licenses/MIT
// @BasePath                   /api
// @securityDefinitions.apikey TokenAuth
// @in                         header
// @name                       Authorization
// @description                Type 'Token YOUR_AUTH_TOKEN' (or 'Bearer ...') to authorize
package main

import (
	"errors"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/tbourn/go-recipes-backend/internal/config"
	"github.com/tbourn/go-recipes-backend/internal/sysutil"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version string

const configKey = "config"

func main() {
	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("could not read .env")
	}
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("foodgram")
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "foodgram",
		Usage:   "recipe sharing backend",
		Version: appVersion(),
		Before: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			sysutil.SetupLogging(cfg.LogLevel, cfg.LogPretty)
			c.App.Metadata = map[string]interface{}{configKey: cfg}
			return nil
		},
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			loadIngredientsCommand(),
			loadTagsCommand(),
		},
	}
}

func appVersion() string { return sysutil.FirstNonEmpty(version, "dev") }

func appConfig(c *cli.Context) config.Config {
	cfg, _ := c.App.Metadata[configKey].(config.Config)
	return cfg
}
