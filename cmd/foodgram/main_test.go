package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-recipes-backend/internal/domain"
	"github.com/tbourn/go-recipes-backend/internal/repo"
)

func testEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("GIN_MODE", "test")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", filepath.Join(dir, "foodgram.db"))
	t.Setenv("MEDIA_DIR", filepath.Join(dir, "media"))
	return dir
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func countRows(t *testing.T, dbPath string, model any) int64 {
	t.Helper()
	db, err := repo.OpenSQLite(dbPath)
	require.NoError(t, err)
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func TestMigrateCommand(t *testing.T) {
	dir := testEnv(t)
	require.NoError(t, newApp().Run([]string{"foodgram", "migrate"}))
	assert.Equal(t, int64(0), countRows(t, filepath.Join(dir, "foodgram.db"), &domain.Recipe{}))
}

func TestLoadIngredientsCommand_SkipsUnlessForced(t *testing.T) {
	dir := testEnv(t)
	dbPath := filepath.Join(dir, "foodgram.db")
	first := writeFile(t, dir, "ingredients.csv", "name,measurement_unit\nабрикосовое варенье,г\nSalt,g\n")
	second := writeFile(t, dir, "more.csv", "Salt,g\nSugar,g\n")

	require.NoError(t, newApp().Run([]string{"foodgram", "load-ingredients", "--file", first}))
	assert.Equal(t, int64(2), countRows(t, dbPath, &domain.Ingredient{}))

	// populated catalog: skipped without --force
	require.NoError(t, newApp().Run([]string{"foodgram", "load-ingredients", "--file", second}))
	assert.Equal(t, int64(2), countRows(t, dbPath, &domain.Ingredient{}))

	// forced: new rows added, duplicates ignored
	require.NoError(t, newApp().Run([]string{"foodgram", "load-ingredients", "--file", second, "--force"}))
	assert.Equal(t, int64(3), countRows(t, dbPath, &domain.Ingredient{}))
}

func TestLoadTagsCommand(t *testing.T) {
	dir := testEnv(t)
	dbPath := filepath.Join(dir, "foodgram.db")

	good := writeFile(t, dir, "tags.csv", "name,color,slug\nЗавтрак,#E26C2D,breakfast\nОбед,#49B64E,lunch\n")
	require.NoError(t, newApp().Run([]string{"foodgram", "load-tags", "--file", good}))
	assert.Equal(t, int64(2), countRows(t, dbPath, &domain.Tag{}))

	bad := writeFile(t, dir, "bad.csv", "Ужин,orange,dinner\n")
	err := newApp().Run([]string{"foodgram", "load-tags", "--file", bad})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.csv")
	assert.Equal(t, int64(2), countRows(t, dbPath, &domain.Tag{}))

	require.Error(t, newApp().Run([]string{"foodgram", "load-tags", "--file", filepath.Join(dir, "missing.csv")}))
}

func TestApp_InvalidConfigFailsBeforeCommands(t *testing.T) {
	testEnv(t)
	t.Setenv("DB_DRIVER", "oracle")
	require.Error(t, newApp().Run([]string{"foodgram", "migrate"}))
}

func TestAppVersion_DefaultsToDev(t *testing.T) {
	orig := version
	t.Cleanup(func() { version = orig })

	version = ""
	assert.Equal(t, "dev", appVersion())
	version = "v1.4.0"
	assert.Equal(t, "v1.4.0", appVersion())
}
