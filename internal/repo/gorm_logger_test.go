package repo

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-recipes-backend/internal/domain"
)

func bufferCtx(buf *bytes.Buffer) context.Context {
	l := zerolog.New(buf).Level(zerolog.DebugLevel)
	return l.WithContext(context.Background())
}

func TestGormLogger_TraceLevels(t *testing.T) {
	sql := func() (string, int64) { return "SELECT 1", 1 }
	cases := []struct {
		name  string
		level logger.LogLevel
		age   time.Duration
		err   error
		want  string
	}{
		{"fast query at warn", logger.Warn, 0, nil, ""},
		{"slow query at warn", logger.Warn, time.Second, nil, `"level":"warn"`},
		{"failure at warn", logger.Warn, 0, errors.New("disk I/O error"), `"level":"error"`},
		{"not found", logger.Info, 0, gorm.ErrRecordNotFound, ""},
		{"duplicate at warn", logger.Warn, 0, gorm.ErrDuplicatedKey, ""},
		{"duplicate at info", logger.Info, 0, gorm.ErrDuplicatedKey, `"message":"constraint violation"`},
		{"query at info", logger.Info, 0, nil, `"level":"debug"`},
		{"silent failure", logger.Silent, 0, errors.New("boom"), ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			g := NewGormLogger(logger.Warn).LogMode(tc.level)
			g.Trace(bufferCtx(&buf), time.Now().Add(-tc.age), sql, tc.err)
			out := buf.String()
			if tc.want == "" {
				if out != "" {
					t.Fatalf("expected no output, got %s", out)
				}
				return
			}
			if !strings.Contains(out, tc.want) || !strings.Contains(out, `"component":"gorm"`) {
				t.Fatalf("output %q missing %s", out, tc.want)
			}
		})
	}
}

func TestOpenSQLite_DuplicateInsertIsQuiet(t *testing.T) {
	db, err := OpenSQLite(t.TempDir() + "/quiet.db")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	var buf bytes.Buffer
	ctx := bufferCtx(&buf)
	mk := func() error {
		return CreateUser(ctx, db, &domain.User{Email: "a@example.com", Username: "a", PasswordHash: "x", IsActive: true})
	}
	if err := mk(); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := mk(); !IsUniqueViolation(err) {
		t.Fatalf("second insert = %v; want unique violation", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected duplicate to be silent at warn level, got %s", buf.String())
	}
}
