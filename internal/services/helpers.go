package services

import (
	"errors"

	"gorm.io/gorm"

	"github.com/tbourn/go-recipes-backend/internal/repo"
)

// Metrics receives domain-level outcome events. Implementations must be
// safe for concurrent use. A nil Metrics is valid and records nothing.
type Metrics interface {
	RecipeWrite(op, result string)
	MembershipChange(set, action, result string)
}

type noopMetrics struct{}

func (noopMetrics) RecipeWrite(string, string)              {}
func (noopMetrics) MembershipChange(string, string, string) {}

func metricsOrNoop(m Metrics) Metrics {
	if m == nil {
		return noopMetrics{}
	}
	return m
}

// outcome classifies err for metrics labels.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrValidation):
		return "invalid"
	case errors.Is(err, ErrPermission):
		return "forbidden"
	default:
		return "error"
	}
}

// isNotFound treats repo-level not found sentinels as "not found" in a
// driver-agnostic way.
func isNotFound(err error) bool {
	return errors.Is(err, repo.ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}

// isDuplicate detects unique-constraint violations across drivers that may
// not map to gorm.ErrDuplicatedKey.
func isDuplicate(err error) bool {
	return repo.IsUniqueViolation(err)
}

// pageOffset normalizes page/size and returns the row offset.
func pageOffset(page, size int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 6
	}
	return page, size, (page - 1) * size
}
