package services

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-recipes-backend/internal/repo"
)

// ShoppingService builds the combined shopping list of a user's cart.
type ShoppingService struct {
	DB *gorm.DB
}

// ShoppingList returns the cart's ingredients summed per (name, unit).
// An empty cart yields ErrEmptyCart.
func (s *ShoppingService) ShoppingList(ctx context.Context, userID uint) ([]repo.ShoppingLine, error) {
	ctx, span := otel.Tracer("services/ShoppingService").Start(ctx, "ShoppingList",
		trace.WithAttributes(attribute.Int64("user.id", int64(userID))),
	)
	defer span.End()

	lines, err := repo.AggregateShoppingCart(ctx, s.DB, userID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}
	span.SetAttributes(attribute.Int("lines", len(lines)))
	return lines, nil
}

// RenderShoppingList formats lines as "1. Salt (g) — 8", one per line.
func RenderShoppingList(lines []repo.ShoppingLine) string {
	var b strings.Builder
	for i, l := range lines {
		fmt.Fprintf(&b, "%d. %s (%s) — %d\n", i+1, l.Name, l.MeasurementUnit, l.Total)
	}
	return b.String()
}
