package repo

import (
	"context"

	"gorm.io/gorm"
)

// ShoppingLine is one aggregated (ingredient, unit) group of a cart.
type ShoppingLine struct {
	Name            string
	MeasurementUnit string
	Total           int64
}

// AggregateShoppingCart sums ingredient amounts across every recipe in
// userID's cart, grouped by ingredient name and unit, ordered by name then
// unit. An empty cart yields an empty slice.
func AggregateShoppingCart(ctx context.Context, db *gorm.DB, userID uint) ([]ShoppingLine, error) {
	var out []ShoppingLine
	err := db.WithContext(ctx).Raw(`
		SELECT i.name AS name, i.measurement_unit AS measurement_unit, SUM(ri.amount) AS total
		FROM recipe_ingredients ri
		JOIN ingredients i ON i.id = ri.ingredient_id
		JOIN shopping_cart sc ON sc.recipe_id = ri.recipe_id
		WHERE sc.user_id = ?
		GROUP BY i.name, i.measurement_unit
		ORDER BY i.name ASC, i.measurement_unit ASC`, userID).
		Scan(&out).Error
	return out, err
}
