// Package services – MembershipService
//
// This file implements the favorite and shopping-cart toggles. Both sets are
// keyed by the unique (user, recipe) pair: adding an existing member fails
// with a Conflict sentinel and removing a non-member fails with a NotFound
// sentinel specific to the set, so handlers can tell it apart from a missing
// recipe.
package services

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-recipes-backend/internal/domain"
	"github.com/tbourn/go-recipes-backend/internal/repo"
)

// MembershipService toggles recipes in a user's favorites and shopping cart.
type MembershipService struct {
	DB      *gorm.DB
	Metrics Metrics
}

// NewMembershipService constructs a MembershipService.
func NewMembershipService(db *gorm.DB, m Metrics) *MembershipService {
	return &MembershipService{DB: db, Metrics: metricsOrNoop(m)}
}

func membershipErrors(set domain.MembershipSet) (already, absent error) {
	if set == domain.SetShoppingCart {
		return ErrAlreadyInCart, ErrNotInCart
	}
	return ErrAlreadyFavorited, ErrNotFavorited
}

// Add puts recipeID into userID's set and returns the recipe row for the
// short summary representation.
func (s *MembershipService) Add(ctx context.Context, set domain.MembershipSet, userID, recipeID uint) (r *domain.Recipe, err error) {
	ctx, span := otel.Tracer("services/MembershipService").Start(ctx, "Add",
		trace.WithAttributes(
			attribute.String("set", string(set)),
			attribute.Int64("user.id", int64(userID)),
			attribute.Int64("recipe.id", int64(recipeID)),
		),
	)
	defer span.End()
	defer func() {
		if err != nil {
			span.RecordError(err)
		}
		metricsOrNoop(s.Metrics).MembershipChange(string(set), "add", outcome(err))
	}()

	if !set.Valid() {
		return nil, fmt.Errorf("membership: unknown set %q", set)
	}
	already, _ := membershipErrors(set)

	r, err = repo.GetRecipeRow(ctx, s.DB, recipeID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrRecipeNotFound
		}
		return nil, err
	}
	// The unique (user, recipe) index settles concurrent adds.
	if err := repo.AddMembership(ctx, s.DB, set, userID, recipeID); err != nil {
		if isDuplicate(err) {
			return nil, already
		}
		return nil, err
	}
	return r, nil
}

// Remove takes recipeID out of userID's set.
func (s *MembershipService) Remove(ctx context.Context, set domain.MembershipSet, userID, recipeID uint) (err error) {
	ctx, span := otel.Tracer("services/MembershipService").Start(ctx, "Remove",
		trace.WithAttributes(
			attribute.String("set", string(set)),
			attribute.Int64("user.id", int64(userID)),
			attribute.Int64("recipe.id", int64(recipeID)),
		),
	)
	defer span.End()
	defer func() {
		if err != nil {
			span.RecordError(err)
		}
		metricsOrNoop(s.Metrics).MembershipChange(string(set), "remove", outcome(err))
	}()

	if !set.Valid() {
		return fmt.Errorf("membership: unknown set %q", set)
	}
	_, absent := membershipErrors(set)

	if _, err := repo.GetRecipeRow(ctx, s.DB, recipeID); err != nil {
		if isNotFound(err) {
			return ErrRecipeNotFound
		}
		return err
	}
	if err := repo.RemoveMembership(ctx, s.DB, set, userID, recipeID); err != nil {
		if isNotFound(err) {
			return absent
		}
		return err
	}
	return nil
}
