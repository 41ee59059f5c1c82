// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// (user, recipe) membership sets: favorites and shopping cart.
//
// Both sets share the same shape, so one set of functions serves both,
// selected by domain.MembershipSet. Uniqueness of (user_id, recipe_id) is
// enforced by the database; a duplicate add surfaces as a raw unique
// violation for the service layer to translate.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-recipes-backend/internal/domain"
)

// AddMembership inserts (userID, recipeID) into set.
func AddMembership(ctx context.Context, db *gorm.DB, set domain.MembershipSet, userID, recipeID uint) error {
	return db.WithContext(ctx).Create(set.NewRow(userID, recipeID)).Error
}

// RemoveMembership deletes (userID, recipeID) from set, or returns
// ErrNotFound if it was not a member.
func RemoveMembership(ctx context.Context, db *gorm.DB, set domain.MembershipSet, userID, recipeID uint) error {
	res := db.WithContext(ctx).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Delete(set.Model())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MembersAmong reports which of recipeIDs are in userID's set.
func MembersAmong(ctx context.Context, db *gorm.DB, set domain.MembershipSet, userID uint, recipeIDs []uint) (map[uint]bool, error) {
	out := make(map[uint]bool, len(recipeIDs))
	if userID == 0 || len(recipeIDs) == 0 {
		return out, nil
	}
	var ids []uint
	err := db.WithContext(ctx).
		Model(set.Model()).
		Where("user_id = ? AND recipe_id IN ?", userID, recipeIDs).
		Pluck("recipe_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

// CountMembers returns the size of userID's set.
func CountMembers(ctx context.Context, db *gorm.DB, set domain.MembershipSet, userID uint) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(set.Model()).
		Where("user_id = ?", userID).
		Count(&total).Error
	return total, err
}
