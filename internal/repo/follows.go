// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for Follow edges.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-recipes-backend/internal/domain"
)

// CreateFollow inserts the edge userID -> authorID. A duplicate edge or a
// self-follow surfaces as a raw constraint error.
func CreateFollow(ctx context.Context, db *gorm.DB, userID, authorID uint) error {
	f := &domain.Follow{UserID: userID, AuthorID: authorID, CreatedAt: time.Now().UTC()}
	return db.WithContext(ctx).Create(f).Error
}

// DeleteFollow removes the edge, or returns ErrNotFound if it did not exist.
func DeleteFollow(ctx context.Context, db *gorm.DB, userID, authorID uint) error {
	res := db.WithContext(ctx).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Delete(&domain.Follow{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FollowedAmong reports which of authorIDs are followed by userID.
func FollowedAmong(ctx context.Context, db *gorm.DB, userID uint, authorIDs []uint) (map[uint]bool, error) {
	out := make(map[uint]bool, len(authorIDs))
	if userID == 0 || len(authorIDs) == 0 {
		return out, nil
	}
	var ids []uint
	err := db.WithContext(ctx).
		Model(&domain.Follow{}).
		Where("user_id = ? AND author_id IN ?", userID, authorIDs).
		Pluck("author_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

// CountFollowing returns how many authors userID follows.
func CountFollowing(ctx context.Context, db *gorm.DB, userID uint) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Follow{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	return total, err
}

// ListFollowingPage returns the authors followed by userID, most recently
// followed first.
func ListFollowingPage(ctx context.Context, db *gorm.DB, userID uint, offset, limit int) ([]domain.User, error) {
	var out []domain.User
	err := db.WithContext(ctx).
		Model(&domain.User{}).
		Joins("JOIN follows ON follows.author_id = users.id").
		Where("follows.user_id = ?", userID).
		Order("follows.created_at DESC, follows.id DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
