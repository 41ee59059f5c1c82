// Package services – FollowService
//
// This file implements subscriptions between users. A follow is a directed
// (user, author) edge: self-follows are rejected with ErrSelfFollow,
// duplicates with ErrAlreadyFollowing and unfollowing a non-followed author
// with ErrNotFollowing. Listings annotate each author with their recipe
// count and an optionally limited list of their newest recipes.
package services

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-recipes-backend/internal/domain"
	"github.com/tbourn/go-recipes-backend/internal/repo"
)

// AuthorView is a followed author with a recipe summary.
type AuthorView struct {
	User         domain.User
	IsSubscribed bool
	Recipes      []domain.Recipe
	RecipesCount int64
}

// FollowService manages follow edges.
type FollowService struct {
	DB *gorm.DB
}

// Follow subscribes userID to authorID. recipesLimit bounds the recipe
// list in the returned view (<= 0 means all).
func (s *FollowService) Follow(ctx context.Context, userID, authorID uint, recipesLimit int) (*AuthorView, error) {
	tr := otel.Tracer("services/FollowService")
	ctx, span := tr.Start(ctx, "Follow",
		trace.WithAttributes(
			attribute.Int64("user.id", int64(userID)),
			attribute.Int64("author.id", int64(authorID)),
		),
	)
	defer span.End()

	if userID == authorID {
		return nil, ErrSelfFollow
	}
	var author *domain.User
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u, err := repo.GetUser(ctx, tx, authorID)
		if err != nil {
			if isNotFound(err) {
				return ErrUserNotFound
			}
			return err
		}
		author = u
		if err := repo.CreateFollow(ctx, tx, userID, authorID); err != nil {
			if isDuplicate(err) {
				return ErrAlreadyFollowing
			}
			if repo.IsCheckViolation(err) {
				return ErrSelfFollow
			}
			return err
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	views, err := s.annotate(ctx, []domain.User{*author}, recipesLimit)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// Unfollow removes the edge userID -> authorID.
func (s *FollowService) Unfollow(ctx context.Context, userID, authorID uint) error {
	if _, err := repo.GetUser(ctx, s.DB, authorID); err != nil {
		if isNotFound(err) {
			return ErrUserNotFound
		}
		return err
	}
	if err := repo.DeleteFollow(ctx, s.DB, userID, authorID); err != nil {
		if isNotFound(err) {
			return ErrNotFollowing
		}
		return err
	}
	return nil
}

// Subscriptions lists the authors userID follows, most recent first.
func (s *FollowService) Subscriptions(ctx context.Context, userID uint, page, pageSize, recipesLimit int) ([]AuthorView, int64, error) {
	tr := otel.Tracer("services/FollowService")
	ctx, span := tr.Start(ctx, "Subscriptions",
		trace.WithAttributes(
			attribute.Int64("user.id", int64(userID)),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	_, pageSize, offset := pageOffset(page, pageSize)
	total, err := repo.CountFollowing(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []AuthorView{}, 0, nil
	}
	authors, err := repo.ListFollowingPage(ctx, s.DB, userID, offset, pageSize)
	if err != nil {
		return nil, 0, err
	}
	views, err := s.annotate(ctx, authors, recipesLimit)
	return views, total, err
}

// annotate attaches recipe counts and recipes. Every author passed in is
// followed by the viewer.
func (s *FollowService) annotate(ctx context.Context, authors []domain.User, recipesLimit int) ([]AuthorView, error) {
	ids := make([]uint, 0, len(authors))
	for _, a := range authors {
		ids = append(ids, a.ID)
	}
	counts, err := repo.CountRecipesByAuthors(ctx, s.DB, ids)
	if err != nil {
		return nil, err
	}
	out := make([]AuthorView, 0, len(authors))
	for _, a := range authors {
		recipes, err := repo.ListRecipesByAuthor(ctx, s.DB, a.ID, recipesLimit)
		if err != nil {
			return nil, err
		}
		out = append(out, AuthorView{
			User:         a,
			IsSubscribed: true,
			Recipes:      recipes,
			RecipesCount: counts[a.ID],
		})
	}
	return out, nil
}
