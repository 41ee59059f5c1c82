// Package services – UserService
//
// This file implements account registration, lookup and password changes.
// Passwords are stored as bcrypt hashes. Email and username uniqueness is
// enforced by the database; violations are mapped to ErrEmailTaken and
// ErrUsernameTaken.
package services

import (
	"context"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/tbourn/go-recipes-backend/internal/domain"
	"github.com/tbourn/go-recipes-backend/internal/repo"
)

// RegisterInput carries the fields of a new account.
type RegisterInput struct {
	Email     string
	Username  string
	FirstName string
	LastName  string
	Password  string
}

// UserView is a user as seen by a viewer.
type UserView struct {
	User         domain.User
	IsSubscribed bool
}

// UserService manages accounts.
type UserService struct {
	DB *gorm.DB

	// HashCost is the bcrypt cost; tests lower it to bcrypt.MinCost.
	HashCost int
}

// NewUserService constructs a UserService with the default bcrypt cost.
func NewUserService(db *gorm.DB) *UserService {
	return &UserService{DB: db, HashCost: bcrypt.DefaultCost}
}

// Register creates an active account.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	verr := &ValidationError{}
	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	if in.Email == "" {
		verr.Add("email", "this field is required")
	}
	if in.Username == "" {
		verr.Add("username", "this field is required")
	}
	if len(in.Password) < 8 {
		verr.Add("password", "must be at least 8 characters")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost())
	if err != nil {
		return nil, err
	}
	u := &domain.User{
		Email:        in.Email,
		Username:     in.Username,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		PasswordHash: string(hash),
		IsActive:     true,
	}
	if err := repo.CreateUser(ctx, s.DB, u); err != nil {
		if isDuplicate(err) {
			return nil, s.whichTaken(ctx, u)
		}
		return nil, err
	}
	return u, nil
}

// whichTaken decides which unique field collided.
func (s *UserService) whichTaken(ctx context.Context, u *domain.User) error {
	if _, err := repo.GetUserByEmail(ctx, s.DB, u.Email); err == nil {
		return ErrEmailTaken
	}
	return ErrUsernameTaken
}

// Get returns user id as seen by viewerID (0 for anonymous).
func (s *UserService) Get(ctx context.Context, viewerID, id uint) (*UserView, error) {
	u, err := repo.GetUser(ctx, s.DB, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	followed, err := repo.FollowedAmong(ctx, s.DB, viewerID, []uint{u.ID})
	if err != nil {
		return nil, err
	}
	return &UserView{User: *u, IsSubscribed: followed[u.ID]}, nil
}

// ListPage returns one page of users and the total count.
func (s *UserService) ListPage(ctx context.Context, viewerID uint, page, pageSize int) ([]UserView, int64, error) {
	_, pageSize, offset := pageOffset(page, pageSize)
	total, err := repo.CountUsers(ctx, s.DB)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []UserView{}, 0, nil
	}
	users, err := repo.ListUsersPage(ctx, s.DB, offset, pageSize)
	if err != nil {
		return nil, 0, err
	}
	ids := make([]uint, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	followed, err := repo.FollowedAmong(ctx, s.DB, viewerID, ids)
	if err != nil {
		return nil, 0, err
	}
	out := make([]UserView, 0, len(users))
	for _, u := range users {
		out = append(out, UserView{User: u, IsSubscribed: followed[u.ID]})
	}
	return out, total, nil
}

// SetPassword replaces the password after verifying the current one.
func (s *UserService) SetPassword(ctx context.Context, userID uint, current, next string) error {
	if len(next) < 8 {
		return Invalid("new_password", "must be at least 8 characters")
	}
	u, err := repo.GetUser(ctx, s.DB, userID)
	if err != nil {
		if isNotFound(err) {
			return ErrUserNotFound
		}
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)) != nil {
		return ErrWrongPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.cost())
	if err != nil {
		return err
	}
	return repo.UpdatePasswordHash(ctx, s.DB, userID, string(hash))
}

func (s *UserService) cost() int {
	if s.HashCost == 0 {
		return bcrypt.DefaultCost
	}
	return s.HashCost
}
