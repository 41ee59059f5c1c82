// Package services defines the business logic for users, follows, the
// catalog, recipes, favorites/shopping cart and the shopping list. This file
// centralizes service-level error values so that they can be consistently
// returned by service methods and checked by callers.
//
// Every sentinel wraps exactly one kind (ErrValidation, ErrConflict,
// ErrNotFound, ErrPermission, ErrUnauthenticated), so callers can branch on
// the kind with errors.Is and still match a specific sentinel when needed.
// Translation into HTTP status codes is performed at the handler layer.
package services

import (
	"errors"
	"sort"
	"strings"
)

// Error kinds.
var (
	ErrValidation      = errors.New("validation failed")
	ErrConflict        = errors.New("conflict")
	ErrNotFound        = errors.New("not found")
	ErrPermission      = errors.New("permission denied")
	ErrUnauthenticated = errors.New("unauthenticated")
)

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

func newError(kind error, msg string) error { return &kindError{kind: kind, msg: msg} }

// Entity lookups.
var (
	ErrRecipeNotFound     = newError(ErrNotFound, "recipe not found")
	ErrUserNotFound       = newError(ErrNotFound, "user not found")
	ErrTagNotFound        = newError(ErrNotFound, "tag not found")
	ErrIngredientNotFound = newError(ErrNotFound, "ingredient not found")
)

// Membership sets and follows.
var (
	ErrAlreadyFavorited = newError(ErrConflict, "recipe is already in favorites")
	ErrNotFavorited     = newError(ErrNotFound, "recipe is not in favorites")
	ErrAlreadyInCart    = newError(ErrConflict, "recipe is already in the shopping cart")
	ErrNotInCart        = newError(ErrNotFound, "recipe is not in the shopping cart")

	// ErrSelfFollow is returned when a user tries to follow themselves.
	ErrSelfFollow       = newError(ErrValidation, "you cannot subscribe to yourself")
	ErrAlreadyFollowing = newError(ErrConflict, "you are already subscribed to this author")
	ErrNotFollowing     = newError(ErrNotFound, "you are not subscribed to this author")

	// ErrEmptyCart is returned when a shopping list is requested for an empty cart.
	ErrEmptyCart = newError(ErrValidation, "shopping cart is empty")
)

// Recipes.
var (
	// ErrNotAuthor is returned when someone other than the author attempts
	// to modify or delete a recipe.
	ErrNotAuthor = newError(ErrPermission, "only the author can modify this recipe")

	// ErrIdempotencyInFlight is returned when a request with the same
	// idempotency key committed concurrently and cannot be replayed yet.
	ErrIdempotencyInFlight = newError(ErrConflict, "a request with this idempotency key is already being processed")
)

// Accounts and tokens.
var (
	ErrEmailTaken         = newError(ErrConflict, "a user with this email already exists")
	ErrUsernameTaken      = newError(ErrConflict, "a user with this username already exists")
	ErrInvalidCredentials = newError(ErrValidation, "unable to log in with provided credentials")
	ErrInactiveUser       = newError(ErrValidation, "account is not active")
	ErrWrongPassword      = newError(ErrValidation, "current password is incorrect")
	ErrInvalidToken       = newError(ErrUnauthenticated, "invalid or expired token")
	ErrTokenRevoked       = newError(ErrUnauthenticated, "token has been revoked")
	ErrTokenUserInactive  = newError(ErrUnauthenticated, "user is inactive or deleted")
)

// ValidationError reports one or more invalid input fields.
// It matches ErrValidation with errors.Is.
type ValidationError struct {
	Fields map[string]string
}

// Error renders fields in a stable order: "field: message; ...".
func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return strings.Join(parts, "; ")
}

// Unwrap makes errors.Is(err, ErrValidation) true.
func (e *ValidationError) Unwrap() error { return ErrValidation }

// Add records msg for field, keeping the first message per field.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

// OrNil returns e when at least one field was recorded, else nil.
func (e *ValidationError) OrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// Invalid builds a single-field ValidationError.
func Invalid(field, msg string) error {
	v := &ValidationError{}
	v.Add(field, msg)
	return v
}
