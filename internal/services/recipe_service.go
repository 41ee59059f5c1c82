// Package services – RecipeService
//
// This file implements the recipe write path and the read representation.
//
// Writes:
//   - Create persists the recipe row, its tag links and one ingredient row
//     per entry in a single transaction.
//   - Update is partial. Tags and ingredients are replaced wholesale when
//     provided (old ingredient rows are deleted, new ones inserted).
//   - Only the author may update or delete (ErrNotAuthor).
//   - Create requires tags (an empty list is fine).
//   - Inputs are validated before touching the store: cooking_time >= 1,
//     at least one ingredient, amount >= 1, no duplicate ingredient or tag
//     ids, and every referenced id must exist.
//   - Images are stored only after validation passes. A stored image is
//     removed again when the write fails, and a replaced or deleted
//     recipe's old image is removed after the commit.
//
// Reads return RecipeView values annotated for the viewer (favorited,
// in cart, subscribed to the author).
//
// Observability: public methods are OpenTelemetry-instrumented and report
// outcomes to the optional Metrics sink.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-recipes-backend/internal/domain"
	"github.com/tbourn/go-recipes-backend/internal/repo"
	"github.com/tbourn/go-recipes-backend/internal/storage"
)

const recipeNameMax = 200

// ScopeRecipeCreate namespaces Idempotency-Key records written by recipe
// creation.
const ScopeRecipeCreate = "recipes.create"

// IngredientAmount is one ingredient entry of a recipe write.
type IngredientAmount struct {
	ID     uint
	Amount int
}

// RecipeInput carries a recipe write. For updates, nil pointers and nil
// slices mean "leave unchanged"; a non-nil empty Tags slice clears tags.
type RecipeInput struct {
	Name        *string
	Text        *string
	Image       *string // base64 data URI
	CookingTime *int
	Tags        []uint
	Ingredients []IngredientAmount
}

// RecipeQuery filters recipe listings.
type RecipeQuery struct {
	AuthorID         uint
	Tags             []string
	IsFavorited      bool
	IsInShoppingCart bool
}

// RecipeView is a recipe annotated for a viewer.
type RecipeView struct {
	Recipe           domain.Recipe
	AuthorSubscribed bool
	IsFavorited      bool
	IsInShoppingCart bool
}

// RecipeService owns the recipe aggregate.
type RecipeService struct {
	DB             *gorm.DB
	Images         storage.ImageStore
	Metrics        Metrics
	IdempotencyTTL time.Duration
}

// NewRecipeService constructs a RecipeService.
func NewRecipeService(db *gorm.DB, images storage.ImageStore, m Metrics, idemTTL time.Duration) *RecipeService {
	if idemTTL <= 0 {
		idemTTL = 24 * time.Hour
	}
	return &RecipeService{DB: db, Images: images, Metrics: metricsOrNoop(m), IdempotencyTTL: idemTTL}
}

func (s *RecipeService) tracer() trace.Tracer { return otel.Tracer("services/RecipeService") }

// Create validates in and persists a new recipe owned by authorID.
func (s *RecipeService) Create(ctx context.Context, authorID uint, in RecipeInput) (*RecipeView, error) {
	v, _, err := s.CreateIdempotent(ctx, authorID, "", in)
	return v, err
}

// CreateIdempotent is Create keyed by a client-supplied idempotency key.
// A repeated key from the same author returns the originally created
// recipe with replayed=true instead of creating a second one. An empty key
// disables the check.
func (s *RecipeService) CreateIdempotent(ctx context.Context, authorID uint, key string, in RecipeInput) (view *RecipeView, replayed bool, err error) {
	ctx, span := s.tracer().Start(ctx, "Create",
		trace.WithAttributes(
			attribute.Int64("user.id", int64(authorID)),
			attribute.Bool("idempotent", key != ""),
		),
	)
	defer span.End()
	defer func() {
		if err != nil {
			span.RecordError(err)
		}
		op := "create"
		if replayed {
			op = "create_replay"
		}
		metricsOrNoop(s.Metrics).RecipeWrite(op, outcome(err))
	}()

	key = strings.TrimSpace(key)
	if key != "" {
		if v, ok, err := s.replay(ctx, authorID, key); err != nil || ok {
			return v, ok, err
		}
	}

	if err := validateRecipe(in, true); err != nil {
		return nil, false, err
	}
	if err := checkRefs(ctx, s.DB, in); err != nil {
		return nil, false, err
	}
	image, err := s.storeImage(ctx, *in.Image)
	if err != nil {
		return nil, false, err
	}

	r := &domain.Recipe{
		AuthorID:    authorID,
		Name:        strings.TrimSpace(*in.Name),
		Text:        strings.TrimSpace(*in.Text),
		Image:       image,
		CookingTime: *in.CookingTime,
		PubDate:     time.Now().UTC(),
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.CreateRecipe(ctx, tx, r); err != nil {
			return err
		}
		if err := writeAssociations(ctx, tx, r.ID, in); err != nil {
			return err
		}
		if key != "" {
			if _, err := repo.CreateIdempotency(ctx, tx, authorID, ScopeRecipeCreate, key, r.ID, 201, s.IdempotencyTTL); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.discardImage(ctx, image)
	}
	if errors.Is(err, repo.ErrDuplicate) {
		// A concurrent request with the same key won; our insert rolled back.
		v, ok, rerr := s.replay(ctx, authorID, key)
		if rerr == nil && ok {
			return v, true, nil
		}
		return nil, false, ErrIdempotencyInFlight
	}
	if err != nil {
		return nil, false, mapWriteErr(err)
	}
	span.SetAttributes(attribute.Int64("recipe.id", int64(r.ID)))
	v, err := s.Get(ctx, authorID, r.ID)
	return v, false, err
}

func (s *RecipeService) replay(ctx context.Context, authorID uint, key string) (*RecipeView, bool, error) {
	rec, err := repo.GetIdempotency(ctx, s.DB, authorID, ScopeRecipeCreate, key, time.Now())
	if err != nil {
		if isNotFound(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	v, err := s.Get(ctx, authorID, rec.ResourceID)
	if errors.Is(err, ErrRecipeNotFound) {
		// The recipe was deleted since; release the key.
		return nil, false, repo.DeleteIdempotency(ctx, s.DB, authorID, ScopeRecipeCreate, key)
	}
	return v, err == nil, err
}

// Update applies a partial update. Only the author may update.
func (s *RecipeService) Update(ctx context.Context, userID, id uint, in RecipeInput) (v *RecipeView, err error) {
	ctx, span := s.tracer().Start(ctx, "Update",
		trace.WithAttributes(
			attribute.Int64("user.id", int64(userID)),
			attribute.Int64("recipe.id", int64(id)),
		),
	)
	defer span.End()
	defer func() {
		if err != nil {
			span.RecordError(err)
		}
		metricsOrNoop(s.Metrics).RecipeWrite("update", outcome(err))
	}()

	current, err := s.authorize(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := validateRecipe(in, false); err != nil {
		return nil, err
	}
	if err := checkRefs(ctx, s.DB, in); err != nil {
		return nil, err
	}

	cols := map[string]any{}
	if in.Name != nil {
		cols["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Text != nil {
		cols["text"] = strings.TrimSpace(*in.Text)
	}
	if in.CookingTime != nil {
		cols["cooking_time"] = *in.CookingTime
	}
	image := ""
	if in.Image != nil {
		image, err = s.storeImage(ctx, *in.Image)
		if err != nil {
			return nil, err
		}
		cols["image"] = image
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.UpdateRecipeColumns(ctx, tx, id, cols); err != nil {
			return err
		}
		return writeAssociations(ctx, tx, id, in)
	})
	if err != nil {
		s.discardImage(ctx, image)
		if isNotFound(err) {
			return nil, ErrRecipeNotFound
		}
		return nil, mapWriteErr(err)
	}
	if image != "" {
		s.discardImage(ctx, current.Image)
	}
	return s.Get(ctx, userID, id)
}

// Delete removes a recipe with its dependent rows. Only the author may delete.
func (s *RecipeService) Delete(ctx context.Context, userID, id uint) (err error) {
	defer func() { metricsOrNoop(s.Metrics).RecipeWrite("delete", outcome(err)) }()

	current, err := s.authorize(ctx, userID, id)
	if err != nil {
		return err
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return repo.DeleteRecipe(ctx, tx, id)
	})
	if isNotFound(err) {
		return ErrRecipeNotFound
	}
	if err == nil {
		s.discardImage(ctx, current.Image)
	}
	return err
}

// authorize loads recipe id and checks that userID wrote it.
func (s *RecipeService) authorize(ctx context.Context, userID, id uint) (*domain.Recipe, error) {
	r, err := repo.GetRecipeRow(ctx, s.DB, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrRecipeNotFound
		}
		return nil, err
	}
	if r.AuthorID != userID {
		return nil, ErrNotAuthor
	}
	return r, nil
}

// Get returns recipe id as seen by viewerID (0 for anonymous).
func (s *RecipeService) Get(ctx context.Context, viewerID, id uint) (*RecipeView, error) {
	r, err := repo.GetRecipe(ctx, s.DB, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrRecipeNotFound
		}
		return nil, err
	}
	views, err := s.decorate(ctx, viewerID, []domain.Recipe{*r})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// List returns one page of recipes matching q, newest first, and the total.
// Viewer-relative filters are ignored for anonymous viewers.
func (s *RecipeService) List(ctx context.Context, viewerID uint, q RecipeQuery, page, pageSize int) ([]RecipeView, int64, error) {
	ctx, span := s.tracer().Start(ctx, "List",
		trace.WithAttributes(
			attribute.Int64("user.id", int64(viewerID)),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	_, pageSize, offset := pageOffset(page, pageSize)
	f := repo.RecipeFilter{AuthorID: q.AuthorID, TagSlugs: q.Tags}
	if viewerID != 0 && q.IsFavorited {
		f.FavoritedBy = viewerID
	}
	if viewerID != 0 && q.IsInShoppingCart {
		f.InCartOf = viewerID
	}

	total, err := repo.CountRecipes(ctx, s.DB, f)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []RecipeView{}, 0, nil
	}
	recipes, err := repo.ListRecipesPage(ctx, s.DB, f, offset, pageSize)
	if err != nil {
		return nil, 0, err
	}
	views, err := s.decorate(ctx, viewerID, recipes)
	return views, total, err
}

func (s *RecipeService) decorate(ctx context.Context, viewerID uint, recipes []domain.Recipe) ([]RecipeView, error) {
	recipeIDs := make([]uint, 0, len(recipes))
	authorIDs := make([]uint, 0, len(recipes))
	for _, r := range recipes {
		recipeIDs = append(recipeIDs, r.ID)
		authorIDs = append(authorIDs, r.AuthorID)
	}
	fav, err := repo.MembersAmong(ctx, s.DB, domain.SetFavorites, viewerID, recipeIDs)
	if err != nil {
		return nil, err
	}
	cart, err := repo.MembersAmong(ctx, s.DB, domain.SetShoppingCart, viewerID, recipeIDs)
	if err != nil {
		return nil, err
	}
	followed, err := repo.FollowedAmong(ctx, s.DB, viewerID, authorIDs)
	if err != nil {
		return nil, err
	}
	out := make([]RecipeView, 0, len(recipes))
	for _, r := range recipes {
		out = append(out, RecipeView{
			Recipe:           r,
			AuthorSubscribed: followed[r.AuthorID],
			IsFavorited:      fav[r.ID],
			IsInShoppingCart: cart[r.ID],
		})
	}
	return out, nil
}

func (s *RecipeService) storeImage(ctx context.Context, dataURI string) (string, error) {
	img, err := storage.DecodeDataURI(dataURI)
	if err != nil {
		return "", Invalid("image", err.Error())
	}
	if s.Images == nil {
		return "", errors.New("recipe service: no image store configured")
	}
	return s.Images.Put(ctx, storage.NewKey(img.Ext), img.ContentType, img.Data)
}

// discardImage removes a stored image that no recipe references. Failures are
// logged; the recipe write has already been decided.
func (s *RecipeService) discardImage(ctx context.Context, url string) {
	key, ok := storage.KeyFromURL(url)
	if !ok || s.Images == nil {
		return
	}
	if err := s.Images.Delete(ctx, key); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("recipe image cleanup failed")
	}
}

// validateRecipe checks field-level rules. On create every field is required.
func validateRecipe(in RecipeInput, create bool) error {
	verr := &ValidationError{}
	required := func(field string, present bool) bool {
		if !present && create {
			verr.Add(field, "this field is required")
		}
		return present
	}

	if required("name", in.Name != nil) {
		n := utf8.RuneCountInString(strings.TrimSpace(*in.Name))
		if n == 0 {
			verr.Add("name", "must not be blank")
		} else if n > recipeNameMax {
			verr.Add("name", fmt.Sprintf("must be at most %d characters", recipeNameMax))
		}
	}
	if required("text", in.Text != nil) && strings.TrimSpace(*in.Text) == "" {
		verr.Add("text", "must not be blank")
	}
	if required("image", in.Image != nil) && strings.TrimSpace(*in.Image) == "" {
		verr.Add("image", "must not be blank")
	}
	if required("cooking_time", in.CookingTime != nil) && *in.CookingTime < 1 {
		verr.Add("cooking_time", "must be at least 1")
	}
	if required("ingredients", in.Ingredients != nil) {
		if len(in.Ingredients) == 0 {
			verr.Add("ingredients", "at least one ingredient is required")
		}
		seen := make(map[uint]bool, len(in.Ingredients))
		for _, ia := range in.Ingredients {
			if ia.Amount < 1 {
				verr.Add("ingredients", fmt.Sprintf("amount for ingredient %d must be at least 1", ia.ID))
			}
			if seen[ia.ID] {
				verr.Add("ingredients", fmt.Sprintf("ingredient %d is listed more than once", ia.ID))
			}
			seen[ia.ID] = true
		}
	}
	required("tags", in.Tags != nil)
	seen := make(map[uint]bool, len(in.Tags))
	for _, id := range in.Tags {
		if seen[id] {
			verr.Add("tags", fmt.Sprintf("tag %d is listed more than once", id))
		}
		seen[id] = true
	}
	return verr.OrNil()
}

// checkRefs verifies that every referenced tag and ingredient exists.
func checkRefs(ctx context.Context, tx *gorm.DB, in RecipeInput) error {
	verr := &ValidationError{}
	if len(in.Tags) > 0 {
		tags, err := repo.FindTagsByIDs(ctx, tx, in.Tags)
		if err != nil {
			return err
		}
		have := make([]uint, 0, len(tags))
		for _, t := range tags {
			have = append(have, t.ID)
		}
		if id, ok := firstMissing(in.Tags, have); ok {
			verr.Add("tags", fmt.Sprintf("tag %d does not exist", id))
		}
	}
	if len(in.Ingredients) > 0 {
		ids := make([]uint, 0, len(in.Ingredients))
		for _, ia := range in.Ingredients {
			ids = append(ids, ia.ID)
		}
		items, err := repo.FindIngredientsByIDs(ctx, tx, ids)
		if err != nil {
			return err
		}
		have := make([]uint, 0, len(items))
		for _, i := range items {
			have = append(have, i.ID)
		}
		if id, ok := firstMissing(ids, have); ok {
			verr.Add("ingredients", fmt.Sprintf("ingredient %d does not exist", id))
		}
	}
	return verr.OrNil()
}

func firstMissing(want, have []uint) (uint, bool) {
	found := make(map[uint]bool, len(have))
	for _, id := range have {
		found[id] = true
	}
	for _, id := range want {
		if !found[id] {
			return id, true
		}
	}
	return 0, false
}

func writeAssociations(ctx context.Context, tx *gorm.DB, recipeID uint, in RecipeInput) error {
	if in.Tags != nil {
		if err := repo.ReplaceRecipeTags(ctx, tx, recipeID, in.Tags); err != nil {
			return err
		}
	}
	if in.Ingredients != nil {
		items := make([]domain.RecipeIngredient, 0, len(in.Ingredients))
		for _, ia := range in.Ingredients {
			items = append(items, domain.RecipeIngredient{IngredientID: ia.ID, Amount: ia.Amount})
		}
		if err := repo.ReplaceRecipeIngredients(ctx, tx, recipeID, items); err != nil {
			return err
		}
	}
	return nil
}

// mapWriteErr converts constraint failures that slipped past validation.
func mapWriteErr(err error) error {
	switch {
	case isDuplicate(err):
		return Invalid("ingredients", "duplicate ingredient in recipe")
	case repo.IsCheckViolation(err):
		return Invalid("recipe", "value out of range")
	default:
		return err
	}
}
