// Package recipes is the ownership-scoped layer over tags, ingredients and
// recipes. Every operation takes the acting user's id; rows owned by anyone
// else behave exactly like rows that do not exist.
package recipes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/geocoder89/recipehub/internal/apperr"
	"github.com/geocoder89/recipehub/internal/domain/recipe"
	"github.com/geocoder89/recipehub/internal/images"
	"github.com/geocoder89/recipehub/internal/observability"
)

type LabelStore interface {
	List(ctx context.Context, kind recipe.Kind, userID string) ([]recipe.Label, error)
	GetMany(ctx context.Context, kind recipe.Kind, userID string, ids []int64) ([]recipe.Label, error)
	Get(ctx context.Context, kind recipe.Kind, userID string, id int64) (recipe.Label, error)
	Create(ctx context.Context, kind recipe.Kind, userID, name string) (recipe.Label, error)
	Rename(ctx context.Context, kind recipe.Kind, userID string, id int64, name string) (recipe.Label, error)
	Delete(ctx context.Context, kind recipe.Kind, userID string, id int64) error
}

type RecipeStore interface {
	List(ctx context.Context, userID string) ([]recipe.Recipe, error)
	Get(ctx context.Context, userID string, id int64) (recipe.Recipe, error)
	Create(ctx context.Context, rc recipe.Recipe) (recipe.Recipe, error)
	Update(ctx context.Context, userID string, id int64, c recipe.Changes) (recipe.Recipe, error)
	SetImage(ctx context.Context, userID string, id int64, key string) (string, error)
	Delete(ctx context.Context, userID string, id int64) (recipe.Recipe, error)
}

type Service struct {
	labels  LabelStore
	recipes RecipeStore
	blobs   images.BlobStore
	log     *slog.Logger
	prom    *observability.Prom

	newSuffix func() (string, error)
}

func NewService(labels LabelStore, recipes RecipeStore, blobs images.BlobStore, log *slog.Logger, prom *observability.Prom) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		labels:    labels,
		recipes:   recipes,
		blobs:     blobs,
		log:       log,
		prom:      prom,
		newSuffix: images.NewSuffix,
	}
}

// Detail is a recipe with its tags and ingredients expanded.
type Detail struct {
	recipe.Recipe
	Tags        []recipe.Label
	Ingredients []recipe.Label
}

var errNotFound = apperr.NotFound("Not found.")

// mapErr turns store errors into coded errors.
func mapErr(op string, err error) error {
	if errors.Is(err, recipe.ErrNotFound) {
		return errNotFound
	}

	var relErr *recipe.RelationError
	if errors.As(err, &relErr) {
		id := ""
		if len(relErr.IDs) > 0 {
			id = strconv.FormatInt(relErr.IDs[0], 10)
		}
		return apperr.Invalid(relErr.Kind.Field(), "does_not_exist",
			fmt.Sprintf("Invalid pk %q - object does not exist.", id))
	}

	var coded *apperr.Error
	if errors.As(err, &coded) {
		return coded
	}

	return apperr.Internal(op, err)
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperr.Invalid("name", "required", "This field may not be blank.")
	}
	return name, nil
}

func (s *Service) ListLabels(ctx context.Context, kind recipe.Kind, userID string) ([]recipe.Label, error) {
	out, err := s.labels.List(ctx, kind, userID)
	if err != nil {
		return nil, mapErr("list "+string(kind), err)
	}
	return out, nil
}

func (s *Service) GetLabel(ctx context.Context, kind recipe.Kind, userID string, id int64) (recipe.Label, error) {
	l, err := s.labels.Get(ctx, kind, userID, id)
	if err != nil {
		return recipe.Label{}, mapErr("get "+string(kind), err)
	}
	return l, nil
}

// CreateLabel always assigns the label to userID.
func (s *Service) CreateLabel(ctx context.Context, kind recipe.Kind, userID, name string) (recipe.Label, error) {
	name, err := cleanName(name)
	if err != nil {
		return recipe.Label{}, err
	}

	l, err := s.labels.Create(ctx, kind, userID, name)
	if err != nil {
		return recipe.Label{}, mapErr("create "+string(kind), err)
	}
	return l, nil
}

// UpdateLabel renames the label. A nil name is a no-op that still checks
// ownership.
func (s *Service) UpdateLabel(ctx context.Context, kind recipe.Kind, userID string, id int64, name *string) (recipe.Label, error) {
	if name == nil {
		return s.GetLabel(ctx, kind, userID, id)
	}

	clean, err := cleanName(*name)
	if err != nil {
		return recipe.Label{}, err
	}

	l, err := s.labels.Rename(ctx, kind, userID, id, clean)
	if err != nil {
		return recipe.Label{}, mapErr("rename "+string(kind), err)
	}
	return l, nil
}

func (s *Service) DeleteLabel(ctx context.Context, kind recipe.Kind, userID string, id int64) error {
	if err := s.labels.Delete(ctx, kind, userID, id); err != nil {
		return mapErr("delete "+string(kind), err)
	}
	return nil
}

func (s *Service) ListRecipes(ctx context.Context, userID string) ([]recipe.Recipe, error) {
	out, err := s.recipes.List(ctx, userID)
	if err != nil {
		return nil, mapErr("list recipes", err)
	}
	return out, nil
}

func (s *Service) GetRecipe(ctx context.Context, userID string, id int64) (recipe.Recipe, error) {
	rc, err := s.recipes.Get(ctx, userID, id)
	if err != nil {
		return recipe.Recipe{}, mapErr("get recipe", err)
	}
	return rc, nil
}

func (s *Service) GetRecipeDetail(ctx context.Context, userID string, id int64) (Detail, error) {
	rc, err := s.GetRecipe(ctx, userID, id)
	if err != nil {
		return Detail{}, err
	}

	tags, err := s.labels.GetMany(ctx, recipe.KindTag, userID, rc.TagIDs)
	if err != nil {
		return Detail{}, mapErr("load tags", err)
	}

	ingredients, err := s.labels.GetMany(ctx, recipe.KindIngredient, userID, rc.IngredientIDs)
	if err != nil {
		return Detail{}, mapErr("load ingredients", err)
	}

	return Detail{Recipe: rc, Tags: tags, Ingredients: ingredients}, nil
}

func validateChanges(c recipe.Changes) error {
	if c.Title != nil && strings.TrimSpace(*c.Title) == "" {
		return apperr.Invalid("title", "required", "This field may not be blank.")
	}
	if c.TimeMinutes != nil && *c.TimeMinutes < 0 {
		return apperr.Invalid("time_minutes", "min", "Ensure this value is greater than or equal to 0.")
	}
	if c.Price != nil && !c.Price.Valid() {
		return apperr.Invalid("price", "price", "Ensure that there are no more than 5 digits in total and 2 decimal places.")
	}
	return nil
}

// CreateRecipe stores a new recipe owned by userID. c must come from a full
// payload (CreateRecipeRequest.Changes).
func (s *Service) CreateRecipe(ctx context.Context, userID string, c recipe.Changes) (recipe.Recipe, error) {
	if err := validateChanges(c); err != nil {
		return recipe.Recipe{}, err
	}

	rc, err := s.recipes.Create(ctx, recipe.New(userID, c))
	if err != nil {
		return recipe.Recipe{}, mapErr("create recipe", err)
	}

	s.log.InfoContext(ctx, "recipe created", "recipe_id", rc.ID, "user_id", userID)
	return rc, nil
}

// UpdateRecipe applies c to an owned recipe. Full updates come in with every
// field set (absent relations as empty sets); partial updates only carry what
// the client sent.
func (s *Service) UpdateRecipe(ctx context.Context, userID string, id int64, c recipe.Changes) (recipe.Recipe, error) {
	if err := validateChanges(c); err != nil {
		return recipe.Recipe{}, err
	}

	rc, err := s.recipes.Update(ctx, userID, id, c)
	if err != nil {
		return recipe.Recipe{}, mapErr("update recipe", err)
	}
	return rc, nil
}

// DeleteRecipe removes an owned recipe and its image blob.
func (s *Service) DeleteRecipe(ctx context.Context, userID string, id int64) error {
	rc, err := s.recipes.Delete(ctx, userID, id)
	if err != nil {
		return mapErr("delete recipe", err)
	}

	if err := s.DeleteImage(ctx, rc); err != nil {
		// the row is gone; an orphaned blob is only logged
		s.log.WarnContext(ctx, "recipe image cleanup failed", "recipe_id", rc.ID, "key", rc.Image, "err", err)
	}
	return nil
}

func (s *Service) ImageURL(key string) string {
	if key == "" {
		return ""
	}
	return s.blobs.URL(key)
}

func (s *Service) countUpload(result string) {
	if s.prom != nil {
		s.prom.ImageUploads.WithLabelValues(result).Inc()
	}
}

// UploadImage validates data, stores it as a new blob, points the recipe at
// it and then drops the previous blob. An invalid payload changes nothing.
func (s *Service) UploadImage(ctx context.Context, userID string, id int64, data []byte) (recipe.Recipe, string, error) {
	rc, err := s.GetRecipe(ctx, userID, id)
	if err != nil {
		return recipe.Recipe{}, "", err
	}

	format, err := images.Validate(data)
	if err != nil {
		s.countUpload("invalid")
		return recipe.Recipe{}, "", apperr.Invalid("image", "invalid_image", images.InvalidImageMessage)
	}

	suffix, err := s.newSuffix()
	if err != nil {
		s.countUpload("error")
		return recipe.Recipe{}, "", apperr.Internal("image key", err)
	}
	key := images.Key(rc.ID, format, suffix)

	url, err := s.blobs.Put(ctx, key, data, format.ContentType())
	if err != nil {
		s.countUpload("error")
		return recipe.Recipe{}, "", apperr.Internal("store image", err)
	}

	prev, err := s.recipes.SetImage(ctx, userID, rc.ID, key)
	if err != nil {
		s.countUpload("error")
		if delErr := s.blobs.Delete(ctx, key); delErr != nil {
			s.log.WarnContext(ctx, "orphaned image blob", "key", key, "err", delErr)
		}
		return recipe.Recipe{}, "", mapErr("record image", err)
	}

	if prev != "" && prev != key {
		if err := s.blobs.Delete(ctx, prev); err != nil {
			s.log.WarnContext(ctx, "previous image cleanup failed", "recipe_id", rc.ID, "key", prev, "err", err)
		}
	}

	s.countUpload("stored")
	rc.Image = key
	return rc, url, nil
}

// DeleteImage removes the recipe's blob and clears the reference if the
// recipe still exists. No-op without an image.
func (s *Service) DeleteImage(ctx context.Context, rc recipe.Recipe) error {
	if rc.Image == "" {
		return nil
	}

	if err := s.blobs.Delete(ctx, rc.Image); err != nil {
		return fmt.Errorf("delete image blob: %w", err)
	}

	if _, err := s.recipes.SetImage(ctx, rc.UserID, rc.ID, ""); err != nil && !errors.Is(err, recipe.ErrNotFound) {
		return fmt.Errorf("clear image reference: %w", err)
	}
	return nil
}
