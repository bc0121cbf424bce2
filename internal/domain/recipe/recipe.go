package recipe

import (
	"slices"
	"time"
)

type Recipe struct {
	ID            int64     `json:"id"`
	UserID        string    `json:"-"`
	Title         string    `json:"title"`
	TimeMinutes   int       `json:"time_minutes"`
	Price         Price     `json:"price"`
	Link          string    `json:"link"`
	Image         string    `json:"-"` // blob key, rendered as a URL by handlers
	TagIDs        []int64   `json:"tags"`
	IngredientIDs []int64   `json:"ingredients"`
	CreatedAt     time.Time `json:"-"`
	UpdatedAt     time.Time `json:"-"`
}

// Changes is a set of field writes against a recipe. A nil field is left
// untouched; a non-nil relation pointer replaces the whole set, so a pointer
// to an empty slice clears it.
type Changes struct {
	Title         *string
	TimeMinutes   *int
	Price         *Price
	Link          *string
	TagIDs        *[]int64
	IngredientIDs *[]int64
}

func (c Changes) Apply(r *Recipe) {
	if c.Title != nil {
		r.Title = *c.Title
	}
	if c.TimeMinutes != nil {
		r.TimeMinutes = *c.TimeMinutes
	}
	if c.Price != nil {
		r.Price = c.Price.Normalized()
	}
	if c.Link != nil {
		r.Link = *c.Link
	}
	if c.TagIDs != nil {
		r.TagIDs = UniqueIDs(*c.TagIDs)
	}
	if c.IngredientIDs != nil {
		r.IngredientIDs = UniqueIDs(*c.IngredientIDs)
	}
}

// UniqueIDs returns the ids sorted ascending without duplicates. Never nil.
func UniqueIDs(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	out = append(out, ids...)
	slices.Sort(out)
	return slices.Compact(out)
}

type CreateRecipeRequest struct {
	Title       string  `json:"title" binding:"required,max=255"`
	TimeMinutes *int    `json:"time_minutes" binding:"required,min=0"`
	Price       Price   `json:"price" binding:"required,price"`
	Link        string  `json:"link" binding:"omitempty,max=255"`
	Tags        []int64 `json:"tags" binding:"omitempty,dive,min=1"`
	Ingredients []int64 `json:"ingredients" binding:"omitempty,dive,min=1"`
}

// UpdateRecipeRequest is the PUT payload. Every mutable field is replaced,
// so omitted tags/ingredients clear the relation.
type UpdateRecipeRequest CreateRecipeRequest

// PatchRecipeRequest is the PATCH payload: only present fields change.
type PatchRecipeRequest struct {
	Title       *string  `json:"title" binding:"omitempty,min=1,max=255"`
	TimeMinutes *int     `json:"time_minutes" binding:"omitempty,min=0"`
	Price       *Price   `json:"price" binding:"omitempty,price"`
	Link        *string  `json:"link" binding:"omitempty,max=255"`
	Tags        *[]int64 `json:"tags" binding:"omitempty,dive,min=1"`
	Ingredients *[]int64 `json:"ingredients" binding:"omitempty,dive,min=1"`
}

func (r CreateRecipeRequest) Changes() Changes {
	return fullChanges(r)
}

func (r UpdateRecipeRequest) Changes() Changes {
	return fullChanges(CreateRecipeRequest(r))
}

func (r PatchRecipeRequest) Changes() Changes {
	return Changes{
		Title:         r.Title,
		TimeMinutes:   r.TimeMinutes,
		Price:         r.Price,
		Link:          r.Link,
		TagIDs:        r.Tags,
		IngredientIDs: r.Ingredients,
	}
}

func fullChanges(r CreateRecipeRequest) Changes {
	title := r.Title
	link := r.Link
	price := r.Price
	minutes := 0
	if r.TimeMinutes != nil {
		minutes = *r.TimeMinutes
	}

	tags := UniqueIDs(r.Tags)
	ingredients := UniqueIDs(r.Ingredients)

	return Changes{
		Title:         &title,
		TimeMinutes:   &minutes,
		Price:         &price,
		Link:          &link,
		TagIDs:        &tags,
		IngredientIDs: &ingredients,
	}
}

// New builds an unsaved recipe owned by userID.
func New(userID string, c Changes) Recipe {
	now := time.Now().UTC()
	r := Recipe{
		UserID:        userID,
		TagIDs:        []int64{},
		IngredientIDs: []int64{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	c.Apply(&r)
	return r
}
