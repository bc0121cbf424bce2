package recipe

import (
	"errors"
	"time"
)

// Kind selects one of the two owned label tables.
type Kind string

const (
	KindTag        Kind = "tag"
	KindIngredient Kind = "ingredient"
)

// Field is the request/response field that references this kind on a recipe.
func (k Kind) Field() string {
	if k == KindIngredient {
		return "ingredients"
	}
	return "tags"
}

// Label is a Tag or an Ingredient: a name owned by one user.
type Label struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	UserID    string    `json:"-"`
	CreatedAt time.Time `json:"-"`
}

type LabelRequest struct {
	Name string `json:"name" binding:"required,max=255"`
}

type PatchLabelRequest struct {
	Name *string `json:"name" binding:"omitempty,min=1,max=255"`
}

var (
	ErrNotFound = errors.New("not found")
	// ErrForeignRelation is returned when a write references tag or
	// ingredient ids the acting user does not own.
	ErrForeignRelation = errors.New("relation references ids not owned by user")
)

// RelationError names the offending relation field.
type RelationError struct {
	Kind Kind
	IDs  []int64
}

func (e *RelationError) Error() string {
	return ErrForeignRelation.Error() + ": " + e.Kind.Field()
}

func (e *RelationError) Unwrap() error {
	return ErrForeignRelation
}
