package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("get recipe: %w", NotFound("Recipe not found"))

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrUnauthorized))
}

func TestInvalidCarriesField(t *testing.T) {
	err := Invalid("email", "unique", "user with this email already exists")

	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, http.StatusBadRequest, err.HTTPStatus())
	assert.Equal(t, "email", err.Fields[0].Field)
}

func TestFromWrapsUnknownAsInternal(t *testing.T) {
	cause := errors.New("boom")
	e := From(cause)

	assert.Equal(t, CodeInternal, e.Code)
	assert.ErrorIs(t, e, cause)
	assert.Equal(t, http.StatusInternalServerError, e.HTTPStatus())
}

func TestCodeStatuses(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, CodeInvalidCredentials.HTTPStatus())
	assert.Equal(t, http.StatusUnauthorized, CodeUnauthorized.HTTPStatus())
	assert.Equal(t, http.StatusNotFound, CodeNotFound.HTTPStatus())
	assert.Equal(t, http.StatusMethodNotAllowed, CodeMethodNotAllowed.HTTPStatus())
}
