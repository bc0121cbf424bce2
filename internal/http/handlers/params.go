package handlers

import (
	"strconv"

	"github.com/geocoder89/recipehub/internal/apperr"
	"github.com/geocoder89/recipehub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

// actor returns the authenticated user id or writes a 401.
func actor(ctx *gin.Context) (string, bool) {
	userID, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, apperr.ErrUnauthorized.Message)
		return "", false
	}
	return userID, true
}

// parseID reads the :id path segment. Anything that is not a positive
// integer cannot name a row, so it is a 404 like any other unknown id.
func parseID(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		RespondNotFound(ctx, "Not found.")
		return 0, false
	}
	return id, true
}
