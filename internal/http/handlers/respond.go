package handlers

import (
	"errors"
	"net/http"

	"github.com/geocoder89/recipehub/internal/apperr"
	"github.com/gin-gonic/gin"
)

type APIError struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"requestId,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}

func requestIDFrom(ctx *gin.Context) string {
	v, ok := ctx.Get("request_id")

	if ok {
		s, ok := v.(string)
		if ok && s != "" {
			return s
		}
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

func RespondError(ctx *gin.Context, status int, code, message string, details interface{}) {
	ctx.JSON(status, gin.H{
		"error": APIError{
			Code:      code,
			Message:   message,
			RequestID: requestIDFrom(ctx),
			Details:   details,
		},
	})
}

// RespondErr renders any service error. *apperr.Error values keep their code
// and field details; everything else becomes a 500 and is attached to the
// gin context so the request logger records it.
func RespondErr(ctx *gin.Context, err error) {
	var e *apperr.Error
	if !errors.As(err, &e) {
		_ = ctx.Error(err)
		RespondInternal(ctx, "Internal server error")
		return
	}

	if e.Code == apperr.CodeInternal {
		_ = ctx.Error(err)
		RespondInternal(ctx, "Internal server error")
		return
	}

	var details interface{}
	if len(e.Fields) > 0 {
		details = gin.H{"fields": e.Fields}
	}

	RespondError(ctx, e.HTTPStatus(), string(e.Code), e.Message, details)
}

func RespondBadRequest(ctx *gin.Context, message string, details interface{}) {
	RespondError(ctx, http.StatusBadRequest, string(apperr.CodeValidation), message, details)
}

func RespondUnauthorized(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusUnauthorized, string(apperr.CodeUnauthorized), message, nil)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, string(apperr.CodeNotFound), message, nil)
}

func RespondMethodNotAllowed(ctx *gin.Context) {
	RespondError(ctx, http.StatusMethodNotAllowed, string(apperr.CodeMethodNotAllowed),
		"Method \""+ctx.Request.Method+"\" not allowed.", nil)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, string(apperr.CodeInternal), message, nil)
}
