package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/recipehub/internal/apperr"
	"github.com/geocoder89/recipehub/internal/domain/user"
	"github.com/geocoder89/recipehub/internal/observability"
	"github.com/gin-gonic/gin"
)

type UserService interface {
	CreateUser(ctx context.Context, email, password string, opts user.CreateOptions) (user.User, error)
	Get(ctx context.Context, userID string) (user.User, error)
	UpdateProfile(ctx context.Context, userID string, name, password *string) (user.User, error)
}

type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (user.User, error)
}

type TokenIssuer interface {
	Issue(ctx context.Context, userID string) (string, error)
}

type UsersHandler struct {
	users  UserService
	verify Authenticator
	tokens TokenIssuer
	prom   *observability.Prom
}

func NewUsersHandler(users UserService, verify Authenticator, tokens TokenIssuer, prom *observability.Prom) *UsersHandler {
	return &UsersHandler{
		users:  users,
		verify: verify,
		tokens: tokens,
		prom:   prom,
	}
}

// bcrypt dominates these handlers
const userOpTimeout = 5 * time.Second

func (h *UsersHandler) Create(ctx *gin.Context) {
	var req user.CreateUserRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), userOpTimeout)
	defer cancel()

	u, err := h.users.CreateUser(cctx, req.Email, req.Password, user.CreateOptions{Name: req.Name})
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, u.Profile())
}

func (h *UsersHandler) countToken(result string) {
	if h.prom != nil {
		h.prom.TokenIssues.WithLabelValues(result).Inc()
	}
}

// Token exchanges email and password for the user's single active token. A
// rejected request never carries a "token" key.
func (h *UsersHandler) Token(ctx *gin.Context) {
	var req user.TokenRequest

	if !BindJSON(ctx, &req) {
		h.countToken("rejected")
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), userOpTimeout)
	defer cancel()

	u, err := h.verify.Authenticate(cctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, apperr.ErrInvalidCredentials) {
			h.countToken("rejected")
		} else {
			h.countToken("error")
		}
		RespondErr(ctx, err)
		return
	}

	token, err := h.tokens.Issue(cctx, u.ID)
	if err != nil {
		h.countToken("error")
		_ = ctx.Error(err)
		RespondInternal(ctx, "Could not issue token")
		return
	}

	h.countToken("issued")
	ctx.JSON(http.StatusOK, gin.H{"token": token})
}

func (h *UsersHandler) Me(ctx *gin.Context) {
	userID, ok := actor(ctx)
	if !ok {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	u, err := h.users.Get(cctx, userID)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, u.Profile())
}

func (h *UsersHandler) UpdateMe(ctx *gin.Context) {
	userID, ok := actor(ctx)
	if !ok {
		return
	}

	var req user.UpdateMeRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), userOpTimeout)
	defer cancel()

	u, err := h.users.UpdateProfile(cctx, userID, req.Name, req.Password)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, u.Profile())
}
