package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/geocoder89/recipehub/internal/domain/recipe"
	"github.com/gin-gonic/gin"
)

type LabelService interface {
	ListLabels(ctx context.Context, kind recipe.Kind, userID string) ([]recipe.Label, error)
	GetLabel(ctx context.Context, kind recipe.Kind, userID string, id int64) (recipe.Label, error)
	CreateLabel(ctx context.Context, kind recipe.Kind, userID, name string) (recipe.Label, error)
	UpdateLabel(ctx context.Context, kind recipe.Kind, userID string, id int64, name *string) (recipe.Label, error)
	DeleteLabel(ctx context.Context, kind recipe.Kind, userID string, id int64) error
}

// LabelsHandler serves one label kind: /recipe/tags/ or /recipe/ingredients/.
type LabelsHandler struct {
	svc  LabelService
	kind recipe.Kind
}

func NewLabelsHandler(svc LabelService, kind recipe.Kind) *LabelsHandler {
	return &LabelsHandler{svc: svc, kind: kind}
}

func (h *LabelsHandler) List(ctx *gin.Context) {
	userID, ok := actor(ctx)
	if !ok {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	items, err := h.svc.ListLabels(cctx, h.kind, userID)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	if items == nil {
		items = []recipe.Label{}
	}
	ctx.JSON(http.StatusOK, items)
}

func (h *LabelsHandler) Create(ctx *gin.Context) {
	userID, ok := actor(ctx)
	if !ok {
		return
	}

	var req recipe.LabelRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	l, err := h.svc.CreateLabel(cctx, h.kind, userID, req.Name)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, l)
}

func (h *LabelsHandler) Get(ctx *gin.Context) {
	userID, ok := actor(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	l, err := h.svc.GetLabel(cctx, h.kind, userID, id)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, l)
}

// Update handles PUT; the name is required.
func (h *LabelsHandler) Update(ctx *gin.Context) {
	var req recipe.LabelRequest
	h.rename(ctx, &req, func() *string { return &req.Name })
}

// Patch handles PATCH; an empty body leaves the label as is.
func (h *LabelsHandler) Patch(ctx *gin.Context) {
	var req recipe.PatchLabelRequest
	h.rename(ctx, &req, func() *string { return req.Name })
}

func (h *LabelsHandler) rename(ctx *gin.Context, req interface{}, name func() *string) {
	userID, ok := actor(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	if _, err := h.svc.GetLabel(cctx, h.kind, userID, id); err != nil {
		RespondErr(ctx, err)
		return
	}
	if !BindJSON(ctx, req) {
		return
	}

	l, err := h.svc.UpdateLabel(cctx, h.kind, userID, id, name())
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, l)
}

func (h *LabelsHandler) Delete(ctx *gin.Context) {
	userID, ok := actor(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.svc.DeleteLabel(cctx, h.kind, userID, id); err != nil {
		RespondErr(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}
