package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/geocoder89/recipehub/internal/apperr"
	"github.com/geocoder89/recipehub/internal/domain/recipe"
	"github.com/geocoder89/recipehub/internal/recipes"
	"github.com/gin-gonic/gin"
)

type RecipeService interface {
	ListRecipes(ctx context.Context, userID string) ([]recipe.Recipe, error)
	GetRecipe(ctx context.Context, userID string, id int64) (recipe.Recipe, error)
	GetRecipeDetail(ctx context.Context, userID string, id int64) (recipes.Detail, error)
	CreateRecipe(ctx context.Context, userID string, c recipe.Changes) (recipe.Recipe, error)
	UpdateRecipe(ctx context.Context, userID string, id int64, c recipe.Changes) (recipe.Recipe, error)
	DeleteRecipe(ctx context.Context, userID string, id int64) error
	UploadImage(ctx context.Context, userID string, id int64, data []byte) (recipe.Recipe, string, error)
	ImageURL(key string) string
}

type RecipesHandler struct {
	svc RecipeService
}

func NewRecipesHandler(svc RecipeService) *RecipesHandler {
	return &RecipesHandler{svc: svc}
}

// recipeResponse is the list shape: relations as ids, image as a URL or null.
type recipeResponse struct {
	ID          int64        `json:"id"`
	Title       string       `json:"title"`
	TimeMinutes int          `json:"time_minutes"`
	Price       recipe.Price `json:"price"`
	Link        string       `json:"link"`
	Tags        []int64      `json:"tags"`
	Ingredients []int64      `json:"ingredients"`
	Image       *string      `json:"image"`
}

// recipeDetailResponse expands tags and ingredients into objects.
type recipeDetailResponse struct {
	ID          int64          `json:"id"`
	Title       string         `json:"title"`
	TimeMinutes int            `json:"time_minutes"`
	Price       recipe.Price   `json:"price"`
	Link        string         `json:"link"`
	Tags        []recipe.Label `json:"tags"`
	Ingredients []recipe.Label `json:"ingredients"`
	Image       *string        `json:"image"`
}

type imageResponse struct {
	ID    int64  `json:"id"`
	Image string `json:"image"`
}

func (h *RecipesHandler) imageURL(key string) *string {
	if key == "" {
		return nil
	}
	u := h.svc.ImageURL(key)
	return &u
}

func (h *RecipesHandler) toResponse(rc recipe.Recipe) recipeResponse {
	tags, ingredients := rc.TagIDs, rc.IngredientIDs
	if tags == nil {
		tags = []int64{}
	}
	if ingredients == nil {
		ingredients = []int64{}
	}

	return recipeResponse{
		ID:          rc.ID,
		Title:       rc.Title,
		TimeMinutes: rc.TimeMinutes,
		Price:       rc.Price,
		Link:        rc.Link,
		Tags:        tags,
		Ingredients: ingredients,
		Image:       h.imageURL(rc.Image),
	}
}

func (h *RecipesHandler) toDetail(d recipes.Detail) recipeDetailResponse {
	tags, ingredients := d.Tags, d.Ingredients
	if tags == nil {
		tags = []recipe.Label{}
	}
	if ingredients == nil {
		ingredients = []recipe.Label{}
	}

	return recipeDetailResponse{
		ID:          d.ID,
		Title:       d.Title,
		TimeMinutes: d.TimeMinutes,
		Price:       d.Price,
		Link:        d.Link,
		Tags:        tags,
		Ingredients: ingredients,
		Image:       h.imageURL(d.Image),
	}
}

func (h *RecipesHandler) List(ctx *gin.Context) {
	userID, ok := actor(ctx)
	if !ok {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	list, err := h.svc.ListRecipes(cctx, userID)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	out := make([]recipeResponse, 0, len(list))
	for _, rc := range list {
		out = append(out, h.toResponse(rc))
	}

	ctx.JSON(http.StatusOK, out)
}

func (h *RecipesHandler) Create(ctx *gin.Context) {
	userID, ok := actor(ctx)
	if !ok {
		return
	}

	var req recipe.CreateRecipeRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	rc, err := h.svc.CreateRecipe(cctx, userID, req.Changes())
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	h.respondDetail(ctx, cctx, userID, rc.ID, http.StatusCreated)
}

func (h *RecipesHandler) Get(ctx *gin.Context) {
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

	h.respondDetail(ctx, cctx, userID, id, http.StatusOK)
}

// Update handles PUT: every field is replaced and omitted relations are
// cleared.
func (h *RecipesHandler) Update(ctx *gin.Context) {
	var req recipe.UpdateRecipeRequest
	h.update(ctx, &req, func() recipe.Changes { return req.Changes() })
}

// Patch handles PATCH: only fields present in the body change.
func (h *RecipesHandler) Patch(ctx *gin.Context) {
	var req recipe.PatchRecipeRequest
	h.update(ctx, &req, func() recipe.Changes { return req.Changes() })
}

func (h *RecipesHandler) update(ctx *gin.Context, req interface{}, changes func() recipe.Changes) {
	userID, ok := actor(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	// someone else's recipe is a 404 whatever the body says
	if _, err := h.svc.GetRecipe(cctx, userID, id); err != nil {
		RespondErr(ctx, err)
		return
	}
	if !BindJSON(ctx, req) {
		return
	}

	if _, err := h.svc.UpdateRecipe(cctx, userID, id, changes()); err != nil {
		RespondErr(ctx, err)
		return
	}

	h.respondDetail(ctx, cctx, userID, id, http.StatusOK)
}

func (h *RecipesHandler) respondDetail(ctx *gin.Context, cctx context.Context, userID string, id int64, status int) {
	d, err := h.svc.GetRecipeDetail(cctx, userID, id)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	ctx.JSON(status, h.toDetail(d))
}

func (h *RecipesHandler) Delete(ctx *gin.Context) {
	userID, ok := actor(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.svc.DeleteRecipe(cctx, userID, id); err != nil {
		RespondErr(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}

// UploadImage reads the multipart "image" field and attaches it to the
// recipe.
func (h *RecipesHandler) UploadImage(ctx *gin.Context) {
	userID, ok := actor(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	fh, err := ctx.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			RespondError(ctx, http.StatusRequestEntityTooLarge, "payload_too_large", "Request body too large", nil)
			return
		}
		RespondErr(ctx, apperr.Invalid("image", "required", "No file was submitted."))
		return
	}

	f, err := fh.Open()
	if err != nil {
		_ = ctx.Error(err)
		RespondInternal(ctx, "Could not read upload")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		_ = ctx.Error(err)
		RespondInternal(ctx, "Could not read upload")
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 10*time.Second)
	defer cancel()

	rc, url, err := h.svc.UploadImage(cctx, userID, id, data)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, imageResponse{ID: rc.ID, Image: url})
}
