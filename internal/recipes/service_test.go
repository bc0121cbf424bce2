package recipes

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"io"
	"log/slog"
	"testing"

	"github.com/geocoder89/recipehub/internal/apperr"
	"github.com/geocoder89/recipehub/internal/domain/recipe"
	"github.com/geocoder89/recipehub/internal/images"
	"github.com/geocoder89/recipehub/internal/repo/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc   *Service
	blobs *images.FSStore
	cat   *memory.Catalog
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	blobs, err := images.NewFSStore(t.TempDir(), "/media")
	require.NoError(t, err)

	cat := memory.NewCatalog()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	return fixture{
		svc:   NewService(cat.Labels(), cat.Recipes(), blobs, log, nil),
		blobs: blobs,
		cat:   cat,
	}
}

func jpegBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 10, 10)), nil))
	return buf.Bytes()
}

func sampleRecipe(t *testing.T, svc *Service, userID string, tags ...int64) recipe.Recipe {
	t.Helper()
	minutes := 22
	rc, err := svc.CreateRecipe(context.Background(), userID, recipe.CreateRecipeRequest{
		Title: "Sample recipe title", TimeMinutes: &minutes, Price: "5.25", Link: "http://example.com/recipe.pdf", Tags: tags,
	}.Changes())
	require.NoError(t, err)
	return rc
}

func TestLabels_ScopedToOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, kind := range []recipe.Kind{recipe.KindTag, recipe.KindIngredient} {
		t.Run(string(kind), func(t *testing.T) {
			mine, err := f.svc.CreateLabel(ctx, kind, "u1", "Kale")
			require.NoError(t, err)
			_, err = f.svc.CreateLabel(ctx, kind, "u1", "Apple")
			require.NoError(t, err)
			other, err := f.svc.CreateLabel(ctx, kind, "u2", "Salt")
			require.NoError(t, err)

			list, err := f.svc.ListLabels(ctx, kind, "u1")
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, "Kale", list[0].Name)
			assert.Equal(t, "Apple", list[1].Name)

			_, err = f.svc.GetLabel(ctx, kind, "u1", other.ID)
			assert.ErrorIs(t, err, apperr.ErrNotFound)

			name := "Pepper"
			_, err = f.svc.UpdateLabel(ctx, kind, "u2", mine.ID, &name)
			assert.ErrorIs(t, err, apperr.ErrNotFound)
			assert.ErrorIs(t, f.svc.DeleteLabel(ctx, kind, "u2", mine.ID), apperr.ErrNotFound)

			renamed, err := f.svc.UpdateLabel(ctx, kind, "u1", mine.ID, &name)
			require.NoError(t, err)
			assert.Equal(t, "Pepper", renamed.Name)

			same, err := f.svc.UpdateLabel(ctx, kind, "u1", mine.ID, nil)
			require.NoError(t, err)
			assert.Equal(t, "Pepper", same.Name)

			require.NoError(t, f.svc.DeleteLabel(ctx, kind, "u1", mine.ID))
			_, err = f.svc.GetLabel(ctx, kind, "u1", mine.ID)
			assert.ErrorIs(t, err, apperr.ErrNotFound)
		})
	}
}

func TestCreateLabel_BlankName(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateLabel(context.Background(), recipe.KindTag, "u1", "   ")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestRecipes_ScopedToOwnerAndOrdered(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := sampleRecipe(t, f.svc, "u1")
	second := sampleRecipe(t, f.svc, "u1")
	foreign := sampleRecipe(t, f.svc, "u2")

	list, err := f.svc.ListRecipes(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)

	_, err = f.svc.GetRecipe(ctx, "u1", foreign.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	title := "stolen"
	_, err = f.svc.UpdateRecipe(ctx, "u1", foreign.ID, recipe.Changes{Title: &title})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	assert.ErrorIs(t, f.svc.DeleteRecipe(ctx, "u1", foreign.ID), apperr.ErrNotFound)

	got, err := f.svc.GetRecipe(ctx, "u2", foreign.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sample recipe title", got.Title)
}

func TestCreateRecipe_TagsRegardlessOfOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t1, _ := f.svc.CreateLabel(ctx, recipe.KindTag, "u1", "Vegan")
	t2, _ := f.svc.CreateLabel(ctx, recipe.KindTag, "u1", "Dessert")

	rc := sampleRecipe(t, f.svc, "u1", t2.ID, t1.ID, t2.ID)

	detail, err := f.svc.GetRecipeDetail(ctx, "u1", rc.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{t1.ID, t2.ID}, detail.TagIDs)
	require.Len(t, detail.Tags, 2)
	assert.ElementsMatch(t, []string{"Vegan", "Dessert"}, []string{detail.Tags[0].Name, detail.Tags[1].Name})
	assert.Empty(t, detail.Ingredients)
	assert.Equal(t, recipe.Price("5.25"), detail.Price)
}

func TestCreateRecipe_ForeignTagRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	foreign, _ := f.svc.CreateLabel(ctx, recipe.KindTag, "u2", "Theirs")

	minutes := 5
	_, err := f.svc.CreateRecipe(ctx, "u1", recipe.CreateRecipeRequest{
		Title: "Mine", TimeMinutes: &minutes, Price: "1", Tags: []int64{foreign.ID},
	}.Changes())
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, "tags", apperr.From(err).Fields[0].Field)

	list, _ := f.svc.ListRecipes(ctx, "u1")
	assert.Empty(t, list)
}

func TestCreateRecipe_InvalidFields(t *testing.T) {
	f := newFixture(t)
	minutes := -1
	title := ""
	price := recipe.Price("1234.5")

	for _, c := range []recipe.Changes{{TimeMinutes: &minutes}, {Title: &title}, {Price: &price}} {
		_, err := f.svc.CreateRecipe(context.Background(), "u1", c)
		assert.ErrorIs(t, err, apperr.ErrValidation)
	}
}

func TestPatch_TitleAndTagsOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	oldTag, _ := f.svc.CreateLabel(ctx, recipe.KindTag, "u1", "Old")
	newTag, _ := f.svc.CreateLabel(ctx, recipe.KindTag, "u1", "New")
	rc := sampleRecipe(t, f.svc, "u1", oldTag.ID)

	title := "New title"
	tags := []int64{newTag.ID}
	patch := recipe.PatchRecipeRequest{Title: &title, Tags: &tags}

	updated, err := f.svc.UpdateRecipe(ctx, "u1", rc.ID, patch.Changes())
	require.NoError(t, err)

	assert.Equal(t, "New title", updated.Title)
	assert.Equal(t, rc.TimeMinutes, updated.TimeMinutes)
	assert.Equal(t, rc.Price, updated.Price)
	assert.Equal(t, rc.Link, updated.Link)
	assert.Equal(t, []int64{newTag.ID}, updated.TagIDs)
}

func TestPut_OmittedTagsClears(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tag, _ := f.svc.CreateLabel(ctx, recipe.KindTag, "u1", "Dinner")
	ing, _ := f.svc.CreateLabel(ctx, recipe.KindIngredient, "u1", "Salt")

	minutes := 22
	rc, err := f.svc.CreateRecipe(ctx, "u1", recipe.CreateRecipeRequest{
		Title: "Soup", TimeMinutes: &minutes, Price: "5.00", Tags: []int64{tag.ID}, Ingredients: []int64{ing.ID},
	}.Changes())
	require.NoError(t, err)

	put := recipe.UpdateRecipeRequest{Title: "Spaghetti carbonara", TimeMinutes: &minutes, Price: "5.00"}
	updated, err := f.svc.UpdateRecipe(ctx, "u1", rc.ID, put.Changes())
	require.NoError(t, err)

	assert.Empty(t, updated.TagIDs)
	assert.Empty(t, updated.IngredientIDs)
	assert.Equal(t, "Spaghetti carbonara", updated.Title)
}

func TestUploadImage_ReplacesAndCleansUp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rc := sampleRecipe(t, f.svc, "u1")
	img := jpegBytes(t)

	first, url, err := f.svc.UploadImage(ctx, "u1", rc.ID, img)
	require.NoError(t, err)
	assert.Equal(t, "/media/"+first.Image, url)

	r, err := f.blobs.Open(ctx, first.Image)
	require.NoError(t, err)
	r.Close()

	second, _, err := f.svc.UploadImage(ctx, "u1", rc.ID, img)
	require.NoError(t, err)
	assert.NotEqual(t, first.Image, second.Image)

	_, err = f.blobs.Open(ctx, first.Image)
	assert.ErrorIs(t, err, images.ErrBlobNotFound)

	_, _, err = f.svc.UploadImage(ctx, "u1", rc.ID, []byte("notimage"))
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, "image", apperr.From(err).Fields[0].Field)

	got, _ := f.svc.GetRecipe(ctx, "u1", rc.ID)
	assert.Equal(t, second.Image, got.Image)
	r, err = f.blobs.Open(ctx, second.Image)
	require.NoError(t, err)
	r.Close()

	_, _, err = f.svc.UploadImage(ctx, "u2", rc.ID, img)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDeleteRecipe_RemovesImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rc := sampleRecipe(t, f.svc, "u1")

	withImage, _, err := f.svc.UploadImage(ctx, "u1", rc.ID, jpegBytes(t))
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteRecipe(ctx, "u1", rc.ID))

	_, err = f.blobs.Open(ctx, withImage.Image)
	assert.ErrorIs(t, err, images.ErrBlobNotFound)

	_, err = f.svc.GetRecipe(ctx, "u1", rc.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDeleteImage_NoopWithoutImage(t *testing.T) {
	f := newFixture(t)
	rc := sampleRecipe(t, f.svc, "u1")

	assert.NoError(t, f.svc.DeleteImage(context.Background(), rc))
	assert.Equal(t, "", f.svc.ImageURL(""))
}

type failingRecipes struct {
	RecipeStore
}

func (failingRecipes) SetImage(context.Context, string, int64, string) (string, error) {
	return "", errors.New("db down")
}

func TestUploadImage_RecordFailureRemovesNewBlob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rc := sampleRecipe(t, f.svc, "u1")

	f.svc.recipes = failingRecipes{RecipeStore: f.cat.Recipes()}
	f.svc.newSuffix = func() (string, error) { return "fixed", nil }

	_, _, err := f.svc.UploadImage(ctx, "u1", rc.ID, jpegBytes(t))
	assert.ErrorIs(t, err, apperr.ErrInternal)

	_, err = f.blobs.Open(ctx, images.Key(rc.ID, images.FormatJPEG, "fixed"))
	assert.ErrorIs(t, err, images.ErrBlobNotFound)
}
