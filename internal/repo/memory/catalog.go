package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/geocoder89/recipehub/internal/domain/recipe"
)

// Catalog holds tags, ingredients and recipes behind one lock so relation
// checks and cascades see a consistent view. Labels and Recipes expose the
// two repository surfaces.
type Catalog struct {
	mu      sync.RWMutex
	labels  map[recipe.Kind]map[int64]recipe.Label
	recipes map[int64]recipe.Recipe
	seq     map[string]int64
}

func NewCatalog() *Catalog {
	return &Catalog{
		labels: map[recipe.Kind]map[int64]recipe.Label{
			recipe.KindTag:        {},
			recipe.KindIngredient: {},
		},
		recipes: make(map[int64]recipe.Recipe),
		seq:     make(map[string]int64),
	}
}

func (c *Catalog) Labels() *LabelsRepo   { return &LabelsRepo{c: c} }
func (c *Catalog) Recipes() *RecipesRepo { return &RecipesRepo{c: c} }

func (c *Catalog) next(name string) int64 {
	c.seq[name]++
	return c.seq[name]
}

func cloneRecipe(rc recipe.Recipe) recipe.Recipe {
	rc.TagIDs = slices.Clone(rc.TagIDs)
	rc.IngredientIDs = slices.Clone(rc.IngredientIDs)
	if rc.TagIDs == nil {
		rc.TagIDs = []int64{}
	}
	if rc.IngredientIDs == nil {
		rc.IngredientIDs = []int64{}
	}
	return rc
}

// checkOwned must run with c.mu held.
func (c *Catalog) checkOwned(kind recipe.Kind, userID string, ids []int64) error {
	var missing []int64
	for _, id := range ids {
		l, ok := c.labels[kind][id]
		if !ok || l.UserID != userID {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return &recipe.RelationError{Kind: kind, IDs: missing}
	}
	return nil
}

type LabelsRepo struct {
	c *Catalog
}

func (r *LabelsRepo) List(_ context.Context, kind recipe.Kind, userID string) ([]recipe.Label, error) {
	r.c.mu.RLock()
	defer r.c.mu.RUnlock()

	out := make([]recipe.Label, 0)
	for _, l := range r.c.labels[kind] {
		if l.UserID == userID {
			out = append(out, l)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name > out[j].Name
		}
		return out[i].ID > out[j].ID
	})

	return out, nil
}

func (r *LabelsRepo) GetMany(_ context.Context, kind recipe.Kind, userID string, ids []int64) ([]recipe.Label, error) {
	r.c.mu.RLock()
	defer r.c.mu.RUnlock()

	out := make([]recipe.Label, 0, len(ids))
	for _, id := range recipe.UniqueIDs(ids) {
		if l, ok := r.c.labels[kind][id]; ok && l.UserID == userID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *LabelsRepo) Get(_ context.Context, kind recipe.Kind, userID string, id int64) (recipe.Label, error) {
	r.c.mu.RLock()
	defer r.c.mu.RUnlock()

	l, ok := r.c.labels[kind][id]
	if !ok || l.UserID != userID {
		return recipe.Label{}, recipe.ErrNotFound
	}
	return l, nil
}

func (r *LabelsRepo) Create(_ context.Context, kind recipe.Kind, userID, name string) (recipe.Label, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()

	l := recipe.Label{
		ID:        r.c.next(string(kind)),
		Name:      name,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}
	r.c.labels[kind][l.ID] = l

	return l, nil
}

func (r *LabelsRepo) Rename(_ context.Context, kind recipe.Kind, userID string, id int64, name string) (recipe.Label, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()

	l, ok := r.c.labels[kind][id]
	if !ok || l.UserID != userID {
		return recipe.Label{}, recipe.ErrNotFound
	}

	l.Name = name
	r.c.labels[kind][id] = l
	return l, nil
}

// Delete drops the label and detaches it from every recipe.
func (r *LabelsRepo) Delete(_ context.Context, kind recipe.Kind, userID string, id int64) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()

	l, ok := r.c.labels[kind][id]
	if !ok || l.UserID != userID {
		return recipe.ErrNotFound
	}
	delete(r.c.labels[kind], id)

	drop := func(ids []int64) []int64 {
		return slices.DeleteFunc(ids, func(v int64) bool { return v == id })
	}
	for rid, rc := range r.c.recipes {
		if kind == recipe.KindTag {
			rc.TagIDs = drop(rc.TagIDs)
		} else {
			rc.IngredientIDs = drop(rc.IngredientIDs)
		}
		r.c.recipes[rid] = rc
	}

	return nil
}

type RecipesRepo struct {
	c *Catalog
}

func (r *RecipesRepo) List(_ context.Context, userID string) ([]recipe.Recipe, error) {
	r.c.mu.RLock()
	defer r.c.mu.RUnlock()

	out := make([]recipe.Recipe, 0)
	for _, rc := range r.c.recipes {
		if rc.UserID == userID {
			out = append(out, cloneRecipe(rc))
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *RecipesRepo) Get(_ context.Context, userID string, id int64) (recipe.Recipe, error) {
	r.c.mu.RLock()
	defer r.c.mu.RUnlock()

	rc, ok := r.c.recipes[id]
	if !ok || rc.UserID != userID {
		return recipe.Recipe{}, recipe.ErrNotFound
	}
	return cloneRecipe(rc), nil
}

func (r *RecipesRepo) Create(_ context.Context, rc recipe.Recipe) (recipe.Recipe, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()

	if err := r.c.checkOwned(recipe.KindTag, rc.UserID, rc.TagIDs); err != nil {
		return recipe.Recipe{}, err
	}
	if err := r.c.checkOwned(recipe.KindIngredient, rc.UserID, rc.IngredientIDs); err != nil {
		return recipe.Recipe{}, err
	}

	rc = cloneRecipe(rc)
	rc.ID = r.c.next("recipe")
	r.c.recipes[rc.ID] = rc

	return cloneRecipe(rc), nil
}

func (r *RecipesRepo) Update(_ context.Context, userID string, id int64, c recipe.Changes) (recipe.Recipe, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()

	cur, ok := r.c.recipes[id]
	if !ok || cur.UserID != userID {
		return recipe.Recipe{}, recipe.ErrNotFound
	}

	next := cloneRecipe(cur)
	c.Apply(&next)

	if c.TagIDs != nil {
		if err := r.c.checkOwned(recipe.KindTag, userID, next.TagIDs); err != nil {
			return recipe.Recipe{}, err
		}
	}
	if c.IngredientIDs != nil {
		if err := r.c.checkOwned(recipe.KindIngredient, userID, next.IngredientIDs); err != nil {
			return recipe.Recipe{}, err
		}
	}

	next.UpdatedAt = time.Now().UTC()
	r.c.recipes[id] = next

	return cloneRecipe(next), nil
}

func (r *RecipesRepo) SetImage(_ context.Context, userID string, id int64, key string) (string, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()

	rc, ok := r.c.recipes[id]
	if !ok || rc.UserID != userID {
		return "", recipe.ErrNotFound
	}

	prev := rc.Image
	rc.Image = key
	rc.UpdatedAt = time.Now().UTC()
	r.c.recipes[id] = rc

	return prev, nil
}

func (r *RecipesRepo) Delete(_ context.Context, userID string, id int64) (recipe.Recipe, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()

	rc, ok := r.c.recipes[id]
	if !ok || rc.UserID != userID {
		return recipe.Recipe{}, recipe.ErrNotFound
	}
	delete(r.c.recipes, id)

	return rc, nil
}
