package postgres

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/geocoder89/recipehub/internal/domain/recipe"
	"github.com/geocoder89/recipehub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const recipeColumns = `id, user_id, title, time_minutes, price::text, link, image, created_at, updated_at`

type RecipesRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewRecipesRepo(pool *pgxpool.Pool, prom *observability.Prom) *RecipesRepo {
	return &RecipesRepo{pool: pool, prom: prom}
}

// relation describes one recipe join table.
type relation struct {
	kind   recipe.Kind
	table  string // join table
	column string // label id column in the join table
	labels string // label table
}

var (
	tagRelation        = relation{recipe.KindTag, "recipe_tags", "tag_id", "tags"}
	ingredientRelation = relation{recipe.KindIngredient, "recipe_ingredients", "ingredient_id", "ingredients"}
)

func scanRecipe(row pgx.Row) (recipe.Recipe, error) {
	var rc recipe.Recipe

	err := row.Scan(
		&rc.ID,
		&rc.UserID,
		&rc.Title,
		&rc.TimeMinutes,
		&rc.Price,
		&rc.Link,
		&rc.Image,
		&rc.CreatedAt,
		&rc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return recipe.Recipe{}, recipe.ErrNotFound
		}
		return recipe.Recipe{}, err
	}

	rc.TagIDs = []int64{}
	rc.IngredientIDs = []int64{}
	return rc, nil
}

// List returns the user's recipes, newest id first, with relation ids.
func (r *RecipesRepo) List(ctx context.Context, userID string) ([]recipe.Recipe, error) {
	out := make([]recipe.Recipe, 0)

	err := observe(r.prom, "recipes.list", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT `+recipeColumns+` FROM recipes WHERE user_id = $1 ORDER BY id DESC`,
			userID,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			rc, err := scanRecipe(rows)
			if err != nil {
				return err
			}
			out = append(out, rc)
		}
		if err := rows.Err(); err != nil {
			return err
		}

		return loadRelations(ctx, r.pool, out)
	})
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}

	return out, nil
}

func (r *RecipesRepo) Get(ctx context.Context, userID string, id int64) (recipe.Recipe, error) {
	var rc recipe.Recipe
	var lookupErr error

	err := observe(r.prom, "recipes.get", func() error {
		rc, lookupErr = scanRecipe(r.pool.QueryRow(ctx,
			`SELECT `+recipeColumns+` FROM recipes WHERE id = $1 AND user_id = $2`,
			id, userID,
		))
		if lookupErr != nil {
			if errors.Is(lookupErr, recipe.ErrNotFound) {
				return nil
			}
			return lookupErr
		}

		list := []recipe.Recipe{rc}
		if err := loadRelations(ctx, r.pool, list); err != nil {
			return err
		}
		rc = list[0]
		return nil
	})
	if err != nil {
		return recipe.Recipe{}, fmt.Errorf("get recipe: %w", err)
	}
	if lookupErr != nil {
		return recipe.Recipe{}, lookupErr
	}

	return rc, nil
}

// Create inserts the recipe and its join rows in one transaction. Relation
// ids not owned by rc.UserID fail with *recipe.RelationError.
func (r *RecipesRepo) Create(ctx context.Context, rc recipe.Recipe) (recipe.Recipe, error) {
	err := observe(r.prom, "recipes.create", func() error {
		tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(ctx) }()

		if err := checkOwned(ctx, tx, tagRelation, rc.UserID, rc.TagIDs); err != nil {
			return err
		}
		if err := checkOwned(ctx, tx, ingredientRelation, rc.UserID, rc.IngredientIDs); err != nil {
			return err
		}

		err = tx.QueryRow(ctx,
			`INSERT INTO recipes (user_id, title, time_minutes, price, link, image, created_at, updated_at)
			VALUES ($1, $2, $3, $4::text::numeric, $5, $6, $7, $8)
			RETURNING id`,
			rc.UserID, rc.Title, rc.TimeMinutes, string(rc.Price), rc.Link, rc.Image, rc.CreatedAt, rc.UpdatedAt,
		).Scan(&rc.ID)
		if err != nil {
			return err
		}

		if err := replaceRelation(ctx, tx, tagRelation, rc.ID, rc.TagIDs); err != nil {
			return err
		}
		if err := replaceRelation(ctx, tx, ingredientRelation, rc.ID, rc.IngredientIDs); err != nil {
			return err
		}

		return tx.Commit(ctx)
	})
	if err != nil {
		return recipe.Recipe{}, wrapRecipeErr("create recipe", err)
	}

	return rc, nil
}

// Update applies c to the owned recipe under a row lock. Relation sets are
// rewritten only when c carries them.
func (r *RecipesRepo) Update(ctx context.Context, userID string, id int64, c recipe.Changes) (recipe.Recipe, error) {
	var rc recipe.Recipe

	err := observe(r.prom, "recipes.update", func() error {
		tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(ctx) }()

		rc, err = scanRecipe(tx.QueryRow(ctx,
			`SELECT `+recipeColumns+` FROM recipes WHERE id = $1 AND user_id = $2 FOR UPDATE`,
			id, userID,
		))
		if err != nil {
			return err
		}

		list := []recipe.Recipe{rc}
		if err := loadRelations(ctx, tx, list); err != nil {
			return err
		}
		rc = list[0]

		c.Apply(&rc)

		if c.TagIDs != nil {
			if err := checkOwned(ctx, tx, tagRelation, userID, rc.TagIDs); err != nil {
				return err
			}
		}
		if c.IngredientIDs != nil {
			if err := checkOwned(ctx, tx, ingredientRelation, userID, rc.IngredientIDs); err != nil {
				return err
			}
		}

		err = tx.QueryRow(ctx,
			`UPDATE recipes
			SET title = $3,
				time_minutes = $4,
				price = $5::text::numeric,
				link = $6,
				updated_at = NOW()
			WHERE id = $1 AND user_id = $2
			RETURNING updated_at`,
			rc.ID, userID, rc.Title, rc.TimeMinutes, string(rc.Price), rc.Link,
		).Scan(&rc.UpdatedAt)
		if err != nil {
			return err
		}

		if c.TagIDs != nil {
			if err := replaceRelation(ctx, tx, tagRelation, rc.ID, rc.TagIDs); err != nil {
				return err
			}
		}
		if c.IngredientIDs != nil {
			if err := replaceRelation(ctx, tx, ingredientRelation, rc.ID, rc.IngredientIDs); err != nil {
				return err
			}
		}

		return tx.Commit(ctx)
	})
	if err != nil {
		return recipe.Recipe{}, wrapRecipeErr("update recipe", err)
	}

	return rc, nil
}

// SetImage records key on the owned recipe and returns the key it replaced.
func (r *RecipesRepo) SetImage(ctx context.Context, userID string, id int64, key string) (string, error) {
	var prev string

	err := observe(r.prom, "recipes.set_image", func() error {
		tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(ctx) }()

		err = tx.QueryRow(ctx,
			`SELECT image FROM recipes WHERE id = $1 AND user_id = $2 FOR UPDATE`,
			id, userID,
		).Scan(&prev)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return recipe.ErrNotFound
			}
			return err
		}

		_, err = tx.Exec(ctx,
			`UPDATE recipes SET image = $3, updated_at = NOW() WHERE id = $1 AND user_id = $2`,
			id, userID, key,
		)
		if err != nil {
			return err
		}

		return tx.Commit(ctx)
	})
	if err != nil {
		return "", wrapRecipeErr("set recipe image", err)
	}

	return prev, nil
}

// Delete removes the owned recipe and returns it so callers can release its image.
func (r *RecipesRepo) Delete(ctx context.Context, userID string, id int64) (recipe.Recipe, error) {
	var rc recipe.Recipe

	err := observe(r.prom, "recipes.delete", func() error {
		var err error
		rc, err = scanRecipe(r.pool.QueryRow(ctx,
			`DELETE FROM recipes WHERE id = $1 AND user_id = $2 RETURNING `+recipeColumns,
			id, userID,
		))
		return err
	})
	if err != nil {
		return recipe.Recipe{}, wrapRecipeErr("delete recipe", err)
	}

	return rc, nil
}

// wrapRecipeErr keeps domain errors bare so callers can match them directly.
func wrapRecipeErr(op string, err error) error {
	if errors.Is(err, recipe.ErrNotFound) || errors.Is(err, recipe.ErrForeignRelation) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// loadRelations fills TagIDs and IngredientIDs for every recipe in list.
func loadRelations(ctx context.Context, q querier, list []recipe.Recipe) error {
	if len(list) == 0 {
		return nil
	}

	index := make(map[int64]int, len(list))
	ids := make([]int64, 0, len(list))
	for i, rc := range list {
		index[rc.ID] = i
		ids = append(ids, rc.ID)
	}

	for _, rel := range []relation{tagRelation, ingredientRelation} {
		rows, err := q.Query(ctx,
			`SELECT recipe_id, `+rel.column+` FROM `+rel.table+`
			WHERE recipe_id = ANY($1)
			ORDER BY `+rel.column+` ASC`,
			ids,
		)
		if err != nil {
			return err
		}

		for rows.Next() {
			var recipeID, labelID int64
			if err := rows.Scan(&recipeID, &labelID); err != nil {
				rows.Close()
				return err
			}

			rc := &list[index[recipeID]]
			if rel.kind == recipe.KindTag {
				rc.TagIDs = append(rc.TagIDs, labelID)
			} else {
				rc.IngredientIDs = append(rc.IngredientIDs, labelID)
			}
		}
		rows.Close()

		if err := rows.Err(); err != nil {
			return err
		}
	}

	return nil
}

func checkOwned(ctx context.Context, tx pgx.Tx, rel relation, userID string, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	rows, err := tx.Query(ctx,
		`SELECT id FROM `+rel.labels+` WHERE user_id = $1 AND id = ANY($2)`,
		userID, ids,
	)
	if err != nil {
		return err
	}

	owned, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return err
	}

	var missing []int64
	for _, id := range ids {
		if !slices.Contains(owned, id) {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return &recipe.RelationError{Kind: rel.kind, IDs: missing}
	}

	return nil
}

func replaceRelation(ctx context.Context, tx pgx.Tx, rel relation, recipeID int64, ids []int64) error {
	if _, err := tx.Exec(ctx, `DELETE FROM `+rel.table+` WHERE recipe_id = $1`, recipeID); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	_, err := tx.Exec(ctx,
		`INSERT INTO `+rel.table+` (recipe_id, `+rel.column+`)
		SELECT $1, unnest($2::bigint[])`,
		recipeID, ids,
	)
	return err
}
