package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/geocoder89/recipehub/internal/domain/recipe"
	"github.com/geocoder89/recipehub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LabelsRepo serves both tags and ingredients; the kind picks the table.
// Every query is filtered by owner, so a foreign row reads as missing.
type LabelsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewLabelsRepo(pool *pgxpool.Pool, prom *observability.Prom) *LabelsRepo {
	return &LabelsRepo{pool: pool, prom: prom}
}

func labelTable(kind recipe.Kind) (string, error) {
	switch kind {
	case recipe.KindTag:
		return "tags", nil
	case recipe.KindIngredient:
		return "ingredients", nil
	default:
		return "", fmt.Errorf("unknown label kind %q", kind)
	}
}

func (r *LabelsRepo) List(ctx context.Context, kind recipe.Kind, userID string) ([]recipe.Label, error) {
	table, err := labelTable(kind)
	if err != nil {
		return nil, err
	}

	return r.queryLabels(ctx, string(kind)+".list",
		`SELECT id, name, user_id, created_at FROM `+table+`
		WHERE user_id = $1
		ORDER BY name COLLATE "C" DESC, id DESC`,
		userID,
	)
}

// GetMany returns the owned labels among ids, ordered by id.
func (r *LabelsRepo) GetMany(ctx context.Context, kind recipe.Kind, userID string, ids []int64) ([]recipe.Label, error) {
	if len(ids) == 0 {
		return []recipe.Label{}, nil
	}

	table, err := labelTable(kind)
	if err != nil {
		return nil, err
	}

	return r.queryLabels(ctx, string(kind)+".get_many",
		`SELECT id, name, user_id, created_at FROM `+table+`
		WHERE user_id = $1 AND id = ANY($2)
		ORDER BY id ASC`,
		userID, ids,
	)
}

func (r *LabelsRepo) queryLabels(ctx context.Context, op, sql string, args ...any) ([]recipe.Label, error) {
	out := make([]recipe.Label, 0)

	err := observe(r.prom, op, func() error {
		rows, err := r.pool.Query(ctx, sql, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var l recipe.Label
			if err := rows.Scan(&l.ID, &l.Name, &l.UserID, &l.CreatedAt); err != nil {
				return err
			}
			out = append(out, l)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (r *LabelsRepo) Get(ctx context.Context, kind recipe.Kind, userID string, id int64) (recipe.Label, error) {
	table, err := labelTable(kind)
	if err != nil {
		return recipe.Label{}, err
	}

	return r.queryLabel(ctx, string(kind)+".get",
		`SELECT id, name, user_id, created_at FROM `+table+` WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
}

func (r *LabelsRepo) Create(ctx context.Context, kind recipe.Kind, userID, name string) (recipe.Label, error) {
	table, err := labelTable(kind)
	if err != nil {
		return recipe.Label{}, err
	}

	return r.queryLabel(ctx, string(kind)+".create",
		`INSERT INTO `+table+` (user_id, name, created_at)
		VALUES ($1, $2, NOW())
		RETURNING id, name, user_id, created_at`,
		userID, name,
	)
}

func (r *LabelsRepo) Rename(ctx context.Context, kind recipe.Kind, userID string, id int64, name string) (recipe.Label, error) {
	table, err := labelTable(kind)
	if err != nil {
		return recipe.Label{}, err
	}

	return r.queryLabel(ctx, string(kind)+".rename",
		`UPDATE `+table+` SET name = $3
		WHERE id = $1 AND user_id = $2
		RETURNING id, name, user_id, created_at`,
		id, userID, name,
	)
}

// Delete removes the label; join rows go with it via ON DELETE CASCADE.
func (r *LabelsRepo) Delete(ctx context.Context, kind recipe.Kind, userID string, id int64) error {
	table, err := labelTable(kind)
	if err != nil {
		return err
	}

	var affected int64
	err = observe(r.prom, string(kind)+".delete", func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1 AND user_id = $2`, id, userID)
		affected = tag.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", kind, err)
	}

	if affected == 0 {
		return recipe.ErrNotFound
	}
	return nil
}

func (r *LabelsRepo) queryLabel(ctx context.Context, op, sql string, args ...any) (recipe.Label, error) {
	var l recipe.Label
	var missing bool

	err := observe(r.prom, op, func() error {
		err := r.pool.QueryRow(ctx, sql, args...).Scan(&l.ID, &l.Name, &l.UserID, &l.CreatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			missing = true
			return nil
		}
		return err
	})
	if err != nil {
		return recipe.Label{}, fmt.Errorf("%s: %w", op, err)
	}
	if missing {
		return recipe.Label{}, recipe.ErrNotFound
	}

	return l, nil
}
