package db

import (
	"context"
	"database/sql"
	"io/fs"
	"testing"

	"github.com/geocoder89/recipehub/internal/db/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
)

func TestEmbeddedMigrations(t *testing.T) {
	files, err := fs.Glob(migrations.FS, "*.sql")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}

	if len(files) != 2 {
		t.Fatalf("expected 2 migrations, got %v", files)
	}
}

func TestMigrate_RunsGooseFromRoot(t *testing.T) {
	// pgxpool.New does not dial until a connection is needed
	pool, err := pgxpool.New(context.Background(), "postgres://u:p@127.0.0.1:1/none")
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	defer pool.Close()

	orig := gooseUp
	defer func() { gooseUp = orig }()

	var gotDir string
	gooseUp = func(ctx context.Context, db *sql.DB, dir string) error {
		gotDir = dir
		return nil
	}

	if err := Migrate(context.Background(), pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	if gotDir != "." {
		t.Fatalf("expected dir '.', got %q", gotDir)
	}
}
