package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// InitSchema creates the Postgres tables used by the caches and the plan
// history. It is idempotent.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createDistanceCacheQuery := `
	CREATE TABLE IF NOT EXISTS distance_cache (
		origin TEXT NOT NULL,
		destination TEXT NOT NULL,
		distance_meters INTEGER NOT NULL,
		duration_seconds INTEGER NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (origin, destination)
	);
	`

	createGeocodeCacheQuery := `
	CREATE TABLE IF NOT EXISTS geocode_cache (
		address TEXT PRIMARY KEY,
		lon DOUBLE PRECISION NOT NULL,
		lat DOUBLE PRECISION NOT NULL
	);
	`

	createTripPlansQuery := `
	CREATE TABLE IF NOT EXISTS trip_plans (
		id BIGSERIAL PRIMARY KEY,
		depart_at TIMESTAMPTZ NOT NULL,
		return_to_origin BOOLEAN NOT NULL,
		strategy TEXT NOT NULL,
		total_seconds INTEGER NOT NULL,
		link TEXT NOT NULL,
		visit_order JSONB NOT NULL,
		stops JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	`

	createIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_distance_cache_destination_origin
	ON distance_cache(destination, origin);
	`

	createPlansIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_trip_plans_created_at
	ON trip_plans(created_at DESC);
	`

	statements := []string{
		createDistanceCacheQuery,
		createGeocodeCacheQuery,
		createTripPlansQuery,
		createIndexQuery,
		createPlansIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}
