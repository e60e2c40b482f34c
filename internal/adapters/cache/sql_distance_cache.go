package cache

import (
	"context"
	"database/sql"
	"errors"
	"fastest-route-service/internal/platform/obs"
	"fastest-route-service/internal/ports"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
)

// SQLDistanceCache is a Postgres-backed cache of provider legs keyed by
// origin and destination stop keys. Entries older than MaxAge are ignored
// on read; a zero MaxAge keeps entries forever.
type SQLDistanceCache struct {
	DB     *sql.DB
	MaxAge time.Duration
	now    func() time.Time
}

var _ ports.DistanceCache = (*SQLDistanceCache)(nil)

func NewSQLDistanceCache(db *sql.DB, maxAge time.Duration) *SQLDistanceCache {
	return &SQLDistanceCache{DB: db, MaxAge: maxAge, now: time.Now}
}

// uniqueKeys trims keys and drops blanks and duplicates, keeping first occurrences.
func uniqueKeys(keys []string) []string {
	return lo.Uniq(lo.Compact(lo.Map(keys, func(k string, _ int) string {
		return strings.TrimSpace(k)
	})))
}

// Fetch cached legs for one origin and multiple destinations.
func (s *SQLDistanceCache) GetMany(
	ctx context.Context,
	origin string,
	destinations []string,
) (_ map[string]ports.DistanceResult, err error) {
	defer obs.Time(ctx, "distance.cache.GetMany")(&err)

	if s.DB == nil {
		return nil, errors.New("distance cache: db is nil")
	}

	if origin == "" {
		return nil, errors.New("get distance cache: origin must not be empty")
	}

	uniq := uniqueKeys(destinations)
	if len(uniq) == 0 {
		return map[string]ports.DistanceResult{}, nil
	}

	// The zero time admits every row.
	var cutoff time.Time
	if s.MaxAge > 0 {
		cutoff = s.now().Add(-s.MaxAge)
	}

	q := `
	SELECT destination, distance_meters, duration_seconds
	FROM distance_cache
	WHERE origin = $1
		AND destination = ANY($2::text[])
		AND updated_at >= $3;
	`

	rows, err := s.DB.QueryContext(ctx, q, origin, uniq, cutoff)
	if err != nil {
		return nil, fmt.Errorf("get distance cache: query distance_cache table: %w", err)
	}
	defer rows.Close()

	out := make(map[string]ports.DistanceResult, len(uniq))
	for rows.Next() {
		var dest string
		var meters, seconds int
		if err := rows.Scan(&dest, &meters, &seconds); err != nil {
			return nil, fmt.Errorf("get distance cache: scan rows: %w", err)
		}
		out[dest] = ports.DistanceResult{
			DistanceMeters:  meters,
			DurationSeconds: seconds,
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get distance cache: row iteration: %w", err)
	}

	return out, nil
}

// Store many legs for a single origin, refreshing their timestamps.
func (s *SQLDistanceCache) PutMany(
	ctx context.Context,
	origin string,
	results map[string]ports.DistanceResult,
) (err error) {
	defer obs.Time(ctx, "distance.cache.PutMany")(&err)

	if s.DB == nil {
		return errors.New("distance cache: db is nil")
	}

	if origin == "" {
		return errors.New("insert distance cache: origin must not be empty")
	}

	if len(results) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert distance cache: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO distance_cache (origin, destination, distance_meters, duration_seconds, updated_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (origin, destination) DO UPDATE
	SET distance_meters = EXCLUDED.distance_meters,
		duration_seconds = EXCLUDED.duration_seconds,
		updated_at = EXCLUDED.updated_at;
	`)
	if err != nil {
		return fmt.Errorf("insert distance cache: db prepare: %w", err)
	}
	defer stmt.Close()

	now := s.now().UTC()
	for dest, r := range results {
		if strings.TrimSpace(dest) == "" {
			return fmt.Errorf("insert distance cache: empty destination key")
		}

		if _, err := stmt.ExecContext(ctx, origin, dest, r.DistanceMeters, r.DurationSeconds, now); err != nil {
			return fmt.Errorf("insert distance cache dest=%q: %w", dest, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert distance cache commit: %w", err)
	}

	return nil
}

// Prune deletes legs last refreshed before cutoff and returns how many were removed.
func (s *SQLDistanceCache) Prune(ctx context.Context, cutoff time.Time) (_ int64, err error) {
	defer obs.Time(ctx, "distance.cache.Prune")(&err)

	if s.DB == nil {
		return 0, errors.New("distance cache: db is nil")
	}

	res, err := s.DB.ExecContext(ctx, `DELETE FROM distance_cache WHERE updated_at < $1;`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune distance cache: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune distance cache: rows affected: %w", err)
	}

	return n, nil
}
