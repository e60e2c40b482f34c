package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fastest-route-service/internal/domain"
	"fastest-route-service/internal/platform/obs"
	"fastest-route-service/internal/ports"
	"fmt"
)

// Postgres-backed implementation of the PlanRepository port.
type SQLPlanRepository struct{ DB *sql.DB }

var _ ports.PlanRepository = (*SQLPlanRepository)(nil)

func NewSQLPlanRepository(db *sql.DB) *SQLPlanRepository {
	return &SQLPlanRepository{DB: db}
}

type stopRecord struct {
	Index              int    `json:"index"`
	Label              string `json:"label"`
	ArriveAfterSeconds *int   `json:"arrive_after_seconds,omitempty"`
}

// SavePlan inserts a plan and returns its generated ID.
func (s *SQLPlanRepository) SavePlan(ctx context.Context, plan *domain.TripPlan) (_ int64, err error) {
	defer obs.Time(ctx, "plans.Save")(&err)

	if s.DB == nil {
		return 0, errors.New("plan repository: DB is nil")
	}
	if plan == nil {
		return 0, errors.New("save plan: plan is nil")
	}

	records := make([]stopRecord, 0, len(plan.Stops))
	for _, st := range plan.Stops {
		records = append(records, stopRecord{
			Index:              st.Index,
			Label:              st.Label,
			ArriveAfterSeconds: st.ArriveAfterSeconds,
		})
	}

	stopsJSON, err := json.Marshal(records)
	if err != nil {
		return 0, fmt.Errorf("save plan: marshal stops: %w", err)
	}
	orderJSON, err := json.Marshal(plan.Order)
	if err != nil {
		return 0, fmt.Errorf("save plan: marshal order: %w", err)
	}

	query := `
	INSERT INTO trip_plans (
		depart_at,
		return_to_origin,
		strategy,
		total_seconds,
		link,
		visit_order,
		stops
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING id;
	`

	var id int64
	err = s.DB.QueryRowContext(ctx, query,
		plan.DepartAt.UTC(),
		plan.ReturnToOrigin,
		plan.Strategy,
		plan.TotalSeconds,
		plan.Link,
		string(orderJSON),
		string(stopsJSON),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("save plan: insert trip_plans row: %w", err)
	}

	return id, nil
}

// ListPlans returns up to limit plans, newest first.
func (s *SQLPlanRepository) ListPlans(ctx context.Context, limit int) (_ []*domain.TripPlan, err error) {
	defer obs.Time(ctx, "plans.List")(&err)

	if s.DB == nil {
		return nil, errors.New("plan repository: DB is nil")
	}
	if limit <= 0 {
		return []*domain.TripPlan{}, nil
	}

	query := `
	SELECT
		id,
		depart_at,
		return_to_origin,
		strategy,
		total_seconds,
		link,
		visit_order,
		stops,
		created_at
	FROM trip_plans
	ORDER BY created_at DESC, id DESC
	LIMIT $1;
	`
	rows, err := s.DB.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list plans: query trip_plans table: %w", err)
	}
	defer rows.Close()

	plans := make([]*domain.TripPlan, 0, limit)
	for rows.Next() {
		var p domain.TripPlan
		var orderJSON, stopsJSON []byte
		err := rows.Scan(
			&p.ID,
			&p.DepartAt,
			&p.ReturnToOrigin,
			&p.Strategy,
			&p.TotalSeconds,
			&p.Link,
			&orderJSON,
			&stopsJSON,
			&p.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("list plans: scan row: %w", err)
		}

		if err := json.Unmarshal(orderJSON, &p.Order); err != nil {
			return nil, fmt.Errorf("list plans: plan %d: decode order: %w", p.ID, err)
		}

		var records []stopRecord
		if err := json.Unmarshal(stopsJSON, &records); err != nil {
			return nil, fmt.Errorf("list plans: plan %d: decode stops: %w", p.ID, err)
		}
		p.Stops = make([]domain.PlannedStop, 0, len(records))
		for _, r := range records {
			p.Stops = append(p.Stops, domain.PlannedStop{
				Index:              r.Index,
				Label:              r.Label,
				ArriveAfterSeconds: r.ArriveAfterSeconds,
			})
		}

		plans = append(plans, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list plans: row iteration: %w", err)
	}

	return plans, nil
}
