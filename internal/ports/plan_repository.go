package ports

import (
	"context"
	"fastest-route-service/internal/domain"
)

// Port: a boundary for persisting planned trips.
type PlanRepository interface {
	// Store a plan and return its assigned ID.
	SavePlan(ctx context.Context, plan *domain.TripPlan) (int64, error)
	// Retrieve the most recent plans, newest first.
	ListPlans(ctx context.Context, limit int) ([]*domain.TripPlan, error)
}
