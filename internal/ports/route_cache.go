package ports

import (
	"context"
	"fastest-route-service/internal/domain"
)

// Short-lived cache of computed plans keyed by a normalized request key.
type RouteCache interface {
	Get(ctx context.Context, key string) (*domain.TripPlan, bool)
	Set(ctx context.Context, key string, plan *domain.TripPlan)
}
