package ports

import (
	"context"
	"fastest-route-service/internal/domain"
	"time"
)

// Input to a route strategy. Stops[0] is the fixed origin.
type RouteRequest struct {
	Stops          []domain.Stop
	ReturnToOrigin bool
	DepartAt       time.Time
}

// RouteStrategy computes a visiting order for a set of stops.
// Implementations may search locally over a travel-time model or delegate to a
// remote whole-route optimizer; callers depend only on this capability.
type RouteStrategy interface {
	Name() string
	ComputeOrder(ctx context.Context, req RouteRequest) (*domain.RouteOrder, error)
}
