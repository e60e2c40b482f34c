package ports

import (
	"context"
	"fastest-route-service/internal/domain"
)

// DistanceResult is one directed leg as reported by a routing provider.
type DistanceResult struct {
	DistanceMeters  int
	DurationSeconds int
}

// DistanceCache persists provider legs keyed by origin and destination stop keys.
type DistanceCache interface {
	GetMany(ctx context.Context, origin string, destinations []string) (map[string]DistanceResult, error)
	PutMany(ctx context.Context, origin string, results map[string]DistanceResult) error
}

// GeocodeCache persists address to coordinate resolutions.
type GeocodeCache interface {
	GetMany(ctx context.Context, addresses []string) (map[string]domain.Coordinates, error)
	PutMany(ctx context.Context, results map[string]domain.Coordinates) error
}
