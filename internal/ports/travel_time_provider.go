package ports

import (
	"context"
	"fastest-route-service/internal/domain"
	"time"
)

// Contract for retrieving a full travel-time matrix between stops.
type TravelTimeMatrixProvider interface {
	// Return an N×N matrix of travel seconds (row = origin stop, column =
	// destination stop) for a departure at departAt. Diagonal entries are
	// unspecified.
	FetchDurations(ctx context.Context, stops []domain.Stop, departAt time.Time) ([][]int, error)
}
