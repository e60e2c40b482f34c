package domain

import "time"

// RouteOrder is the output of a route strategy: a visiting order over stop
// indices, starting at 0 (and ending at 0 for closed tours), with the total
// predicted duration. Local and remote strategies both produce it, so
// downstream consumers never need to know which one ran.
type RouteOrder struct {
	Order        []int
	TotalSeconds int
	Strategy     string
	// ArrivalSeconds[i] is the elapsed time on reaching Order[i]; nil when the
	// strategy does not report per-leg times.
	ArrivalSeconds []int
}

// Closed reports whether the order returns to its starting stop.
func (r RouteOrder) Closed() bool {
	return len(r.Order) > 1 && r.Order[len(r.Order)-1] == r.Order[0]
}

// Represents a single stop in a planned trip.
// ArriveAfterSeconds is the predicted elapsed time from departure; it is
// nil when the strategy that produced the order does not report per-leg times.
type PlannedStop struct {
	Index              int
	Label              string
	ArriveAfterSeconds *int
}

// Represents a planned trip as returned to callers and persisted.
// It is immutable planning data and contains no side effects.
type TripPlan struct {
	ID             int64
	DepartAt       time.Time
	ReturnToOrigin bool
	Stops          []PlannedStop
	Order          []int
	TotalSeconds   int
	Strategy       string
	Link           string
	CreatedAt      time.Time
}
