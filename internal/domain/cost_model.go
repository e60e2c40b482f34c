package domain

import "fmt"

const (
	// BucketCount is the number of departure-time samples held by a cost model.
	BucketCount = 4
	// HalfHour is the spacing between samples, in seconds.
	HalfHour = 1800
	// MaxStops is the largest stop count a visited bitmask can represent.
	MaxStops = 64
)

// TimeBucketedCostModel holds one N×N travel-time matrix (seconds) per departure
// sample at 0, 30, 60 and 90 minutes from departure, and answers travel-time
// queries at arbitrary elapsed times by interpolating between samples.
//
// A model is immutable after construction and safe for concurrent readers.
type TimeBucketedCostModel struct {
	n       int
	buckets [BucketCount][][]int
}

// NewCostModel validates and copies the bucket matrices.
// Every matrix must be exactly n×n with non-negative entries.
func NewCostModel(n int, buckets [BucketCount][][]int) (*TimeBucketedCostModel, error) {
	if n < 1 {
		return nil, fmt.Errorf("new cost model: n=%d: %w", n, ErrShapeMismatch)
	}
	if n > MaxStops {
		return nil, fmt.Errorf("new cost model: n=%d exceeds %d: %w", n, MaxStops, ErrTooManyStops)
	}

	m := &TimeBucketedCostModel{n: n}
	for b, matrix := range buckets {
		if len(matrix) != n {
			return nil, fmt.Errorf("new cost model: bucket %d has %d rows, want %d: %w", b, len(matrix), n, ErrShapeMismatch)
		}

		cp := make([][]int, n)
		for i, row := range matrix {
			if len(row) != n {
				return nil, fmt.Errorf("new cost model: bucket %d row %d has %d columns, want %d: %w", b, i, len(row), n, ErrShapeMismatch)
			}
			for j, v := range row {
				if i != j && v < 0 {
					return nil, fmt.Errorf("new cost model: bucket %d [%d][%d]=%d: %w", b, i, j, v, ErrNegativeTravelTime)
				}
			}
			cp[i] = append([]int(nil), row...)
		}
		m.buckets[b] = cp
	}

	return m, nil
}

// Size returns the number of stops N.
func (m *TimeBucketedCostModel) Size() int { return m.n }

// Bucket returns the sample index used for a query at elapsedSeconds.
func (m *TimeBucketedCostModel) Bucket(elapsedSeconds int) int {
	return min(BucketCount-1, elapsedSeconds/HalfHour)
}

// Raw returns the sampled travel time of a bucket without interpolation.
func (m *TimeBucketedCostModel) Raw(bucket, from, to int) int {
	return m.buckets[bucket][from][to]
}

// TravelTime returns the predicted seconds to travel from -> to when leaving
// elapsedSeconds after departure.
//
// Between samples the value is blended linearly and truncated toward zero.
// From the last sample onward the raw value is returned; there is no
// extrapolation past the modelled window.
func (m *TimeBucketedCostModel) TravelTime(elapsedSeconds, from, to int) int {
	if from == to {
		panic(fmt.Sprintf("cost model: travel time queried for identical stops %d", from))
	}
	if from < 0 || from >= m.n || to < 0 || to >= m.n {
		panic(fmt.Sprintf("cost model: stop index out of range from=%d to=%d n=%d", from, to, m.n))
	}

	b := m.Bucket(elapsedSeconds)
	t := m.buckets[b][from][to]
	if b == BucketCount-1 {
		return t
	}

	weight := float64(elapsedSeconds%HalfHour) / HalfHour
	next := m.buckets[b+1][from][to]
	return int(float64(t)*(1.0-weight) + float64(next)*weight)
}
