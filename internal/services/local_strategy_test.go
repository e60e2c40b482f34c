package services

import (
	"context"
	"errors"
	"fastest-route-service/internal/domain"
	"fastest-route-service/internal/ports"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var closedFixture = [][]int{
	{0, 10, 20},
	{10, 0, 4},
	{20, 5, 0},
}

func TestLocalSearchStrategyExhaustive(t *testing.T) {
	s := &LocalSearchStrategy{
		Provider:           &bucketProvider{base: time.Time{}, matrixFor: constMatrix(closedFixture)},
		MaxExhaustiveStops: 10,
	}

	order, err := s.ComputeOrder(context.Background(), ports.RouteRequest{
		Stops:          domain.BuildStops(nil, []string{"A", "B", "C"}),
		ReturnToOrigin: true,
	})
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1, 2, 0}, order.Order)
	assert.Equal(t, 34, order.TotalSeconds)
	assert.Equal(t, StrategyExhaustive, order.Strategy)
	assert.Equal(t, []int{0, 10, 14, 34}, order.ArrivalSeconds)
	assert.Equal(t, StrategyLocalSearch, s.Name())
}

func TestLocalSearchStrategyParallel(t *testing.T) {
	model := randomModel(t, 7, 6)
	matrix := make([][]int, 6)
	for i := range matrix {
		matrix[i] = make([]int, 6)
		for j := range matrix[i] {
			if i != j {
				matrix[i][j] = model.Raw(0, i, j)
			}
		}
	}
	stops := domain.BuildStops(nil, []string{"A", "B", "C", "D", "E", "F"})

	seq := &LocalSearchStrategy{Provider: &bucketProvider{base: time.Time{}, matrixFor: constMatrix(matrix)}}
	par := &LocalSearchStrategy{Provider: &bucketProvider{base: time.Time{}, matrixFor: constMatrix(matrix)}, ParallelThreshold: 4}

	want, err := seq.ComputeOrder(context.Background(), ports.RouteRequest{Stops: stops})
	require.NoError(t, err)
	got, err := par.ComputeOrder(context.Background(), ports.RouteRequest{Stops: stops})
	require.NoError(t, err)

	assert.Equal(t, want.Order, got.Order)
	assert.Equal(t, want.TotalSeconds, got.TotalSeconds)
}

func TestLocalSearchStrategyGreedyFallback(t *testing.T) {
	s := &LocalSearchStrategy{
		Provider:           &bucketProvider{base: time.Time{}, matrixFor: constMatrix(closedFixture)},
		MaxExhaustiveStops: 2,
	}

	order, err := s.ComputeOrder(context.Background(), ports.RouteRequest{
		Stops:          domain.BuildStops(nil, []string{"A", "B", "C"}),
		ReturnToOrigin: true,
	})
	require.NoError(t, err)

	assert.Equal(t, StrategyNearestNeighbor, order.Strategy)
	assert.Equal(t, []int{0, 1, 2, 0}, order.Order)
	assert.Equal(t, order.TotalSeconds, order.ArrivalSeconds[len(order.ArrivalSeconds)-1])
}

func TestLocalSearchStrategyProviderError(t *testing.T) {
	s := &LocalSearchStrategy{Provider: &bucketProvider{
		base:      time.Time{},
		matrixFor: constMatrix(closedFixture),
		failAt:    0,
		err:       domain.ErrProviderResponse,
	}}

	_, err := s.ComputeOrder(context.Background(), ports.RouteRequest{
		Stops: domain.BuildStops(nil, []string{"A", "B", "C"}),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrProviderResponse))
}

func TestLocalSearchStrategyTooManyStops(t *testing.T) {
	p := &bucketProvider{base: time.Time{}, matrixFor: constMatrix(nil)}
	s := &LocalSearchStrategy{Provider: p}

	addresses := make([]string, domain.MaxStops+1)
	for i := range addresses {
		addresses[i] = string(rune('A' + i%26))
	}

	_, err := s.ComputeOrder(context.Background(), ports.RouteRequest{Stops: domain.BuildStops(nil, addresses)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrTooManyStops))
	assert.Empty(t, p.departures)
}

func TestArrivalTimes(t *testing.T) {
	model := sameBuckets(t, closedFixture)

	assert.Equal(t, []int{0, 20, 25, 35}, ArrivalTimes(model, []int{0, 2, 1, 0}))
	assert.Equal(t, []int{0}, ArrivalTimes(model, []int{0}))
	assert.Nil(t, ArrivalTimes(model, nil))
}
