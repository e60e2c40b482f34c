package services

import (
	"fastest-route-service/internal/domain"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sameBuckets builds a model whose four samples are identical.
func sameBuckets(t *testing.T, m [][]int) *domain.TimeBucketedCostModel {
	t.Helper()
	model, err := domain.NewCostModel(len(m), [domain.BucketCount][][]int{m, m, m, m})
	require.NoError(t, err)
	return model
}

// randomModel builds a model with independent random samples per bucket.
func randomModel(t *testing.T, seed int64, n int) *domain.TimeBucketedCostModel {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))

	var buckets [domain.BucketCount][][]int
	for b := range buckets {
		buckets[b] = make([][]int, n)
		for i := range buckets[b] {
			buckets[b][i] = make([]int, n)
			for j := range buckets[b][i] {
				if i != j {
					buckets[b][i][j] = 300 + rng.Intn(1500)
				}
			}
		}
	}

	model, err := domain.NewCostModel(n, buckets)
	require.NoError(t, err)
	return model
}

// routeCost replays an order against the model using the same departure-time rule.
func routeCost(model *domain.TimeBucketedCostModel, order []int) int {
	elapsed := 0
	for i := 1; i < len(order); i++ {
		elapsed += model.TravelTime(elapsed, order[i-1], order[i])
	}
	return elapsed
}

// bruteForceBest enumerates every permutation of stops 1..n-1.
func bruteForceBest(model *domain.TimeBucketedCostModel, closed bool) int {
	n := model.Size()
	rest := make([]int, 0, n-1)
	for i := 1; i < n; i++ {
		rest = append(rest, i)
	}

	best := math.MaxInt
	var permute func(k int)
	permute = func(k int) {
		if k == len(rest) {
			order := append([]int{0}, rest...)
			if closed {
				order = append(order, 0)
			}
			best = min(best, routeCost(model, order))
			return
		}
		for i := k; i < len(rest); i++ {
			rest[k], rest[i] = rest[i], rest[k]
			permute(k + 1)
			rest[k], rest[i] = rest[i], rest[k]
		}
	}
	permute(0)

	return best
}

func TestFindOptimalRouteTrivialOpen(t *testing.T) {
	model := sameBuckets(t, [][]int{
		{0, 420},
		{380, 0},
	})

	got := FindOptimalRoute(model, false)

	assert.Equal(t, []int{0, 1}, got.Order)
	assert.Equal(t, 420, got.TotalSeconds)
	assert.Equal(t, StrategyExhaustive, got.Strategy)
}

func TestFindOptimalRouteTrivialClosed(t *testing.T) {
	model := sameBuckets(t, [][]int{
		{0, 420},
		{380, 0},
	})

	got := FindOptimalRoute(model, true)

	assert.Equal(t, []int{0, 1, 0}, got.Order)
	assert.Equal(t, 800, got.TotalSeconds)
}

func TestFindOptimalRouteSingleStop(t *testing.T) {
	model := sameBuckets(t, [][]int{{0}})

	got := FindOptimalRoute(model, true)

	assert.Equal(t, []int{0}, got.Order)
	assert.Equal(t, 0, got.TotalSeconds)
}

func TestFindOptimalRouteClosedTourUniqueOptimum(t *testing.T) {
	model := sameBuckets(t, [][]int{
		{0, 10, 20},
		{10, 0, 4},
		{20, 5, 0},
	})

	got := FindOptimalRoute(model, true)

	assert.Equal(t, []int{0, 1, 2, 0}, got.Order)
	assert.Equal(t, 34, got.TotalSeconds)
}

func TestFindOptimalRouteClosedTourTie(t *testing.T) {
	model := sameBuckets(t, [][]int{
		{0, 10, 20},
		{10, 0, 5},
		{20, 5, 0},
	})

	got := FindOptimalRoute(model, true)

	// [0,1,2,0] and [0,2,1,0] both take 35s.
	assert.Equal(t, 35, got.TotalSeconds)
	assert.Contains(t, [][]int{{0, 1, 2, 0}, {0, 2, 1, 0}}, got.Order)
}

func TestFindOptimalRouteOpenPath(t *testing.T) {
	// Stop 3 is only cheap to reach from stop 1, so the best open path ends there.
	model := sameBuckets(t, [][]int{
		{0, 100, 50, 400},
		{100, 0, 60, 30},
		{50, 60, 0, 500},
		{400, 30, 500, 0},
	})

	got := FindOptimalRoute(model, false)

	assert.Equal(t, []int{0, 2, 1, 3}, got.Order)
	assert.Equal(t, 140, got.TotalSeconds)
}

func TestFindOptimalRouteUsesDepartureTime(t *testing.T) {
	// Leg 0->1 is fast now; leg 1->2 becomes very slow an hour in.
	// Leg 0->2 is slow now but the 2->1 leg stays fast.
	slowLater := [][]int{
		{0, 3600, 3600},
		{3600, 0, 9000},
		{3600, 300, 0},
	}
	now := [][]int{
		{0, 3600, 3700},
		{3600, 0, 300},
		{3700, 300, 0},
	}
	model, err := domain.NewCostModel(3, [domain.BucketCount][][]int{now, now, slowLater, slowLater})
	require.NoError(t, err)

	got := FindOptimalRoute(model, false)

	// Departing 1->2 at t=3600 costs 9000s; 0->2 then 2->1 costs 3700+300.
	assert.Equal(t, []int{0, 2, 1}, got.Order)
	assert.Equal(t, 4000, got.TotalSeconds)
	assert.Equal(t, routeCost(model, got.Order), got.TotalSeconds)
}

func TestFindOptimalRouteMatchesBruteForce(t *testing.T) {
	for seed := int64(1); seed <= 12; seed++ {
		for _, closed := range []bool{false, true} {
			n := 3 + int(seed%5)
			model := randomModel(t, seed, n)

			got := FindOptimalRoute(model, closed)

			require.Equal(t, bruteForceBest(model, closed), got.TotalSeconds, "seed=%d n=%d closed=%v", seed, n, closed)
			require.Equal(t, got.TotalSeconds, routeCost(model, got.Order), "reported total must replay")

			wantLen := n
			if closed {
				wantLen++
			}
			require.Len(t, got.Order, wantLen)
			require.Equal(t, 0, got.Order[0])
			if closed {
				require.Equal(t, 0, got.Order[n])
			}
			require.ElementsMatch(t, seqInts(n), got.Order[:n])
		}
	}
}

func TestFindOptimalRouteDeterministic(t *testing.T) {
	model := randomModel(t, 42, 7)

	first := FindOptimalRoute(model, true)
	for i := 0; i < 5; i++ {
		again := FindOptimalRoute(model, true)
		assert.Equal(t, first.Order, again.Order)
		assert.Equal(t, first.TotalSeconds, again.TotalSeconds)
	}
}

func TestFindOptimalRoutePruningDoesNotChangeOptimum(t *testing.T) {
	for seed := int64(100); seed < 106; seed++ {
		model := randomModel(t, seed, 7)
		for _, closed := range []bool{false, true} {
			pruned := findOptimalRoute(model, closed, true)
			unpruned := findOptimalRoute(model, closed, false)

			assert.Equal(t, unpruned.TotalSeconds, pruned.TotalSeconds, "seed=%d closed=%v", seed, closed)
		}
	}
}

func TestFindOptimalRouteParallelMatchesSequential(t *testing.T) {
	for seed := int64(200); seed < 208; seed++ {
		model := randomModel(t, seed, 2+int(seed%7))
		for _, closed := range []bool{false, true} {
			seq := FindOptimalRoute(model, closed)
			par := FindOptimalRouteParallel(model, closed)

			assert.Equal(t, seq.TotalSeconds, par.TotalSeconds, "seed=%d closed=%v", seed, closed)
			assert.Equal(t, seq.Order, par.Order, "seed=%d closed=%v", seed, closed)
		}
	}
}

func seqInts(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
