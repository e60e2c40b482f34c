package distance

import (
	"context"
	"errors"
	"fastest-route-service/internal/domain"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticMatrixProviderBuckets(t *testing.T) {
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	p := NewStaticMatrixProvider(base, []StaticPair{
		{From: "A", To: "B", Seconds: []int{100, 200, 300}},
		{From: "B", To: "A", Seconds: []int{50}},
	})
	stops := domain.BuildStops(nil, []string{"A", "B"})

	tests := []struct {
		offset time.Duration
		want   [][]int
	}{
		{0, [][]int{{0, 100}, {50, 0}}},
		{30 * time.Minute, [][]int{{0, 200}, {50, 0}}},
		{60 * time.Minute, [][]int{{0, 300}, {50, 0}}},
		{90 * time.Minute, [][]int{{0, 300}, {50, 0}}},
	}
	for _, tt := range tests {
		m, err := p.FetchDurations(context.Background(), stops, base.Add(tt.offset))
		require.NoError(t, err)
		assert.Equal(t, tt.want, m, "offset=%s", tt.offset)
	}
}

func TestStaticMatrixProviderMissingPair(t *testing.T) {
	p := NewStaticMatrixProvider(time.Now(), []StaticPair{{From: "A", To: "B", Seconds: []int{1}}})

	_, err := p.FetchDurations(context.Background(), domain.BuildStops(nil, []string{"A", "B"}), time.Now())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrProviderResponse))
}
