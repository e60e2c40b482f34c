package distance

import (
	"context"
	"fastest-route-service/internal/domain"
	"fastest-route-service/internal/ports"
	"fmt"
	"time"
)

// StaticPair is a fixed directed leg. Seconds[k] is the travel time when
// leaving in departure bucket k; the last value covers later buckets.
type StaticPair struct {
	From, To string
	Seconds  []int
}

// StaticMatrixProvider serves travel times from a fixed table of legs keyed
// by stop label, for exercising planners offline.
type StaticMatrixProvider struct {
	base time.Time
	m    map[string][]int
}

var _ ports.TravelTimeMatrixProvider = (*StaticMatrixProvider)(nil)

// NewStaticMatrixProvider builds a provider whose bucket 0 departs at base.
func NewStaticMatrixProvider(base time.Time, pairs []StaticPair) *StaticMatrixProvider {
	m := make(map[string][]int, len(pairs))
	for _, p := range pairs {
		m[p.From+"|"+p.To] = append([]int(nil), p.Seconds...)
	}
	return &StaticMatrixProvider{base: base, m: m}
}

func (p *StaticMatrixProvider) FetchDurations(
	ctx context.Context,
	stops []domain.Stop,
	departAt time.Time,
) ([][]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bucket := max(0, int(departAt.Sub(p.base)/(domain.HalfHour*time.Second)))

	n := len(stops)
	out := make([][]int, n)
	for i := range stops {
		out[i] = make([]int, n)
		for j := range stops {
			if i == j {
				continue
			}

			from, to := stopKey(stops[i]), stopKey(stops[j])
			secs, ok := p.m[from+"|"+to]
			if !ok || len(secs) == 0 {
				return nil, fmt.Errorf("static provider: missing pair %q -> %q: %w", from, to, domain.ErrProviderResponse)
			}
			out[i][j] = secs[min(bucket, len(secs)-1)]
		}
	}

	return out, nil
}
