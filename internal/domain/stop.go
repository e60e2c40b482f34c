package domain

import "strings"

// CurrentLocationLabel names stop 0 when it is a live coordinate rather than an address.
const CurrentLocationLabel = "Current location"

// Represents a single place the route must visit.
// A Stop is either a free-text address (Coordinates == nil) or a live
// coordinate fix. Its position in a stop list is its stop index.
type Stop struct {
	Label       string
	Coordinates *Coordinates
}

// IsCoordinate reports whether the stop is a coordinate fix rather than an address.
func (s Stop) IsCoordinate() bool { return s.Coordinates != nil }

// NormalizeAddress collapses internal whitespace and trims the result.
func NormalizeAddress(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// BuildStops lays out stop indices: index 0 is the live origin when present,
// otherwise the first address; the remaining addresses follow in input order.
// Addresses are expected to be normalized and deduplicated already.
func BuildStops(origin *Coordinates, addresses []string) []Stop {
	stops := make([]Stop, 0, len(addresses)+1)
	if origin != nil {
		c := *origin
		stops = append(stops, Stop{Label: CurrentLocationLabel, Coordinates: &c})
	}
	for _, a := range addresses {
		stops = append(stops, Stop{Label: a})
	}
	return stops
}
