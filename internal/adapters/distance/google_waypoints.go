package distance

import (
	"fastest-route-service/internal/domain"
	"fmt"
	"strings"
	"time"
)

const (
	googleProvider       = "google"
	googleDefaultBaseURL = "https://routes.googleapis.com"
)

type latLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type location struct {
	LatLng latLng `json:"latLng"`
}

type waypoint struct {
	Location *location `json:"location,omitempty"`
	Address  string    `json:"address,omitempty"`
}

// toWaypoint renders a stop as a coordinate waypoint when it has a fix,
// otherwise as a free-text address.
func toWaypoint(s domain.Stop) waypoint {
	if s.Coordinates != nil {
		return waypoint{Location: &location{LatLng: latLng{
			Latitude:  s.Coordinates.Lat,
			Longitude: s.Coordinates.Lon,
		}}}
	}
	return waypoint{Address: s.Label}
}

// departureTime formats t for the Routes API, which rejects departure times
// in the past. Times that are not in the future are omitted so the API uses
// its own notion of now.
func departureTime(t, now time.Time) string {
	if t.IsZero() || !t.After(now) {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// parseGoogleDuration parses protobuf duration strings such as "1234s".
// An empty string is a zero duration, which the API omits.
func parseGoogleDuration(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	if !strings.HasSuffix(s, "s") {
		return 0, fmt.Errorf("duration %q has no seconds suffix", s)
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", s)
	}

	return int(d.Round(time.Second) / time.Second), nil
}
