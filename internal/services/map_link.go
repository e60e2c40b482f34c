package services

import (
	"fastest-route-service/internal/domain"
	"strings"
)

const mapsDirectionsURL = "https://www.google.com/maps/dir/"

// segmentEscaper keeps an address inside one path segment of the link.
var segmentEscaper = strings.NewReplacer(
	" ", "+",
	"/", "%2F",
	"?", "%3F",
	"#", "%23",
)

// GenerateWebLink renders an ordered stop sequence as a Google Maps
// directions link. Coordinate stops appear as "lat,lon"; address stops keep
// their text with spaces replaced by '+'. Every stop is followed by '/'.
func GenerateWebLink(order []int, stops []domain.Stop) string {
	var b strings.Builder
	b.WriteString(mapsDirectionsURL)

	for _, idx := range order {
		if idx < 0 || idx >= len(stops) {
			continue
		}
		b.WriteString(linkSegment(stops[idx]))
		b.WriteByte('/')
	}

	return b.String()
}

func linkSegment(s domain.Stop) string {
	if s.Coordinates != nil {
		return s.Coordinates.LatLonString()
	}
	return segmentEscaper.Replace(s.Label)
}
