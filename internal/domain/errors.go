package domain

import "errors"

var (
	// ErrShapeMismatch is returned when cost-model matrices do not share an N×N shape.
	ErrShapeMismatch = errors.New("cost model: matrix shape mismatch")
	// ErrTooManyStops is returned when N exceeds the width of the visited bitmask.
	ErrTooManyStops = errors.New("cost model: too many stops")
	// ErrNegativeTravelTime is returned for a negative matrix entry.
	ErrNegativeTravelTime = errors.New("cost model: negative travel time")

	ErrNoAddresses   = errors.New("no addresses were entered")
	ErrSingleAddress = errors.New("at least two addresses are required to plan a route")
	// ErrAddressNotFound is returned when a provider cannot resolve an address.
	ErrAddressNotFound = errors.New("address could not be located")

	// ErrProviderUnavailable marks failures to reach the routing provider at all
	// (no connectivity, timeouts, exhausted retries on network errors).
	ErrProviderUnavailable = errors.New("routing provider unavailable")
	// ErrProviderResponse marks provider-side error responses and malformed bodies.
	ErrProviderResponse = errors.New("routing provider returned an invalid response")
)
