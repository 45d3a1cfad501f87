package domain

import "context"

// AutocompleteQuery is a forward-geocoding request.
type AutocompleteQuery struct {
	Text        string
	CountryCode string
	Bias        *Point // nil disables proximity bias
	Limit       int
}

// Geocoder talks to the upstream geocoding provider. An empty slice with a
// nil error means the provider had nothing for the request.
type Geocoder interface {
	// Reverse returns provider records for a coordinate, best first.
	Reverse(ctx context.Context, lat, lon float64) ([]ProviderResult, error)

	// Autocomplete returns ranked candidate places for free text.
	Autocomplete(ctx context.Context, q AutocompleteQuery) ([]ProviderResult, error)
}
