// Package geocode resolves coordinates to addresses and free text to ranked
// candidate places on top of a domain.Geocoder.
package geocode

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/location-resolver/internal/domain"
)

// Reverser turns coordinates into addresses.
type Reverser struct {
	geocoder       domain.Geocoder
	defaultCountry string
	logger         *slog.Logger
}

// NewReverser creates a Reverser. defaultCountry fills Country when the
// provider omits it.
func NewReverser(geocoder domain.Geocoder, defaultCountry string, logger *slog.Logger) *Reverser {
	return &Reverser{
		geocoder:       geocoder,
		defaultCountry: defaultCountry,
		logger:         logger,
	}
}

// Resolve returns the address at lat/lon, or nil when the provider has no
// record or the request failed. A non-nil result always carries exactly
// lat/lon.
func (r *Reverser) Resolve(ctx context.Context, lat, lon float64) *domain.GeocodedAddress {
	results, err := r.geocoder.Reverse(ctx, lat, lon)
	if err != nil {
		r.logger.Warn("reverse geocoding failed", "lat", lat, "lon", lon, "error", err)
		return nil
	}
	if len(results) == 0 {
		r.logger.Debug("reverse geocoding returned no results", "lat", lat, "lon", lon)
		return nil
	}

	addr := domain.ComposeAddress(lat, lon, results[0], r.defaultCountry)
	return &addr
}
