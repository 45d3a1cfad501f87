// Package session ties the three ways a user picks a location (device
// detection, search selection, map gestures) to one address callback.
package session

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/location-resolver/internal/domain"
	"github.com/couchcryptid/location-resolver/internal/geolocation"
	"github.com/couchcryptid/location-resolver/internal/observability"
	"github.com/jonboulle/clockwork"
)

// Emit receives every resolved address.
type Emit func(domain.GeocodedAddress)

// AddressResolver reverse-geocodes a point; nil means no address is known.
// *geocode.Reverser satisfies it.
type AddressResolver interface {
	Resolve(ctx context.Context, lat, lon float64) *domain.GeocodedAddress
}

// Publisher forwards emitted addresses to a downstream sink.
type Publisher interface {
	Publish(ctx context.Context, addr domain.GeocodedAddress) error
}

// Resolution paths, used as metric labels.
const (
	PathDetect = "detect"
	PathSelect = "select"
	PathMap    = "map"
)

// Controller converges detection, selection, and map moves on a single
// GeocodedAddress shape.
type Controller struct {
	resolver       AddressResolver
	defaultCountry string
	clock          clockwork.Clock
	publisher      Publisher
	metrics        *observability.Metrics
	logger         *slog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithPublisher publishes every emitted address to p.
func WithPublisher(p Publisher) Option {
	return func(c *Controller) { c.publisher = p }
}

// WithClock sets the clock used for geolocation timeouts.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

// NewController creates a Controller.
func NewController(resolver AddressResolver, defaultCountry string, metrics *observability.Metrics, logger *slog.Logger, opts ...Option) *Controller {
	c := &Controller{
		resolver:       resolver,
		defaultCountry: defaultCountry,
		clock:          clockwork.NewRealClock(),
		metrics:        metrics,
		logger:         logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AutoDetect acquires a position from source and reverse-geocodes it.
// Geolocation failures are returned as-is (a *domain.LocationError) and
// nothing is emitted. When the position has no known address the bare
// coordinates are still emitted. The fix's accuracy tag is carried over.
func (c *Controller) AutoDetect(ctx context.Context, source geolocation.PositionSource, emit Emit) error {
	acq := geolocation.NewAcquirer(source, c.clock, c.metrics, c.logger)
	pos, err := acq.Acquire(ctx)
	if err != nil {
		return err
	}

	addr := c.reverse(ctx, pos.Lat, pos.Lon)
	addr.Accuracy = pos.Accuracy
	c.emit(ctx, PathDetect, addr, emit)
	return nil
}

// SelectCandidate maps an autocomplete candidate straight into an address.
// No network call is made.
func (c *Controller) SelectCandidate(ctx context.Context, candidate domain.SearchCandidate, emit Emit) {
	c.emit(ctx, PathSelect, domain.FromCandidate(candidate, c.defaultCountry), emit)
}

// MapMoved reverse-geocodes a dropped or clicked map position. The
// coordinates are authoritative: an unknown address still emits lat/lon
// with an empty address and city.
func (c *Controller) MapMoved(ctx context.Context, lat, lon float64, emit Emit) {
	c.emit(ctx, PathMap, c.reverse(ctx, lat, lon), emit)
}

func (c *Controller) reverse(ctx context.Context, lat, lon float64) domain.GeocodedAddress {
	resolved := c.resolver.Resolve(ctx, lat, lon)
	if resolved == nil {
		return domain.CoordinatesOnly(lat, lon, c.defaultCountry)
	}
	return domain.WithCityFallback(*resolved)
}

func (c *Controller) emit(ctx context.Context, path string, addr domain.GeocodedAddress, emit Emit) {
	if c.metrics != nil {
		c.metrics.AddressesResolved.WithLabelValues(path).Inc()
	}
	emit(addr)

	if c.publisher == nil {
		return
	}
	if err := c.publisher.Publish(ctx, addr); err != nil {
		c.logger.Warn("address publish failed", "path", path, "lat", addr.Latitude, "lon", addr.Longitude, "error", err)
	}
}
