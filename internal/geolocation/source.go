package geolocation

import (
	"context"

	"github.com/couchcryptid/location-resolver/internal/domain"
)

// AccuracyFor tags a fix by its reported radius in meters.
func AccuracyFor(meters float64) domain.Accuracy {
	switch {
	case meters > 0 && meters <= 100:
		return domain.AccuracyHigh
	case meters > 0 && meters <= 2000:
		return domain.AccuracyMedium
	default:
		return domain.AccuracyLow
	}
}

// ReportedFix is a position measured by the client device.
type ReportedFix struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	AccuracyM float64 `json:"accuracy_m"`
}

// ReportedSource replays what the client's own geolocation capability
// produced: either a fix or a raw platform error code.
type ReportedSource struct {
	Fix       *ReportedFix
	ErrorCode int
}

// CurrentPosition implements PositionSource.
func (s ReportedSource) CurrentPosition(ctx context.Context, _ PositionOptions) (Position, error) {
	if err := ctx.Err(); err != nil {
		return Position{}, err
	}
	if s.Fix == nil {
		code := s.ErrorCode
		if code == 0 {
			code = domain.CodePositionUnavailable
		}
		return Position{}, domain.ClassifyPlatformCode(code)
	}

	p := domain.Point{Lat: s.Fix.Latitude, Lon: s.Fix.Longitude}
	if err := p.Validate(); err != nil {
		return Position{}, domain.NewLocationError(domain.LocationUnavailable, domain.CodePositionUnavailable)
	}
	return Position{
		Lat:       p.Lat,
		Lon:       p.Lon,
		AccuracyM: s.Fix.AccuracyM,
		Accuracy:  AccuracyFor(s.Fix.AccuracyM),
	}, nil
}

// SourceFunc adapts a function to PositionSource.
type SourceFunc func(ctx context.Context, opts PositionOptions) (Position, error)

// CurrentPosition implements PositionSource.
func (f SourceFunc) CurrentPosition(ctx context.Context, opts PositionOptions) (Position, error) {
	return f(ctx, opts)
}
