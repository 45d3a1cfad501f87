package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/couchcryptid/location-resolver/internal/domain"
)

// ErrMapAlreadyBound is returned by BindMap when the caller's previous
// binding for the surface is still active.
var ErrMapAlreadyBound = errors.New("session: map surface already bound")

// DefaultZoom is the initial map zoom level.
const DefaultZoom = 15

// MapMode selects which gestures resolve addresses.
type MapMode int

const (
	// ModePick resolves only marker drags.
	ModePick MapMode = iota
	// ModeBrowse also resolves plain map clicks.
	ModeBrowse
)

// Marker is a movable pin on a map surface.
type Marker interface {
	MoveTo(p domain.Point) error
}

// MapSurface is the mapping capability: render, place a marker, and report
// drag-end and click gestures.
type MapSurface interface {
	Render(center domain.Point, zoom int) error
	PlaceMarker(at domain.Point, draggable bool) (Marker, error)
	OnDragEnd(fn func(domain.Point))
	OnClick(fn func(domain.Point))
}

// MapOptions configures BindMap.
type MapOptions struct {
	Center domain.Point
	Zoom   int
	Mode   MapMode
}

// MapBinding is the live connection between a surface and a Controller.
type MapBinding struct {
	ctx    context.Context
	ctrl   *Controller
	marker Marker
	emit   Emit

	mu     sync.Mutex
	active bool
}

// BindMap renders surface at opts.Center, places a draggable marker there,
// and routes gestures to ctrl.MapMoved. Every emitted address also moves the
// marker. prev is the caller's earlier binding for the same surface, if any;
// while it is active BindMap fails with ErrMapAlreadyBound and leaves the
// surface untouched.
func BindMap(ctx context.Context, surface MapSurface, prev *MapBinding, ctrl *Controller, opts MapOptions, emit Emit) (*MapBinding, error) {
	if prev.Active() {
		return nil, ErrMapAlreadyBound
	}
	if opts.Zoom <= 0 {
		opts.Zoom = DefaultZoom
	}

	if err := surface.Render(opts.Center, opts.Zoom); err != nil {
		return nil, fmt.Errorf("render map: %w", err)
	}
	marker, err := surface.PlaceMarker(opts.Center, true)
	if err != nil {
		return nil, fmt.Errorf("place marker: %w", err)
	}

	b := &MapBinding{
		ctx:    ctx,
		ctrl:   ctrl,
		marker: marker,
		emit:   emit,
		active: true,
	}
	surface.OnDragEnd(b.moved)
	if opts.Mode == ModeBrowse {
		surface.OnClick(b.moved)
	}
	return b, nil
}

// Active reports whether the binding still routes gestures. A nil binding
// is inactive.
func (b *MapBinding) Active() bool {
	if b == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}

// Close detaches the binding. Later gestures on the surface are ignored.
func (b *MapBinding) Close() {
	b.mu.Lock()
	b.active = false
	b.mu.Unlock()
}

func (b *MapBinding) moved(p domain.Point) {
	if !b.Active() {
		return
	}
	b.ctrl.MapMoved(b.ctx, p.Lat, p.Lon, func(addr domain.GeocodedAddress) {
		if err := b.marker.MoveTo(addr.Point()); err != nil {
			b.ctrl.logger.Warn("move marker failed", "error", err)
		}
		b.emit(addr)
	})
}
