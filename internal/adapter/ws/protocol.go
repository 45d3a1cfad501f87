package ws

import (
	"sync"

	"github.com/couchcryptid/location-resolver/internal/domain"
	"github.com/couchcryptid/location-resolver/internal/geolocation"
	"github.com/couchcryptid/location-resolver/internal/session"
)

// Message types.
const (
	typeQuery   = "query"
	typeSelect  = "select"
	typeDetect  = "detect"
	typeDragEnd = "drag_end"
	typeClick   = "click"

	typeCandidates = "candidates"
	typeAddress    = "address"
	typeError      = "error"
	typeRender     = "render"
	typeMarker     = "marker"
)

// inbound is any client message; fields are populated per Type.
type inbound struct {
	Type string `json:"type"`

	// query
	Text  string `json:"text,omitempty"`
	Limit int    `json:"limit,omitempty"`

	// select
	Candidate *domain.SearchCandidate `json:"candidate,omitempty"`

	// detect
	Fix       *geolocation.ReportedFix `json:"fix,omitempty"`
	ErrorCode *int                     `json:"error_code,omitempty"`

	// drag_end, click
	Lat float64 `json:"lat,omitempty"`
	Lng float64 `json:"lng,omitempty"`
}

type errorBody struct {
	Kind    string `json:"kind,omitempty"`
	Code    int    `json:"code,omitempty"`
	Message string `json:"message"`
}

type outbound struct {
	Type string `json:"type"`

	// candidates
	Seq        uint64                   `json:"seq,omitempty"`
	Query      string                   `json:"query,omitempty"`
	Candidates []domain.SearchCandidate `json:"candidates,omitempty"`

	// address
	Address *domain.GeocodedAddress `json:"address,omitempty"`

	// render, marker
	Center    *domain.Point `json:"center,omitempty"`
	Zoom      int           `json:"zoom,omitempty"`
	Draggable bool          `json:"draggable,omitempty"`

	// error
	Error *errorBody `json:"error,omitempty"`
}

// remoteSurface is a session.MapSurface whose map lives in the client:
// render and marker calls become outbound frames, and drag_end/click frames
// become gesture callbacks.
type remoteSurface struct {
	s *wsSession

	mu      sync.Mutex
	onDrag  func(domain.Point)
	onClick func(domain.Point)
}

func (m *remoteSurface) Render(center domain.Point, zoom int) error {
	m.s.write(outbound{Type: typeRender, Center: &center, Zoom: zoom})
	return nil
}

func (m *remoteSurface) PlaceMarker(at domain.Point, draggable bool) (session.Marker, error) {
	mk := &remoteMarker{s: m.s, draggable: draggable}
	return mk, mk.MoveTo(at)
}

func (m *remoteSurface) OnDragEnd(fn func(domain.Point)) {
	m.mu.Lock()
	m.onDrag = fn
	m.mu.Unlock()
}

func (m *remoteSurface) OnClick(fn func(domain.Point)) {
	m.mu.Lock()
	m.onClick = fn
	m.mu.Unlock()
}

// gesture routes an inbound drag_end or click to the registered callback.
// Clicks are ignored unless a click handler was registered.
func (m *remoteSurface) gesture(kind string, p domain.Point) {
	m.mu.Lock()
	fn := m.onDrag
	if kind == typeClick {
		fn = m.onClick
	}
	m.mu.Unlock()
	if fn != nil {
		fn(p)
	}
}

type remoteMarker struct {
	s         *wsSession
	draggable bool
}

func (mk *remoteMarker) MoveTo(p domain.Point) error {
	mk.s.write(outbound{Type: typeMarker, Center: &p, Draggable: mk.draggable})
	return nil
}
