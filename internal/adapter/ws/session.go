// Package ws serves an interactive location session over a WebSocket: typed
// queries are debounced into searches, and map gestures from a remote map
// surface are resolved into addresses.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/couchcryptid/location-resolver/internal/domain"
	"github.com/couchcryptid/location-resolver/internal/geocode"
	"github.com/couchcryptid/location-resolver/internal/geolocation"
	"github.com/couchcryptid/location-resolver/internal/observability"
	"github.com/couchcryptid/location-resolver/internal/session"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
)

const (
	maxMessageBytes     = 64 << 10
	defaultWriteTimeout = 10 * time.Second
	defaultIdleTimeout  = 5 * time.Minute
)

// Searcher runs autocomplete. *geocode.Searcher satisfies it.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) []domain.SearchCandidate
}

// Options configures a Handler.
type Options struct {
	Search     Searcher
	Controller *session.Controller
	IPSource   func(ip string) geolocation.PositionSource // nil disables IP detection
	MapCenter  domain.Point                               // used when the client sends none
	Clock      clockwork.Clock                            // debounce timers
	Metrics    *observability.Metrics
	Logger     *slog.Logger

	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Handler upgrades requests to WebSocket sessions.
type Handler struct {
	opts     Options
	upgrader websocket.Upgrader
}

// NewHandler creates a Handler.
func NewHandler(opts Options) *Handler {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = defaultIdleTimeout
	}
	return &Handler{
		opts: opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the connection and runs the session until the client
// disconnects. Query parameters: lat, lng (map centre), zoom, and
// mode=browse to resolve plain clicks as well as marker drags.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mapOpts, err := h.mapOptions(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.opts.Logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &wsSession{
		h:      h,
		conn:   conn,
		ctx:    ctx,
		cancel: cancel,
		ip:     remoteIP(r),
		logger: h.opts.Logger.With("remote", conn.RemoteAddr().String()),
	}
	s.run(mapOpts)
}

func (h *Handler) mapOptions(r *http.Request) (session.MapOptions, error) {
	q := r.URL.Query()
	opts := session.MapOptions{Center: h.opts.MapCenter, Mode: session.ModePick}
	if q.Get("mode") == "browse" {
		opts.Mode = session.ModeBrowse
	}
	if q.Has("lat") || q.Has("lng") {
		lat, err := strconv.ParseFloat(q.Get("lat"), 64)
		if err != nil {
			return opts, errors.New("invalid lat")
		}
		lon, err := strconv.ParseFloat(q.Get("lng"), 64)
		if err != nil {
			return opts, errors.New("invalid lng")
		}
		opts.Center = domain.Point{Lat: lat, Lon: lon}
		if err := opts.Center.Validate(); err != nil {
			return opts, err
		}
	}
	if v := q.Get("zoom"); v != "" {
		zoom, err := strconv.Atoi(v)
		if err != nil {
			return opts, errors.New("invalid zoom")
		}
		opts.Zoom = zoom
	}
	return opts, nil
}

// wsSession is one connected client.
type wsSession struct {
	h      *Handler
	conn   *websocket.Conn
	ctx    context.Context
	cancel context.CancelFunc
	ip     string
	logger *slog.Logger

	writeMu sync.Mutex
	wg      sync.WaitGroup

	debouncer *geocode.Debouncer
	surface   *remoteSurface
}

func (s *wsSession) run(mapOpts session.MapOptions) {
	defer func() {
		s.cancel()
		s.debouncer.Stop()
		s.wg.Wait()
		_ = s.conn.Close()
	}()

	s.debouncer = geocode.NewDebouncer(s.ctx, s.h.opts.Search.Search, s.deliverCandidates, s.h.opts.Clock, s.h.opts.Metrics)
	s.surface = &remoteSurface{s: s}

	binding, err := session.BindMap(s.ctx, s.surface, nil, s.h.opts.Controller, mapOpts, s.sendAddress)
	if err != nil {
		s.logger.Warn("bind map failed", "error", err)
		return
	}
	defer binding.Close()

	s.conn.SetReadLimit(maxMessageBytes)
	for {
		_ = s.conn.SetReadDeadline(time.Now().Add(s.h.opts.IdleTimeout))
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read failed", "error", err)
			}
			return
		}

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			s.sendError(errorBody{Message: "invalid message: " + err.Error()})
			continue
		}
		s.dispatch(msg)
	}
}

func (s *wsSession) dispatch(msg inbound) {
	switch msg.Type {
	case typeQuery:
		s.debouncer.Submit(msg.Text, msg.Limit)
	case typeSelect:
		if msg.Candidate == nil {
			s.sendError(errorBody{Message: "select requires a candidate"})
			return
		}
		s.h.opts.Controller.SelectCandidate(s.ctx, *msg.Candidate, s.sendAddress)
	case typeDetect:
		source, ok := s.detectSource(msg)
		if !ok {
			s.sendError(errorBody{Message: "detect requires a fix or error_code"})
			return
		}
		s.goAsync(func() {
			if err := s.h.opts.Controller.AutoDetect(s.ctx, source, s.sendAddress); err != nil {
				s.sendLocationError(err)
			}
		})
	case typeDragEnd, typeClick:
		p := domain.Point{Lat: msg.Lat, Lon: msg.Lng}
		if err := p.Validate(); err != nil {
			s.sendError(errorBody{Message: err.Error()})
			return
		}
		s.goAsync(func() { s.surface.gesture(msg.Type, p) })
	default:
		s.sendError(errorBody{Message: "unknown message type " + strconv.Quote(msg.Type)})
	}
}

func (s *wsSession) detectSource(msg inbound) (geolocation.PositionSource, bool) {
	switch {
	case msg.Fix != nil:
		return geolocation.ReportedSource{Fix: msg.Fix}, true
	case msg.ErrorCode != nil:
		return geolocation.ReportedSource{ErrorCode: *msg.ErrorCode}, true
	case s.h.opts.IPSource != nil:
		return s.h.opts.IPSource(s.ip), true
	default:
		return nil, false
	}
}

func (s *wsSession) goAsync(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

// deliverCandidates drops results superseded by newer input.
func (s *wsSession) deliverCandidates(r geocode.Result) {
	if !s.debouncer.IsCurrent(r.Seq) {
		s.logger.Debug("discarding stale search result", "seq", r.Seq, "query", r.Query)
		return
	}
	s.write(outbound{Type: typeCandidates, Seq: r.Seq, Query: r.Query, Candidates: r.Candidates})
}

func (s *wsSession) sendAddress(addr domain.GeocodedAddress) {
	s.write(outbound{Type: typeAddress, Address: &addr})
}

func (s *wsSession) sendLocationError(err error) {
	var locErr *domain.LocationError
	if errors.As(err, &locErr) {
		s.sendError(errorBody{Kind: string(locErr.Kind), Code: locErr.Code, Message: locErr.Message})
		return
	}
	if s.ctx.Err() == nil {
		s.logger.Error("auto-detect failed", "error", err)
		s.sendError(errorBody{Message: "auto-detect failed"})
	}
}

func (s *wsSession) sendError(e errorBody) {
	s.write(outbound{Type: typeError, Error: &e})
}

// write serializes all frames on the connection.
func (s *wsSession) write(msg outbound) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.ctx.Err() != nil {
		return
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(s.h.opts.WriteTimeout))
	if err := s.conn.WriteJSON(msg); err != nil {
		s.logger.Warn("websocket write failed", "type", msg.Type, "error", err)
		s.cancel()
	}
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
