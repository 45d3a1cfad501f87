package ws

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/location-resolver/internal/domain"
	"github.com/couchcryptid/location-resolver/internal/geocode"
	"github.com/couchcryptid/location-resolver/internal/session"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bangalore = domain.Point{Lat: 12.9716, Lon: 77.5946}

type searchFunc func(ctx context.Context, query string, limit int) []domain.SearchCandidate

func (f searchFunc) Search(ctx context.Context, query string, limit int) []domain.SearchCandidate {
	return f(ctx, query, limit)
}

// echoSearch returns one candidate named after the query.
func echoSearch(_ context.Context, query string, _ int) []domain.SearchCandidate {
	return []domain.SearchCandidate{{DisplayName: query, Lat: 12.93, Lon: 77.62}}
}

type noAddress struct{}

func (noAddress) Resolve(context.Context, float64, float64) *domain.GeocodedAddress { return nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startSession(t *testing.T, search Searcher, clock clockwork.Clock, query string) *websocket.Conn {
	t.Helper()
	logger := discardLogger()
	h := NewHandler(Options{
		Search:     search,
		Controller: session.NewController(noAddress{}, "India", nil, logger),
		MapCenter:  bangalore,
		Clock:      clock,
		Logger:     logger,
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readMsg(t *testing.T, conn *websocket.Conn) outbound {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg outbound
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func send(t *testing.T, conn *websocket.Conn, msg map[string]any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(msg))
}

// readHandshake consumes the render and initial marker frames.
func readHandshake(t *testing.T, conn *websocket.Conn) (render, marker outbound) {
	t.Helper()
	render = readMsg(t, conn)
	marker = readMsg(t, conn)
	return render, marker
}

func waitForTimer(t *testing.T, clock *clockwork.FakeClock) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
}

func TestSession_RendersMapOnConnect(t *testing.T) {
	conn := startSession(t, searchFunc(echoSearch), clockwork.NewFakeClock(), "?lat=12.9352&lng=77.6245&zoom=13")

	render, marker := readHandshake(t, conn)

	assert.Equal(t, typeRender, render.Type)
	require.NotNil(t, render.Center)
	assert.Equal(t, domain.Point{Lat: 12.9352, Lon: 77.6245}, *render.Center)
	assert.Equal(t, 13, render.Zoom)

	assert.Equal(t, typeMarker, marker.Type)
	assert.True(t, marker.Draggable)
}

func TestSession_DebouncedQuery(t *testing.T) {
	clock := clockwork.NewFakeClock()
	conn := startSession(t, searchFunc(echoSearch), clock, "")
	readHandshake(t, conn)

	send(t, conn, map[string]any{"type": "query", "text": "kora", "limit": 5})
	waitForTimer(t, clock)
	clock.Advance(geocode.DebounceDelay)

	msg := readMsg(t, conn)
	assert.Equal(t, typeCandidates, msg.Type)
	assert.Equal(t, "kora", msg.Query)
	assert.Equal(t, uint64(1), msg.Seq)
	require.Len(t, msg.Candidates, 1)
	assert.Equal(t, "kora", msg.Candidates[0].DisplayName)
}

func TestSession_ShortQueryAnsweredImmediately(t *testing.T) {
	conn := startSession(t, searchFunc(echoSearch), clockwork.NewFakeClock(), "")
	readHandshake(t, conn)

	send(t, conn, map[string]any{"type": "query", "text": "k"})

	msg := readMsg(t, conn)
	assert.Equal(t, typeCandidates, msg.Type)
	assert.Empty(t, msg.Candidates)
}

func TestSession_DiscardsStaleResults(t *testing.T) {
	clock := clockwork.NewFakeClock()
	release := make(chan struct{})
	started := make(chan string, 2)
	var once sync.Once
	t.Cleanup(func() { once.Do(func() { close(release) }) })

	search := searchFunc(func(ctx context.Context, query string, limit int) []domain.SearchCandidate {
		started <- query
		if query == "kora" {
			<-release
		}
		return echoSearch(ctx, query, limit)
	})
	conn := startSession(t, search, clock, "")
	readHandshake(t, conn)

	send(t, conn, map[string]any{"type": "query", "text": "kora"})
	waitForTimer(t, clock)
	go clock.Advance(geocode.DebounceDelay)
	require.Equal(t, "kora", <-started)

	send(t, conn, map[string]any{"type": "query", "text": "koramangala"})
	waitForTimer(t, clock)
	clock.Advance(geocode.DebounceDelay)
	require.Equal(t, "koramangala", <-started)

	msg := readMsg(t, conn)
	assert.Equal(t, "koramangala", msg.Query)
	assert.Equal(t, uint64(2), msg.Seq)

	// The slow, older search finishes last and must not reach the client.
	once.Do(func() { close(release) })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	var extra outbound
	err := conn.ReadJSON(&extra)
	require.Error(t, err, "stale result must be discarded, got %+v", extra)
}

func TestSession_DragEndEmitsMarkerThenAddress(t *testing.T) {
	conn := startSession(t, searchFunc(echoSearch), clockwork.NewFakeClock(), "")
	readHandshake(t, conn)

	send(t, conn, map[string]any{"type": "drag_end", "lat": 12.9716, "lng": 77.5946})

	marker := readMsg(t, conn)
	assert.Equal(t, typeMarker, marker.Type)
	require.NotNil(t, marker.Center)
	assert.Equal(t, bangalore, *marker.Center)

	addr := readMsg(t, conn)
	assert.Equal(t, typeAddress, addr.Type)
	require.NotNil(t, addr.Address)
	assert.Equal(t, domain.GeocodedAddress{Latitude: 12.9716, Longitude: 77.5946, Country: "India"}, *addr.Address)
}

func TestSession_ClickIgnoredInPickMode(t *testing.T) {
	conn := startSession(t, searchFunc(echoSearch), clockwork.NewFakeClock(), "")
	readHandshake(t, conn)

	send(t, conn, map[string]any{"type": "click", "lat": 12.97, "lng": 77.59})
	send(t, conn, map[string]any{"type": "select", "candidate": map[string]any{"lat": 12.93, "lon": 77.62, "display_name": "Koramangala, Bengaluru"}})

	msg := readMsg(t, conn)
	assert.Equal(t, typeAddress, msg.Type, "the click produced nothing")
	require.NotNil(t, msg.Address)
	assert.Equal(t, "Koramangala, Bengaluru", msg.Address.Address)
}

func TestSession_ClickResolvedInBrowseMode(t *testing.T) {
	conn := startSession(t, searchFunc(echoSearch), clockwork.NewFakeClock(), "?mode=browse")
	readHandshake(t, conn)

	send(t, conn, map[string]any{"type": "click", "lat": 12.97, "lng": 77.59})

	assert.Equal(t, typeMarker, readMsg(t, conn).Type)
	assert.Equal(t, typeAddress, readMsg(t, conn).Type)
}

func TestSession_DetectDenied(t *testing.T) {
	conn := startSession(t, searchFunc(echoSearch), clockwork.NewFakeClock(), "")
	readHandshake(t, conn)

	send(t, conn, map[string]any{"type": "detect", "error_code": 1})

	msg := readMsg(t, conn)
	assert.Equal(t, typeError, msg.Type)
	require.NotNil(t, msg.Error)
	assert.Equal(t, "denied", msg.Error.Kind)
	assert.Equal(t, 1, msg.Error.Code)
	assert.NotEmpty(t, msg.Error.Message)
}

func TestSession_UnknownMessageType(t *testing.T) {
	conn := startSession(t, searchFunc(echoSearch), clockwork.NewFakeClock(), "")
	readHandshake(t, conn)

	send(t, conn, map[string]any{"type": "teleport"})

	msg := readMsg(t, conn)
	assert.Equal(t, typeError, msg.Type)
	assert.Contains(t, msg.Error.Message, "teleport")
}
