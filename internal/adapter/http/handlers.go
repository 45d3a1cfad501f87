package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/couchcryptid/location-resolver/internal/domain"
	"github.com/couchcryptid/location-resolver/internal/geolocation"
)

const maxBodyBytes = 1 << 20

type searchResponse struct {
	Candidates []domain.SearchCandidate `json:"candidates"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	candidates := s.deps.Search.Search(r.Context(), q.Get("q"), limit)
	writeJSON(w, http.StatusOK, searchResponse{Candidates: candidates})
}

func (s *Server) handleReverse(w http.ResponseWriter, r *http.Request) {
	p, err := parsePoint(r.URL.Query().Get("lat"), r.URL.Query().Get("lng"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var addr domain.GeocodedAddress
	s.deps.Controller.MapMoved(r.Context(), p.Lat, p.Lon, func(a domain.GeocodedAddress) { addr = a })
	writeJSON(w, http.StatusOK, addr)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var c domain.SearchCandidate
	if !decodeBody(w, r, &c) {
		return
	}
	if err := (domain.Point{Lat: c.Lat, Lon: c.Lon}).Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var addr domain.GeocodedAddress
	s.deps.Controller.SelectCandidate(r.Context(), c, func(a domain.GeocodedAddress) { addr = a })
	writeJSON(w, http.StatusOK, addr)
}

type detectRequest struct {
	Fix       *geolocation.ReportedFix `json:"fix"`
	ErrorCode *int                     `json:"error_code"`
}

func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	var req detectRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var source geolocation.PositionSource
	switch {
	case req.Fix != nil:
		source = geolocation.ReportedSource{Fix: req.Fix}
	case req.ErrorCode != nil:
		source = geolocation.ReportedSource{ErrorCode: *req.ErrorCode}
	case s.deps.IPSource != nil:
		source = s.deps.IPSource(clientIP(r))
	default:
		writeError(w, http.StatusBadRequest, "fix or error_code is required")
		return
	}

	var addr domain.GeocodedAddress
	err := s.deps.Controller.AutoDetect(r.Context(), source, func(a domain.GeocodedAddress) { addr = a })
	var locErr *domain.LocationError
	switch {
	case errors.As(err, &locErr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": locErr})
	case err != nil:
		s.logger.Error("auto-detect failed", "error", err)
		writeError(w, http.StatusInternalServerError, "auto-detect failed")
	default:
		writeJSON(w, http.StatusOK, addr)
	}
}

// distanceItem is an opaque item with optional coordinates.
type distanceItem struct {
	ID        string   `json:"id"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

func (i distanceItem) Coordinates() (float64, float64, bool) {
	if i.Latitude == nil || i.Longitude == nil {
		return 0, 0, false
	}
	return *i.Latitude, *i.Longitude, true
}

type distanceRequest struct {
	User     *domain.Point  `json:"user"`
	Items    []distanceItem `json:"items"`
	RadiusKm *float64       `json:"radius_km"`
	Sort     bool           `json:"sort"`
}

type distanceResult struct {
	distanceItem
	DistanceKm    *float64 `json:"distance_km"`
	DistanceLabel string   `json:"distance_label,omitempty"`
}

type distanceResponse struct {
	Items []distanceResult `json:"items"`
}

func (s *Server) handleDistance(w http.ResponseWriter, r *http.Request) {
	var req distanceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.User != nil {
		if err := req.User.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, "user: "+err.Error())
			return
		}
	}

	annotated := domain.Annotate(req.Items, req.User)
	if req.RadiusKm != nil {
		annotated = domain.FilterWithinRadius(annotated, *req.RadiusKm)
	}
	if req.Sort {
		annotated = domain.SortByDistance(annotated)
	}

	out := make([]distanceResult, len(annotated))
	for i, a := range annotated {
		out[i] = distanceResult{distanceItem: a.Item, DistanceKm: a.Distance}
		if a.Distance != nil {
			out[i].DistanceLabel = domain.FormatDistance(*a.Distance)
		}
	}
	writeJSON(w, http.StatusOK, distanceResponse{Items: out})
}

func parsePoint(latStr, lonStr string) (domain.Point, error) {
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return domain.Point{}, fmt.Errorf("invalid lat %q", latStr)
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return domain.Point{}, fmt.Errorf("invalid lng %q", lonStr)
	}
	p := domain.Point{Lat: lat, Lon: lon}
	return p, p.Validate()
}

// clientIP prefers the first X-Forwarded-For hop.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": map[string]string{"message": msg}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
