// Package ipapi resolves a coarse position from an IP address using the
// ip-api.com JSON endpoint.
package ipapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/location-resolver/internal/domain"
	"github.com/couchcryptid/location-resolver/internal/geolocation"
)

// DefaultBaseURL is the ip-api.com JSON endpoint.
const DefaultBaseURL = "http://ip-api.com/json"

// ipAccuracyM is the nominal radius reported for IP-derived positions.
const ipAccuracyM = 5000

// Waiter gates outbound requests. *ratelimit.Limiter satisfies it.
type Waiter interface {
	Wait(ctx context.Context) error
}

// Client looks up IP positions.
type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    Waiter
	logger     *slog.Logger
}

// NewClient creates an ip-api client. limiter may be nil.
func NewClient(baseURL string, timeout time.Duration, limiter Waiter, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		limiter:    limiter,
		logger:     logger,
	}
}

type response struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	City    string  `json:"city"`
}

// Locate returns the position of ip. An empty ip asks for the caller's own
// public address. Lookups the provider rejects (private ranges, reserved
// addresses) come back as an unavailable *domain.LocationError.
func (c *Client) Locate(ctx context.Context, ip string) (geolocation.Position, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return geolocation.Position{}, fmt.Errorf("ip lookup rate limit: %w", err)
		}
	}

	u := c.baseURL
	if ip != "" {
		u += "/" + url.PathEscape(ip)
	}
	u += "?fields=status,message,lat,lon,city"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return geolocation.Position{}, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return geolocation.Position{}, fmt.Errorf("ip lookup request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return geolocation.Position{}, fmt.Errorf("ip-api error: status %d: %s", resp.StatusCode, body)
	}

	var r response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return geolocation.Position{}, fmt.Errorf("decode response: %w", err)
	}
	if r.Status != "success" {
		c.logger.Debug("ip lookup rejected", "ip", ip, "message", r.Message)
		return geolocation.Position{}, domain.NewLocationError(domain.LocationUnavailable, domain.CodePositionUnavailable)
	}

	return geolocation.Position{
		Lat:       r.Lat,
		Lon:       r.Lon,
		AccuracyM: ipAccuracyM,
		Accuracy:  domain.AccuracyLow,
	}, nil
}

// Source returns a PositionSource bound to ip.
func (c *Client) Source(ip string) geolocation.PositionSource {
	return geolocation.SourceFunc(func(ctx context.Context, _ geolocation.PositionOptions) (geolocation.Position, error) {
		return c.Locate(ctx, ip)
	})
}
