package geoapify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/location-resolver/internal/domain"
	"github.com/couchcryptid/location-resolver/internal/observability"
)

// DefaultBaseURL is the Geoapify geocoding API root.
const DefaultBaseURL = "https://api.geoapify.com/v1/geocode"

// Waiter gates outbound requests. *ratelimit.Limiter satisfies it.
type Waiter interface {
	Wait(ctx context.Context) error
}

// Client implements domain.Geocoder using the Geoapify Geocoding API.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	limiter    Waiter
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Geoapify geocoding client. Every request waits on
// limiter first; the limiter belongs to this client.
func NewClient(apiKey, baseURL string, timeout time.Duration, limiter Waiter, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		limiter: limiter,
		metrics: metrics,
		logger:  logger,
	}
}

// Reverse converts coordinates to provider address records.
func (c *Client) Reverse(ctx context.Context, lat, lon float64) ([]domain.ProviderResult, error) {
	params := url.Values{
		"lat":    {formatCoord(lat)},
		"lon":    {formatCoord(lon)},
		"format": {"json"},
		"apiKey": {c.apiKey},
	}
	return c.doRequest(ctx, "reverse", params)
}

// Autocomplete converts free text to ranked candidate records.
func (c *Client) Autocomplete(ctx context.Context, q domain.AutocompleteQuery) ([]domain.ProviderResult, error) {
	params := url.Values{
		"text":   {q.Text},
		"format": {"json"},
		"apiKey": {c.apiKey},
	}
	if q.CountryCode != "" {
		params.Set("filter", "countrycode:"+q.CountryCode)
	}
	if q.Bias != nil {
		// Geoapify uses lon,lat order.
		params.Set("bias", fmt.Sprintf("proximity:%s,%s", formatCoord(q.Bias.Lon), formatCoord(q.Bias.Lat)))
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	return c.doRequest(ctx, "autocomplete", params)
}

func (c *Client) doRequest(ctx context.Context, method string, params url.Values) ([]domain.ProviderResult, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%s rate limit: %w", method, err)
		}
	}

	fullURL := fmt.Sprintf("%s/%s?%s", c.baseURL, method, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.observeDuration(method, start)
	if err != nil {
		c.countOutcome(method, "error")
		return nil, fmt.Errorf("%s geocode request: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.countOutcome(method, "error")
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("geoapify API error: status %d: %s", resp.StatusCode, body)
	}

	var apiResp response
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		c.countOutcome(method, "error")
		return nil, fmt.Errorf("decode response: %w", err)
	}

	results := make([]domain.ProviderResult, 0, len(apiResp.Results))
	for _, raw := range apiResp.Results {
		r, err := parseResult(raw)
		if err != nil {
			c.logger.Warn("skipping malformed geocode result", "method", method, "error", err)
			continue
		}
		results = append(results, r)
	}

	if len(results) == 0 {
		c.countOutcome(method, "empty")
		return results, nil
	}
	c.countOutcome(method, "success")
	return results, nil
}

func (c *Client) observeDuration(method string, start time.Time) {
	if c.metrics != nil {
		c.metrics.GeocodeAPIDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	}
}

func (c *Client) countOutcome(method, outcome string) {
	if c.metrics != nil {
		c.metrics.GeocodeRequests.WithLabelValues(method, outcome).Inc()
	}
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Geoapify API response types.

type response struct {
	Results []json.RawMessage `json:"results"`
}

type result struct {
	Formatted  string         `json:"formatted"`
	Lat        float64        `json:"lat"`
	Lon        float64        `json:"lon"`
	PlaceID    string         `json:"place_id"`
	Properties map[string]any `json:"properties"`
}

// parseResult accepts both the nested shape (address fields under
// "properties") and the flattened format=json shape, where the result object
// itself is the properties bag.
func parseResult(raw json.RawMessage) (domain.ProviderResult, error) {
	var r result
	if err := json.Unmarshal(raw, &r); err != nil {
		return domain.ProviderResult{}, fmt.Errorf("decode result: %w", err)
	}

	props := r.Properties
	if props == nil {
		if err := json.Unmarshal(raw, &props); err != nil {
			return domain.ProviderResult{}, fmt.Errorf("decode result properties: %w", err)
		}
	}

	return domain.ProviderResult{
		Formatted:  r.Formatted,
		Lat:        r.Lat,
		Lon:        r.Lon,
		PlaceID:    r.PlaceID,
		Properties: props,
	}, nil
}
