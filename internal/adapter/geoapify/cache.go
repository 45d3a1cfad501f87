package geoapify

import (
	"context"
	"fmt"
	"maps"

	"github.com/couchcryptid/location-resolver/internal/domain"
	"github.com/couchcryptid/location-resolver/internal/observability"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/uber/h3-go/v4"
)

// CachedGeocoder memoizes provider results in a bounded LRU.
//
// Reverse lookups are keyed by the H3 cell containing the point, so nearby
// drops share one provider record. The record's coordinates are never used
// as output; callers compose addresses from their own input.
type CachedGeocoder struct {
	inner   domain.Geocoder
	cache   *lru.Cache[string, []domain.ProviderResult]
	h3Res   int
	metrics *observability.Metrics
}

// NewCachedGeocoder caches up to maxEntries result sets in front of inner.
// Reverse keys use H3 cells at resolution h3Res.
func NewCachedGeocoder(inner domain.Geocoder, maxEntries, h3Res int, metrics *observability.Metrics) *CachedGeocoder {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	// lru.New only fails for a non-positive size.
	cache, _ := lru.New[string, []domain.ProviderResult](maxEntries)
	return &CachedGeocoder{
		inner:   inner,
		cache:   cache,
		h3Res:   h3Res,
		metrics: metrics,
	}
}

func (c *CachedGeocoder) Reverse(ctx context.Context, lat, lon float64) ([]domain.ProviderResult, error) {
	key, err := c.reverseKey(lat, lon)
	if err != nil {
		// Out-of-range input: skip the cache and let the provider decide.
		return c.inner.Reverse(ctx, lat, lon)
	}
	return c.lookup("reverse", key, func() ([]domain.ProviderResult, error) {
		return c.inner.Reverse(ctx, lat, lon)
	})
}

func (c *CachedGeocoder) Autocomplete(ctx context.Context, q domain.AutocompleteQuery) ([]domain.ProviderResult, error) {
	bias := "none"
	if q.Bias != nil {
		bias = fmt.Sprintf("%.6f,%.6f", q.Bias.Lat, q.Bias.Lon)
	}
	key := fmt.Sprintf("ac:%s|%s|%s|%d", q.Text, q.CountryCode, bias, q.Limit)
	return c.lookup("autocomplete", key, func() ([]domain.ProviderResult, error) {
		return c.inner.Autocomplete(ctx, q)
	})
}

func (c *CachedGeocoder) lookup(method, key string, fetch func() ([]domain.ProviderResult, error)) ([]domain.ProviderResult, error) {
	if results, ok := c.cache.Get(key); ok {
		c.count(method, "hit")
		return cloneResults(results), nil
	}
	c.count(method, "miss")

	results, err := fetch()
	if err != nil {
		return results, err
	}
	// Empty results stay uncached; the provider may know the place later.
	if len(results) > 0 {
		c.cache.Add(key, cloneResults(results))
	}
	return results, nil
}

// cloneResults copies results and their property bags so that callers
// never share maps with the cache.
func cloneResults(results []domain.ProviderResult) []domain.ProviderResult {
	out := make([]domain.ProviderResult, len(results))
	for i, r := range results {
		r.Properties = maps.Clone(r.Properties)
		out[i] = r
	}
	return out
}

func (c *CachedGeocoder) reverseKey(lat, lon float64) (string, error) {
	cell, err := h3.LatLngToCell(h3.NewLatLng(lat, lon), c.h3Res)
	if err != nil {
		return "", fmt.Errorf("h3 cell: %w", err)
	}
	return "rev:" + cell.String(), nil
}

func (c *CachedGeocoder) count(method, result string) {
	if c.metrics != nil {
		c.metrics.GeocodeCache.WithLabelValues(method, result).Inc()
	}
}
