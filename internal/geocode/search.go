package geocode

import (
	"context"
	"log/slog"
	"strings"

	"github.com/couchcryptid/location-resolver/internal/domain"
	"github.com/couchcryptid/location-resolver/internal/observability"
)

// DefaultLimit caps results when the caller passes a non-positive limit.
const DefaultLimit = 5

// SearchOptions fixes the home-market parameters of every search.
type SearchOptions struct {
	CountryCode string        // e.g. "in"
	Bias        *domain.Point // proximity bias for the primary query
	HomeCity    string        // appended to simplified fallback queries
}

// Searcher runs autocomplete queries with a one-shot fallback for a known
// colloquial abbreviation.
type Searcher struct {
	geocoder domain.Geocoder
	opts     SearchOptions
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewSearcher creates a Searcher.
func NewSearcher(geocoder domain.Geocoder, opts SearchOptions, metrics *observability.Metrics, logger *slog.Logger) *Searcher {
	return &Searcher{
		geocoder: geocoder,
		opts:     opts,
		metrics:  metrics,
		logger:   logger,
	}
}

// Search returns ranked candidates for query. It never fails: queries below
// the minimum length, provider errors, and empty results all yield an empty
// slice.
//
// When the biased primary query finds nothing and the text matches the
// known abbreviation pattern, one broader query is issued with the
// simplified text and the country filter only.
func (s *Searcher) Search(ctx context.Context, query string, limit int) []domain.SearchCandidate {
	query = strings.TrimSpace(query)
	if !domain.IsSearchable(query) {
		return []domain.SearchCandidate{}
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	primary, err := s.geocoder.Autocomplete(ctx, domain.AutocompleteQuery{
		Text:        query,
		CountryCode: s.opts.CountryCode,
		Bias:        s.opts.Bias,
		Limit:       limit,
	})
	if err != nil {
		s.logger.Warn("autocomplete failed", "query", query, "error", err)
		return []domain.SearchCandidate{}
	}
	if len(primary) > 0 {
		return candidates(primary)
	}

	simplified, ok := domain.SimplifyQuery(query, s.opts.HomeCity)
	if !ok {
		return []domain.SearchCandidate{}
	}

	s.logger.Debug("autocomplete fallback", "query", query, "simplified", simplified)
	fallback, err := s.geocoder.Autocomplete(ctx, domain.AutocompleteQuery{
		Text:        simplified,
		CountryCode: s.opts.CountryCode,
		Limit:       limit,
	})
	if err != nil {
		s.logger.Warn("autocomplete fallback failed", "query", simplified, "error", err)
		s.countFallback("error")
		return []domain.SearchCandidate{}
	}
	if len(fallback) == 0 {
		s.countFallback("empty")
		return []domain.SearchCandidate{}
	}
	s.countFallback("hit")
	return candidates(fallback)
}

func (s *Searcher) countFallback(outcome string) {
	if s.metrics != nil {
		s.metrics.SearchFallbacks.WithLabelValues(outcome).Inc()
	}
}

func candidates(results []domain.ProviderResult) []domain.SearchCandidate {
	out := make([]domain.SearchCandidate, len(results))
	for i, r := range results {
		out[i] = r.Candidate()
	}
	return out
}
