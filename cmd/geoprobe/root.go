package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/couchcryptid/location-resolver/internal/adapter/geoapify"
	"github.com/couchcryptid/location-resolver/internal/config"
	"github.com/couchcryptid/location-resolver/internal/domain"
	"github.com/couchcryptid/location-resolver/internal/geocode"
	"github.com/couchcryptid/location-resolver/internal/observability"
	"github.com/couchcryptid/location-resolver/internal/ratelimit"
	"github.com/couchcryptid/location-resolver/internal/session"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "geoprobe",
		Short:        "Probe location resolution from the command line",
		Version:      version,
		SilenceUsage: true,
	}
	root.AddCommand(newSearchCmd(), newReverseCmd(), newDistanceCmd(), newSimplifyCmd())
	return root
}

// probe bundles the live services a command needs.
type probe struct {
	searcher *geocode.Searcher
	ctrl     *session.Controller
}

func newProbe() (*probe, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetricsForTesting()

	limiter := ratelimit.New(cfg.GeocoderMinInterval, nil, metrics)
	client := geoapify.NewClient(cfg.GeocoderAPIKey, cfg.GeocoderBaseURL, cfg.GeocoderTimeout, limiter, metrics, logger)

	searcher := geocode.NewSearcher(client, geocode.SearchOptions{
		CountryCode: cfg.HomeCountryCode,
		Bias:        &domain.Point{Lat: cfg.BiasLat, Lon: cfg.BiasLon},
		HomeCity:    cfg.HomeCity,
	}, metrics, logger)
	reverser := geocode.NewReverser(client, cfg.HomeCountry, logger)

	return &probe{
		searcher: searcher,
		ctrl:     session.NewController(reverser, cfg.HomeCountry, metrics, logger),
	}, nil
}

func newSearchCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Autocomplete a free-text query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newProbe()
			if err != nil {
				return err
			}
			candidates := p.searcher.Search(cmd.Context(), args[0], limit)
			return printJSON(cmd.OutOrStdout(), candidates)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", geocode.DefaultLimit, "maximum number of candidates")
	return cmd
}

func newReverseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reverse <lat> <lng>",
		Short: "Resolve coordinates the way a map-pin drop does",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pt, err := parsePoint(args[0], args[1])
			if err != nil {
				return err
			}
			p, err := newProbe()
			if err != nil {
				return err
			}
			var addr domain.GeocodedAddress
			p.ctrl.MapMoved(cmd.Context(), pt.Lat, pt.Lon, func(a domain.GeocodedAddress) { addr = a })
			return printJSON(cmd.OutOrStdout(), addr)
		},
	}
}

func newDistanceCmd() *cobra.Command {
	var radius float64
	cmd := &cobra.Command{
		Use:   "distance <lat1> <lng1> <lat2> <lng2>",
		Short: "Great-circle distance between two points",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := parsePoint(args[0], args[1])
			if err != nil {
				return err
			}
			b, err := parsePoint(args[2], args[3])
			if err != nil {
				return err
			}
			km := domain.DistanceKm(a.Lat, a.Lon, b.Lat, b.Lon)
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"distance_km":    km,
				"distance_label": domain.FormatDistance(km),
				"within_radius":  domain.IsWithinRadius(&km, radius),
			})
		},
	}
	cmd.Flags().Float64VarP(&radius, "radius", "r", domain.DefaultRadiusKm, "radius in km for the within_radius check")
	return cmd
}

func newSimplifyCmd() *cobra.Command {
	var city string
	cmd := &cobra.Command{
		Use:   "simplify <query>",
		Short: "Show the fallback query a colloquial search would be rewritten to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			simplified, ok := domain.SimplifyQuery(args[0], city)
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"query":      args[0],
				"searchable": domain.IsSearchable(args[0]),
				"fallback":   ok,
				"simplified": simplified,
			})
		},
	}
	cmd.Flags().StringVar(&city, "city", "Bangalore", "home city appended to the simplified query")
	return cmd
}

func parsePoint(latStr, lonStr string) (domain.Point, error) {
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return domain.Point{}, fmt.Errorf("invalid latitude %q", latStr)
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return domain.Point{}, fmt.Errorf("invalid longitude %q", lonStr)
	}
	p := domain.Point{Lat: lat, Lon: lon}
	return p, p.Validate()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
