package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/couchcryptid/location-resolver/internal/adapter/geoapify"
	httpadapter "github.com/couchcryptid/location-resolver/internal/adapter/http"
	"github.com/couchcryptid/location-resolver/internal/adapter/ipapi"
	kafkaadapter "github.com/couchcryptid/location-resolver/internal/adapter/kafka"
	"github.com/couchcryptid/location-resolver/internal/adapter/ws"
	"github.com/couchcryptid/location-resolver/internal/config"
	"github.com/couchcryptid/location-resolver/internal/domain"
	"github.com/couchcryptid/location-resolver/internal/geocode"
	"github.com/couchcryptid/location-resolver/internal/geolocation"
	"github.com/couchcryptid/location-resolver/internal/observability"
	"github.com/couchcryptid/location-resolver/internal/ratelimit"
	"github.com/couchcryptid/location-resolver/internal/session"
)

// ip-api.com allows 45 requests per minute on the free tier.
const ipAPIInterval = 1500 * time.Millisecond

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	// Geocoder: rate-limited client behind an H3-keyed cache.
	limiter := ratelimit.New(cfg.GeocoderMinInterval, nil, metrics)
	client := geoapify.NewClient(cfg.GeocoderAPIKey, cfg.GeocoderBaseURL, cfg.GeocoderTimeout, limiter, metrics, logger)
	geocoder := geoapify.NewCachedGeocoder(client, cfg.GeocoderCacheSize, cfg.GeocoderCacheH3Res, metrics)
	logger.Info("geocoder configured",
		"base_url", cfg.GeocoderBaseURL,
		"min_interval", cfg.GeocoderMinInterval,
		"cache_size", cfg.GeocoderCacheSize,
		"cache_h3_res", cfg.GeocoderCacheH3Res,
	)

	bias := &domain.Point{Lat: cfg.BiasLat, Lon: cfg.BiasLon}
	searcher := geocode.NewSearcher(geocoder, geocode.SearchOptions{
		CountryCode: cfg.HomeCountryCode,
		Bias:        bias,
		HomeCity:    cfg.HomeCity,
	}, metrics, logger)
	reverser := geocode.NewReverser(geocoder, cfg.HomeCountry, logger)

	// Optional resolved-address sink.
	var opts []session.Option
	checks := map[string]observability.Check{}
	var publisher *kafkaadapter.Publisher
	if cfg.PublishEnabled() {
		publisher = kafkaadapter.NewPublisher(cfg, metrics, logger)
		opts = append(opts, session.WithPublisher(publisher))
		checks["kafka"] = func(ctx context.Context) error { return kafkaadapter.Ping(ctx, cfg.KafkaBrokers) }
		logger.Info("address publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaSinkTopic)
	} else {
		logger.Info("address publishing disabled")
	}
	ctrl := session.NewController(reverser, cfg.HomeCountry, metrics, logger, opts...)

	// Optional coarse IP detection.
	var ipSource func(string) geolocation.PositionSource
	if cfg.IPAPIEnabled {
		ipClient := ipapi.NewClient(cfg.IPAPIBaseURL, cfg.GeocoderTimeout, ratelimit.New(ipAPIInterval, nil, nil), logger)
		ipSource = ipClient.Source
		logger.Info("ip geolocation enabled", "base_url", cfg.IPAPIBaseURL)
	}

	sessions := ws.NewHandler(ws.Options{
		Search:     searcher,
		Controller: ctrl,
		IPSource:   ipSource,
		MapCenter:  *bias,
		Metrics:    metrics,
		Logger:     logger,
	})

	ready := observability.NewReadiness(checks)
	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.Deps{
		Search:     searcher,
		Controller: ctrl,
		IPSource:   ipSource,
		Session:    sessions,
		Ready:      ready,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()
	ready.MarkReady()

	<-ctx.Done()
	logger.Info("shutting down")
	ready.MarkNotReady()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
