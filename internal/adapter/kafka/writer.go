package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/location-resolver/internal/config"
	"github.com/couchcryptid/location-resolver/internal/domain"
	"github.com/couchcryptid/location-resolver/internal/observability"
	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/uber/h3-go/v4"
)

// KeyResolution is the H3 resolution of message keys (~0.7 km² cells), so
// addresses in the same neighbourhood land on the same partition.
const KeyResolution = 8

const (
	// Addresses are published one at a time; a batch must not wait for more.
	batchTimeout = 10 * time.Millisecond

	// publishTimeout caps how long an unreachable broker can hold a caller.
	publishTimeout = 2 * time.Second
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher produces resolved addresses to a Kafka topic.
// It implements session.Publisher.
type Publisher struct {
	writer  messageWriter
	clock   clockwork.Clock
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured sink topic.
func NewPublisher(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Publisher {
	return &Publisher{writer: newWriter(cfg), clock: clockwork.NewRealClock(), metrics: metrics, logger: logger}
}

func newWriter(cfg *config.Config) *kafkago.Writer {
	return &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchSize:    1,
		BatchTimeout: batchTimeout,
		WriteTimeout: publishTimeout,
	}
}

// Publish serializes addr and writes it to the sink topic, giving up after
// publishTimeout.
func (p *Publisher) Publish(ctx context.Context, addr domain.GeocodedAddress) error {
	msg, err := serializeToMessage(addr, p.clock.Now())
	if err != nil {
		return err
	}
	ctx, cancel := clockwork.WithTimeout(ctx, p.clock, publishTimeout)
	defer cancel()
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		if p.metrics != nil {
			p.metrics.AddressPublishErrors.Inc()
		}
		return fmt.Errorf("write address message: %w", err)
	}
	if p.metrics != nil {
		p.metrics.AddressesPublished.Inc()
	}
	p.logger.Debug("address published", "key", string(msg.Key))
	return nil
}

// Close flushes pending writes and releases the connection.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

// messageKey returns the H3 cell of the address at KeyResolution.
func messageKey(addr domain.GeocodedAddress) (string, error) {
	cell, err := h3.LatLngToCell(h3.NewLatLng(addr.Latitude, addr.Longitude), KeyResolution)
	if err != nil {
		return "", fmt.Errorf("h3 cell for %f,%f: %w", addr.Latitude, addr.Longitude, err)
	}
	return cell.String(), nil
}

// serializeToMessage marshals a GeocodedAddress into a Kafka message.
func serializeToMessage(addr domain.GeocodedAddress, resolvedAt time.Time) (kafkago.Message, error) {
	key, err := messageKey(addr)
	if err != nil {
		return kafkago.Message{}, err
	}
	data, err := json.Marshal(addr)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize address: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "city", Value: []byte(addr.City)},
			{Key: "resolved_at", Value: []byte(resolvedAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}

// Ping dials the first reachable broker. It backs the readiness check.
func Ping(ctx context.Context, brokers []string) error {
	var lastErr error
	for _, b := range brokers {
		conn, err := kafkago.DialContext(ctx, "tcp", b)
		if err != nil {
			lastErr = err
			continue
		}
		return conn.Close()
	}
	if lastErr == nil {
		lastErr = errors.New("no brokers configured")
	}
	return fmt.Errorf("dial kafka: %w", lastErr)
}
