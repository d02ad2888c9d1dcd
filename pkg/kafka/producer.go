package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// ProducerConfig holds Kafka producer configuration.
type ProducerConfig struct {
	Brokers      []string
	BatchSize    int
	BatchTimeout time.Duration
	Async        bool

	// PublishTimeout bounds one Publish call. Zero leaves the caller's
	// deadline alone.
	PublishTimeout time.Duration
}

// DefaultProducerConfig batches briefly, waits for all replicas and gives up
// on a publish after three seconds.
func DefaultProducerConfig(brokers []string) ProducerConfig {
	return ProducerConfig{
		Brokers:        brokers,
		BatchSize:      100,
		BatchTimeout:   10 * time.Millisecond,
		PublishTimeout: 3 * time.Second,
	}
}

// messageWriter is the subset of *kafka.Writer the producer needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes events with kafka-go.
type Producer struct {
	writer  messageWriter
	brokers []string
	timeout time.Duration
	logger  *slog.Logger
}

// NewProducer creates a producer. No connection is made until the first
// publish.
func NewProducer(cfg ProducerConfig, logger *slog.Logger) *Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Balancer:     &kafka.Hash{},
			BatchSize:    cfg.BatchSize,
			BatchTimeout: cfg.BatchTimeout,
			Async:        cfg.Async,
			RequiredAcks: kafka.RequireAll,
		},
		brokers: cfg.Brokers,
		timeout: cfg.PublishTimeout,
		logger:  logger,
	}
}

// Publish writes event to topic keyed by its aggregate ID, so that all
// events for one cart land on the same partition in order.
func (p *Producer) Publish(ctx context.Context, topic string, event *Event) error {
	data, err := event.Marshal()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := kafka.Message{
		Topic:   topic,
		Key:     []byte(event.AggregateID),
		Value:   data,
		Headers: eventHeaders(event),
	}
	injectTrace(ctx, &msg)

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	start := time.Now()
	err = p.writer.WriteMessages(ctx, msg)
	ProducerPublishDuration.WithLabelValues(topic).Observe(time.Since(start).Seconds())

	attrs := []any{
		slog.String("topic", topic),
		slog.String("event_type", event.EventType),
		slog.String("aggregate_id", event.AggregateID),
	}
	if err != nil {
		ProducerPublishErrors.WithLabelValues(topic).Inc()
		p.logger.ErrorContext(ctx, "failed to publish event", append(attrs, slog.String("error", err.Error()))...)
		return fmt.Errorf("publish event to %s: %w", topic, err)
	}
	ProducerMessagesPublished.WithLabelValues(topic).Inc()
	p.logger.DebugContext(ctx, "event published", attrs...)
	return nil
}

// eventHeaders carries the routing fields consumers filter on without
// decoding the payload.
func eventHeaders(event *Event) []kafka.Header {
	fields := [][2]string{
		{"event_type", event.EventType},
		{"source", event.Source},
		{"correlation_id", event.CorrelationID},
	}
	headers := make([]kafka.Header, 0, len(fields))
	for _, f := range fields {
		if f[1] == "" {
			continue
		}
		headers = append(headers, kafka.Header{Key: f[0], Value: []byte(f[1])})
	}
	return headers
}

// Ping reports whether any configured broker answers.
func (p *Producer) Ping(ctx context.Context) error {
	return PingBrokers(ctx, p.brokers)
}

// PingBrokers returns nil as soon as one broker lists the cluster. When none
// does, the error names every broker that failed.
func PingBrokers(ctx context.Context, brokers []string) error {
	if len(brokers) == 0 {
		return errors.New("kafka: no brokers configured")
	}

	errs := make([]error, 0, len(brokers))
	for _, addr := range brokers {
		err := pingBroker(ctx, addr)
		if err == nil {
			return nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", addr, err))
	}
	return fmt.Errorf("kafka ping: %w", errors.Join(errs...))
}

func pingBroker(ctx context.Context, addr string) error {
	conn, err := kafka.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()
	_, err = conn.Brokers()
	return err
}

// Close flushes pending messages and closes the writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
