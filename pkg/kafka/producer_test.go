package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func newTestProducer(w *fakeWriter) *Producer {
	return &Producer{writer: w, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

type lineAdded struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func cartOf(userID string) Aggregate { return Aggregate{ID: userID, Type: "cart"} }

func TestNewEvent_Fields(t *testing.T) {
	data := lineAdded{ProductID: "sheet-001", Quantity: 2}
	event, err := NewEvent("cart.item_added", cartOf("user-1"), "cart-service", data)
	require.NoError(t, err)

	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, "cart.item_added", event.EventType)
	assert.Equal(t, "user-1", event.AggregateID)
	assert.Equal(t, "cart", event.AggregateType)
	assert.Equal(t, "cart-service", event.Source)
	assert.Equal(t, 1, event.Version)
	assert.Empty(t, event.CorrelationID)
	assert.Nil(t, event.Metadata)
	assert.WithinDuration(t, time.Now().UTC(), event.Timestamp, 2*time.Second)

	var got lineAdded
	require.NoError(t, event.UnmarshalData(&got))
	assert.Equal(t, data, got)
}

func TestNewEvent_UnencodableData(t *testing.T) {
	_, err := NewEvent("cart.updated", cartOf("user-1"), "cart-service", make(chan int))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encode cart.updated payload")
}

func TestEvent_RoundTrip(t *testing.T) {
	original, err := NewEvent("cart.cleared", cartOf("user-9"), "cart-service", map[string]string{"user_id": "user-9"},
		WithCorrelationID("corr-abc"), WithMetadata("channel", "web"))
	require.NoError(t, err)

	raw, err := original.Marshal()
	require.NoError(t, err)
	restored, err := UnmarshalEvent(raw)
	require.NoError(t, err)

	assert.Equal(t, original.EventID, restored.EventID)
	assert.Equal(t, "corr-abc", restored.CorrelationID)
	assert.Equal(t, map[string]string{"channel": "web"}, restored.Metadata)
	assert.JSONEq(t, string(original.Data), string(restored.Data))
}

func TestEventOptions(t *testing.T) {
	event := &Event{EventID: "e-1", CorrelationID: "keep"}
	WithMetadata("k", "v")(event)
	WithCorrelationID("")(event)

	assert.Equal(t, "v", event.Metadata["k"])
	assert.Equal(t, "keep", event.CorrelationID)
}

func TestNewEvent_IDsAreTimeOrdered(t *testing.T) {
	first, err := NewEvent("cart.updated", cartOf("user-1"), "cart-service", nil)
	require.NoError(t, err)
	second, err := NewEvent("cart.updated", cartOf("user-1"), "cart-service", nil)
	require.NoError(t, err)

	assert.Less(t, first.EventID, second.EventID)
}

func TestUnmarshalEvent_Invalid(t *testing.T) {
	for _, raw := range []string{"", "{broken", "[]"} {
		_, err := UnmarshalEvent([]byte(raw))
		assert.Error(t, err, "input %q", raw)
	}
}

func TestDefaultProducerConfig(t *testing.T) {
	cfg := DefaultProducerConfig([]string{"kafka:9092"})

	assert.Equal(t, []string{"kafka:9092"}, cfg.Brokers)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, 10*time.Millisecond, cfg.BatchTimeout)
	assert.False(t, cfg.Async)
	assert.Equal(t, 3*time.Second, cfg.PublishTimeout)
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "storefront.cart.updated", Topic("cart", "updated"))
	assert.Equal(t, "storefront.wishlist.item_added", Topic("wishlist", "item_added"))
}

func TestProducer_PublishWritesKeyedMessage(t *testing.T) {
	w := &fakeWriter{}
	p := newTestProducer(w)
	event, err := NewEvent("cart.updated", cartOf("user-1"), "cart-service", lineAdded{ProductID: "sheet-001", Quantity: 1},
		WithCorrelationID("corr-1"))
	require.NoError(t, err)

	require.NoError(t, p.Publish(context.Background(), Topic("cart", "updated"), event))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "storefront.cart.updated", msg.Topic)
	assert.Equal(t, "user-1", string(msg.Key))

	headers := &KafkaHeaderCarrier{headers: &msg.Headers}
	assert.Equal(t, "cart.updated", headers.Get("event_type"))
	assert.Equal(t, "cart-service", headers.Get("source"))
	assert.Equal(t, "corr-1", headers.Get("correlation_id"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, event.EventID, body["event_id"])
}

func TestProducer_PublishOmitsEmptyCorrelation(t *testing.T) {
	w := &fakeWriter{}
	p := newTestProducer(w)
	event, err := NewEvent("cart.cleared", cartOf("user-2"), "cart-service", nil)
	require.NoError(t, err)

	require.NoError(t, p.Publish(context.Background(), Topic("cart", "cleared"), event))

	headers := &KafkaHeaderCarrier{headers: &w.msgs[0].Headers}
	assert.NotContains(t, headers.Keys(), "correlation_id")
}

func TestProducer_PublishErrorCounted(t *testing.T) {
	topic := "storefront.test.publish_error"
	before := getCounterValue(t, "kafka_producer_publish_errors_total", topic)

	p := newTestProducer(&fakeWriter{err: errors.New("leader not available")})
	event, err := NewEvent("cart.updated", cartOf("user-3"), "cart-service", nil)
	require.NoError(t, err)

	err = p.Publish(context.Background(), topic, event)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish event to "+topic)
	assert.InDelta(t, before+1, getCounterValue(t, "kafka_producer_publish_errors_total", topic), 0.001)
}

func TestProducer_Close(t *testing.T) {
	w := &fakeWriter{}
	require.NoError(t, newTestProducer(w).Close())
	assert.True(t, w.closed)
}

func TestNewProducer_DoesNotConnect(t *testing.T) {
	p := NewProducer(DefaultProducerConfig([]string{"localhost:19092"}), nil)
	require.NotNil(t, p)
	assert.NoError(t, p.Close())
}

func TestPingBrokers_NoBrokers(t *testing.T) {
	err := PingBrokers(t.Context(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no brokers configured")
}

// stalledWriter blocks until the publish context is done.
type stalledWriter struct{ fakeWriter }

func (w *stalledWriter) WriteMessages(ctx context.Context, _ ...kafka.Message) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestProducer_PublishTimeoutBoundsStalledBroker(t *testing.T) {
	p := newTestProducer(nil)
	p.writer = &stalledWriter{}
	p.timeout = 20 * time.Millisecond
	event, err := NewEvent("cart.updated", cartOf("user-4"), "cart-service", nil)
	require.NoError(t, err)

	start := time.Now()
	err = p.Publish(context.Background(), Topic("cart", "updated"), event)

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestEventHeaders_SkipsEmptyValues(t *testing.T) {
	headers := eventHeaders(&Event{EventType: "cart.cleared", CorrelationID: "corr-7"})

	keys := make([]string, 0, len(headers))
	for _, h := range headers {
		keys = append(keys, h.Key)
	}
	assert.Equal(t, []string{"event_type", "correlation_id"}, keys)
}

func TestPingBrokers_NamesEveryFailedBroker(t *testing.T) {
	ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)
	defer cancel()

	err := PingBrokers(ctx, []string{"127.0.0.1:1", "127.0.0.1:2"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "127.0.0.1:1")
	assert.Contains(t, err.Error(), "127.0.0.1:2")
}
