package kafka

import (
	"context"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// KafkaHeaderCarrier adapts kafka message headers to an otel TextMapCarrier.
type KafkaHeaderCarrier struct {
	headers *[]kafka.Header
}

var _ propagation.TextMapCarrier = (*KafkaHeaderCarrier)(nil)

// NewKafkaHeaderCarrier returns a carrier that reads and writes msg's headers.
func NewKafkaHeaderCarrier(msg *kafka.Message) *KafkaHeaderCarrier {
	return &KafkaHeaderCarrier{headers: &msg.Headers}
}

func (c *KafkaHeaderCarrier) Get(key string) string {
	for _, h := range *c.headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *KafkaHeaderCarrier) Set(key, value string) {
	for i, h := range *c.headers {
		if h.Key == key {
			(*c.headers)[i].Value = []byte(value)
			return
		}
	}
	*c.headers = append(*c.headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (c *KafkaHeaderCarrier) Keys() []string {
	keys := make([]string, 0, len(*c.headers))
	for _, h := range *c.headers {
		keys = append(keys, h.Key)
	}
	return keys
}

// injectTrace writes the span context carried by ctx into msg's headers.
func injectTrace(ctx context.Context, msg *kafka.Message) {
	otel.GetTextMapPropagator().Inject(ctx, NewKafkaHeaderCarrier(msg))
}
