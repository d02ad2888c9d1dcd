package event

import (
	"context"
	"fmt"
	"log/slog"

	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/logger"
	"github.com/utafrali/storefront/services/cart/internal/domain"
	"github.com/utafrali/storefront/services/cart/internal/notify"
)

// Kafka topics for cart events.
var (
	TopicCartUpdated      = pkgkafka.Topic("cart", "updated")
	TopicCartCleared      = pkgkafka.Topic("cart", "cleared")
	TopicCartNotification = pkgkafka.Topic("cart", "notification")
)

// AggregateTypeCart is the aggregate type of every cart event.
const AggregateTypeCart = "cart"

// SourceCartService identifies events originating from the cart service.
const SourceCartService = "cart-service"

// CartUpdatedData is the payload for a cart.updated event.
type CartUpdatedData struct {
	UserID    string            `json:"user_id"`
	Items     []domain.LineItem `json:"items"`
	ItemCount int               `json:"item_count"`
	Subtotal  string            `json:"subtotal"`
	Tax       string            `json:"tax"`
	Total     string            `json:"total"`
}

// CartClearedData is the payload for a cart.cleared event.
type CartClearedData struct {
	UserID string `json:"user_id"`
}

// Publisher sends an event to a topic. *pkgkafka.Producer satisfies it.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes cart events to Kafka. It also acts as a notify.Notifier
// so acknowledgements reach downstream consumers.
type Producer struct {
	kafka  Publisher
	logger *slog.Logger
}

// NewProducer creates a new event producer for the cart service.
func NewProducer(kafka Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishCartUpdated publishes a cart.updated snapshot.
func (p *Producer) PublishCartUpdated(ctx context.Context, userID string, items []domain.LineItem, totals domain.Totals) error {
	data := CartUpdatedData{
		UserID:    userID,
		Items:     items,
		ItemCount: totals.ItemCount,
		Subtotal:  totals.Subtotal.String(),
		Tax:       totals.Tax.String(),
		Total:     totals.Total.String(),
	}

	if err := p.publish(ctx, TopicCartUpdated, userID, data); err != nil {
		return err
	}

	p.logger.DebugContext(ctx, "published cart.updated event",
		slog.String("user_id", userID),
		slog.Int("item_count", totals.ItemCount),
	)
	return nil
}

// PublishCartCleared publishes a cart.cleared event.
func (p *Producer) PublishCartCleared(ctx context.Context, userID string) error {
	if err := p.publish(ctx, TopicCartCleared, userID, CartClearedData{UserID: userID}); err != nil {
		return err
	}

	p.logger.DebugContext(ctx, "published cart.cleared event",
		slog.String("user_id", userID),
	)
	return nil
}

// Notify publishes n to the notification topic. Failures are logged and
// dropped.
func (p *Producer) Notify(ctx context.Context, n notify.Notification) {
	if err := p.publish(ctx, TopicCartNotification, n.Owner, n); err != nil {
		p.logger.WarnContext(ctx, "failed to publish notification",
			slog.String("kind", string(n.Kind)),
			slog.String("error", err.Error()),
		)
	}
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID string, data any) error {
	event, err := pkgkafka.NewEvent(topic,
		pkgkafka.Aggregate{ID: aggregateID, Type: AggregateTypeCart},
		SourceCartService, data,
		pkgkafka.WithCorrelationID(logger.CorrelationIDFromContext(ctx)),
	)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}
	return nil
}
