package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"million-words-server/internal/models"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const storyEventsExchangeType = "fanout"

// StoryEventPublisher announces changes to the story collection.
type StoryEventPublisher interface {
	PublishStoryEvent(ctx context.Context, event models.StoryEvent) error
}

// NopPublisher is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishStoryEvent(context.Context, models.StoryEvent) error { return nil }

// RabbitMQStoryEventPublisher publishes story events to a fanout exchange so
// every server instance sees them.
type RabbitMQStoryEventPublisher struct {
	ch           *amqp091.Channel
	logger       *zap.Logger
	exchangeName string
}

// NewRabbitMQStoryEventPublisher opens a channel and declares the exchange.
func NewRabbitMQStoryEventPublisher(conn *amqp091.Connection, exchangeName string, logger *zap.Logger) (*RabbitMQStoryEventPublisher, error) {
	if conn == nil {
		return nil, fmt.Errorf("rabbitmq connection is nil")
	}

	ch, err := conn.Channel()
	if err != nil {
		logger.Error("Failed to open a channel for story events", zap.Error(err))
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	if err := declareStoryEventsExchange(ch, exchangeName); err != nil {
		_ = ch.Close()
		logger.Error("Failed to declare story events exchange", zap.String("exchange", exchangeName), zap.Error(err))
		return nil, err
	}
	logger.Info("Story events exchange declared", zap.String("exchange", exchangeName), zap.String("type", storyEventsExchangeType))

	return &RabbitMQStoryEventPublisher{
		ch:           ch,
		logger:       logger.Named("StoryEventPublisher"),
		exchangeName: exchangeName,
	}, nil
}

func declareStoryEventsExchange(ch *amqp091.Channel, name string) error {
	err := ch.ExchangeDeclare(
		name,
		storyEventsExchangeType,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange '%s': %w", name, err)
	}
	return nil
}

func (p *RabbitMQStoryEventPublisher) PublishStoryEvent(ctx context.Context, event models.StoryEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal story event: %w", err)
	}

	err = p.ch.PublishWithContext(ctx,
		p.exchangeName,
		"",    // ключ маршрутизации не используется для fanout
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType: "application/json",
			Body:        body,
			Timestamp:   time.Now(),
			Type:        string(event.Type),
		},
	)
	if err != nil {
		p.logger.Error("Failed to publish story event",
			zap.String("type", string(event.Type)),
			zap.String("storyID", event.StoryID),
			zap.Error(err),
		)
		return fmt.Errorf("failed to publish story event: %w", err)
	}

	p.logger.Debug("Story event published", zap.String("type", string(event.Type)), zap.String("storyID", event.StoryID))
	return nil
}

// Close закрывает канал RabbitMQ.
func (p *RabbitMQStoryEventPublisher) Close() error {
	if p.ch != nil {
		return p.ch.Close()
	}
	return nil
}
