package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"million-words-server/internal/models"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// StoryEventHandler reacts to story events from any instance.
type StoryEventHandler interface {
	HandleStoryEvent(ctx context.Context, event models.StoryEvent)
}

// StoryEventHandlerFunc adapts a function to StoryEventHandler.
type StoryEventHandlerFunc func(ctx context.Context, event models.StoryEvent)

func (f StoryEventHandlerFunc) HandleStoryEvent(ctx context.Context, event models.StoryEvent) {
	f(ctx, event)
}

// StoryEventConsumer binds an exclusive, auto-deleted queue to the story
// events exchange, so each instance receives every event once.
type StoryEventConsumer struct {
	conn         *amqp091.Connection
	ch           *amqp091.Channel
	handler      StoryEventHandler
	logger       *zap.Logger
	exchangeName string
	queueName    string
	consumerTag  string
	wg           sync.WaitGroup
}

func NewStoryEventConsumer(
	conn *amqp091.Connection,
	exchangeName string,
	handler StoryEventHandler,
	logger *zap.Logger,
) (*StoryEventConsumer, error) {
	if conn == nil {
		return nil, fmt.Errorf("RabbitMQ connection is nil")
	}
	if handler == nil {
		return nil, fmt.Errorf("StoryEventHandler is nil")
	}

	consumerTag := fmt.Sprintf("story_events_consumer_%d", time.Now().UnixNano())
	c := &StoryEventConsumer{
		conn:         conn,
		handler:      handler,
		logger:       logger.Named("StoryEventConsumer").With(zap.String("consumerTag", consumerTag)),
		exchangeName: exchangeName,
		consumerTag:  consumerTag,
	}
	if err := c.setupChannelAndQueue(); err != nil {
		return nil, err
	}

	c.logger.Info("StoryEventConsumer initialized", zap.String("exchange", c.exchangeName), zap.String("queue", c.queueName))
	return c, nil
}

func (c *StoryEventConsumer) setupChannelAndQueue() error {
	var err error
	c.ch, err = c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}

	if err := declareStoryEventsExchange(c.ch, c.exchangeName); err != nil {
		_ = c.ch.Close()
		return err
	}

	// Временная эксклюзивная очередь, имя выдает брокер
	q, err := c.ch.QueueDeclare(
		"",    // name
		false, // durable
		true,  // auto-delete
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		_ = c.ch.Close()
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	c.queueName = q.Name

	if err := c.ch.QueueBind(c.queueName, "", c.exchangeName, false, nil); err != nil {
		_ = c.ch.Close()
		return fmt.Errorf("failed to bind queue '%s' to exchange '%s': %w", c.queueName, c.exchangeName, err)
	}
	return nil
}

// StartConsuming registers the consumer and handles deliveries in the
// background until Stop is called or ctx is done.
func (c *StoryEventConsumer) StartConsuming(ctx context.Context) error {
	deliveries, err := c.ch.Consume(
		c.queueName,
		c.consumerTag,
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register a consumer: %w", err)
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					c.logger.Info("Deliveries channel closed")
					return
				}
				c.handleDelivery(ctx, d)
			}
		}
	}()

	c.logger.Info("Listening for story events")
	return nil
}

func (c *StoryEventConsumer) handleDelivery(ctx context.Context, d amqp091.Delivery) {
	var event models.StoryEvent
	if err := json.Unmarshal(d.Body, &event); err != nil {
		c.logger.Error("Failed to unmarshal story event", zap.Error(err))
		// Битое сообщение не переотправляем
		if err := d.Nack(false, false); err != nil {
			c.logger.Error("Failed to nack message", zap.Error(err))
		}
		return
	}

	c.handler.HandleStoryEvent(ctx, event)

	if err := d.Ack(false); err != nil {
		c.logger.Error("Failed to acknowledge message", zap.Error(err))
	}
}

// Stop cancels the consumer and waits for the handler loop to exit.
func (c *StoryEventConsumer) Stop() {
	c.logger.Info("Stopping StoryEventConsumer...")
	if c.ch != nil {
		if err := c.ch.Cancel(c.consumerTag, false); err != nil {
			c.logger.Warn("Failed to cancel consumer", zap.Error(err))
		}
	}
	c.wg.Wait()
	if c.ch != nil {
		_ = c.ch.Close()
	}
}
