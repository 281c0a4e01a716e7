package rabbitmq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const consumerPrefetch = 16

// Handler processes one message body. Returning false requeues the message.
type Handler func(body []byte) bool

// Consumer holds the connection and channel for RabbitMQ.
type Consumer struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	logger *zap.Logger
}

// NewConsumer creates and returns a new RabbitMQ consumer.
func NewConsumer(amqpURL string, logger *zap.Logger) (*Consumer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := dial(amqpURL)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := ch.Qos(consumerPrefetch, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	return &Consumer{conn: conn, ch: ch, logger: logger.Named("rabbitmq_consumer")}, nil
}

// Consume declares the topic exchange and a durable queue bound to every routing key,
// then dispatches deliveries to handler until ctx is done or the channel closes.
func (c *Consumer) Consume(ctx context.Context, exchange, queueName string, routingKeys []string, handler Handler) error {
	if err := c.ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	q, err := c.ch.QueueDeclare(queueName, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", queueName, err)
	}

	for _, key := range routingKeys {
		if err := c.ch.QueueBind(q.Name, key, exchange, false, nil); err != nil {
			return fmt.Errorf("bind %s to %s: %w", key, q.Name, err)
		}
	}

	msgs, err := c.ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", q.Name, err)
	}

	c.logger.Info("consuming", zap.String("exchange", exchange), zap.String("queue", q.Name), zap.Strings("bindings", routingKeys))
	dispatch(ctx, msgs, handler, c.logger)
	return ctx.Err()
}

// dispatch acks deliveries the handler accepts and requeues the rest.
func dispatch(ctx context.Context, msgs <-chan amqp.Delivery, handler Handler, logger *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-msgs:
			if !ok {
				logger.Warn("delivery channel closed")
				return
			}
			logger.Debug("received message", zap.String("routing_key", d.RoutingKey))
			if handler(d.Body) {
				if err := d.Ack(false); err != nil {
					logger.Warn("ack failed", zap.Error(err))
				}
				continue
			}
			logger.Warn("handler failed to process message; requeueing", zap.String("routing_key", d.RoutingKey))
			if err := d.Nack(false, true); err != nil {
				logger.Warn("nack failed", zap.Error(err))
			}
		}
	}
}

// Close closes the RabbitMQ channel and connection.
func (c *Consumer) Close() {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}
