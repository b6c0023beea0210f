// Package broker owns the RabbitMQ connection and the exact wire
// topology from spec.md §6: a topic exchange for live traffic, a topic
// dead-letter exchange, one durable queue per routing key with a DLX
// binding, and one DLQ per queue.
package broker

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	EventsExchange    = "orders.events"
	EventsDLXExchange = "orders.events.dlx"

	OrderCreatedRoutingKey   = "order.created"
	OrderProcessedRoutingKey = "order.processed"

	OrderCreatedQueue   = "order.created.q"
	OrderProcessedQueue = "order.processed.q"
)

// Conn bundles a live connection and channel with the topology already
// declared, and a Close that tears both down in the right order.
type Conn struct {
	Connection *amqp.Connection
	Channel    *amqp.Channel
}

func Connect(url string) (*Conn, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := declareTopology(ch); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	return &Conn{Connection: conn, Channel: ch}, nil
}

func (c *Conn) Close() error {
	if err := c.Channel.Close(); err != nil {
		_ = c.Connection.Close()
		return err
	}
	return c.Connection.Close()
}

// declareTopology is bit-exact with spec.md §6: two topic exchanges,
// a durable queue per routing key dead-lettering to the DLX with
// "<original>.dlq" as the dead-letter routing key, and a durable DLQ
// bound to the DLX with that same key.
func declareTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(EventsExchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare %s exchange: %w", EventsExchange, err)
	}
	if err := ch.ExchangeDeclare(EventsDLXExchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare %s exchange: %w", EventsDLXExchange, err)
	}

	for _, rk := range []string{OrderCreatedRoutingKey, OrderProcessedRoutingKey} {
		if err := declareQueueWithDLQ(ch, rk); err != nil {
			return err
		}
	}
	return nil
}

func declareQueueWithDLQ(ch *amqp.Channel, routingKey string) error {
	queueName := routingKey + ".q"
	dlqRoutingKey := routingKey + ".dlq"
	dlqName := routingKey + ".dlq"

	_, err := ch.QueueDeclare(queueName, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    EventsDLXExchange,
		"x-dead-letter-routing-key": dlqRoutingKey,
	})
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", queueName, err)
	}
	if err := ch.QueueBind(queueName, routingKey, EventsExchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", queueName, err)
	}

	if _, err := ch.QueueDeclare(dlqName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare dlq %s: %w", dlqName, err)
	}
	if err := ch.QueueBind(dlqName, dlqRoutingKey, EventsDLXExchange, false, nil); err != nil {
		return fmt.Errorf("bind dlq %s: %w", dlqName, err)
	}
	return nil
}
