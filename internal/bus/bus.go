// Package bus wraps the RabbitMQ publish/subscribe primitives behind the
// small surface the rest of the system needs: one connection, one fanout
// exchange shared by every front end, a single subscription delivering
// inbound payloads to a handler on a background goroutine, and a synchronous
// fire-and-forget publish. There is no delivery confirmation and no ordering
// guarantee across publishers; the exchange is a notification relay, not a
// queue of record.
package bus

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler is invoked once per inbound payload, on the adapter's delivery
// goroutine. Handlers that touch state owned by another goroutine must hand
// off through a thread-safe path.
type Handler func(payload string)

// Bus is a live connection to the broker. Create one with Connect, wire a
// Handler with Subscribe, and tear it down with Close.
type Bus struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Connect dials the broker and declares the shared fanout exchange. The
// caller decides retry policy; Connect itself fails fast when the broker is
// unreachable.
func Connect(url, exchange string) (*Bus, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(
		exchange, // name
		"fanout", // every bound queue sees every message
		false,    // durable
		false,    // autoDelete
		false,    // internal
		false,    // noWait
		nil,      // args
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &Bus{conn: conn, ch: ch, exchange: exchange}, nil
}

// Subscribe binds a private auto-delete queue to the exchange and starts a
// goroutine that feeds every inbound payload to handler. The queue is
// exclusive to this connection, so each subscriber sees its own copy of the
// traffic. Delivery stops when the bus is closed; an in-flight handler call
// is allowed to finish.
func (b *Bus) Subscribe(handler Handler) error {
	q, err := b.ch.QueueDeclare(
		"",    // broker-generated name
		false, // durable
		true,  // autoDelete
		true,  // exclusive
		false, // noWait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := b.ch.QueueBind(q.Name, "", b.exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	msgs, err := b.ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for d := range msgs {
			handler(string(d.Body))
		}
	}()
	return nil
}

// Publish sends one UTF-8 text payload to the shared exchange. There is no
// delivery confirmation.
func (b *Bus) Publish(ctx context.Context, payload string) error {
	return b.ch.PublishWithContext(ctx,
		b.exchange,
		"",    // routing key is ignored by fanout
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "text/plain",
			Timestamp:   time.Now().UTC(),
			Body:        []byte(payload),
		})
}

// Close stops the delivery goroutine and closes the channel and connection.
// Closing the channel ends the consume stream, so the goroutine drains any
// handler invocation already in flight and exits before the connection is
// torn down.
func (b *Bus) Close() error {
	var err error
	b.closeOnce.Do(func() {
		_ = b.ch.Close()
		b.wg.Wait()
		err = b.conn.Close()
	})
	return err
}
