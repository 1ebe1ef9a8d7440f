package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"worktrack/pkg/logx"
)

// ErrDeliveriesClosed is returned by Consume when the broker closes the channel.
var ErrDeliveriesClosed = errors.New("delivery channel closed")

// Client owns one connection and channel to the broker. Events go to a
// durable topic exchange keyed by event type; the queue receives all of them.
type Client struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	queue    string
	log      *logx.Logger

	mu sync.Mutex
}

func Dial(url, exchange, queue string, log *logx.Logger) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	c := &Client{
		conn:     conn,
		channel:  ch,
		exchange: exchange,
		queue:    queue,
		log:      log.WithComponent(logx.ComponentAMQP),
	}
	if err := c.setup(); err != nil {
		c.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}
	return c, nil
}

func (c *Client) setup() error {
	if err := c.channel.ExchangeDeclare(c.exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := c.channel.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := c.channel.QueueBind(c.queue, "#", c.exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// Publish sends one persistent JSON message with the event type as routing key.
func (c *Client) Publish(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	c.mu.Lock()
	err = c.channel.PublishWithContext(ctx, c.exchange, ev.Type, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Type:         ev.Type,
		Timestamp:    ev.OccurredAt,
		Body:         body,
	})
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	c.log.DebugContext(ctx, "Published event", logx.FieldEvent, ev.Type, "event_id", ev.ID)
	return nil
}

// Consume delivers events to handler until ctx is done. Undecodable
// messages are dropped; handler failures are requeued.
func (c *Client) Consume(ctx context.Context, handler func(context.Context, Event) error) error {
	deliveries, err := c.channel.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}
	c.log.InfoContext(ctx, "Started consuming events", "queue", c.queue)

	for {
		select {
		case <-ctx.Done():
			c.log.InfoContext(ctx, "Stopping event consumption", "reason", ctx.Err())
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return ErrDeliveriesClosed
			}
			c.handle(ctx, d, handler)
		}
	}
}

func (c *Client) handle(ctx context.Context, d amqp.Delivery, handler func(context.Context, Event) error) {
	ev, err := Decode(d.Body)
	if err != nil {
		c.log.ErrorContext(ctx, "Dropping undecodable message", logx.FieldError, err)
		_ = d.Nack(false, false)
		return
	}
	if err := handler(ctx, ev); err != nil {
		c.log.ErrorContext(ctx, "Event handler failed", logx.FieldEvent, ev.Type, logx.FieldError, err)
		_ = d.Nack(false, !d.Redelivered)
		return
	}
	_ = d.Ack(false)
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Emit builds and publishes an event, logging instead of failing. Callers
// on the request path use it so that a broker outage never fails a write.
func Emit(ctx context.Context, p Publisher, log *logx.Logger, eventType string, userID uint, payload any) {
	if p == nil {
		return
	}
	ev, err := New(eventType, userID, payload)
	if err == nil {
		err = p.Publish(ctx, ev)
	}
	if err != nil {
		f := logx.NewFields().WithOperation(logx.OpPublish).WithUserID(userID).WithError(err)
		f[logx.FieldEvent] = eventType
		log.WarnContext(ctx, "Event not published", f.ToSlice()...)
	}
}
