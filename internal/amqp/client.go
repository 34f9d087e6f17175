// Package amqp publishes category change events to a RabbitMQ topic exchange
// and delivers the events of other instances back to each running process.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"

	klog "kasa/internal/log"
)

// Circuit breaker states.
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures          = 5
	openTimeout          = 30 * time.Second
	publishTimeout       = 5 * time.Second
	maxBackoff           = 30 * time.Second
	maxReconnectAttempts = 3
)

// eventPattern binds a queue to every category event kind.
const eventPattern = "category.#"

// ErrCircuitOpen is returned while the broker is considered unavailable.
var ErrCircuitOpen = errors.New("circuit breaker is open")

var errDeliveriesClosed = errors.New("delivery channel closed")

type Client struct {
	url          string
	exchangeName string
	// queueName is the optional durable audit queue.
	queueName  string
	instanceID string
	// after waits between resubscribe attempts; nil means time.After.
	after func(time.Duration) <-chan time.Time

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	failureCount int64
	state        int32
	breakerMu    sync.Mutex
	lastFailure  time.Time
}

// NewClient connects to the broker and declares a durable topic exchange.
// A non-empty auditQueue is declared durable and bound to every event, so
// events are kept even while no instance runs.
func NewClient(url, exchangeName, auditQueue string) (*Client, error) {
	c := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    auditQueue,
		instanceID:   uuid.NewString(),
	}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) connect() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if err := setup(channel, c.exchangeName, c.queueName); err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}
	c.conn, c.channel = conn, channel
	return nil
}

func setup(ch *amqp091.Channel, exchange, queue string) error {
	if err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if queue == "" {
		return nil
	}
	if _, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(queue, eventPattern, exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// ensureChannel reconnects with exponential backoff when the channel was
// closed by the broker or a network failure. Callers hold c.mu.
func (c *Client) ensureChannel(ctx context.Context) error {
	if c.channel != nil && !c.channel.IsClosed() {
		return nil
	}
	c.closeLocked()

	var err error
	for attempt := 0; attempt < maxReconnectAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(exponentialBackoff(attempt - 1)):
			}
		}
		if err = c.connect(); err == nil {
			klog.For(klog.ComponentAMQP).InfoContext(ctx, "Reconnected to AMQP broker", "attempt", attempt+1)
			return nil
		}
	}
	return fmt.Errorf("reconnect after %d attempts: %w", maxReconnectAttempts, err)
}

// PublishCategoryEvent publishes ev as a persistent JSON message routed by
// its kind. Events without an origin are stamped with this client's instance.
func (c *Client) PublishCategoryEvent(ctx context.Context, ev CategoryEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.isCircuitOpen() {
		return fmt.Errorf("publish %s: %w", ev.Kind, ErrCircuitOpen)
	}
	if ev.Origin == "" {
		ev.Origin = c.instanceID
	}

	body, err := ev.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureChannel(ctx); err != nil {
		c.recordFailure()
		return fmt.Errorf("publish %s: %w", ev.Kind, err)
	}

	err = c.channel.PublishWithContext(ctx,
		c.exchangeName,
		string(ev.Kind),
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    ev.Timestamp,
			Type:         string(ev.Kind),
			AppId:        ev.Origin,
			Body:         body,
		},
	)
	if err != nil {
		c.recordFailure()
		if isConnectionError(err) {
			c.closeLocked()
		}
		return fmt.Errorf("publish %s: %w", ev.Kind, err)
	}
	c.recordSuccess()

	klog.For(klog.ComponentAMQP).InfoContext(ctx, "Published category event",
		"kind", ev.Kind,
		klog.FieldCategoryID, ev.CategoryID,
		"exchange", c.exchangeName)
	return nil
}

// ConsumeCategoryEvents delivers events published by other instances to
// handler until ctx is done. Each subscription uses an exclusive,
// server-named queue bound to every category event, so all instances see
// every change. A dropped channel is resubscribed with exponential backoff.
// Undecodable messages are dropped; handler failures are requeued.
func (c *Client) ConsumeCategoryEvents(ctx context.Context, handler func(context.Context, CategoryEvent) error) error {
	return c.consume(ctx, c.subscribe, handler)
}

func (c *Client) consume(ctx context.Context, subscribe func(context.Context) (<-chan amqp091.Delivery, error), handler func(context.Context, CategoryEvent) error) error {
	log := klog.For(klog.ComponentAMQP)
	foreign := func(ctx context.Context, ev CategoryEvent) error {
		if ev.Origin != "" && ev.Origin == c.instanceID {
			return nil
		}
		return handler(ctx, ev)
	}

	attempt := 0
	for {
		msgs, err := subscribe(ctx)
		if err == nil {
			attempt = 0
			log.InfoContext(ctx, "Started consuming category events", "exchange", c.exchangeName)
			err = drain(ctx, log, msgs, foreign)
		}
		if ctx.Err() != nil {
			log.InfoContext(ctx, "Stopping event consumption", "reason", ctx.Err())
			return ctx.Err()
		}

		delay := exponentialBackoff(attempt)
		attempt++
		log.WarnContext(ctx, "Category event subscription lost, retrying",
			klog.FieldError, err,
			klog.FieldDelay, delay,
			"attempt", attempt)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.wait(delay):
		}
	}
}

// subscribe declares this instance's queue and starts a consumer on it.
func (c *Client) subscribe(ctx context.Context) (<-chan amqp091.Delivery, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureChannel(ctx); err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	q, err := c.channel.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("declare instance queue: %w", err)
	}
	if err := c.channel.QueueBind(q.Name, eventPattern, c.exchangeName, false, nil); err != nil {
		return nil, fmt.Errorf("bind instance queue: %w", err)
	}
	msgs, err := c.channel.Consume(
		q.Name,
		"",    // consumer
		false, // auto-ack
		true,  // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("consume instance queue: %w", err)
	}
	return msgs, nil
}

// drain processes deliveries until ctx is done or the channel closes.
func drain(ctx context.Context, log *klog.Logger, msgs <-chan amqp091.Delivery, handler func(context.Context, CategoryEvent) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return errDeliveriesClosed
			}
			process(ctx, log, delivery.Body, delivery, handler)
		}
	}
}

func (c *Client) wait(d time.Duration) <-chan time.Time {
	if c.after != nil {
		return c.after(d)
	}
	return time.After(d)
}

// acknowledger is the subset of amqp091.Delivery the consumer needs.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func process(ctx context.Context, log *klog.Logger, body []byte, ack acknowledger, handler func(context.Context, CategoryEvent) error) {
	ev, err := CategoryEventFromJSON(body)
	if err != nil {
		log.ErrorContext(ctx, "Failed to decode category event", klog.FieldError, err)
		_ = ack.Nack(false, false)
		return
	}
	if err := handler(ctx, ev); err != nil {
		log.ErrorContext(ctx, "Failed to handle category event",
			klog.FieldError, err,
			"kind", ev.Kind,
			klog.FieldCategoryID, ev.CategoryID)
		_ = ack.Nack(false, true)
		return
	}
	_ = ack.Ack(false)
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked()
}

func (c *Client) closeLocked() error {
	var err error
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		err = c.conn.Close()
		c.conn = nil
	}
	return err
}

func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}
	c.breakerMu.Lock()
	last := c.lastFailure
	c.breakerMu.Unlock()
	if time.Since(last) > openTimeout {
		atomic.CompareAndSwapInt32(&c.state, StateOpen, StateHalfOpen)
		return false
	}
	return true
}

func (c *Client) recordFailure() {
	n := atomic.AddInt64(&c.failureCount, 1)
	c.breakerMu.Lock()
	c.lastFailure = time.Now()
	c.breakerMu.Unlock()
	if n >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

// exponentialBackoff returns 1s doubled per attempt, capped at 30s.
func exponentialBackoff(attempt int) time.Duration {
	if attempt >= 5 {
		return maxBackoff
	}
	return min(time.Second<<attempt, maxBackoff)
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := err.Error()
	for _, s := range []string{"connection", "EOF", "broken pipe", "closed network"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
