package amqp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"kasa/internal/core"
	klog "kasa/internal/log"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{10, 30 * time.Second},
		{70, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			if got := exponentialBackoff(tt.attempt); got != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, got, tt.expected)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"unexpected EOF", errors.New("unexpected EOF"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"closed network connection", errors.New("use of closed network connection"), true},
		{"wrapped closed channel", fmt.Errorf("publish: %w", amqp091.ErrClosed), true},
		{"other error", errors.New("some other error"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestCircuitBreaker(t *testing.T) {
	client := &Client{exchangeName: "kasa", queueName: "category_events"}

	t.Run("initial state is closed", func(t *testing.T) {
		if client.isCircuitOpen() {
			t.Error("circuit breaker should be closed initially")
		}
	})

	t.Run("failures below threshold keep it closed", func(t *testing.T) {
		for i := 0; i < maxFailures-1; i++ {
			client.recordFailure()
		}
		if client.isCircuitOpen() {
			t.Error("circuit opened before reaching the threshold")
		}
	})

	t.Run("threshold opens circuit", func(t *testing.T) {
		client.recordFailure()
		if !client.isCircuitOpen() {
			t.Error("circuit breaker should be open after max failures")
		}
	})

	t.Run("half-open after timeout", func(t *testing.T) {
		client.lastFailure = time.Now().Add(-openTimeout - time.Second)
		if client.isCircuitOpen() {
			t.Error("circuit should allow a probe after the open timeout")
		}
		if atomic.LoadInt32(&client.state) != StateHalfOpen {
			t.Error("state should be half-open after timeout")
		}
	})

	t.Run("failure while half-open reopens", func(t *testing.T) {
		atomic.StoreInt64(&client.failureCount, 0)
		client.recordFailure()
		if atomic.LoadInt32(&client.state) != StateOpen {
			t.Error("a failed probe should reopen the circuit")
		}
	})

	t.Run("success resets", func(t *testing.T) {
		client.recordSuccess()
		if client.isCircuitOpen() || atomic.LoadInt64(&client.failureCount) != 0 {
			t.Error("success should close the circuit and clear failures")
		}
	})
}

func TestPublishShortCircuits(t *testing.T) {
	ev := NewCategoryEvent(EventCreated, core.Category{ID: 1, Name: "Rent", Type: core.Expense}, time.Now())

	t.Run("open circuit", func(t *testing.T) {
		client := &Client{exchangeName: "kasa", queueName: "category_events"}
		atomic.StoreInt32(&client.state, StateOpen)
		client.lastFailure = time.Now()

		err := client.PublishCategoryEvent(context.Background(), ev)
		if !errors.Is(err, ErrCircuitOpen) {
			t.Fatalf("expected ErrCircuitOpen, got %v", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		client := &Client{exchangeName: "kasa", queueName: "category_events"}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := client.PublishCategoryEvent(ctx, ev); err != context.Canceled {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	})
}

func TestCategoryEventJSON(t *testing.T) {
	ts := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	ev := NewCategoryEvent(EventArchived, core.Category{ID: 42, Name: "Gym", Type: core.Expense}, ts)

	raw, err := ev.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	got, err := CategoryEventFromJSON(raw)
	if err != nil {
		t.Fatalf("CategoryEventFromJSON: %v", err)
	}
	if got.Kind != EventArchived || got.CategoryID != 42 || got.Name != "Gym" || got.Type != "EXPENSE" || !got.Timestamp.Equal(ts) {
		t.Fatalf("decoded %+v", got)
	}

	if _, err := CategoryEventFromJSON([]byte(`{"kind":"category.exploded"}`)); err == nil {
		t.Fatal("unknown kind should be rejected")
	}
	if _, err := CategoryEventFromJSON([]byte(`{"categoryId":"x"}`)); err == nil {
		t.Fatal("malformed body should be rejected")
	}
}

type fakeAck struct {
	acked, nacked, requeued bool
}

func (f *fakeAck) Ack(bool) error { f.acked = true; return nil }

func (f *fakeAck) Nack(_, requeue bool) error {
	f.nacked = true
	f.requeued = requeue
	return nil
}

func TestProcessAcknowledgement(t *testing.T) {
	good, _ := NewCategoryEvent(EventRestored, core.Category{ID: 3}, time.Now()).ToJSON()
	log := klog.New(klog.NewHandler(&bytes.Buffer{}, slog.LevelDebug), klog.ComponentAMQP)

	tests := []struct {
		name       string
		body       []byte
		handlerErr error
		want       fakeAck
	}{
		{"handled", good, nil, fakeAck{acked: true}},
		{"handler failure requeues", good, errors.New("busy"), fakeAck{nacked: true, requeued: true}},
		{"bad body is dropped", []byte("{"), nil, fakeAck{nacked: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ack fakeAck
			var seen CategoryEvent
			process(context.Background(), log, tt.body, &ack, func(_ context.Context, ev CategoryEvent) error {
				seen = ev
				return tt.handlerErr
			})
			if ack != tt.want {
				t.Fatalf("ack = %+v, want %+v", ack, tt.want)
			}
			if tt.want.acked && seen.CategoryID != 3 {
				t.Fatalf("handler saw %+v", seen)
			}
		})
	}
}

func TestEventKindValid(t *testing.T) {
	for _, k := range []EventKind{EventCreated, EventUpdated, EventArchived, EventRestored} {
		if !k.Valid() || !strings.HasPrefix(string(k), "category.") {
			t.Errorf("%q should be valid", k)
		}
	}
	if EventKind("").Valid() {
		t.Error("empty kind should be invalid")
	}
}

type deliveryAck struct {
	acks, nacks int
}

func (d *deliveryAck) Ack(uint64, bool) error        { d.acks++; return nil }
func (d *deliveryAck) Nack(uint64, bool, bool) error { d.nacks++; return nil }
func (d *deliveryAck) Reject(uint64, bool) error     { d.nacks++; return nil }

func deliveries(t *testing.T, ack *deliveryAck, events ...CategoryEvent) chan amqp091.Delivery {
	t.Helper()
	ch := make(chan amqp091.Delivery, len(events))
	for _, ev := range events {
		body, err := ev.ToJSON()
		if err != nil {
			t.Fatalf("ToJSON: %v", err)
		}
		ch <- amqp091.Delivery{Acknowledger: ack, Body: body}
	}
	return ch
}

func TestConsumeResubscribesAndSkipsOwnEvents(t *testing.T) {
	now := time.Now()
	fromPeer := func(id int64) CategoryEvent {
		ev := NewCategoryEvent(EventUpdated, core.Category{ID: id}, now)
		ev.Origin = "peer"
		return ev
	}
	own := NewCategoryEvent(EventCreated, core.Category{ID: 99}, now)
	own.Origin = "self"

	var delays []time.Duration
	client := &Client{
		exchangeName: "kasa",
		instanceID:   "self",
		after: func(d time.Duration) <-chan time.Time {
			delays = append(delays, d)
			ch := make(chan time.Time, 1)
			ch <- now
			return ch
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ack := &deliveryAck{}
	calls := 0
	subscribe := func(context.Context) (<-chan amqp091.Delivery, error) {
		calls++
		switch calls {
		case 1:
			return nil, errors.New("connection refused")
		case 2:
			// the connection drops after two messages
			ch := deliveries(t, ack, fromPeer(1), own)
			close(ch)
			return ch, nil
		default:
			return deliveries(t, ack, fromPeer(2)), nil
		}
	}

	var seen []int64
	err := client.consume(ctx, subscribe, func(_ context.Context, ev CategoryEvent) error {
		seen = append(seen, ev.CategoryID)
		if ev.CategoryID == 2 {
			cancel()
		}
		return nil
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("consume returned %v, want context.Canceled", err)
	}
	if calls != 3 {
		t.Fatalf("subscribe called %d times, want 3", calls)
	}
	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Fatalf("handler saw %v, want [1 2]", seen)
	}
	if ack.acks != 3 || ack.nacks != 0 {
		t.Fatalf("acks=%d nacks=%d, want every delivery acked", ack.acks, ack.nacks)
	}
	if len(delays) != 2 || delays[0] != time.Second || delays[1] != time.Second {
		t.Fatalf("backoff delays = %v, want [1s 1s]", delays)
	}
}

