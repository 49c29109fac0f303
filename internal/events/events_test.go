package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/config"
	apperrors "github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/models"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func testKafkaConfig() config.KafkaConfig {
	return config.KafkaConfig{OrdersTopic: "orders", PaymentStatusTopic: "payment-status"}
}

func decodeEvent(t *testing.T, msg kafka.Message) Event {
	t.Helper()
	var event Event
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	return event
}

func TestKafkaPublisher_PublishOrderCreated(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaPublisher(w, testKafkaConfig(), logging.NewLoggerV2("test"))
	ctx := logging.WithRequestID(context.Background(), "req-7")

	order := &models.Order{ID: 42, UserID: 1, Status: models.OrderStatusPending, OrderTotal: decimal.RequireFromString("51.98")}
	require.NoError(t, p.PublishOrderCreated(ctx, order))

	require.Len(t, w.messages, 1)
	msg := w.messages[0]
	assert.Equal(t, "orders", msg.Topic)
	assert.Equal(t, "42", string(msg.Key))

	event := decodeEvent(t, msg)
	assert.Equal(t, EventTypeOrderCreated, event.Type)
	assert.Equal(t, int64(42), event.OrderID)
	assert.Equal(t, int64(1), event.UserID)
	assert.Equal(t, "req-7", event.CorrelationID)
	assert.Len(t, event.ID, 36)
}

func TestKafkaPublisher_PublishOrderStatusChanged(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaPublisher(w, testKafkaConfig(), logging.NewLoggerV2("test"))

	order := &models.Order{ID: 42, UserID: 1, Status: models.OrderStatusShipped}
	require.NoError(t, p.PublishOrderStatusChanged(context.Background(), order, models.OrderStatusProcessing))

	event := decodeEvent(t, w.messages[0])
	assert.Equal(t, EventTypeOrderStatusChanged, event.Type)

	var payload struct {
		PreviousStatus string `json:"previous_status"`
		NewStatus      string `json:"new_status"`
	}
	require.NoError(t, json.Unmarshal(event.Data, &payload))
	assert.Equal(t, "processing", payload.PreviousStatus)
	assert.Equal(t, "shipped", payload.NewStatus)
}

func TestKafkaPublisher_PublishPaymentStatusChangedUsesPaymentTopic(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaPublisher(w, testKafkaConfig(), logging.NewLoggerV2("test"))

	payment := &models.Payment{ID: 8, OrderID: 42, Status: models.PaymentStatusPaid, Amount: decimal.NewFromInt(10)}
	require.NoError(t, p.PublishPaymentStatusChanged(context.Background(), payment, models.PaymentStatusPending))

	msg := w.messages[0]
	assert.Equal(t, "payment-status", msg.Topic)
	assert.Equal(t, "42", string(msg.Key))
	event := decodeEvent(t, msg)
	assert.Equal(t, int64(8), event.PaymentID)
}

func TestKafkaPublisher_WriteErrorIsReturned(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := newKafkaPublisher(w, testKafkaConfig(), logging.NewLoggerV2("test"))

	err := p.PublishOrderCreated(context.Background(), &models.Order{ID: 1})

	assert.EqualError(t, err, "broker down")
	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

type fakeUpdater struct {
	mu     sync.Mutex
	paid   []int64
	failed []int64
	paidAt []*time.Time
	err    error
}

func (u *fakeUpdater) MarkPaid(_ context.Context, id int64, paidAt *time.Time) (*models.Payment, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.paid = append(u.paid, id)
	u.paidAt = append(u.paidAt, paidAt)
	return &models.Payment{ID: id, Status: models.PaymentStatusPaid}, u.err
}

func (u *fakeUpdater) MarkFailed(_ context.Context, id int64) (*models.Payment, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.failed = append(u.failed, id)
	return &models.Payment{ID: id, Status: models.PaymentStatusFailed}, u.err
}

func paymentMessage(t *testing.T, event PaymentEvent) kafka.Message {
	t.Helper()
	data, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Topic: "payments", Value: data}
}

func TestKafkaConsumer_DispatchesPaymentEvents(t *testing.T) {
	u := &fakeUpdater{}
	c := newKafkaConsumer(nil, u, logging.NewLoggerV2("test"))
	paidAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	c.handleMessage(context.Background(), paymentMessage(t, PaymentEvent{Type: PaymentEventSucceeded, PaymentID: 8, PaidAt: &paidAt}))
	c.handleMessage(context.Background(), paymentMessage(t, PaymentEvent{Type: PaymentEventFailed, PaymentID: 9}))
	c.handleMessage(context.Background(), paymentMessage(t, PaymentEvent{Type: "payment.refunded", PaymentID: 10}))
	c.handleMessage(context.Background(), kafka.Message{Value: []byte("not json")})

	assert.Equal(t, []int64{8}, u.paid)
	require.NotNil(t, u.paidAt[0])
	assert.True(t, paidAt.Equal(*u.paidAt[0]))
	assert.Equal(t, []int64{9}, u.failed)
}

func TestKafkaConsumer_RedeliveredSettlementIsTolerated(t *testing.T) {
	u := &fakeUpdater{err: apperrors.NewConflictError("payment_id", "payment 8 was already settled as PAID")}
	c := newKafkaConsumer(nil, u, logging.NewLoggerV2("test"))

	assert.NotPanics(t, func() {
		c.handleMessage(context.Background(), paymentMessage(t, PaymentEvent{Type: PaymentEventSucceeded, PaymentID: 8}))
	})
	assert.Equal(t, []int64{8}, u.paid)
}

type fakeReader struct {
	messages chan kafka.Message
	closed   chan struct{}
	once     sync.Once
}

func newFakeReader() *fakeReader {
	return &fakeReader{messages: make(chan kafka.Message, 4), closed: make(chan struct{})}
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case msg := <-r.messages:
		return msg, nil
	case <-r.closed:
		return kafka.Message{}, errors.New("reader closed")
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *fakeReader) Close() error {
	r.once.Do(func() { close(r.closed) })
	return nil
}

func TestKafkaConsumer_StartStopsOnContextCancel(t *testing.T) {
	r := newFakeReader()
	u := &fakeUpdater{}
	c := newKafkaConsumer(r, u, logging.NewLoggerV2("test"))
	ctx, cancel := context.WithCancel(context.Background())

	r.messages <- paymentMessage(t, PaymentEvent{Type: PaymentEventFailed, PaymentID: 3})

	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	require.Eventually(t, func() bool {
		u.mu.Lock()
		defer u.mu.Unlock()
		return len(u.failed) == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}
}

func TestKafkaConsumer_StopEndsLoop(t *testing.T) {
	r := newFakeReader()
	c := newKafkaConsumer(r, &fakeUpdater{}, logging.NewLoggerV2("test"))

	done := make(chan error, 1)
	go func() { done <- c.Start(context.Background()) }()

	c.Stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}
}

func TestNopPublisher(t *testing.T) {
	var p NopPublisher
	assert.NoError(t, p.PublishOrderCreated(context.Background(), &models.Order{}))
	assert.NoError(t, p.PublishOrderStatusChanged(context.Background(), &models.Order{}, models.OrderStatusPending))
	assert.NoError(t, p.PublishPaymentStatusChanged(context.Background(), &models.Payment{}, models.PaymentStatusPending))
}
