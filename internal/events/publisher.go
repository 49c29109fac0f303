package events

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/models"
)

// EventType represents the type of a published event.
type EventType string

const (
	EventTypeOrderCreated         EventType = "order.created"
	EventTypeOrderStatusChanged   EventType = "order.status_changed"
	EventTypePaymentStatusChanged EventType = "payment.status_changed"
)

// Event is the envelope written to Kafka.
type Event struct {
	ID            string          `json:"id"`
	Type          EventType       `json:"type"`
	OrderID       int64           `json:"order_id"`
	UserID        int64           `json:"user_id,omitempty"`
	PaymentID     int64           `json:"payment_id,omitempty"`
	Data          json.RawMessage `json:"data"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id,omitempty"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes order and payment events to Kafka.
type KafkaPublisher struct {
	writer       messageWriter
	ordersTopic  string
	paymentTopic string
	logger       *logging.LoggerV2
}

// NewKafkaPublisher creates a new Kafka-based event publisher. The writer has
// no default topic; each message names its own.
func NewKafkaPublisher(cfg config.KafkaConfig, logger *logging.LoggerV2) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.LeastBytes{},
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
	}
	return newKafkaPublisher(writer, cfg, logger)
}

func newKafkaPublisher(w messageWriter, cfg config.KafkaConfig, logger *logging.LoggerV2) *KafkaPublisher {
	return &KafkaPublisher{
		writer:       w,
		ordersTopic:  cfg.OrdersTopic,
		paymentTopic: cfg.PaymentStatusTopic,
		logger:       logger,
	}
}

// PublishOrderCreated publishes an order created event.
func (p *KafkaPublisher) PublishOrderCreated(ctx context.Context, order *models.Order) error {
	p.logger.Debug("Publishing order created event", logging.Fields{
		"order_id": order.ID,
	})

	data, err := json.Marshal(order)
	if err != nil {
		return err
	}

	event := newEvent(ctx, EventTypeOrderCreated, data)
	event.OrderID = order.ID
	event.UserID = order.UserID
	return p.publish(ctx, p.ordersTopic, order.ID, event)
}

// PublishOrderStatusChanged publishes an order status change event.
func (p *KafkaPublisher) PublishOrderStatusChanged(ctx context.Context, order *models.Order, previousStatus models.OrderStatus) error {
	p.logger.Debug("Publishing order status changed event", logging.Fields{
		"order_id":        order.ID,
		"previous_status": previousStatus,
		"new_status":      order.Status,
	})

	payload := struct {
		Order          *models.Order      `json:"order"`
		PreviousStatus models.OrderStatus `json:"previous_status"`
		NewStatus      models.OrderStatus `json:"new_status"`
	}{
		Order:          order,
		PreviousStatus: previousStatus,
		NewStatus:      order.Status,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	event := newEvent(ctx, EventTypeOrderStatusChanged, data)
	event.OrderID = order.ID
	event.UserID = order.UserID
	return p.publish(ctx, p.ordersTopic, order.ID, event)
}

// PublishPaymentStatusChanged publishes a payment settlement event, keyed by
// order so that an order's payment events stay on one partition.
func (p *KafkaPublisher) PublishPaymentStatusChanged(ctx context.Context, payment *models.Payment, previousStatus models.PaymentStatus) error {
	p.logger.Debug("Publishing payment status changed event", logging.Fields{
		"payment_id":      payment.ID,
		"order_id":        payment.OrderID,
		"previous_status": previousStatus,
		"new_status":      payment.Status,
	})

	payload := struct {
		Payment        *models.Payment      `json:"payment"`
		PreviousStatus models.PaymentStatus `json:"previous_status"`
		NewStatus      models.PaymentStatus `json:"new_status"`
	}{
		Payment:        payment,
		PreviousStatus: previousStatus,
		NewStatus:      payment.Status,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	event := newEvent(ctx, EventTypePaymentStatusChanged, data)
	event.OrderID = payment.OrderID
	event.PaymentID = payment.ID
	return p.publish(ctx, p.paymentTopic, payment.OrderID, event)
}

func newEvent(ctx context.Context, eventType EventType, data []byte) *Event {
	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		Data:          data,
		Timestamp:     time.Now().UTC(),
		CorrelationID: logging.RequestIDFrom(ctx),
	}
}

func (p *KafkaPublisher) publish(ctx context.Context, topic string, key int64, event *Event) error {
	eventData, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(strconv.FormatInt(key, 10)),
		Value: eventData,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "event_id", Value: []byte(event.ID)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish event", logging.Fields{
			"event_id":   event.ID,
			"event_type": event.Type,
			"order_id":   event.OrderID,
			"error":      err.Error(),
		})
		return err
	}

	p.logger.Info("Event published", logging.Fields{
		"event_id":   event.ID,
		"event_type": event.Type,
		"order_id":   event.OrderID,
		"topic":      topic,
	})

	return nil
}

// Close closes the Kafka writer.
func (p *KafkaPublisher) Close() error {
	p.logger.Info("Closing Kafka publisher")
	return p.writer.Close()
}

// NopPublisher drops every event. It stands in for Kafka when
// ENABLE_ORDER_EVENTS is off.
type NopPublisher struct{}

func (NopPublisher) PublishOrderCreated(context.Context, *models.Order) error { return nil }

func (NopPublisher) PublishOrderStatusChanged(context.Context, *models.Order, models.OrderStatus) error {
	return nil
}

func (NopPublisher) PublishPaymentStatusChanged(context.Context, *models.Payment, models.PaymentStatus) error {
	return nil
}
