package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/models"
)

// PaymentEventType is the type of an event emitted by the payment processor.
type PaymentEventType string

const (
	PaymentEventSucceeded PaymentEventType = "payment.succeeded"
	PaymentEventFailed    PaymentEventType = "payment.failed"
)

// PaymentEvent is a settlement notification from the payment processor.
type PaymentEvent struct {
	ID        string           `json:"id"`
	Type      PaymentEventType `json:"type"`
	PaymentID int64            `json:"payment_id"`
	OrderID   int64            `json:"order_id"`
	PaidAt    *time.Time       `json:"paid_at,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// PaymentStatusUpdater applies settlement outcomes to stored payments.
type PaymentStatusUpdater interface {
	MarkPaid(ctx context.Context, paymentID int64, paidAt *time.Time) (*models.Payment, error)
	MarkFailed(ctx context.Context, paymentID int64) (*models.Payment, error)
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// KafkaConsumer consumes payment processor events from Kafka.
type KafkaConsumer struct {
	reader   messageReader
	payments PaymentStatusUpdater
	logger   *logging.LoggerV2
	stopCh   chan struct{}
}

// NewKafkaConsumer creates a new Kafka-based event consumer.
func NewKafkaConsumer(cfg config.KafkaConfig, payments PaymentStatusUpdater, logger *logging.LoggerV2) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.PaymentsTopic,
		GroupID:  cfg.ConsumerGroup,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  time.Second,
	})
	return newKafkaConsumer(reader, payments, logger)
}

func newKafkaConsumer(r messageReader, payments PaymentStatusUpdater, logger *logging.LoggerV2) *KafkaConsumer {
	return &KafkaConsumer{
		reader:   r,
		payments: payments,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start consumes events until ctx is cancelled or Stop is called.
func (c *KafkaConsumer) Start(ctx context.Context) error {
	c.logger.Info("Starting Kafka consumer")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stopCh:
			c.logger.Info("Kafka consumer stopped")
			return nil
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				select {
				case <-c.stopCh:
					c.logger.Info("Kafka consumer stopped")
					return nil
				default:
				}
				c.logger.Error("Failed to read message", logging.Fields{"error": err.Error()})
				continue
			}

			c.handleMessage(ctx, msg)
		}
	}
}

// Stop stops the consumer.
func (c *KafkaConsumer) Stop() {
	close(c.stopCh)
	c.reader.Close()
}

func (c *KafkaConsumer) handleMessage(ctx context.Context, msg kafka.Message) {
	c.logger.Debug("Received message", logging.Fields{
		"topic":     msg.Topic,
		"partition": msg.Partition,
		"offset":    msg.Offset,
	})

	var event PaymentEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		c.logger.Error("Failed to unmarshal event", logging.Fields{"error": err.Error()})
		return
	}

	var err error
	switch event.Type {
	case PaymentEventSucceeded:
		_, err = c.payments.MarkPaid(ctx, event.PaymentID, event.PaidAt)
	case PaymentEventFailed:
		_, err = c.payments.MarkFailed(ctx, event.PaymentID)
	default:
		c.logger.Debug("Ignoring unknown event type", logging.Fields{"type": event.Type})
		return
	}
	if err == nil {
		c.logger.Info("Payment event applied", logging.Fields{
			"event_id":   event.ID,
			"type":       event.Type,
			"payment_id": event.PaymentID,
		})
		return
	}

	// Redelivered settlements hit an already terminal payment.
	if errors.IsKind(err, errors.KindConflict) || errors.IsKind(err, errors.KindValidation) {
		c.logger.Warn("Payment event rejected", logging.Fields{
			"event_id":   event.ID,
			"payment_id": event.PaymentID,
			"error":      err.Error(),
		})
		return
	}
	c.logger.Error("Failed to apply payment event", logging.Fields{
		"event_id":   event.ID,
		"payment_id": event.PaymentID,
		"error":      err.Error(),
	})
}
