package queue

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Customer lifecycle topics. They double as AMQP routing keys.
const (
	TopicCustomerCreated = "customer.created"
	TopicCustomerUpdated = "customer.updated"
	TopicCustomerDeleted = "customer.deleted"
)

var CustomerTopics = []string{TopicCustomerCreated, TopicCustomerUpdated, TopicCustomerDeleted}

// CustomerEvent is published after a customer write has been applied.
type CustomerEvent struct {
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	CustomerID string    `json:"customer_id"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewCustomerEvent(topic, customerID string) CustomerEvent {
	return CustomerEvent{
		EventID:    uuid.NewString(),
		EventType:  topic,
		CustomerID: customerID,
		Timestamp:  time.Now().UTC(),
	}
}

// SubscribeEventLogger logs every customer event published on q.
func SubscribeEventLogger(q Queue, logger *zap.Logger) error {
	for _, topic := range CustomerTopics {
		err := q.Subscribe(topic, func(payload any) error {
			evt, ok := payload.(CustomerEvent)
			if !ok {
				// a retry would not fix the payload type
				logger.Warn("Invalid payload type, expected CustomerEvent", zap.String("type", fmt.Sprintf("%T", payload)))
				return nil
			}

			logger.Info("Customer event",
				zap.String("event_id", evt.EventID),
				zap.String("event_type", evt.EventType),
				zap.String("customer_id", evt.CustomerID),
				zap.Time("timestamp", evt.Timestamp),
			)
			return nil
		})
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
	}
	return nil
}
