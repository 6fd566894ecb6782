package queue

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// channel is the part of *amqp.Channel the queue uses.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPQueue publishes to and consumes from a durable topic exchange.
// Each customer topic gets its own durable queue bound by routing key.
type AMQPQueue struct {
	conn      *amqp.Connection
	ch        channel
	exchange  string
	queueName string
	logger    *zap.Logger

	// guards ch for publishing
	mu sync.Mutex
}

// NewAMQPQueue connects and declares the exchange plus one durable queue per
// customer topic, so events published before any consumer starts are kept.
func NewAMQPQueue(url, exchange, queueName string, logger *zap.Logger) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := declareTopology(ch, exchange, queueName, CustomerTopics); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	return &AMQPQueue{conn: conn, ch: ch, exchange: exchange, queueName: queueName, logger: logger}, nil
}

func declareTopology(ch channel, exchange, queueName string, topics []string) error {
	err := ch.ExchangeDeclare(
		exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	for _, topic := range topics {
		if _, err := declareTopicQueue(ch, exchange, queueName, topic); err != nil {
			return err
		}
	}
	return nil
}

// declareTopicQueue declares <queueName>.<topic> and binds it to topic.
// Declaring is idempotent, so publisher and worker may both do it.
func declareTopicQueue(ch channel, exchange, queueName, topic string) (string, error) {
	name := queueName + "." + topic

	declared, err := ch.QueueDeclare(
		name,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return "", fmt.Errorf("declare queue %s: %w", name, err)
	}

	if err := ch.QueueBind(declared.Name, topic, exchange, false, nil); err != nil {
		return "", fmt.Errorf("bind queue %s: %w", name, err)
	}
	return declared.Name, nil
}

func (q *AMQPQueue) Publish(topic string, payload any) error {
	msg, err := newPublishing(payload)
	if err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	return q.ch.Publish(q.exchange, topic, false, false, msg)
}

// Subscribe consumes the queue bound to topic and hands each delivery,
// decoded as a CustomerEvent, to handler. Deliveries are acked when handler
// succeeds and dropped otherwise.
func (q *AMQPQueue) Subscribe(topic string, handler func(payload any) error) error {
	name, err := declareTopicQueue(q.ch, q.exchange, q.queueName, topic)
	if err != nil {
		return err
	}

	deliveries, err := q.ch.Consume(name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", name, err)
	}

	go func() {
		for d := range deliveries {
			handleDelivery(d, handler, q.logger)
		}
	}()
	return nil
}

// NotifyClose reports the connection closing, so consumers can stop.
func (q *AMQPQueue) NotifyClose() <-chan *amqp.Error {
	return q.conn.NotifyClose(make(chan *amqp.Error, 1))
}

func (q *AMQPQueue) Close() error {
	if err := q.ch.Close(); err != nil {
		_ = q.conn.Close()
		return err
	}
	return q.conn.Close()
}

func newPublishing(payload any) (amqp.Publishing, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encode payload: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	}
	if evt, ok := payload.(CustomerEvent); ok {
		msg.MessageId = evt.EventID
		msg.Type = evt.EventType
		msg.Timestamp = evt.Timestamp
	}
	return msg, nil
}

func handleDelivery(d amqp.Delivery, handler func(payload any) error, logger *zap.Logger) {
	var evt CustomerEvent
	if err := json.Unmarshal(d.Body, &evt); err != nil {
		logger.Error("Failed to decode delivery", zap.String("routing_key", d.RoutingKey), zap.Error(err))
		_ = d.Nack(false, false)
		return
	}

	if err := handler(evt); err != nil {
		logger.Error("Failed to handle delivery",
			zap.String("routing_key", d.RoutingKey),
			zap.String("event_id", evt.EventID),
			zap.Error(err),
		)
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
}
