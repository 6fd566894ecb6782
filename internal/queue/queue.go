package queue

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Queue interface
type Queue interface {
	Publish(topic string, payload any) error
	Subscribe(topic string, handler func(payload any) error) error
	Close() error
}

// InMemoryQueue delivers messages to in-process subscribers with retry.
// It is used when no broker is configured.
type InMemoryQueue struct {
	mu       sync.Mutex
	handlers map[string][]func(payload any) error
	logger   *zap.Logger
	wg       sync.WaitGroup

	MaxRetries int
	Backoff    time.Duration
}

// NewInMemoryQueue creates a new queue
func NewInMemoryQueue(logger *zap.Logger) *InMemoryQueue {
	return &InMemoryQueue{
		handlers:   make(map[string][]func(payload any) error),
		logger:     logger,
		MaxRetries: 3,
		Backoff:    500 * time.Millisecond,
	}
}

// JobPayload wraps a message payload with retry info
type JobPayload struct {
	Topic      string
	Payload    any
	RetryCount int
	MaxRetries int
}

// Publish sends a message to all subscribers
func (q *InMemoryQueue) Publish(topic string, payload any) error {
	q.mu.Lock()
	handlers := q.handlers[topic]
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	for _, handler := range handlers {
		job := JobPayload{
			Topic:      topic,
			Payload:    payload,
			MaxRetries: q.MaxRetries,
		}
		q.wg.Add(1)
		go q.processJob(handler, job)
	}

	return nil
}

// processJob handles retries and errors
func (q *InMemoryQueue) processJob(handler func(payload any) error, job JobPayload) {
	defer q.wg.Done()

	for job.RetryCount <= job.MaxRetries {
		err := handler(job.Payload)
		if err == nil {
			return
		}

		job.RetryCount++
		q.logger.Warn("Job failed",
			zap.String("topic", job.Topic),
			zap.Int("attempt", job.RetryCount),
			zap.Int("max_retries", job.MaxRetries),
			zap.Error(err),
		)

		if job.RetryCount > job.MaxRetries {
			q.logger.Error("Job permanently failed", zap.String("topic", job.Topic), zap.Any("payload", job.Payload))
			return
		}

		// linear backoff before retry
		time.Sleep(time.Duration(job.RetryCount) * q.Backoff)
	}
}

// Subscribe adds a handler for a topic
func (q *InMemoryQueue) Subscribe(topic string, handler func(payload any) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

// Close waits for in-flight jobs to finish.
func (q *InMemoryQueue) Close() error {
	q.wg.Wait()
	return nil
}
