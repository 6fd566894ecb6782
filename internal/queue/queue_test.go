package queue

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInMemoryQueuePublishWithoutSubscribers(t *testing.T) {
	q := NewInMemoryQueue(zap.NewNop())

	assert.Error(t, q.Publish(TopicCustomerCreated, NewCustomerEvent(TopicCustomerCreated, "1")))
}

func TestInMemoryQueueRetriesUntilSuccess(t *testing.T) {
	q := NewInMemoryQueue(zap.NewNop())
	q.Backoff = time.Millisecond

	var calls int32
	require.NoError(t, q.Subscribe(TopicCustomerUpdated, func(payload any) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("transient")
		}
		return nil
	}))

	require.NoError(t, q.Publish(TopicCustomerUpdated, NewCustomerEvent(TopicCustomerUpdated, "1")))
	require.NoError(t, q.Close())

	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestInMemoryQueueGivesUpAfterMaxRetries(t *testing.T) {
	q := NewInMemoryQueue(zap.NewNop())
	q.Backoff = time.Millisecond
	q.MaxRetries = 2

	var calls int32
	require.NoError(t, q.Subscribe(TopicCustomerDeleted, func(payload any) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("permanent")
	}))

	require.NoError(t, q.Publish(TopicCustomerDeleted, "x"))
	require.NoError(t, q.Close())

	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestSubscribeEventLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	q := NewInMemoryQueue(zap.NewNop())

	require.NoError(t, SubscribeEventLogger(q, zap.New(core)))

	evt := NewCustomerEvent(TopicCustomerCreated, "65f0c0ffee")
	require.NoError(t, q.Publish(TopicCustomerCreated, evt))
	require.NoError(t, q.Close())

	entries := logs.FilterMessage("Customer event").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "65f0c0ffee", entries[0].ContextMap()["customer_id"])
	assert.Equal(t, evt.EventID, entries[0].ContextMap()["event_id"])
}

func TestNewPublishingCarriesEventMetadata(t *testing.T) {
	evt := NewCustomerEvent(TopicCustomerDeleted, "abc")

	msg, err := newPublishing(evt)
	require.NoError(t, err)

	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, evt.EventID, msg.MessageId)
	assert.Equal(t, TopicCustomerDeleted, msg.Type)
	assert.Equal(t, uint8(amqp.Persistent), msg.DeliveryMode)
	assert.JSONEq(t, `{"event_id":"`+evt.EventID+`","event_type":"customer.deleted","customer_id":"abc","timestamp":"`+evt.Timestamp.Format(time.RFC3339Nano)+`"}`, string(msg.Body))
}

type fakeAcknowledger struct {
	mu     sync.Mutex
	acked  []uint64
	nacked []uint64
}

func (f *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = append(f.acked, tag)
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nacked = append(f.nacked, tag)
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return f.Nack(tag, false, requeue)
}

func TestHandleDelivery(t *testing.T) {
	ack := &fakeAcknowledger{}
	body := []byte(`{"event_id":"e1","event_type":"customer.created","customer_id":"c1"}`)

	var got CustomerEvent
	handleDelivery(amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: body}, func(payload any) error {
		got = payload.(CustomerEvent)
		return nil
	}, zap.NewNop())

	handleDelivery(amqp.Delivery{Acknowledger: ack, DeliveryTag: 2, Body: body}, func(any) error {
		return errors.New("handler failed")
	}, zap.NewNop())

	handleDelivery(amqp.Delivery{Acknowledger: ack, DeliveryTag: 3, Body: []byte("not json")}, func(any) error {
		t.Fatal("handler must not run for undecodable bodies")
		return nil
	}, zap.NewNop())

	assert.Equal(t, "c1", got.CustomerID)
	assert.Equal(t, []uint64{1}, ack.acked)
	assert.Equal(t, []uint64{2, 3}, ack.nacked)
}

type binding struct {
	queue, key, exchange string
}

// fakeChannel records topology calls in place of a broker
type fakeChannel struct {
	mu         sync.Mutex
	exchanges  []string
	queues     []string
	bindings   []binding
	published  []string
	consumed   []string
	deliveries chan amqp.Delivery
	declareErr error
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exchanges = append(f.exchanges, kind+":"+name)
	return nil
}

func (f *fakeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.declareErr != nil {
		return amqp.Queue{}, f.declareErr
	}
	if !durable || autoDelete || exclusive {
		return amqp.Queue{}, errors.New("queue must be durable and shared")
	}
	f.queues = append(f.queues, name)
	return amqp.Queue{Name: name}, nil
}

func (f *fakeChannel) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bindings = append(f.bindings, binding{queue: name, key: key, exchange: exchange})
	return nil
}

func (f *fakeChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.consumed = append(f.consumed, queue)
	return f.deliveries, nil
}

func (f *fakeChannel) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, exchange+"/"+key)
	return nil
}

func (f *fakeChannel) Close() error { return nil }

func TestDeclareTopologyBindsEveryCustomerTopic(t *testing.T) {
	ch := &fakeChannel{}

	require.NoError(t, declareTopology(ch, "customer_events", "customer_events_log", CustomerTopics))

	assert.Equal(t, []string{"topic:customer_events"}, ch.exchanges)
	assert.Equal(t, []string{
		"customer_events_log.customer.created",
		"customer_events_log.customer.updated",
		"customer_events_log.customer.deleted",
	}, ch.queues)
	assert.Equal(t, []binding{
		{"customer_events_log.customer.created", TopicCustomerCreated, "customer_events"},
		{"customer_events_log.customer.updated", TopicCustomerUpdated, "customer_events"},
		{"customer_events_log.customer.deleted", TopicCustomerDeleted, "customer_events"},
	}, ch.bindings)
}

func TestDeclareTopologyQueueError(t *testing.T) {
	ch := &fakeChannel{declareErr: errors.New("access refused")}

	err := declareTopology(ch, "customer_events", "customer_events_log", CustomerTopics)

	assert.ErrorContains(t, err, "declare queue customer_events_log.customer.created")
	assert.Empty(t, ch.bindings)
}

func TestAMQPQueuePublishAndSubscribe(t *testing.T) {
	ch := &fakeChannel{deliveries: make(chan amqp.Delivery, 1)}
	q := &AMQPQueue{ch: ch, exchange: "customer_events", queueName: "customer_events_log", logger: zap.NewNop()}

	require.NoError(t, q.Publish(TopicCustomerUpdated, NewCustomerEvent(TopicCustomerUpdated, "c1")))
	assert.Equal(t, []string{"customer_events/customer.updated"}, ch.published)

	got := make(chan CustomerEvent, 1)
	require.NoError(t, q.Subscribe(TopicCustomerUpdated, func(payload any) error {
		got <- payload.(CustomerEvent)
		return nil
	}))
	assert.Equal(t, []string{"customer_events_log.customer.updated"}, ch.consumed)

	ack := &fakeAcknowledger{}
	ch.deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 7, Body: []byte(`{"customer_id":"c1"}`)}
	close(ch.deliveries)

	select {
	case evt := <-got:
		assert.Equal(t, "c1", evt.CustomerID)
	case <-time.After(time.Second):
		t.Fatal("delivery was not handled")
	}
}
