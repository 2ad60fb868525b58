// Package queue wraps the durable RabbitMQ plumbing shared by the pipeline
// services: connection dialing, per-record publishing with best-effort
// semantics, and batch collection with partial acknowledgment.
package queue

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Dial connects to the broker, retrying while it comes up.
func Dial(url string) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error
	for i := 0; i < 10; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		time.Sleep(time.Second * time.Duration(1+i))
	}
	return nil, err
}

// publishChannel is the slice of *amqp.Channel the publisher uses; narrowed
// so tests can script send failures.
type publishChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher emits persistent JSON messages onto one durable queue.
type Publisher struct {
	ch        publishChannel
	queueName string
}

// NewPublisher declares the durable queue and returns a publisher bound to it.
func NewPublisher(ch *amqp.Channel, queueName string) (*Publisher, error) {
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return nil, err
	}
	return &Publisher{ch: ch, queueName: queueName}, nil
}

// NewPublisherFor binds a publisher to an already-declared queue via any
// publish-capable channel.
func NewPublisherFor(ch publishChannel, queueName string) *Publisher {
	return &Publisher{ch: ch, queueName: queueName}
}

// Publish sends one persistent JSON message.
func (p *Publisher) Publish(ctx context.Context, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.ch.PublishWithContext(ctx, "", p.queueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}

// PublishEach sends one message per item, best effort: a failed send is
// logged and recorded but never aborts the rest of the batch. The returned
// slice holds the indices that failed.
func (p *Publisher) PublishEach(ctx context.Context, items []any) []int {
	var failed []int
	for i, item := range items {
		if err := p.Publish(ctx, item); err != nil {
			log.Printf("publish item %d failed: %v", i, err)
			failed = append(failed, i)
		}
	}
	return failed
}

// Collect assembles a delivery batch: it blocks for the first message, then
// keeps gathering until the batch is full or the queue has been idle for the
// given window. A closed channel yields whatever was gathered.
func Collect(msgs <-chan amqp.Delivery, max int, idle time.Duration) []amqp.Delivery {
	var batch []amqp.Delivery

	d, ok := <-msgs
	if !ok {
		return nil
	}
	batch = append(batch, d)

	timer := time.NewTimer(idle)
	defer timer.Stop()
	for len(batch) < max {
		select {
		case d, ok := <-msgs:
			if !ok {
				return batch
			}
			batch = append(batch, d)
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(idle)
		case <-timer.C:
			return batch
		}
	}
	return batch
}

// AckBatch settles a collected batch: failed indices are nacked for
// redelivery, everything else is acked as delivered.
func AckBatch(batch []amqp.Delivery, failed map[int]bool) {
	for i, d := range batch {
		if failed[i] {
			if err := d.Nack(false, true); err != nil {
				log.Printf("nack delivery %d: %v", i, err)
			}
			continue
		}
		if err := d.Ack(false); err != nil {
			log.Printf("ack delivery %d: %v", i, err)
		}
	}
}
