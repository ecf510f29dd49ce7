package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeName = "audition.jobs"
	ExchangeKind = "direct"
	RoutingKey   = "job"
	QueueName    = "audition-service.jobs"
	DelayQueue   = "audition-service.jobs.delay"
)

// RabbitQueue is the durable TaskQueue. Delayed jobs sit in a delay queue
// with a per-message TTL whose dead-letter exchange routes them back onto the
// work queue when the TTL expires.
type RabbitQueue struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

func NewRabbitQueue(url string) (*RabbitQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := declareTopology(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &RabbitQueue{conn: conn, channel: ch}, nil
}

func declareTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(ExchangeName, ExchangeKind, true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq exchange declare: %w", err)
	}

	q, err := ch.QueueDeclare(QueueName, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("rabbitmq queue declare: %w", err)
	}
	if err := ch.QueueBind(q.Name, RoutingKey, ExchangeName, false, nil); err != nil {
		return fmt.Errorf("rabbitmq queue bind: %w", err)
	}

	// Expired messages dead-letter back onto the work queue.
	_, err = ch.QueueDeclare(DelayQueue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    ExchangeName,
		"x-dead-letter-routing-key": RoutingKey,
	})
	if err != nil {
		return fmt.Errorf("rabbitmq delay queue declare: %w", err)
	}

	return nil
}

func (q *RabbitQueue) Enqueue(ctx context.Context, jobType string, payload any, opts Options) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return q.publish(ctx, Envelope{
		Type:       jobType,
		Payload:    body,
		MaxRetries: opts.MaxRetries,
		BackoffMS:  opts.Backoff.Milliseconds(),
	}, opts.Delay)
}

// Requeue re-enqueues a failed envelope with its attempt counter bumped,
// delayed by the envelope's backoff. Used by the job consumer.
func (q *RabbitQueue) Requeue(ctx context.Context, env Envelope) error {
	env.Attempt++
	delay := time.Duration(env.BackoffMS) * time.Millisecond * time.Duration(env.Attempt)
	return q.publish(ctx, env, delay)
}

func (q *RabbitQueue) publish(ctx context.Context, env Envelope, delay time.Duration) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	}

	if delay > 0 {
		msg.Expiration = strconv.FormatInt(delay.Milliseconds(), 10)
		// Default exchange routes straight to the delay queue.
		if err := q.channel.PublishWithContext(ctx, "", DelayQueue, false, false, msg); err != nil {
			return fmt.Errorf("publish delayed job: %w", err)
		}
		log.Printf("[TaskQueue] enqueued %s (delay %s)", env.Type, delay)
		return nil
	}

	if err := q.channel.PublishWithContext(ctx, ExchangeName, RoutingKey, false, false, msg); err != nil {
		return fmt.Errorf("publish job: %w", err)
	}
	log.Printf("[TaskQueue] enqueued %s", env.Type)
	return nil
}

// Consume starts delivering jobs from the work queue. Messages are acked
// manually by the consumer after processing.
func (q *RabbitQueue) Consume() (<-chan amqp.Delivery, error) {
	msgs, err := q.channel.Consume(QueueName, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq consume: %w", err)
	}
	log.Printf("[TaskQueue] consuming from queue: %s", QueueName)
	return msgs, nil
}

func (q *RabbitQueue) Close() {
	if q.channel != nil {
		q.channel.Close()
	}
	if q.conn != nil {
		q.conn.Close()
	}
}
