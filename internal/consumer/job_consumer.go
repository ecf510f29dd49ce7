package consumer

import (
	"context"
	"encoding/json"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/stageright/audition-service/internal/queue"
)

// HandlerFunc processes one job payload. Returning an error triggers a
// delayed redelivery until the envelope's retry budget runs out.
type HandlerFunc func(ctx context.Context, payload json.RawMessage) error

// JobConsumer drains the background job queue and dispatches by job type.
type JobConsumer struct {
	queue    *queue.RabbitQueue
	handlers map[string]HandlerFunc
}

func NewJobConsumer(q *queue.RabbitQueue) *JobConsumer {
	return &JobConsumer{queue: q, handlers: make(map[string]HandlerFunc)}
}

func (c *JobConsumer) Register(jobType string, h HandlerFunc) {
	c.handlers[jobType] = h
}

// Start consumes deliveries until the channel closes.
func (c *JobConsumer) Start(msgs <-chan amqp.Delivery) {
	go func() {
		for msg := range msgs {
			c.handleMessage(msg)
		}
		log.Println("[JobConsumer] channel closed, stopping consumer")
	}()
}

func (c *JobConsumer) handleMessage(msg amqp.Delivery) {
	var env queue.Envelope
	if err := json.Unmarshal(msg.Body, &env); err != nil {
		log.Printf("[JobConsumer] failed to unmarshal envelope: %v", err)
		msg.Nack(false, false)
		return
	}

	handler, ok := c.handlers[env.Type]
	if !ok {
		log.Printf("[JobConsumer] no handler for job type %q, dropping", env.Type)
		msg.Nack(false, false)
		return
	}

	if err := handler(context.Background(), env.Payload); err != nil {
		if env.Attempt < env.MaxRetries {
			log.Printf("[JobConsumer] %s failed (attempt %d/%d), requeueing: %v", env.Type, env.Attempt+1, env.MaxRetries, err)
			if reqErr := c.queue.Requeue(context.Background(), env); reqErr != nil {
				log.Printf("[JobConsumer] requeue %s failed: %v", env.Type, reqErr)
				msg.Nack(false, true)
				return
			}
			msg.Ack(false)
			return
		}
		log.Printf("[JobConsumer] %s exhausted %d retries, dropping: %v", env.Type, env.MaxRetries, err)
		msg.Nack(false, false)
		return
	}

	msg.Ack(false)
}
