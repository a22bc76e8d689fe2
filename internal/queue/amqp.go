// internal/queue/amqp.go
package queue

import (
	"encoding/json"
	"fmt"

	"github.com/streadway/amqp"
)

// AMQPQueue publishes dispatch jobs to RabbitMQ for cmd/worker to consume.
type AMQPQueue struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	name    string
}

func NewAMQPQueue(url string) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open AMQP channel: %w", err)
	}

	q, err := ch.QueueDeclare(
		DispatchQueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	return &AMQPQueue{conn: conn, channel: ch, name: q.Name}, nil
}

func (q *AMQPQueue) EnqueueDispatch(newsletterID int) error {
	body, err := json.Marshal(DispatchJob{NewsletterID: newsletterID})
	if err != nil {
		return err
	}

	err = q.channel.Publish(
		"",     // default exchange
		q.name, // routing key
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish dispatch job: %w", err)
	}
	return nil
}

func (q *AMQPQueue) Close() {
	q.channel.Close()
	q.conn.Close()
}

var _ DispatchQueue = (*AMQPQueue)(nil)
