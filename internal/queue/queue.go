// internal/queue/queue.go
package queue

import (
	"log"
	"time"
)

// DispatchQueueName is the AMQP queue dispatch jobs travel on.
const DispatchQueueName = "newsletter_dispatch"

// DispatchJob is the wire payload for one dispatch request.
type DispatchJob struct {
	NewsletterID int `json:"newsletter_id"`
}

// DispatchQueue hands a newsletter off for background dispatch. The HTTP
// layer enqueues; either the AMQP worker or the in-process queue runs it.
type DispatchQueue interface {
	EnqueueDispatch(newsletterID int) error
}

// InProcessQueue dispatches in a goroutine inside the server process. Used
// when no AMQP URL is configured (local development, tests).
type InProcessQueue struct {
	Handler    func(newsletterID int) error
	MaxRetries int
}

func NewInProcessQueue(handler func(int) error) *InProcessQueue {
	return &InProcessQueue{
		Handler:    handler,
		MaxRetries: 3,
	}
}

func (q *InProcessQueue) EnqueueDispatch(newsletterID int) error {
	go q.process(newsletterID)
	return nil
}

// process retries with backoff, then gives up.
func (q *InProcessQueue) process(newsletterID int) {
	for attempt := 1; attempt <= q.MaxRetries; attempt++ {
		err := q.Handler(newsletterID)
		if err == nil {
			return
		}

		log.Printf("⚠️ dispatch of newsletter %d failed (attempt %d/%d): %v",
			newsletterID, attempt, q.MaxRetries, err)

		if attempt == q.MaxRetries {
			log.Printf("⚠️ dispatch of newsletter %d permanently failed after %d attempts",
				newsletterID, q.MaxRetries)
			return
		}
		time.Sleep(time.Duration(attempt*500) * time.Millisecond)
	}
}

var _ DispatchQueue = (*InProcessQueue)(nil)
