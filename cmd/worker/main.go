package main

import (
	"context"
	"encoding/json"
	"log"

	"github.com/joho/godotenv"
	"github.com/streadway/amqp"

	"github.com/unclebandit/newsboard-backend/internal/config"
	"github.com/unclebandit/newsboard-backend/internal/db"
	appErrors "github.com/unclebandit/newsboard-backend/internal/errors"
	"github.com/unclebandit/newsboard-backend/internal/mail"
	"github.com/unclebandit/newsboard-backend/internal/queue"
	"github.com/unclebandit/newsboard-backend/internal/repository"
	"github.com/unclebandit/newsboard-backend/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, relying on OS environment variables")
	}
	cfg := config.Load()

	conn, err := db.Connect(cfg.DSN())
	if err != nil {
		log.Fatalf("failed to connect to DB: %v", err)
	}
	defer conn.Close()

	mailer, err := mail.NewSESMailer(context.Background(), cfg.AWSAccessKey, cfg.AWSSecretKey, cfg.AWSRegion)
	if err != nil {
		log.Fatalf("failed to init mailer: %v", err)
	}

	newsletterService := &service.NewsletterService{
		NewsletterRepo: &repository.NewsletterRepository{DB: conn},
		RecipientRepo:  &repository.RecipientRepository{DB: conn},
		UserRepo:       &repository.UserRepository{DB: conn},
		TemplateRepo:   &repository.TemplateRepository{DB: conn},
		Renderer:       service.NewRenderService(cfg.SiteURL),
		Mailer:         mailer,
		MailFrom:       cfg.MailFrom,
	}

	amqpConn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer amqpConn.Close()

	ch, err := amqpConn.Channel()
	if err != nil {
		log.Fatalf("Failed to open a channel: %v", err)
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(
		queue.DispatchQueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		log.Fatalf("Failed to declare queue: %v", err)
	}

	msgs, err := ch.Consume(
		q.Name,
		"",
		false, // autoAck off so a crashed dispatch is redelivered
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		log.Fatalf("Failed to register consumer: %v", err)
	}

	log.Println("Worker running, waiting for dispatch jobs...")
	for d := range msgs {
		var job queue.DispatchJob
		if err := json.Unmarshal(d.Body, &job); err != nil {
			log.Println("Invalid job payload:", err)
			d.Ack(false)
			continue
		}

		sent, err := newsletterService.Send(context.Background(), job.NewsletterID)
		if err != nil {
			// Invalid state and not-found are permanent: the newsletter was
			// cancelled, already sent, or deleted since it was queued.
			if appErrors.IsInvalidState(err) || appErrors.IsNotFound(err) {
				log.Printf("Dropping dispatch of newsletter %d: %v", job.NewsletterID, err)
				d.Ack(false)
				continue
			}

			log.Printf("Dispatch of newsletter %d failed: %v", job.NewsletterID, err)
			// One redelivery; the newsletter is back in draft and can be
			// re-sent by an operator if the retry also fails.
			d.Nack(false, !d.Redelivered)
			continue
		}

		log.Printf("✅ Newsletter %d dispatched to %d recipients", job.NewsletterID, sent)
		d.Ack(false)
	}
}
