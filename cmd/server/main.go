package main

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/unclebandit/newsboard-backend/internal/config"
	"github.com/unclebandit/newsboard-backend/internal/controller"
	"github.com/unclebandit/newsboard-backend/internal/db"
	"github.com/unclebandit/newsboard-backend/internal/mail"
	"github.com/unclebandit/newsboard-backend/internal/queue"
	"github.com/unclebandit/newsboard-backend/internal/repository"
	"github.com/unclebandit/newsboard-backend/internal/scheduler"
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
	log.Println("✅ Connected to database")

	newsletterRepo := &repository.NewsletterRepository{DB: conn}
	recipientRepo := &repository.RecipientRepository{DB: conn}
	userRepo := &repository.UserRepository{DB: conn}
	templateRepo := &repository.TemplateRepository{DB: conn}

	mailer, err := mail.NewSESMailer(context.Background(), cfg.AWSAccessKey, cfg.AWSSecretKey, cfg.AWSRegion)
	if err != nil {
		log.Fatalf("failed to init mailer: %v", err)
	}

	newsletterService := &service.NewsletterService{
		NewsletterRepo: newsletterRepo,
		RecipientRepo:  recipientRepo,
		UserRepo:       userRepo,
		TemplateRepo:   templateRepo,
		Renderer:       service.NewRenderService(cfg.SiteURL),
		Mailer:         mailer,
		MailFrom:       cfg.MailFrom,
	}
	schedulerService := &service.SchedulerService{
		NewsletterRepo: newsletterRepo,
		Newsletters:    newsletterService,
	}

	var dispatchQueue queue.DispatchQueue
	if cfg.AMQPURL != "" {
		amqpQueue, err := queue.NewAMQPQueue(cfg.AMQPURL)
		if err != nil {
			log.Fatalf("failed to connect to AMQP: %v", err)
		}
		defer amqpQueue.Close()
		dispatchQueue = amqpQueue
		log.Println("✅ Dispatching via AMQP")
	} else {
		dispatchQueue = queue.NewInProcessQueue(func(id int) error {
			_, err := newsletterService.Send(context.Background(), id)
			return err
		})
		log.Println("⚠️ AMQP_URL not set, dispatching in-process")
	}

	cronScheduler := scheduler.New(schedulerService, cfg.SweepInterval, cfg.RetentionDays)
	if err := cronScheduler.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer cronScheduler.Stop()

	newsletterController := &controller.NewsletterController{
		Service:   newsletterService,
		Scheduler: schedulerService,
		Queue:     dispatchQueue,
	}
	templateController := &controller.TemplateController{
		Repo:    templateRepo,
		Service: newsletterService,
	}

	r := chi.NewRouter()

	r.Route("/newsletters", func(r chi.Router) {
		r.Post("/", newsletterController.Create)
		r.Get("/", newsletterController.List)
		r.Get("/stats", newsletterController.Stats)
		r.Post("/process-scheduled", newsletterController.ProcessScheduled)
		r.Post("/cleanup", newsletterController.Cleanup)

		r.Get("/{id}", newsletterController.Get)
		r.Post("/{id}/send", newsletterController.Send)
		r.Post("/{id}/cancel", newsletterController.Cancel)
		r.Post("/{id}/duplicate", newsletterController.Duplicate)
		r.Get("/{id}/preview", newsletterController.Preview)
		r.Get("/{id}/recipients", newsletterController.Recipients)
	})

	r.Route("/templates", func(r chi.Router) {
		r.Post("/", templateController.Create)
		r.Get("/", templateController.List)
		r.Get("/{id}", templateController.Get)
		r.Put("/{id}", templateController.Update)
		r.Delete("/{id}", templateController.Delete)
		r.Post("/{id}/use", templateController.Use)
	})

	log.Println("🚀 Server running on :" + cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, r))
}
