// internal/service/scheduler_service.go
package service

import (
	"context"
	"log"
	"time"

	"github.com/unclebandit/newsboard-backend/internal/repository"
)

// SchedulerService runs the periodic maintenance passes: sending due
// scheduled newsletters and reclaiming old terminal ones.
type SchedulerService struct {
	NewsletterRepo repository.NewsletterRepositoryInterface
	Newsletters    *NewsletterService
}

// ProcessScheduled sends every draft whose scheduled time has passed. Each
// newsletter is attempted independently; one failure never blocks the rest.
// Returns how many dispatches succeeded.
func (s *SchedulerService) ProcessScheduled(ctx context.Context, now time.Time) int {
	due, err := s.NewsletterRepo.ListScheduledDue(now)
	if err != nil {
		log.Println("⚠️ failed to list due newsletters:", err)
		return 0
	}

	processed := 0
	for _, n := range due {
		sent, err := s.Newsletters.Send(ctx, n.ID)
		if err != nil {
			log.Printf("⚠️ scheduled send of newsletter %d failed: %v", n.ID, err)
			continue
		}
		log.Printf("📬 scheduled newsletter %d sent to %d recipients", n.ID, sent)
		processed++
	}
	return processed
}

// Cleanup deletes sent/cancelled newsletters created more than days ago.
func (s *SchedulerService) Cleanup(days int) (int, error) {
	if days <= 0 {
		days = 30
	}
	cutoff := time.Now().AddDate(0, 0, -days)

	count, err := s.NewsletterRepo.DeleteOlderThan(cutoff)
	if err != nil {
		return 0, err
	}
	log.Printf("🧹 deleted %d old newsletters", count)
	return count, nil
}
