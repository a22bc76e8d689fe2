// internal/scheduler/scheduler.go
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/unclebandit/newsboard-backend/internal/service"
)

// Scheduler fires the periodic sweeps: scheduled-newsletter sends on the
// configured interval and retention cleanup once a day.
type Scheduler struct {
	cron          *cron.Cron
	svc           *service.SchedulerService
	sweepSpec     string
	retentionDays int
}

func New(svc *service.SchedulerService, sweepSpec string, retentionDays int) *Scheduler {
	return &Scheduler{
		cron:          cron.New(),
		svc:           svc,
		sweepSpec:     sweepSpec,
		retentionDays: retentionDays,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.sweepSpec, s.runScheduled); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("@daily", s.runCleanup); err != nil {
		return err
	}
	s.cron.Start()
	log.Printf("⏰ scheduler started (sweep %s, retention %d days)", s.sweepSpec, s.retentionDays)
	return nil
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

func (s *Scheduler) runScheduled() {
	s.svc.ProcessScheduled(context.Background(), time.Now())
}

func (s *Scheduler) runCleanup() {
	if _, err := s.svc.Cleanup(s.retentionDays); err != nil {
		log.Println("⚠️ retention cleanup failed:", err)
	}
}
