package scheduler

import (
	"log"
	"time"

	"screener_backend/services"

	"github.com/go-co-op/gocron"
)

// Scheduler triggers the nightly data refresh after market close.
type Scheduler struct {
	cron *gocron.Scheduler
	jobs *services.RefreshJobService
	at   string
}

// NewScheduler creates a new scheduler instance. An empty time disables the
// scheduled refresh; runs can still be started over the API.
func NewScheduler(jobs *services.RefreshJobService, at string) *Scheduler {
	return &Scheduler{
		cron: gocron.NewScheduler(time.UTC),
		jobs: jobs,
		at:   at,
	}
}

// Start starts all scheduled jobs
func (s *Scheduler) Start() {
	if s.at == "" {
		log.Println("Scheduled refresh disabled (no schedule time configured)")
		return
	}

	log.Println("Starting scheduler...")

	// Refresh price data and indicators daily after market close
	s.cron.Every(1).Day().At(s.at).Do(func() {
		s.runScheduledRefresh()
	})

	s.cron.StartAsync()
	log.Printf("Scheduler started, daily refresh at %s UTC", s.at)
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("Scheduler stopped")
}

// runScheduledRefresh kicks off a refresh run; an already running job is
// logged and skipped, never queued.
func (s *Scheduler) runScheduledRefresh() {
	log.Println("Scheduled refresh triggered")
	result := s.jobs.Start()
	if !result.Success {
		log.Printf("Scheduled refresh skipped: %s", result.Message)
	}
}
