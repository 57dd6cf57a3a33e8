package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"ThetaHarvest/internal/usecase"
	"ThetaHarvest/pkg/logger"
)

// Scheduler fires the nightly universe scan on trading days. Cron expressions
// are evaluated in the exchange timezone, not the host's.
type Scheduler struct {
	cron     *cron.Cron
	orch     *usecase.ScanOrchestrator
	log      *logger.Logger
	schedule string
}

func NewScheduler(orch *usecase.ScanOrchestrator, log *logger.Logger, schedule string, tz *time.Location) *Scheduler {
	if tz == nil {
		tz = time.UTC
	}
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(tz)),
		orch:     orch,
		log:      log,
		schedule: schedule,
	}
}

// Start registers the scan job and starts the cron loop.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		s.orch.RunScheduled(ctx)
	})
	if err != nil {
		return fmt.Errorf("register scan job %q: %w", s.schedule, err)
	}

	s.cron.Start()
	s.log.Info("scheduler started", logger.String("schedule", s.schedule))
	return nil
}

// Stop halts the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}
