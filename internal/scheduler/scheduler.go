// Package scheduler runs periodic maintenance jobs.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/pluralhub/plural-gateway/internal/metrics"
	"github.com/pluralhub/plural-gateway/internal/store"
)

// Scheduler refreshes registry gauges from the entity store on a cron
// schedule.
type Scheduler struct {
	cron   *cron.Cron
	store  store.Store
	logger *slog.Logger
}

// New creates a scheduler with the gauge refresh job registered.
func New(st store.Store, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		cron:   cron.New(),
		store:  st,
		logger: logger,
	}
	s.scheduleGaugeRefresh()
	return s
}

// Start begins running scheduled jobs. The gauges are primed immediately
// so /metrics is accurate before the first tick.
func (s *Scheduler) Start() {
	s.refreshGauges()
	s.cron.Start()
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) scheduleGaugeRefresh() {
	_, err := s.cron.AddFunc("*/5 * * * *", s.refreshGauges)
	if err != nil {
		s.logger.Error("failed to schedule gauge refresh", "error", err)
	}
}

func (s *Scheduler) refreshGauges() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	systems, members, err := s.store.Counts(ctx)
	if err != nil {
		s.logger.Warn("gauge refresh failed", "error", err)
		return
	}
	metrics.RegisteredSystems.Set(float64(systems))
	metrics.RegisteredMembers.Set(float64(members))
	s.logger.Debug("registry gauges refreshed", "systems", systems, "members", members)
}
