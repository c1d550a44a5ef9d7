// Package schedule runs the daily full scrape on a cron timer.
package schedule

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"hunter-backend/config"
	"hunter-backend/runner"
	"hunter-backend/utils"
)

// Scheduler triggers full runs on the configured cron expression, in the
// configured timezone, and archives stale listings after each run.
type Scheduler struct {
	cfg    *config.Config
	runner *runner.Runner
	logger *utils.Logger
	cron   *cron.Cron
}

// New builds the scheduler. The timezone must resolve, otherwise the daily
// run would fire at the wrong local hour.
func New(cfg *config.Config, run *runner.Runner, logger *utils.Logger) (*Scheduler, error) {
	loc, err := time.LoadLocation(cfg.CronTimezone)
	if err != nil {
		return nil, fmt.Errorf("schedule: load timezone %q: %w", cfg.CronTimezone, err)
	}

	s := &Scheduler{
		cfg:    cfg,
		runner: run,
		logger: logger.WithTag("schedule"),
		cron:   cron.New(cron.WithLocation(loc)),
	}

	if _, err := s.cron.AddFunc(cfg.CronSchedule, s.tick); err != nil {
		return nil, fmt.Errorf("schedule: invalid cron expression %q: %w", cfg.CronSchedule, err)
	}
	return s, nil
}

// Start blocks forever, running the schedule.
func (s *Scheduler) Start() {
	s.logger.Info("Schedule %q (%s) armed", s.cfg.CronSchedule, s.cfg.CronTimezone)
	s.cron.Run()
}

// tick is one scheduled full run plus the archive sweep.
func (s *Scheduler) tick() {
	s.logger.Info("Scheduled run starting")
	results, err := s.runner.RunAll(false)
	if err != nil {
		s.logger.Error("Scheduled run failed: %v", err)
		return
	}

	for _, res := range results {
		if res.Status != runner.StatusSuccess {
			s.logger.Warn("Source %s finished with errors: %s", res.Source, res.Error)
			continue
		}
		if _, err := s.runner.Archive(res.Source); err != nil {
			s.logger.Warn("Archive sweep for %s failed: %v", res.Source, err)
		}
	}
	s.logger.Info("Scheduled run finished")
}
