package marketplace

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper runs scheduled expiry sweeps against the listing ledger.  Sweeps
// are idempotent, so the schedule can overlap lazy sweeps triggered by
// active-listing reads.
type Sweeper struct {
	cron    *cron.Cron
	service Service
	logger  *zap.Logger
}

// NewSweeper schedules sweeps with a cron expression such as "@every 1m".
func NewSweeper(service Service, schedule string, logger *zap.Logger) (*Sweeper, error) {
	s := &Sweeper{
		cron:    cron.New(),
		service: service,
		logger:  logger,
	}

	_, err := s.cron.AddFunc(schedule, func() {
		swept := s.service.SweepExpired(context.Background(), time.Now().UTC())
		if swept > 0 {
			logger.Info("scheduled sweep transitioned listings", zap.Int("count", swept))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins the schedule.
func (s *Sweeper) Start() {
	s.cron.Start()
	s.logger.Info("expiry sweeper started")
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("expiry sweeper stopped")
}
