package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// tickSpec is the fixed poll cadence. Internal tuning, not an option: the
// thresholds are whole days, so once a minute is more than enough.
const tickSpec = "* * * * *"

// Ticker is the scheduler-facing slice of the reminder service.
type Ticker interface {
	Tick(ctx context.Context, now time.Time)
}

// ExpiryScheduler drives the reminder service once per minute via cron. A
// dispatch cycle with a long push interval blocks its tick; SkipIfStillRunning
// drops overlapping ticks instead of stacking them, so the single-threaded
// model holds.
type ExpiryScheduler struct {
	cronEngine *cron.Cron
	ticker     Ticker
	logger     *logrus.Logger
	ctx        context.Context
	cancel     context.CancelFunc
}

func NewExpiryScheduler(ticker Ticker, logger *logrus.Logger) *ExpiryScheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &ExpiryScheduler{
		cronEngine: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		ticker: ticker,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (s *ExpiryScheduler) Start() {
	s.logger.Info("Starting expiry scheduler...")

	_, err := s.cronEngine.AddFunc(tickSpec, func() {
		s.ticker.Tick(s.ctx, time.Now().UTC())
	})
	if err != nil {
		s.logger.Fatalf("FATAL: Could not add expiry check cron job: %v", err)
	}

	s.cronEngine.Start()
	s.logger.Info("Expiry scheduler started.")
}

func (s *ExpiryScheduler) Stop() {
	s.logger.Info("Stopping expiry scheduler...")
	s.cancel() // Unblocks a dispatch cycle waiting out its push interval.
	ctx := s.cronEngine.Stop()
	<-ctx.Done()
	s.logger.Info("Expiry scheduler gracefully stopped.")
}
