// Package scheduler runs the batch pipeline once a day at a fixed wall-clock time.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is the work a trigger runs
type Job func(ctx context.Context) error

// DailyTriggerConfig holds configuration for the daily trigger
type DailyTriggerConfig struct {
	// Hour and Minute are the local wall-clock time to run at (24h)
	Hour   int
	Minute int

	// CheckInterval is how often to check if it's time to run
	CheckInterval time.Duration
}

// DefaultDailyTriggerConfig returns default daily trigger configuration
func DefaultDailyTriggerConfig() DailyTriggerConfig {
	return DailyTriggerConfig{
		Hour:          2, // 2am
		Minute:        0,
		CheckInterval: time.Minute,
	}
}

// Validate checks the configured time of day
func (c DailyTriggerConfig) Validate() error {
	if c.Hour < 0 || c.Hour > 23 || c.Minute < 0 || c.Minute > 59 {
		return fmt.Errorf("invalid schedule time %02d:%02d", c.Hour, c.Minute)
	}
	if c.CheckInterval <= 0 || c.CheckInterval > time.Minute {
		return errors.New("check interval must be between 0 and 1m")
	}
	return nil
}

// DailyTrigger runs a job at most once per calendar day. Runs never overlap:
// the job executes on the trigger's own goroutine.
type DailyTrigger struct {
	config DailyTriggerConfig
	job    Job
	logger *zap.Logger
	now    func() time.Time

	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.Mutex
	isRunning   bool
	lastRunDate string // Track which date we last ran for
}

// NewDailyTrigger creates a new daily trigger
func NewDailyTrigger(config DailyTriggerConfig, job Job, logger *zap.Logger) (*DailyTrigger, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &DailyTrigger{
		config: config,
		job:    job,
		logger: logger,
		now:    time.Now,
	}, nil
}

// Start starts the trigger loop
func (c *DailyTrigger) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = true
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go c.runLoop(ctx)

	c.logger.Info("Daily trigger started",
		zap.Int("hour", c.config.Hour),
		zap.Int("minute", c.config.Minute),
		zap.Duration("check_interval", c.config.CheckInterval),
	)
	return nil
}

// Stop stops the trigger, waiting for a running job until ctx expires
func (c *DailyTrigger) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = false
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("Daily trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *DailyTrigger) runLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.checkAndTrigger(ctx)
		}
	}
}

// checkAndTrigger runs the job if the scheduled minute has come and it has
// not run today. It reports whether the job ran.
func (c *DailyTrigger) checkAndTrigger(ctx context.Context) bool {
	now := c.now()
	currentDate := now.Format("2006-01-02")

	c.mu.Lock()
	if c.lastRunDate == currentDate {
		c.mu.Unlock()
		return false
	}
	if now.Hour() != c.config.Hour || now.Minute() != c.config.Minute {
		c.mu.Unlock()
		return false
	}
	c.lastRunDate = currentDate
	c.mu.Unlock()

	c.logger.Info("Triggering scheduled pipeline run", zap.String("date", currentDate))
	start := time.Now()
	if err := c.job(ctx); err != nil {
		// the next attempt is tomorrow; failed runs are in the run history
		c.logger.Error("Scheduled pipeline run failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return true
	}
	c.logger.Info("Scheduled pipeline run finished", zap.Duration("elapsed", time.Since(start)))
	return true
}
