// Package scheduler runs jobs at a fixed time of day.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is run once per day. day is the local midnight of the trigger date.
type Job func(ctx context.Context, day time.Time) error

// DailyTriggerConfig holds configuration for the daily trigger
type DailyTriggerConfig struct {
	// Hour and Minute are the local time of day to run at
	Hour   int
	Minute int
	// CheckInterval is how often the clock is checked
	CheckInterval time.Duration
	Location      *time.Location
}

// DefaultDailyTriggerConfig runs five minutes after midnight in UTC
func DefaultDailyTriggerConfig() DailyTriggerConfig {
	return DailyTriggerConfig{
		Hour:          0,
		Minute:        5,
		CheckInterval: time.Minute,
		Location:      time.UTC,
	}
}

// DailyTrigger fires a job at most once per local date
type DailyTrigger struct {
	config DailyTriggerConfig
	name   string
	job    Job
	logger *zap.Logger
	now    func() time.Time

	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.Mutex
	isRunning   bool
	lastRunDate string
}

// NewDailyTrigger creates a new daily trigger
func NewDailyTrigger(name string, config DailyTriggerConfig, job Job, logger *zap.Logger) *DailyTrigger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Location == nil {
		config.Location = time.UTC
	}
	if config.CheckInterval <= 0 {
		config.CheckInterval = time.Minute
	}
	return &DailyTrigger{
		config: config,
		name:   name,
		job:    job,
		logger: logger.With(zap.String("job", name)),
		now:    time.Now,
	}
}

// Start starts the trigger loop
func (t *DailyTrigger) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = true
	t.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.wg.Add(1)
	go t.runLoop(ctx)

	t.logger.Info("Daily trigger started",
		zap.Int("hour", t.config.Hour),
		zap.Int("minute", t.config.Minute),
		zap.String("location", t.config.Location.String()),
	)
	return nil
}

// Stop stops the trigger and waits for a running job
func (t *DailyTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("Daily trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *DailyTrigger) runLoop(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.checkAndTrigger(ctx)
		}
	}
}

// checkAndTrigger runs the job when the clock has reached the configured
// minute and the job has not run today. It reports whether the job ran.
func (t *DailyTrigger) checkAndTrigger(ctx context.Context) bool {
	now := t.now().In(t.config.Location)
	currentDate := now.Format("2006-01-02")

	t.mu.Lock()
	if t.lastRunDate == currentDate {
		t.mu.Unlock()
		return false
	}
	if now.Hour() != t.config.Hour || now.Minute() != t.config.Minute {
		t.mu.Unlock()
		return false
	}
	t.lastRunDate = currentDate
	t.mu.Unlock()

	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, t.config.Location)
	started := time.Now()
	if err := t.job(ctx, day); err != nil {
		t.logger.Error("Daily job failed", zap.String("date", currentDate), zap.Error(err))
		return true
	}
	t.logger.Info("Daily job completed",
		zap.String("date", currentDate),
		zap.Duration("elapsed", time.Since(started)),
	)
	return true
}
