package recording

import (
	"context"
	"fmt"
	"time"

	"github.com/capturd/capturd/internal/observability"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const (
	// DefaultRetentionAge is how long completed recordings are kept before
	// the sweeper removes them.
	DefaultRetentionAge = 7 * 24 * time.Hour

	// DefaultRetentionSchedule runs the sweep at the top of every hour.
	DefaultRetentionSchedule = "0 * * * *"
)

// Retention deletes completed recordings older than a configured age on a
// cron schedule. Active recordings are never touched.
type Retention struct {
	controller *Controller
	maxAge     time.Duration
	schedule   string
	cron       *cron.Cron
	logger     zerolog.Logger
}

// RetentionConfig holds retention sweeper settings.
type RetentionConfig struct {
	Controller *Controller
	MaxAge     time.Duration
	Schedule   string
	Logger     zerolog.Logger
}

// NewRetention creates a retention sweeper. The schedule must be a valid
// five-field cron expression.
func NewRetention(cfg RetentionConfig) (*Retention, error) {
	if cfg.Controller == nil {
		return nil, fmt.Errorf("controller is required")
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = DefaultRetentionAge
	}
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultRetentionSchedule
	}

	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		return nil, fmt.Errorf("invalid retention schedule %q: %w", cfg.Schedule, err)
	}

	return &Retention{
		controller: cfg.Controller,
		maxAge:     cfg.MaxAge,
		schedule:   cfg.Schedule,
		cron:       cron.New(),
		logger:     cfg.Logger,
	}, nil
}

// Start schedules the sweep.
func (r *Retention) Start() error {
	if _, err := r.cron.AddFunc(r.schedule, r.sweep); err != nil {
		return fmt.Errorf("failed to schedule retention sweep: %w", err)
	}

	r.cron.Start()

	r.logger.Info().
		Str("schedule", r.schedule).
		Dur("maxAge", r.maxAge).
		Msg("Retention sweeper started")

	return nil
}

// Stop cancels the schedule and waits for a running sweep to finish.
func (r *Retention) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()

	r.logger.Info().Msg("Retention sweeper stopped")
}

// Sweep runs one pass immediately. Exposed for tests and for an explicit
// sweep-on-demand.
func (r *Retention) Sweep() int {
	return r.sweepOnce()
}

func (r *Retention) sweep() {
	r.sweepOnce()
}

func (r *Retention) sweepOnce() int {
	cutoff := time.Now().Add(-r.maxAge)
	deleted := 0

	for _, summary := range r.controller.List() {
		if !summary.Completed {
			continue
		}
		if time.UnixMilli(summary.StartTime).After(cutoff) {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := r.controller.Delete(ctx, summary.RecordingID)
		cancel()
		if err != nil {
			r.logger.Warn().
				Err(err).
				Str("recordingId", summary.RecordingID).
				Msg("Retention sweep failed to delete recording")
			continue
		}
		deleted++
	}

	observability.RecordRetentionSweep(deleted)

	if deleted > 0 {
		r.logger.Info().
			Int("deleted", deleted).
			Msg("Retention sweep removed expired recordings")
	}

	return deleted
}
