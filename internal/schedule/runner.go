// Package schedule runs periodic jobs on cron expressions.
package schedule

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Runner wraps a cron scheduler. Jobs receive the base context.
type Runner struct {
	cron    *cron.Cron
	logger  *slog.Logger
	baseCtx context.Context
}

// New creates a Runner evaluating specs in the scheduler's local time.
func New(logger *slog.Logger, baseCtx context.Context, opts ...cron.Option) *Runner {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &Runner{
		cron:    cron.New(opts...),
		logger:  logger,
		baseCtx: baseCtx,
	}
}

// Add registers job under a standard five-field spec.
func (r *Runner) Add(spec string, job func(context.Context)) (cron.EntryID, error) {
	return r.cron.AddFunc(spec, func() {
		if r.baseCtx.Err() != nil {
			return
		}
		job(r.baseCtx)
	})
}

// Len reports how many jobs are registered.
func (r *Runner) Len() int { return len(r.cron.Entries()) }

func (r *Runner) Start() {
	r.logger.Info("Scheduler started.", "jobs", r.Len())
	r.cron.Start()
}

// Stop waits for running jobs to finish.
func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	r.logger.Info("Scheduler stopped.")
}
