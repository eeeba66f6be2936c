package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"

	"news-trader/internal/logger"
	"news-trader/internal/predict"
	"news-trader/internal/scrape"
	"news-trader/internal/trading"
)

// Options holds the optional cron expressions. Empty expressions disable
// the corresponding job.
type Options struct {
	ScrapeCron    string
	LiquidateCron string
	Symbols       []string
	LookbackHours int
}

// Scheduler drives scheduled scrape cycles and end-of-window liquidation.
type Scheduler struct {
	cron *cron.Cron
}

// New wires the configured cron jobs. Returns nil when nothing is scheduled.
func New(ctx context.Context, c *scrape.Coordinator, e *predict.Engine, s *trading.Sizer, opts Options) (*Scheduler, error) {
	if opts.ScrapeCron == "" && opts.LiquidateCron == "" {
		return nil, nil
	}

	runner := cron.New()

	if opts.ScrapeCron != "" {
		_, err := runner.AddFunc(opts.ScrapeCron, func() {
			runID, err := c.Run(ctx, opts.Symbols)
			if err != nil {
				logger.ErrorWithErr(ctx, "Scheduled scrape run failed", err)
				return
			}
			if _, err := e.Aggregate(ctx, runID, opts.LookbackHours); err != nil {
				logger.ErrorWithErr(ctx, "Scheduled aggregation failed", err, "run_id", runID)
			}
		})
		if err != nil {
			return nil, err
		}
		logger.Info(ctx, "Scheduled scrape cycle", "cron", opts.ScrapeCron, "symbols", len(opts.Symbols))
	}

	if opts.LiquidateCron != "" {
		_, err := runner.AddFunc(opts.LiquidateCron, func() {
			if err := s.Liquidate(ctx); err != nil {
				logger.ErrorWithErr(ctx, "Scheduled liquidation failed", err)
			}
		})
		if err != nil {
			return nil, err
		}
		logger.Info(ctx, "Scheduled end-of-window liquidation", "cron", opts.LiquidateCron)
	}

	return &Scheduler{cron: runner}, nil
}

// Start begins dispatching scheduled jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
