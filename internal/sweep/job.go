// Package sweep wraps the ledger's summary sweep as a cron job.
package sweep

import (
	"context"
	"fmt"
	"time"

	"github.com/guildforge/craftledger/internal/cron"
	"github.com/guildforge/craftledger/pkg/logger"
)

// Sweeper is the slice of the ledger service the job needs.
type Sweeper interface {
	Sweep(ctx context.Context, now time.Time) error
}

// JobParams configure the summary sweep job.
type JobParams struct {
	Logger  *logger.Logger
	Sweeper Sweeper
	Now     func() time.Time
}

// NewJob builds the summary sweep cron job.
func NewJob(params JobParams) (cron.Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sweeper == nil {
		return nil, fmt.Errorf("sweeper required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &job{logg: params.Logger, sweeper: params.Sweeper, now: now}, nil
}

type job struct {
	logg    *logger.Logger
	sweeper Sweeper
	now     func() time.Time
}

func (j *job) Name() string { return "summary-sweep" }

func (j *job) Run(ctx context.Context) error {
	if err := j.sweeper.Sweep(ctx, j.now()); err != nil {
		return fmt.Errorf("summary sweep: %w", err)
	}
	return nil
}
