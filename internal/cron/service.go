// Package cron runs registered jobs on standard 5-field cron schedules
// evaluated in one configured time zone. A job whose expression does
// not parse is disabled with a single error log; the process keeps
// running.
package cron

import (
	"context"
	"fmt"
	"time"

	cronv3 "github.com/robfig/cron/v3"

	"github.com/guildforge/craftledger/pkg/logger"
	"github.com/guildforge/craftledger/pkg/metrics"
)

// ServiceParams configure the cron service.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Metrics  *metrics.JobMetrics
	Location *time.Location
}

// Service executes registered jobs on their cron schedules.
type Service struct {
	logg    *logger.Logger
	runner  *cronv3.Cron
	metrics *metrics.JobMetrics
	enabled int
}

// NewService builds a cron service and arms every parsable schedule.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}

	s := &Service{
		logg:    params.Logger,
		runner:  cronv3.New(cronv3.WithLocation(loc)),
		metrics: params.Metrics,
	}
	for _, entry := range registry.Entries() {
		entry := entry
		_, err := s.runner.AddFunc(entry.Expr, func() {
			s.runJob(context.Background(), entry.Job)
		})
		if err != nil {
			ctx := s.logg.WithFields(context.Background(), map[string]any{
				"job":      entry.Job.Name(),
				"schedule": entry.Expr,
			})
			s.logg.Error(ctx, "invalid cron expression, job disabled", err)
			continue
		}
		s.enabled++
	}
	return s, nil
}

// Enabled returns how many jobs were armed.
func (s *Service) Enabled() int { return s.enabled }

// Start begins executing schedules in the background.
func (s *Service) Start() { s.runner.Start() }

// Stop halts scheduling and waits for a running job to finish.
func (s *Service) Stop() {
	<-s.runner.Stop().Done()
}

func (s *Service) runJob(ctx context.Context, job Job) {
	jobCtx := s.logg.WithField(ctx, "job", job.Name())
	jobCtx = s.logg.WithField(jobCtx, "event", "cron.job")
	s.logg.Info(jobCtx, "job start")
	start := time.Now()
	err := job.Run(jobCtx)
	duration := time.Since(start)
	s.metrics.ObserveDuration(job.Name(), duration)
	jobCtx = s.logg.WithField(jobCtx, "duration_ms", duration.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		s.metrics.IncFailure(job.Name())
		return
	}
	s.logg.Info(jobCtx, "job completed")
	s.metrics.IncSuccess(job.Name())
}
