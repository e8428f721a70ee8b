package sweep

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/guildforge/craftledger/pkg/logger"
)

type fakeSweeper struct {
	lastRun time.Time
	called  int
	err     error
}

func (f *fakeSweeper) Sweep(_ context.Context, now time.Time) error {
	f.called++
	f.lastRun = now
	return f.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test"})
}

func TestJobRunsSweeperWithInjectedClock(t *testing.T) {
	now := time.Date(2026, 2, 14, 9, 0, 0, 0, time.UTC)
	sweeper := &fakeSweeper{}
	job, err := NewJob(JobParams{
		Logger:  testLogger(),
		Sweeper: sweeper,
		Now:     func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	if job.Name() != "summary-sweep" {
		t.Fatalf("unexpected job name %q", job.Name())
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sweeper.called != 1 {
		t.Fatalf("expected one sweep, got %d", sweeper.called)
	}
	if !sweeper.lastRun.Equal(now) {
		t.Fatalf("expected sweep at %s, got %s", now, sweeper.lastRun)
	}
}

func TestJobPropagatesErrors(t *testing.T) {
	sweeper := &fakeSweeper{err: errors.New("boom")}
	job, err := NewJob(JobParams{Logger: testLogger(), Sweeper: sweeper})
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewJobValidatesParams(t *testing.T) {
	if _, err := NewJob(JobParams{Sweeper: &fakeSweeper{}}); err == nil {
		t.Fatal("expected error without logger")
	}
	if _, err := NewJob(JobParams{Logger: testLogger()}); err == nil {
		t.Fatal("expected error without sweeper")
	}
}
