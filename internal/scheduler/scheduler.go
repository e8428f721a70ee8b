// Package scheduler arms one-shot maturation timers. It holds only
// transaction ids, never ledger records; the callback re-reads current
// state so a fired timer can never act on stale data.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/guildforge/craftledger/pkg/logger"
)

// minDelay makes overdue transactions fire immediately instead of
// being skipped after a long outage.
const minDelay = time.Millisecond

// Scheduler owns at most one active timer per transaction id.
type Scheduler struct {
	mu     sync.Mutex
	timers map[uuid.UUID]*time.Timer
	logg   *logger.Logger
}

// New builds an empty scheduler.
func New(logg *logger.Logger) *Scheduler {
	return &Scheduler{
		timers: map[uuid.UUID]*time.Timer{},
		logg:   logg,
	}
}

// Schedule arms a timer firing fire(id) at maturesAt, or after the
// minimum delay when that instant has already passed. Scheduling an id
// that already has a timer replaces it.
func (s *Scheduler) Schedule(ctx context.Context, id uuid.UUID, maturesAt time.Time, fire func(id uuid.UUID)) {
	delay := time.Until(maturesAt)
	if delay < minDelay {
		delay = minDelay
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.timers[id]; ok {
		old.Stop()
	}
	s.timers[id] = time.AfterFunc(delay, func() {
		s.forget(id)
		fire(id)
	})
	if s.logg != nil {
		logCtx := s.logg.WithTransactionID(ctx, id.String())
		logCtx = s.logg.WithField(logCtx, "fires_in", delay.String())
		s.logg.Debug(logCtx, "maturation timer armed")
	}
}

// Cancel disarms the timer for id. Unknown or already-fired ids are a
// no-op.
func (s *Scheduler) Cancel(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if timer, ok := s.timers[id]; ok {
		timer.Stop()
		delete(s.timers, id)
	}
}

// Stop disarms every timer, for shutdown.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
}

// Active returns the number of armed timers.
func (s *Scheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func (s *Scheduler) forget(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.timers, id)
}
