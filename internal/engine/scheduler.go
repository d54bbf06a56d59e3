package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Scheduler runs a task on a fixed period until stopped. At most one run of
// the task is in flight; ticks that arrive while it runs are dropped. A run
// that has started is never cancelled by Stop.
type Scheduler struct {
	interval time.Duration
	task     func(ctx context.Context)
	logger   *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc

	inFlight atomic.Bool
	wg       sync.WaitGroup
}

// NewScheduler creates a stopped scheduler.
func NewScheduler(interval time.Duration, task func(ctx context.Context), logger *zap.Logger) *Scheduler {
	return &Scheduler{interval: interval, task: task, logger: logger}
}

// Start begins ticking under parent. It reports false if already running.
func (s *Scheduler) Start(parent context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return false
	}

	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	s.wg.Add(1)
	go s.loop(ctx)
	return true
}

// Stop cancels future ticks. It does not wait for an in-flight run.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Running reports whether the scheduler is ticking.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// Wait blocks until the tick loop and any in-flight run have returned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			if !s.inFlight.CompareAndSwap(false, true) {
				s.logger.Debug("Previous cycle still running, dropping tick")
				continue
			}
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				defer s.inFlight.Store(false)
				s.task(context.WithoutCancel(ctx))
			}()
		}
	}
}
