package workers

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"chat-relay/contract"
	apperrors "chat-relay/errors"
)

// Supervisor runs each worker in its own goroutine, recovers panics and
// restarts crashed workers after a delay. A failure in one worker never
// stops the supervisor itself; cancelling the parent context stops
// everything and Run waits for all goroutines to drain.
type Supervisor struct {
	mu            sync.Mutex
	supervisedCtx context.Context
	cancel        context.CancelFunc

	wg              sync.WaitGroup
	log             *slog.Logger
	restartInterval time.Duration
	workers         []contract.Worker
}

func NewSupervisor(log *slog.Logger, restartInterval time.Duration) *Supervisor {
	return &Supervisor{log: log, restartInterval: restartInterval}
}

func (s *Supervisor) Add(worker ...contract.Worker) contract.ISupervisor {
	s.workers = append(s.workers, worker...)
	return s
}

// Run starts every registered worker under the supervised child context
// and blocks until they all finish.
func (s *Supervisor) Run(ctx context.Context) {
	defer s.Stop()

	supervisedCtx := s.scope(ctx)
	for _, worker := range s.workers {
		s.Start(supervisedCtx, worker)
	}
	s.wg.Wait()
}

// scope returns the supervised context, deriving it from parent on first
// use. Workers started dynamically via Start share this scope, so Stop
// reaches them even while the parent context stays alive.
func (s *Supervisor) scope(parent context.Context) context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.supervisedCtx == nil {
		s.supervisedCtx, s.cancel = context.WithCancel(parent)
	}
	return s.supervisedCtx
}

// Start supervises one worker. A nil error return means the worker
// finished on purpose and is never restarted; a panic or error return
// triggers a restart after the configured delay.
func (s *Supervisor) Start(ctx context.Context, worker contract.Worker) {
	ctx = s.scope(ctx)
	s.wg.Add(1)
	name := contract.GetWorkerName(worker)

	go func() {
		defer s.wg.Done()

		for {
			if ctx.Err() != nil {
				s.log.Info("Stopping worker", "name", name)
				return
			}

			err := s.runGuarded(ctx, worker)
			if err == nil {
				s.log.Info("Worker finished", "name", name)
				return
			}
			if ctx.Err() != nil {
				s.log.Info("Worker stopped (context canceled)", "name", name)
				return
			}

			s.log.Warn("Worker crashed, restarting", "name", name, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.restartInterval):
			}
		}
	}()
}

// runGuarded converts a worker panic into an error so supervision keeps
// running.
func (s *Supervisor) runGuarded(ctx context.Context, worker contract.Worker) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Recovered worker panic", "panic", r)
			err = apperrors.ErrWorkerPanic
		}
	}()
	return worker.Run(ctx)
}

// Stop cancels the supervised context; Run returns once every goroutine,
// including dynamically started workers, has observed the cancellation.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
