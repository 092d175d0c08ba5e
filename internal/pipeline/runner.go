package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrShuttingDown is returned by Submit once Shutdown has started
var ErrShuttingDown = errors.New("pipeline runner is shutting down")

// Outcome labels for finished runs
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeSkipped   = "skipped"
	OutcomeCanceled  = "canceled"
)

// RunFunc executes one pipeline run
type RunFunc func(ctx context.Context, jobID uuid.UUID, total int) (*Summary, error)

// RunObserver is notified as detached runs start and finish
type RunObserver interface {
	RunStarted()
	RunFinished(outcome string, d time.Duration)
}

// Scheduler is notified when a run is accepted, before it starts
type Scheduler interface {
	Begin(jobID uuid.UUID)
}

type runIDKey struct{}

func withRunID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

func runIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(runIDKey{}).(uuid.UUID)
	return id, ok
}

// Runner executes pipeline runs in the background. Callers observe only that a run was accepted;
// progress is reported through events. Runs are cancelled only by Shutdown.
type Runner struct {
	run       RunFunc
	scheduler Scheduler
	observer  RunObserver
	logger    zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	closed  bool
	running int
}

// NewRunner creates a runner. scheduler and observer may be nil.
func NewRunner(run RunFunc, scheduler Scheduler, observer RunObserver, logger zerolog.Logger) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		run:       run,
		scheduler: scheduler,
		observer:  observer,
		logger:    logger.With().Str("component", "pipeline_runner").Logger(),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Submit schedules a run of total candidates for jobID and returns its run id immediately
func (r *Runner) Submit(jobID uuid.UUID, total int) (uuid.UUID, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return uuid.Nil, ErrShuttingDown
	}
	r.running++
	r.wg.Add(1)
	r.mu.Unlock()

	runID := uuid.New()
	if r.scheduler != nil {
		r.scheduler.Begin(jobID)
	}

	go r.execute(runID, jobID, total)
	return runID, nil
}

func (r *Runner) execute(runID, jobID uuid.UUID, total int) {
	defer func() {
		r.mu.Lock()
		r.running--
		r.mu.Unlock()
		r.wg.Done()
	}()

	logger := r.logger.With().Str("run_id", runID.String()).Str("job_id", jobID.String()).Logger()
	if r.observer != nil {
		r.observer.RunStarted()
	}
	start := time.Now()

	outcome := OutcomeCompleted
	defer func() {
		if p := recover(); p != nil {
			logger.Error().Interface("panic", p).Msg("pipeline run panicked")
			outcome = OutcomeFailed
		}
		if r.observer != nil {
			r.observer.RunFinished(outcome, time.Since(start))
		}
	}()

	summary, err := r.run(withRunID(r.ctx, runID), jobID, total)
	switch {
	case err != nil && r.ctx.Err() != nil:
		outcome = OutcomeCanceled
		logger.Warn().Err(err).Msg("pipeline run cancelled by shutdown")
	case err != nil:
		outcome = OutcomeFailed
		logger.Error().Err(err).Msg("pipeline run failed")
	case summary == nil:
		outcome = OutcomeSkipped
	}
}

// Running returns the number of runs in flight
func (r *Runner) Running() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Shutdown stops accepting runs, cancels those in flight and waits for them to
// return or for ctx to end, whichever comes first.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until all submitted runs have returned. It is intended for one-shot callers such as the CLI.
func (r *Runner) Wait() {
	r.wg.Wait()
}
