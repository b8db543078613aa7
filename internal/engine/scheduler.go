package engine

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/sweep/internal/compose"
	"github.com/roach88/sweep/internal/trial"
)

// DefaultGrace is how long in-flight trials may keep running after the
// dispatch context is cancelled.
const DefaultGrace = 30 * time.Second

// TrialRunner runs one trial to a terminal outcome. *trial.Runner
// implements it.
type TrialRunner interface {
	Run(ctx context.Context, id int64, assignment compose.Layer) trial.Outcome
}

// Scheduler dispatches jobs onto a bounded worker pool. A Scheduler is
// single-use: Dispatch may be called once.
type Scheduler struct {
	runner      TrialRunner
	concurrency int
	grace       time.Duration
	clock       *Clock
	logger      *slog.Logger
	onStart     func(id int64, at time.Time)

	dispatched atomic.Bool
	running    atomic.Int64
	peak       atomic.Int64

	mu         sync.Mutex
	notStarted []int64
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithConcurrency sets the maximum number of trials running at once.
func WithConcurrency(n int) SchedulerOption {
	return func(s *Scheduler) {
		s.concurrency = n
	}
}

// WithGrace sets how long in-flight trials may run after cancellation.
// A negative grace lets them run to completion; zero terminates them
// immediately.
func WithGrace(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		s.grace = d
	}
}

// WithClock sets the clock used to stamp outcome sequence numbers.
func WithClock(c *Clock) SchedulerOption {
	return func(s *Scheduler) {
		s.clock = c
	}
}

// WithLogger sets the scheduler's logger.
func WithLogger(l *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.logger = l
	}
}

// WithStartHook registers fn to be called on the worker goroutine just
// before each trial starts. fn must be safe for concurrent use.
func WithStartHook(fn func(id int64, at time.Time)) SchedulerOption {
	return func(s *Scheduler) {
		s.onStart = fn
	}
}

// NewScheduler creates a scheduler. It returns a *WorkerPoolError if the
// pool cannot host a single worker.
func NewScheduler(runner TrialRunner, opts ...SchedulerOption) (*Scheduler, error) {
	s := &Scheduler{
		runner:      runner,
		concurrency: 1,
		grace:       DefaultGrace,
		clock:       NewClock(),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.runner == nil {
		return nil, newPoolError(ErrCodeNoRunner, "no trial runner configured")
	}
	if s.concurrency < 1 {
		return nil, newPoolError(ErrCodeNoWorkers, "concurrency must be at least 1, got %d", s.concurrency)
	}
	return s, nil
}

// Concurrency returns the configured worker count.
func (s *Scheduler) Concurrency() int {
	return s.concurrency
}

// Running returns the number of trials currently executing.
func (s *Scheduler) Running() int {
	return int(s.running.Load())
}

// Peak returns the highest number of trials that ran at once.
func (s *Scheduler) Peak() int {
	return int(s.peak.Load())
}

// NotStarted returns the ids of trials that were still pending when the
// dispatch context was cancelled. Valid once the outcome channel is closed.
func (s *Scheduler) NotStarted() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.notStarted...)
}

// Dispatch starts running jobs and returns a channel of terminal outcomes.
// The channel is closed once every started trial has finished. Outcomes
// arrive in completion order; trials start in id order.
//
// Cancelling ctx stops further trials from starting. Running trials keep
// their own context for the grace period and are then cancelled.
func (s *Scheduler) Dispatch(ctx context.Context, jobs []Job) (<-chan trial.Outcome, error) {
	seen := make(map[int64]bool, len(jobs))
	for _, j := range jobs {
		if seen[j.TrialID] {
			return nil, newPoolError(ErrCodeDuplicateTrial, "trial %d queued more than once", j.TrialID)
		}
		seen[j.TrialID] = true
	}
	if !s.dispatched.CompareAndSwap(false, true) {
		return nil, newPoolError(ErrCodeAlreadyDispatched, "scheduler already dispatched")
	}

	pending := newPendingQueue(jobs)
	out := make(chan trial.Outcome, len(jobs))
	work := make(chan Job)

	// Trials run under a context that survives ctx so the grace period can
	// be applied; terminate cancels it.
	trialCtx, terminate := context.WithCancel(context.WithoutCancel(ctx))

	workers := min(s.concurrency, len(jobs))
	s.logger.Debug("starting worker pool", "workers", workers, "trials", len(jobs))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go s.worker(ctx, trialCtx, i, work, out, &wg)
	}

	finished := make(chan struct{})
	go s.enforceGrace(ctx, finished, terminate)

	go func() {
		s.feed(ctx, pending, work)
		close(work)
		wg.Wait()
		s.mu.Lock()
		slices.Sort(s.notStarted)
		s.mu.Unlock()
		close(finished)
		terminate()
		close(out)
	}()

	return out, nil
}

// feed hands jobs to workers in id order until the queue is empty or ctx
// is cancelled.
func (s *Scheduler) feed(ctx context.Context, pending *pendingQueue, work chan<- Job) {
	for {
		job, ok := pending.Peek()
		if !ok {
			return
		}
		if ctx.Err() != nil {
			s.stopFeeding(pending)
			return
		}
		select {
		case <-ctx.Done():
			s.stopFeeding(pending)
			return
		case work <- job:
			pending.Pop()
		}
	}
}

func (s *Scheduler) stopFeeding(pending *pendingQueue) {
	ids := pending.Drain()
	s.mu.Lock()
	s.notStarted = append(s.notStarted, ids...)
	s.mu.Unlock()
	s.logger.Warn("dispatch cancelled", "not_started", len(ids), "running", s.Running())
}

// unstart returns a job a worker received after cancellation to the
// not-started list.
func (s *Scheduler) unstart(id int64) {
	s.mu.Lock()
	s.notStarted = append(s.notStarted, id)
	s.mu.Unlock()
}

// enforceGrace cancels in-flight trials once the grace period after ctx
// cancellation expires.
func (s *Scheduler) enforceGrace(ctx context.Context, finished <-chan struct{}, terminate context.CancelFunc) {
	select {
	case <-finished:
		return
	case <-ctx.Done():
	}
	if s.grace < 0 {
		return
	}

	timer := time.NewTimer(s.grace)
	defer timer.Stop()
	select {
	case <-finished:
	case <-timer.C:
		s.logger.Warn("grace period expired, terminating running trials", "grace", s.grace, "running", s.Running())
		terminate()
	}
}

// worker runs jobs under trialCtx. A job received after dispatchCtx is
// cancelled is not started: feed and the cancellation can race in select.
func (s *Scheduler) worker(dispatchCtx, trialCtx context.Context, id int, work <-chan Job, out chan<- trial.Outcome, wg *sync.WaitGroup) {
	defer wg.Done()
	log := s.logger.With("worker", id)

	for job := range work {
		if dispatchCtx.Err() != nil {
			log.Debug("trial not started after cancellation", "trial", job.TrialID)
			s.unstart(job.TrialID)
			continue
		}
		s.enter()
		if s.onStart != nil {
			s.onStart(job.TrialID, time.Now())
		}
		log.Debug("trial started", "trial", job.TrialID)

		o := s.runner.Run(trialCtx, job.TrialID, job.Assignment)
		s.running.Add(-1)

		o.TrialID = job.TrialID
		o.Seq = s.clock.Next()
		log.Debug("trial finished", "trial", job.TrialID, "status", o.Status, "seq", o.Seq)
		out <- o
	}
}

// enter counts a starting trial and records the peak.
func (s *Scheduler) enter() {
	n := s.running.Add(1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			return
		}
	}
}

// Run dispatches jobs and collects every outcome, sorted by trial id.
func (s *Scheduler) Run(ctx context.Context, jobs []Job) ([]trial.Outcome, error) {
	ch, err := s.Dispatch(ctx, jobs)
	if err != nil {
		return nil, err
	}
	outcomes := make([]trial.Outcome, 0, len(jobs))
	for o := range ch {
		outcomes = append(outcomes, o)
	}
	sortByTrialID(outcomes)
	return outcomes, nil
}
