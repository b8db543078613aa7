package engine

import (
	"cmp"
	"slices"
	"sync"

	"github.com/gammazero/deque"

	"github.com/roach88/sweep/internal/compose"
	"github.com/roach88/sweep/internal/trial"
)

// Job is one trial waiting to be dispatched.
type Job struct {
	TrialID    int64
	Assignment compose.Layer
}

// pendingQueue holds jobs that have not started, in trial-id order.
// The dispatcher pops from the front; Drain empties it on cancellation so
// the caller can report which trials never ran.
type pendingQueue struct {
	mu   sync.Mutex
	jobs deque.Deque[Job]
}

// newPendingQueue sorts jobs by trial id and queues them.
func newPendingQueue(jobs []Job) *pendingQueue {
	sorted := slices.Clone(jobs)
	slices.SortFunc(sorted, func(a, b Job) int { return cmp.Compare(a.TrialID, b.TrialID) })

	q := &pendingQueue{}
	for _, j := range sorted {
		q.jobs.PushBack(j)
	}
	return q
}

// Peek returns the next job without removing it.
func (q *pendingQueue) Peek() (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.jobs.Len() == 0 {
		return Job{}, false
	}
	return q.jobs.Front(), true
}

// Pop removes the next job.
func (q *pendingQueue) Pop() (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.jobs.Len() == 0 {
		return Job{}, false
	}
	return q.jobs.PopFront(), true
}

// Drain removes and returns the ids of every job still queued.
func (q *pendingQueue) Drain() []int64 {
	q.mu.Lock()
	defer q.mu.Unlock()

	ids := make([]int64, 0, q.jobs.Len())
	for q.jobs.Len() > 0 {
		ids = append(ids, q.jobs.PopFront().TrialID)
	}
	return ids
}

// Len returns the number of queued jobs.
func (q *pendingQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.jobs.Len()
}

func sortByTrialID(outcomes []trial.Outcome) {
	slices.SortFunc(outcomes, func(a, b trial.Outcome) int { return cmp.Compare(a.TrialID, b.TrialID) })
}
