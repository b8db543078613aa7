package aggregate

import (
	"cmp"
	"slices"
	"time"

	"github.com/addrummond/heap"

	"github.com/roach88/sweep/internal/ir"
	"github.com/roach88/sweep/internal/trial"
)

// SelectBest returns the Completed trial with the extremal result under
// mode. Ties go to the smallest trial id. Failed and unstarted trials are
// ignored; if nothing completed the error is a *NoSuccessfulTrialsError.
func SelectBest(trials []*trial.Trial, mode Mode) (*trial.Trial, error) {
	var best *trial.Trial
	for _, t := range trials {
		if t.Status != trial.StatusCompleted || t.Result == nil {
			continue
		}
		if best == nil ||
			mode.Better(*t.Result, *best.Result) ||
			(*t.Result == *best.Result && t.ID < best.ID) {
			best = t
		}
	}
	if best == nil {
		s := Summarize(trials)
		return nil, &NoSuccessfulTrialsError{Total: s.Total, Failed: s.Failed, NotStarted: s.Pending}
	}
	return best, nil
}

// ranked orders completed trials best first for the leaderboard heap.
type ranked struct {
	t    *trial.Trial
	mode Mode
}

func (a *ranked) Cmp(b *ranked) int {
	ra, rb := *a.t.Result, *b.t.Result
	if ra != rb {
		if a.mode.Better(ra, rb) {
			return -1
		}
		return 1
	}
	return cmp.Compare(a.t.ID, b.t.ID)
}

// Leaderboard returns up to k Completed trials, best first, ties by id.
// k <= 0 returns every Completed trial.
func Leaderboard(trials []*trial.Trial, mode Mode, k int) []*trial.Trial {
	var h heap.Heap[ranked, heap.Min]
	n := 0
	for _, t := range trials {
		if t.Status == trial.StatusCompleted && t.Result != nil {
			heap.PushOrderable(&h, ranked{t: t, mode: mode})
			n++
		}
	}
	if k <= 0 || k > n {
		k = n
	}

	out := make([]*trial.Trial, 0, k)
	for len(out) < k {
		r, ok := heap.PopOrderable(&h)
		if !ok {
			break
		}
		out = append(out, r.t)
	}
	return out
}

// Summary counts trials by status.
type Summary struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Pending   int `json:"pending"`
}

// Summarize counts trials by status. Running trials count as pending.
func Summarize(trials []*trial.Trial) Summary {
	s := Summary{Total: len(trials)}
	for _, t := range trials {
		switch t.Status {
		case trial.StatusCompleted:
			s.Completed++
		case trial.StatusFailed:
			s.Failed++
		default:
			s.Pending++
		}
	}
	return s
}

// AuditRow is one trial's entry in the run audit.
type AuditRow struct {
	TrialID    int64         `json:"trial_id"`
	Status     trial.Status  `json:"status"`
	Result     *float64      `json:"result,omitempty"`
	Reason     string        `json:"reason,omitempty"`
	Artifact   string        `json:"artifact,omitempty"`
	Attempts   int           `json:"attempts"`
	Elapsed    time.Duration `json:"elapsed_ns"`
	Seq        int64         `json:"seq,omitempty"`
	Assignment ir.Object     `json:"assignment"`
}

// Audit lists every trial with its status, result or failure reason and
// artifact location, in trial id order.
func Audit(trials []*trial.Trial) []AuditRow {
	rows := make([]AuditRow, 0, len(trials))
	for _, t := range trials {
		row := AuditRow{
			TrialID:    t.ID,
			Status:     t.Status,
			Reason:     t.Reason(),
			Artifact:   t.Artifact,
			Attempts:   t.Attempts,
			Elapsed:    t.Elapsed(),
			Seq:        t.Seq,
			Assignment: t.Assignment,
		}
		if t.Result != nil {
			r := *t.Result
			row.Result = &r
		}
		rows = append(rows, row)
	}
	slices.SortFunc(rows, func(a, b AuditRow) int { return cmp.Compare(a.TrialID, b.TrialID) })
	return rows
}

// Failures returns the audit rows of failed trials.
func Failures(rows []AuditRow) []AuditRow {
	var out []AuditRow
	for _, r := range rows {
		if r.Status == trial.StatusFailed {
			out = append(out, r)
		}
	}
	return out
}
