package lending

import (
	"time"

	"equipment_lending/models"
)

// Window is the time range a capacity question is asked about: a half-open interval
// [start, end), an unbounded interval [start, +inf), or a single instant.
type Window struct {
	start   time.Time
	end     time.Time
	bounded bool
	instant bool
}

// Between is the half-open interval [start, end).
func Between(start, end time.Time) Window { return Window{start: start, end: end, bounded: true} }

// From is [start, +inf); used for open-ended loans.
func From(start time.Time) Window { return Window{start: start} }

// At is the single instant t.
func At(t time.Time) Window { return Window{start: t, instant: true} }

func (w Window) Start() time.Time { return w.start }

// End returns the exclusive upper bound; ok is false when the window is unbounded or an instant.
func (w Window) End() (end time.Time, ok bool) { return w.end, w.bounded }

func (w Window) Instant() bool { return w.instant }

// Contends reports whether l holds units somewhere inside w.
// Only BORROWED loans hold units; a nil DueAt never ends.
func (w Window) Contends(l models.Loan) bool {
	if !l.Status.Active() {
		return false
	}
	if w.instant {
		return l.Covers(w.start)
	}
	if w.bounded && !l.BorrowedAt.Before(w.end) {
		return false
	}
	return l.DueAt == nil || l.DueAt.After(w.start)
}

func (w Window) String() string {
	switch {
	case w.instant:
		return "@" + w.start.Format(time.RFC3339)
	case w.bounded:
		return "[" + w.start.Format(time.RFC3339) + ", " + w.end.Format(time.RFC3339) + ")"
	default:
		return "[" + w.start.Format(time.RFC3339) + ", +inf)"
	}
}
