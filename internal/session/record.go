package session

import (
	"time"

	"github.com/shopspring/decimal"
)

func (r *Record) IsWorking() bool {
	return !r.WorkStart.IsZero()
}

// ClockIn opens a work session at. An already open session is restarted.
func (r *Record) ClockIn(at time.Time) {
	r.WorkStart = at
}

// ClockOut closes the open work session and returns its length. It reports
// false, leaving every total untouched, when no session was open.
func (r *Record) ClockOut(at time.Time) (time.Duration, bool) {
	if !r.IsWorking() {
		return 0, false
	}
	dur := clampDuration(at.Sub(r.WorkStart))
	r.WorkTime += dur
	r.PureWorkTime = r.WorkTime - r.ActivityTime
	r.WorkStart = time.Time{}
	return dur, true
}

// OpenActivity returns the activity in progress, if any. Only the last entry
// of the log may be open.
func (r *Record) OpenActivity() *ActivitySession {
	if len(r.Activities) == 0 {
		return nil
	}
	last := &r.Activities[len(r.Activities)-1]
	if !last.IsActive() {
		return nil
	}
	return last
}

// StartActivity appends a new open activity. Callers close the previous one
// first.
func (r *Record) StartActivity(kind ActivityKind, at time.Time) {
	r.Activities = append(r.Activities, ActivitySession{
		Kind:  kind,
		Start: at,
	})
}

// EndActivity closes the open activity at and adds its duration to the
// activity total.
func (r *Record) EndActivity(at time.Time) (ActivitySession, bool) {
	open := r.OpenActivity()
	if open == nil {
		return ActivitySession{}, false
	}
	open.End = at
	r.ActivityTime += open.Duration()
	return *open, true
}

// AddFine charges amount against both the daily and the monthly counters.
func (r *Record) AddFine(amount decimal.Decimal) {
	if !amount.IsPositive() {
		return
	}
	r.DailyFines = r.DailyFines.Add(amount)
	r.MonthlyFines = r.MonthlyFines.Add(amount)
}

// ResetDaily clears everything accumulated since the last daily reset. The
// monthly fine counter and an open work session survive.
func (r *Record) ResetDaily() {
	r.Activities = []ActivitySession{}
	r.DailyFines = decimal.Zero
	r.WorkTime = 0
	r.PureWorkTime = 0
	r.ActivityTime = 0
}

func (r *Record) ResetMonthly() {
	r.MonthlyFines = decimal.Zero
}

// Clone returns a deep copy safe to hand out of the registry.
func (r *Record) Clone() Record {
	c := *r
	c.Activities = make([]ActivitySession, len(r.Activities))
	copy(c.Activities, r.Activities)
	return c
}
