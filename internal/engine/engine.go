package engine

import (
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/xerrors"

	"github.com/SoarinFerret/BreakWarden/internal/config"
	"github.com/SoarinFerret/BreakWarden/internal/eval"
	"github.com/SoarinFerret/BreakWarden/internal/session"
	"github.com/SoarinFerret/BreakWarden/internal/state"
)

var ErrInvalidInput = xerrors.New("invalid input")

// Outcome classifies an applied action. Anything other than OutcomeOK is
// informational and still a successful result.
type Outcome int

const (
	OutcomeOK Outcome = iota
	// OutcomeNoOpenWork is an "off" without a matching "work".
	OutcomeNoOpenWork
	// OutcomeNoActiveActivity is a "back" with nothing to close.
	OutcomeNoActiveActivity
	// OutcomeReplaced is an activity start that closed a still open one.
	OutcomeReplaced
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeNoOpenWork:
		return "no_open_work"
	case OutcomeNoActiveActivity:
		return "no_active_activity"
	case OutcomeReplaced:
		return "replaced"
	default:
		return "unknown"
	}
}

// Input is one user interaction delivered by a transport.
type Input struct {
	TenantID int64
	UserID   int64
	Name     string
	Action   session.Action
	At       time.Time
}

// ClosedActivity describes an activity session closed by an action.
type ClosedActivity struct {
	Kind      session.ActivityKind
	Label     string
	Start     time.Time
	End       time.Time
	Duration  time.Duration
	OverLimit bool
	Fine      decimal.Decimal
}

// Result describes what an action did, with everything a transport needs to
// render a reply.
type Result struct {
	Action  session.Action
	Name    string
	At      time.Time
	Outcome Outcome

	// work
	Late     bool
	LateFine decimal.Decimal

	// activity start
	Label string

	// back, or the activity auto-closed by a new start
	Closed *ClosedActivity

	// off
	WorkSession time.Duration

	// Fine is the total charged by this action.
	Fine          decimal.Decimal
	WorkTotal     time.Duration
	ActivityTotal time.Duration
	PureWork      time.Duration
	DailyFines    decimal.Decimal
	MonthlyFines  decimal.Decimal
}

// Engine applies actions to records held in a registry. Each action is a
// single all-or-nothing update of one record.
type Engine struct {
	registry *state.Registry
	config   *config.Config
}

func New(registry *state.Registry, cfg *config.Config) *Engine {
	return &Engine{
		registry: registry,
		config:   cfg,
	}
}

func (e *Engine) validate(in Input) error {
	if in.TenantID == 0 {
		return xerrors.Errorf("tenant id is zero: %w", ErrInvalidInput)
	}
	if in.UserID == 0 {
		return xerrors.Errorf("user id is zero: %w", ErrInvalidInput)
	}
	if in.At.IsZero() {
		return xerrors.Errorf("timestamp is zero: %w", ErrInvalidInput)
	}
	switch in.Action.Type {
	case session.ActionWork, session.ActionOff, session.ActionBack:
		return nil
	case session.ActionActivity:
		if _, ok := e.config.Activities[string(in.Action.Activity)]; !ok {
			return xerrors.Errorf("activity %q: %w", in.Action.Activity, session.ErrUnknownAction)
		}
		return nil
	default:
		return xerrors.Errorf("action type %d: %w", in.Action.Type, session.ErrUnknownAction)
	}
}

// Apply validates in and applies it to the user's record.
func (e *Engine) Apply(in Input) (Result, error) {
	if err := e.validate(in); err != nil {
		return Result{}, err
	}

	now := in.At.In(e.config.Location())
	res := Result{
		Action:   in.Action,
		At:       now,
		Fine:     decimal.Zero,
		LateFine: decimal.Zero,
	}

	rec, err := e.registry.Update(in.TenantID, in.UserID, in.Name, func(rec *session.Record) error {
		switch in.Action.Type {
		case session.ActionWork:
			e.clockIn(rec, now, &res)
		case session.ActionOff:
			e.clockOut(rec, now, &res)
		case session.ActionBack:
			e.back(rec, now, &res)
		case session.ActionActivity:
			e.startActivity(rec, in.Action.Activity, now, &res)
		}
		return nil
	})
	if err != nil {
		return Result{}, xerrors.Errorf("apply %s: %w", in.Action, err)
	}

	res.Name = rec.Name
	res.WorkTotal = rec.WorkTime
	res.ActivityTotal = rec.ActivityTime
	res.PureWork = rec.PureWorkTime
	res.DailyFines = rec.DailyFines
	res.MonthlyFines = rec.MonthlyFines
	return res, nil
}

func (e *Engine) clockIn(rec *session.Record, now time.Time, res *Result) {
	rec.ClockIn(now)
	fine, late := eval.LateFine(e.config, now)
	if late {
		rec.AddFine(fine)
		res.Late = true
		res.LateFine = fine
		res.Fine = res.Fine.Add(fine)
	}
}

func (e *Engine) clockOut(rec *session.Record, now time.Time, res *Result) {
	dur, ok := rec.ClockOut(now)
	if !ok {
		res.Outcome = OutcomeNoOpenWork
		return
	}
	res.WorkSession = dur
}

func (e *Engine) back(rec *session.Record, now time.Time, res *Result) {
	closed, ok := e.closeActivity(rec, now)
	if !ok {
		res.Outcome = OutcomeNoActiveActivity
		return
	}
	res.Closed = closed
	res.Fine = res.Fine.Add(closed.Fine)
}

func (e *Engine) startActivity(rec *session.Record, kind session.ActivityKind, now time.Time, res *Result) {
	if closed, ok := e.closeActivity(rec, now); ok {
		res.Outcome = OutcomeReplaced
		res.Closed = closed
		res.Fine = res.Fine.Add(closed.Fine)
	}
	rec.StartActivity(kind, now)
	res.Label = eval.Label(e.config, string(kind))
}

// closeActivity ends the open activity and charges its over-limit fine.
func (e *Engine) closeActivity(rec *session.Record, now time.Time) (*ClosedActivity, bool) {
	ended, ok := rec.EndActivity(now)
	if !ok {
		return nil, false
	}
	dur := ended.Duration()
	fine, over := eval.OverLimitFine(e.config, string(ended.Kind), dur)
	if over {
		rec.AddFine(fine)
	}
	return &ClosedActivity{
		Kind:      ended.Kind,
		Label:     eval.Label(e.config, string(ended.Kind)),
		Start:     ended.Start,
		End:       ended.End,
		Duration:  dur,
		OverLimit: over,
		Fine:      fine,
	}, true
}
