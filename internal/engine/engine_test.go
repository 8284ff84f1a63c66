package engine

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"

	"github.com/SoarinFerret/BreakWarden/internal/config"
	"github.com/SoarinFerret/BreakWarden/internal/session"
	"github.com/SoarinFerret/BreakWarden/internal/state"
)

const (
	tenantID = int64(-1001)
	userID   = int64(42)
)

func newEngine(t *testing.T) (*Engine, *state.Registry) {
	cfg, err := config.LoadConfigFromBytes([]byte(`timezone = "UTC"`))
	require.NoError(t, err)
	registry := state.NewRegistry()
	return New(registry, cfg), registry
}

func at(h, m, s int) time.Time {
	return time.Date(2026, 10, 19, h, m, s, 0, time.UTC)
}

func apply(t *testing.T, e *Engine, action session.Action, ts time.Time) Result {
	t.Helper()
	res, err := e.Apply(Input{
		TenantID: tenantID,
		UserID:   userID,
		Name:     "Ann",
		Action:   action,
		At:       ts,
	})
	require.NoError(t, err)
	return res
}

func TestScenarioLateLongLunch(t *testing.T) {
	e, registry := newEngine(t)

	res := apply(t, e, session.Work, at(9, 15, 0))
	assert.True(t, res.Late)
	assert.Equal(t, "50", res.LateFine.String())
	assert.Equal(t, "50", res.DailyFines.String())
	assert.Equal(t, "50", res.MonthlyFines.String())

	res = apply(t, e, session.StartActivity("eat"), at(9, 20, 0))
	assert.Equal(t, OutcomeOK, res.Outcome)
	assert.Equal(t, "Eat", res.Label)

	res = apply(t, e, session.Back, at(10, 5, 0))
	require.NotNil(t, res.Closed)
	assert.True(t, res.Closed.OverLimit)
	assert.Equal(t, 45*time.Minute, res.Closed.Duration)
	assert.Equal(t, "10", res.Closed.Fine.String())
	assert.Equal(t, "60", res.DailyFines.String())
	assert.Equal(t, "60", res.MonthlyFines.String())

	res = apply(t, e, session.Off, at(10, 10, 0))
	assert.Equal(t, OutcomeOK, res.Outcome)
	assert.Equal(t, 55*time.Minute, res.WorkSession)
	assert.Equal(t, 55*time.Minute, res.WorkTotal)
	assert.Equal(t, 45*time.Minute, res.ActivityTotal)
	assert.Equal(t, 10*time.Minute, res.PureWork)

	rec, ok := registry.Get(tenantID, userID)
	require.True(t, ok)
	assert.False(t, rec.IsWorking())
	assert.Equal(t, "Ann", rec.Name)
}

func TestWorkOffWithoutActivities(t *testing.T) {
	e, _ := newEngine(t)

	intervals := [][2]time.Time{
		{at(8, 0, 0), at(8, 30, 0)},
		{at(8, 45, 0), at(8, 50, 30)},
		{at(13, 0, 0), at(15, 0, 0)},
	}
	var expected time.Duration
	var res Result
	for _, iv := range intervals {
		apply(t, e, session.Work, iv[0])
		res = apply(t, e, session.Off, iv[1])
		expected += iv[1].Sub(iv[0])
	}

	assert.Equal(t, expected, res.WorkTotal)
	assert.Equal(t, res.WorkTotal, res.PureWork)
}

func TestLateThreshold(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		late bool
	}{
		{"Before", at(8, 59, 59), false},
		{"Exactly", at(9, 0, 0), false},
		{"After", at(9, 0, 1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newEngine(t)
			res := apply(t, e, session.Work, tt.at)
			assert.Equal(t, tt.late, res.Late)
			if tt.late {
				assert.Equal(t, "50", res.DailyFines.String())
				assert.Equal(t, "50", res.MonthlyFines.String())
			} else {
				assert.True(t, res.DailyFines.IsZero())
				assert.True(t, res.MonthlyFines.IsZero())
			}
		})
	}
}

func TestWorkRestartOverwritesStart(t *testing.T) {
	e, _ := newEngine(t)
	apply(t, e, session.Work, at(8, 0, 0))
	apply(t, e, session.Work, at(8, 30, 0))

	res := apply(t, e, session.Off, at(9, 0, 0))
	assert.Equal(t, 30*time.Minute, res.WorkTotal)
}

func TestOffTwiceIsIdempotent(t *testing.T) {
	e, _ := newEngine(t)
	apply(t, e, session.Work, at(8, 0, 0))
	first := apply(t, e, session.Off, at(9, 0, 0))
	second := apply(t, e, session.Off, at(10, 0, 0))

	assert.Equal(t, OutcomeNoOpenWork, second.Outcome)
	assert.Equal(t, first.WorkTotal, second.WorkTotal)
	assert.Equal(t, first.PureWork, second.PureWork)
}

func TestOffWithoutWork(t *testing.T) {
	e, _ := newEngine(t)
	res := apply(t, e, session.Off, at(17, 0, 0))
	assert.Equal(t, OutcomeNoOpenWork, res.Outcome)
	assert.Zero(t, res.WorkTotal)
}

func TestBackWithoutActivity(t *testing.T) {
	e, registry := newEngine(t)

	res := apply(t, e, session.Back, at(10, 0, 0))
	assert.Equal(t, OutcomeNoActiveActivity, res.Outcome)
	assert.Nil(t, res.Closed)

	apply(t, e, session.StartActivity("smoke"), at(10, 0, 0))
	apply(t, e, session.Back, at(10, 5, 0))
	res = apply(t, e, session.Back, at(10, 6, 0))
	assert.Equal(t, OutcomeNoActiveActivity, res.Outcome)

	rec, _ := registry.Get(tenantID, userID)
	assert.Equal(t, 5*time.Minute, rec.ActivityTime)
}

func TestActivityLimits(t *testing.T) {
	tests := []struct {
		name     string
		kind     session.ActivityKind
		dur      time.Duration
		over     bool
		expected string
	}{
		{"Toilet at limit", "toilet", 15 * time.Minute, false, "0"},
		{"Toilet over", "toilet", 15*time.Minute + time.Second, true, "10"},
		{"Smoke over", "smoke", 11 * time.Minute, true, "10"},
		{"Meeting over with zero fine", "meeting", 61 * time.Minute, true, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newEngine(t)
			start := at(11, 0, 0)
			apply(t, e, session.StartActivity(tt.kind), start)
			res := apply(t, e, session.Back, start.Add(tt.dur))

			require.NotNil(t, res.Closed)
			assert.Equal(t, tt.over, res.Closed.OverLimit)
			assert.Equal(t, tt.expected, res.Fine.String())
			assert.Equal(t, tt.expected, res.DailyFines.String())
			assert.Equal(t, tt.expected, res.MonthlyFines.String())
		})
	}
}

func TestNestedActivityAutoCloses(t *testing.T) {
	e, registry := newEngine(t)

	apply(t, e, session.StartActivity("smoke"), at(10, 0, 0))
	res := apply(t, e, session.StartActivity("eat"), at(10, 20, 0))

	assert.Equal(t, OutcomeReplaced, res.Outcome)
	require.NotNil(t, res.Closed)
	assert.Equal(t, session.ActivityKind("smoke"), res.Closed.Kind)
	assert.True(t, res.Closed.OverLimit)
	assert.Equal(t, "10", res.Fine.String())
	assert.Equal(t, 20*time.Minute, res.ActivityTotal)

	rec, _ := registry.Get(tenantID, userID)
	open := 0
	for _, a := range rec.Activities {
		if a.IsActive() {
			open++
		}
	}
	assert.Equal(t, 1, open)

	res = apply(t, e, session.Back, at(10, 30, 0))
	require.NotNil(t, res.Closed)
	assert.Equal(t, session.ActivityKind("eat"), res.Closed.Kind)
	assert.Equal(t, 30*time.Minute, res.ActivityTotal)
}

func TestApplyRejectsBadInput(t *testing.T) {
	e, registry := newEngine(t)

	tests := []struct {
		name   string
		input  Input
		target error
	}{
		{"Zero tenant", Input{UserID: 1, Action: session.Work, At: at(9, 0, 0)}, ErrInvalidInput},
		{"Zero user", Input{TenantID: 1, Action: session.Work, At: at(9, 0, 0)}, ErrInvalidInput},
		{"Zero time", Input{TenantID: 1, UserID: 1, Action: session.Work}, ErrInvalidInput},
		{"Unknown activity", Input{TenantID: 1, UserID: 1, Action: session.StartActivity("nap"), At: at(9, 0, 0)}, session.ErrUnknownAction},
		{"Unknown type", Input{TenantID: 1, UserID: 1, At: at(9, 0, 0)}, session.ErrUnknownAction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Apply(tt.input)
			assert.True(t, xerrors.Is(err, tt.target), "got %v", err)
		})
	}

	assert.Empty(t, registry.ListTenants(), "rejected input must not create state")
}

func TestApplyUsesConfiguredZone(t *testing.T) {
	cfg, err := config.LoadConfigFromBytes([]byte(`timezone = "Asia/Tashkent"`))
	require.NoError(t, err)
	e := New(state.NewRegistry(), cfg)

	// 03:30 UTC is 08:30 in Tashkent
	res, err := e.Apply(Input{TenantID: 1, UserID: 1, Name: "Ann", Action: session.Work, At: at(3, 30, 0)})
	require.NoError(t, err)
	assert.False(t, res.Late)
	assert.Equal(t, "08:30:00", res.At.Format("15:04:05"))
}

func TestNameRefreshed(t *testing.T) {
	e, registry := newEngine(t)
	apply(t, e, session.Work, at(8, 0, 0))

	res, err := e.Apply(Input{TenantID: tenantID, UserID: userID, Name: "Annie", Action: session.Off, At: at(9, 0, 0)})
	require.NoError(t, err)
	assert.Equal(t, "Annie", res.Name)

	rec, _ := registry.Get(tenantID, userID)
	assert.Equal(t, "Annie", rec.Name)
}
