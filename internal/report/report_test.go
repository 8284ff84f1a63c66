package report

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"

	"github.com/SoarinFerret/BreakWarden/internal/config"
	"github.com/SoarinFerret/BreakWarden/internal/engine"
	"github.com/SoarinFerret/BreakWarden/internal/session"
	"github.com/SoarinFerret/BreakWarden/internal/state"
)

const tenantID = int64(-1001)

func at(day, h, m int) time.Time {
	return time.Date(2026, 10, day, h, m, 0, 0, time.UTC)
}

type fixture struct {
	registry  *state.Registry
	engine    *engine.Engine
	generator *Generator
}

func newFixture(t *testing.T) fixture {
	cfg, err := config.LoadConfigFromBytes([]byte("timezone = \"UTC\"\nadmins = [7]\n"))
	require.NoError(t, err)
	registry := state.NewRegistry()
	return fixture{
		registry:  registry,
		engine:    engine.New(registry, cfg),
		generator: NewGenerator(registry, cfg),
	}
}

func (f fixture) apply(t *testing.T, user int64, name string, action session.Action, ts time.Time) {
	t.Helper()
	_, err := f.engine.Apply(engine.Input{TenantID: tenantID, UserID: user, Name: name, Action: action, At: ts})
	require.NoError(t, err)
}

// seed gives Ann a late punch and a long lunch, and Bob a clean hour.
func (f fixture) seed(t *testing.T) {
	f.apply(t, 1, "Ann", session.Work, at(19, 9, 15))
	f.apply(t, 1, "Ann", session.StartActivity("eat"), at(19, 9, 20))
	f.apply(t, 1, "Ann", session.Back, at(19, 10, 5))
	f.apply(t, 1, "Ann", session.Off, at(19, 10, 10))

	f.apply(t, 2, "Bob", session.Work, at(19, 8, 0))
	f.apply(t, 2, "Bob", session.Off, at(19, 9, 0))
}

func TestDaily(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	summary := f.generator.Daily(tenantID, at(19, 15, 0))
	assert.Equal(t, KindDaily, summary.Kind)
	assert.Equal(t, "2026-10-19", summary.Period)
	assert.Equal(t, 2, summary.Users)
	assert.Equal(t,
		"Daily summary - 2026-10-19\n"+
			"Ann work 55m, fine $60\n"+
			"Bob work 1h, fine $0",
		summary.Text)

	for _, u := range f.registry.ListUsers(tenantID) {
		rec := u.Record
		assert.True(t, rec.DailyFines.IsZero())
		assert.Zero(t, rec.WorkTime)
		assert.Zero(t, rec.PureWorkTime)
		assert.Zero(t, rec.ActivityTime)
		assert.Empty(t, rec.Activities)
	}
	ann, _ := f.registry.Get(tenantID, 1)
	assert.Equal(t, "60", ann.MonthlyFines.String(), "daily reset keeps monthly fines")
}

func TestDailyTwiceIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	f.generator.Daily(tenantID, at(19, 15, 0))
	second := f.generator.Daily(tenantID, at(19, 15, 0))
	assert.Contains(t, second.Text, "Ann work 0s, fine $0")

	ann, _ := f.registry.Get(tenantID, 1)
	assert.Equal(t, "60", ann.MonthlyFines.String())
}

func TestMonthly(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	summary := f.generator.Monthly(tenantID, time.Date(2026, 11, 1, 15, 5, 0, 0, time.UTC))
	assert.Equal(t, KindMonthly, summary.Kind)
	assert.Equal(t, "2026-10", summary.Period)
	assert.Equal(t,
		"Monthly summary - 2026-10\n"+
			"Ann monthly fine $60\n"+
			"Bob monthly fine $0",
		summary.Text)

	ann, _ := f.registry.Get(tenantID, 1)
	assert.True(t, ann.MonthlyFines.IsZero())
	assert.Equal(t, "60", ann.DailyFines.String(), "monthly reset keeps daily fines")
	assert.Equal(t, 55*time.Minute, ann.WorkTime)
	assert.Equal(t, 45*time.Minute, ann.ActivityTime)
}

// monthlyTotal adds up the amounts listed in a monthly summary.
func monthlyTotal(t *testing.T, text string) decimal.Decimal {
	total := decimal.Zero
	for _, line := range strings.Split(text, "\n")[1:] {
		i := strings.LastIndex(line, "$")
		if !assert.NotEqual(t, -1, i, "line %q", line) {
			continue
		}
		amount, err := decimal.NewFromString(line[i+1:])
		assert.NoError(t, err)
		total = total.Add(amount)
	}
	return total
}

func TestResetsRaceWithApply(t *testing.T) {
	const users = 32

	t.Run("Daily", func(t *testing.T) {
		f := newFixture(t)
		var wg sync.WaitGroup
		stop := make(chan struct{})
		resets := make(chan struct{})
		go func() {
			defer close(resets)
			for {
				select {
				case <-stop:
					return
				default:
					f.generator.Daily(tenantID, at(19, 15, 0))
				}
			}
		}()
		for i := 1; i <= users; i++ {
			wg.Add(1)
			go func(user int64) {
				defer wg.Done()
				_, err := f.engine.Apply(engine.Input{TenantID: tenantID, UserID: user, Name: "User", Action: session.Work, At: at(19, 9, 30)})
				assert.NoError(t, err)
			}(int64(i))
		}
		wg.Wait()
		close(stop)
		<-resets

		listed := f.registry.ListUsers(tenantID)
		require.Len(t, listed, users)
		total := decimal.Zero
		for _, u := range listed {
			assert.True(t, u.Record.IsWorking(), "user %d lost the open work session", u.UserID)
			total = total.Add(u.Record.MonthlyFines)
		}
		assert.Equal(t, "1600", total.String())
	})

	t.Run("Monthly", func(t *testing.T) {
		f := newFixture(t)
		var wg sync.WaitGroup
		stop := make(chan struct{})
		reported := make(chan decimal.Decimal)
		go func() {
			sum := decimal.Zero
			for {
				select {
				case <-stop:
					reported <- sum
					return
				default:
					s := f.generator.Monthly(tenantID, time.Date(2026, 11, 1, 15, 5, 0, 0, time.UTC))
					sum = sum.Add(monthlyTotal(t, s.Text))
				}
			}
		}()
		for i := 1; i <= users; i++ {
			wg.Add(1)
			go func(user int64) {
				defer wg.Done()
				_, err := f.engine.Apply(engine.Input{TenantID: tenantID, UserID: user, Name: "User", Action: session.Work, At: at(19, 9, 30)})
				assert.NoError(t, err)
			}(int64(i))
		}
		wg.Wait()
		close(stop)
		sum := <-reported

		for _, u := range f.registry.ListUsers(tenantID) {
			sum = sum.Add(u.Record.MonthlyFines)
		}
		assert.Equal(t, "1600", sum.String(), "every late fine is either reported or still pending")
	})
}

func TestOnDemand(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	summary, err := f.generator.OnDemand(tenantID, 7, at(19, 12, 0))
	require.NoError(t, err)
	assert.Equal(t,
		"Attendance report\n"+
			"Ann | daily fine $60, monthly fine $60\n"+
			"Bob | daily fine $0, monthly fine $0",
		summary.Text)

	ann, _ := f.registry.Get(tenantID, 1)
	assert.Equal(t, "60", ann.DailyFines.String(), "on-demand report is read only")
}

func TestOnDemandUnauthorized(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	before := f.registry.ListUsers(tenantID)

	_, err := f.generator.OnDemand(tenantID, 1, at(19, 12, 0))
	assert.True(t, xerrors.Is(err, ErrUnauthorized))
	assert.Equal(t, before, f.registry.ListUsers(tenantID))
}

func TestUnknownTenant(t *testing.T) {
	f := newFixture(t)
	summary := f.generator.Daily(99, at(19, 15, 0))
	assert.Equal(t, "Daily summary - 2026-10-19", summary.Text)
	assert.Zero(t, summary.Users)
	assert.Empty(t, f.registry.ListTenants(), "reports never create tenants")
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("daily")
	require.NoError(t, err)
	assert.Equal(t, KindDaily, k)

	k, err = ParseKind("monthly")
	require.NoError(t, err)
	assert.Equal(t, KindMonthly, k)

	_, err = ParseKind("on_demand")
	assert.Error(t, err)
}
