// Package report renders tenant summaries from the registry and performs the
// daily and monthly resets that go with them.
package report

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/xerrors"

	"github.com/SoarinFerret/BreakWarden/internal/config"
	"github.com/SoarinFerret/BreakWarden/internal/session"
	"github.com/SoarinFerret/BreakWarden/internal/state"
)

var ErrUnauthorized = xerrors.New("unauthorized")

type Kind string

const (
	KindDaily    Kind = "daily"
	KindMonthly  Kind = "monthly"
	KindOnDemand Kind = "on_demand"
)

// ParseKind accepts the kinds that carry a reset.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindDaily, KindMonthly:
		return Kind(s), nil
	default:
		return "", xerrors.Errorf("unknown reset kind %q, expected daily or monthly", s)
	}
}

// Summary is the rendered report for one tenant.
type Summary struct {
	TenantID    int64
	Kind        Kind
	Period      string
	Text        string
	Users       int
	GeneratedAt time.Time
}

type Generator struct {
	registry *state.Registry
	config   *config.Config
}

func NewGenerator(registry *state.Registry, cfg *config.Config) *Generator {
	return &Generator{
		registry: registry,
		config:   cfg,
	}
}

// Daily summarizes the tenant's day and clears every daily counter in the
// same critical section. The summary holds the pre-reset totals.
func (g *Generator) Daily(tenantID int64, now time.Time) Summary {
	now = now.In(g.config.Location())
	users := g.registry.SnapshotAndApply(tenantID, (*session.Record).ResetDaily)

	period := now.Format("2006-01-02")
	lines := []string{"Daily summary - " + period}
	for _, u := range users {
		lines = append(lines, fmt.Sprintf("%s work %s, fine %s",
			u.Record.Name,
			session.FormatDuration(u.Record.WorkTime),
			session.FormatAmount(u.Record.DailyFines),
		))
	}
	return g.summary(tenantID, KindDaily, period, lines, len(users), now)
}

// Monthly summarizes and clears the monthly fine counters. The period is the
// month that the reset closes, which is the previous month when the reset runs
// on the first.
func (g *Generator) Monthly(tenantID int64, now time.Time) Summary {
	now = now.In(g.config.Location())
	users := g.registry.SnapshotAndApply(tenantID, (*session.Record).ResetMonthly)

	period := now.AddDate(0, 0, -1).Format("2006-01")
	lines := []string{"Monthly summary - " + period}
	for _, u := range users {
		lines = append(lines, fmt.Sprintf("%s monthly fine %s",
			u.Record.Name,
			session.FormatAmount(u.Record.MonthlyFines),
		))
	}
	return g.summary(tenantID, KindMonthly, period, lines, len(users), now)
}

// OnDemand lists current fines without touching state. Only admins may ask.
func (g *Generator) OnDemand(tenantID, requesterID int64, now time.Time) (Summary, error) {
	if !g.config.IsAdmin(requesterID) {
		return Summary{}, xerrors.Errorf("requester %d: %w", requesterID, ErrUnauthorized)
	}
	now = now.In(g.config.Location())
	users := g.registry.ListUsers(tenantID)

	lines := []string{"Attendance report"}
	for _, u := range users {
		lines = append(lines, fmt.Sprintf("%s | daily fine %s, monthly fine %s",
			u.Record.Name,
			session.FormatAmount(u.Record.DailyFines),
			session.FormatAmount(u.Record.MonthlyFines),
		))
	}
	return g.summary(tenantID, KindOnDemand, now.Format("2006-01-02"), lines, len(users), now), nil
}

func (g *Generator) summary(tenantID int64, kind Kind, period string, lines []string, users int, now time.Time) Summary {
	return Summary{
		TenantID:    tenantID,
		Kind:        kind,
		Period:      period,
		Text:        strings.Join(lines, "\n"),
		Users:       users,
		GeneratedAt: now,
	}
}
