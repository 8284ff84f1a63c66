package eval

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/SoarinFerret/BreakWarden/internal/config"
)

// LateFine reports whether a work punch at now is late and the fine it owes.
// A punch exactly on the threshold is on time.
func LateFine(cfg *config.Config, now time.Time) (decimal.Decimal, bool) {
	local := now.In(cfg.Location())
	if !cfg.Work.LateAfter.EarlierThan(local) {
		return decimal.Zero, false
	}
	if cfg.Work.LateFine == nil {
		return decimal.Zero, true
	}
	return *cfg.Work.LateFine, true
}

// OverLimitFine reports whether an activity of kind that lasted dur exceeded
// its limit and the fine it owes. Kinds without a limit are never over.
func OverLimitFine(cfg *config.Config, kind string, dur time.Duration) (decimal.Decimal, bool) {
	activity, exists := cfg.Activities[kind]
	if !exists || !activity.HasLimit() {
		return decimal.Zero, false
	}
	if dur <= activity.Limit() {
		return decimal.Zero, false
	}
	return activity.FineAmount(), true
}

// Label is the display name of an activity kind.
func Label(cfg *config.Config, kind string) string {
	if activity, exists := cfg.Activities[kind]; exists && activity.Label != "" {
		return activity.Label
	}
	return kind
}
