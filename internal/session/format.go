package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// FormatDuration renders d as "Xh Ym Zs", omitting zero components. Seconds
// are kept when nothing else is shown, so zero renders as "0s". Fractions of
// a second are dropped and negative durations render as zero.
func FormatDuration(d time.Duration) string {
	total := int64(clampDuration(d) / time.Second)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60

	var parts []string
	if h > 0 {
		parts = append(parts, fmt.Sprintf("%dh", h))
	}
	if m > 0 {
		parts = append(parts, fmt.Sprintf("%dm", m))
	}
	if s > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%ds", s))
	}
	return strings.Join(parts, " ")
}

// FormatAmount renders a monetary amount the way replies and summaries show it.
func FormatAmount(amount decimal.Decimal) string {
	return "$" + amount.String()
}
