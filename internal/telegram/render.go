package telegram

import (
	"fmt"
	"strings"

	"github.com/SoarinFerret/BreakWarden/internal/engine"
	"github.com/SoarinFerret/BreakWarden/internal/session"
)

const (
	welcomeText      = "📋 Welcome to the attendance bot, pick an action:"
	adminsOnlyText   = "❌ Admins only"
	unknownInputText = "⚠️ Unknown action"
	punchLayout      = "15:04:05"
)

// RenderResult turns an engine result into the reply shown to the user.
func RenderResult(res engine.Result) string {
	var b strings.Builder
	switch res.Action.Type {
	case session.ActionWork:
		fmt.Fprintf(&b, "✅ %s clocked in at %s", res.Name, res.At.Format(punchLayout))
		if res.Late {
			fmt.Fprintf(&b, " (late, fine %s)", session.FormatAmount(res.LateFine))
		}
	case session.ActionOff:
		fmt.Fprintf(&b, "✅ %s clocked off, work time %s, pure work time %s",
			res.Name,
			session.FormatDuration(res.WorkTotal),
			session.FormatDuration(res.PureWork),
		)
		if res.Outcome == engine.OutcomeNoOpenWork {
			b.WriteString(", no open work session")
		}
	case session.ActionBack:
		if res.Outcome == engine.OutcomeNoActiveActivity || res.Closed == nil {
			return "⚠️ No active activity"
		}
		fmt.Fprintf(&b, "✅ %s finished %s in %s", res.Name, res.Closed.Label, session.FormatDuration(res.Closed.Duration))
		writeOverLimit(&b, res.Closed)
	case session.ActionActivity:
		fmt.Fprintf(&b, "✅ %s started %s at %s", res.Name, res.Label, res.At.Format(punchLayout))
		if res.Outcome == engine.OutcomeReplaced && res.Closed != nil {
			fmt.Fprintf(&b, "\n✅ finished %s in %s", res.Closed.Label, session.FormatDuration(res.Closed.Duration))
			writeOverLimit(&b, res.Closed)
		}
	default:
		return unknownInputText
	}
	return b.String()
}

func writeOverLimit(b *strings.Builder, closed *engine.ClosedActivity) {
	if !closed.OverLimit {
		return
	}
	b.WriteString("\n⚠️ Over limit")
	if closed.Fine.IsPositive() {
		fmt.Fprintf(b, ", fine %s", session.FormatAmount(closed.Fine))
	}
}
