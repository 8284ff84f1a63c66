package telegram

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SoarinFerret/BreakWarden/internal/config"
	"github.com/SoarinFerret/BreakWarden/internal/engine"
	"github.com/SoarinFerret/BreakWarden/internal/session"
)

func TestRenderResult(t *testing.T) {
	punch := time.Date(2026, 10, 19, 8, 55, 3, 0, time.UTC)

	tests := []struct {
		name     string
		result   engine.Result
		expected string
	}{
		{
			name:     "On time",
			result:   engine.Result{Action: session.Work, Name: "Ann", At: punch},
			expected: "✅ Ann clocked in at 08:55:03",
		},
		{
			name: "Off without work",
			result: engine.Result{
				Action:  session.Off,
				Name:    "Ann",
				Outcome: engine.OutcomeNoOpenWork,
			},
			expected: "✅ Ann clocked off, work time 0s, pure work time 0s, no open work session",
		},
		{
			name: "Back within limit",
			result: engine.Result{
				Action: session.Back,
				Name:   "Ann",
				Closed: &engine.ClosedActivity{Label: "Smoke", Duration: 4*time.Minute + 2*time.Second, Fine: decimal.Zero},
			},
			expected: "✅ Ann finished Smoke in 4m 2s",
		},
		{
			name: "Over limit with zero fine",
			result: engine.Result{
				Action: session.Back,
				Name:   "Ann",
				Closed: &engine.ClosedActivity{Label: "Meeting", Duration: 61 * time.Minute, OverLimit: true, Fine: decimal.Zero},
			},
			expected: "✅ Ann finished Meeting in 1h 1m\n⚠️ Over limit",
		},
		{
			name: "Replaced activity",
			result: engine.Result{
				Action:  session.StartActivity("eat"),
				Name:    "Ann",
				At:      punch,
				Label:   "Eat",
				Outcome: engine.OutcomeReplaced,
				Closed:  &engine.ClosedActivity{Label: "Smoke", Duration: 12 * time.Minute, OverLimit: true, Fine: decimal.NewFromInt(10)},
			},
			expected: "✅ Ann started Eat at 08:55:03\n✅ finished Smoke in 12m\n⚠️ Over limit, fine $10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, RenderResult(tt.result))
		})
	}
}

func TestMenuLayout(t *testing.T) {
	cfg, err := config.LoadConfigFromBytes([]byte("[activities.phone]\nlabel = \"Phone\"\n"))
	require.NoError(t, err)

	menu := Menu(cfg)
	var rows [][]string
	for _, row := range menu.InlineKeyboard {
		var tags []string
		for _, btn := range row {
			require.NotNil(t, btn.CallbackData)
			tags = append(tags, *btn.CallbackData)
		}
		rows = append(rows, tags)
	}

	assert.Equal(t, [][]string{
		{"work", "off"},
		{"eat", "toilet", "smoke"},
		{"meeting", "phone"},
		{"back"},
	}, rows)
	assert.Equal(t, "Phone", menu.InlineKeyboard[2][1].Text)
}
