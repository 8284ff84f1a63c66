package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/pelletier/go-toml/v2"
	"github.com/shopspring/decimal"
	"golang.org/x/xerrors"
)

// TimeOfDay is a wall-clock time without a date, written as "HH:MM" or "HH:MM:SS".
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

func (t *TimeOfDay) UnmarshalText(text []byte) error {
	str := strings.TrimSpace(string(text))

	var parsed time.Time
	var err error
	switch strings.Count(str, ":") {
	case 1:
		parsed, err = time.Parse("15:04", str)
	case 2:
		parsed, err = time.Parse("15:04:05", str)
	default:
		return xerrors.Errorf("invalid time of day %q: expected 'HH:MM' or 'HH:MM:SS'", str)
	}
	if err != nil {
		return xerrors.Errorf("invalid time of day %q: %w", str, err)
	}

	t.Hour = parsed.Hour()
	t.Minute = parsed.Minute()
	t.Second = parsed.Second()
	return nil
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// Offset is the time elapsed since midnight.
func (t TimeOfDay) Offset() time.Duration {
	return time.Duration(t.Hour)*time.Hour +
		time.Duration(t.Minute)*time.Minute +
		time.Duration(t.Second)*time.Second
}

// EarlierThan reports whether the clock time of ts, in its own location, is
// strictly later than t. Sub-second precision counts.
func (t TimeOfDay) EarlierThan(ts time.Time) bool {
	clock := time.Duration(ts.Hour())*time.Hour +
		time.Duration(ts.Minute())*time.Minute +
		time.Duration(ts.Second())*time.Second +
		time.Duration(ts.Nanosecond())
	return clock > t.Offset()
}

func NewTimeOfDay(hour, minute, second int) *TimeOfDay {
	return &TimeOfDay{Hour: hour, Minute: minute, Second: second}
}

type WorkConfig struct {
	LateAfter *TimeOfDay       `toml:"late_after"`
	LateFine  *decimal.Decimal `toml:"late_fine"`
}

// ActivityConfig holds the limit and fine of one activity kind. A nil limit
// means the activity is never fined.
type ActivityConfig struct {
	Label        string           `toml:"label"`
	LimitMinutes *int             `toml:"limit_minutes"`
	Fine         *decimal.Decimal `toml:"fine"`
}

func (a ActivityConfig) HasLimit() bool {
	return a.LimitMinutes != nil
}

func (a ActivityConfig) Limit() time.Duration {
	if a.LimitMinutes == nil {
		return 0
	}
	return time.Duration(*a.LimitMinutes) * time.Minute
}

func (a ActivityConfig) FineAmount() decimal.Decimal {
	if a.Fine == nil {
		return decimal.Zero
	}
	return *a.Fine
}

type ScheduleConfig struct {
	DailyReset      *TimeOfDay `toml:"daily_reset"`
	MonthlyResetDay int        `toml:"monthly_reset_day"`
	MonthlyReset    *TimeOfDay `toml:"monthly_reset"`
}

type TelegramConfig struct {
	Token      string `toml:"token"`
	WebhookURL string `toml:"webhook_url"`
	Listen     string `toml:"listen"`
}

// WebhookPath is the route the chat platform posts updates to.
func (t TelegramConfig) WebhookPath() string {
	return "/webhook/" + t.Token
}

// IPCConfig selects the D-Bus the admin interface is exported on: "system"
// or "session".
type IPCConfig struct {
	Bus string `toml:"bus"`
}

func (i IPCConfig) SystemBus() bool {
	return i.Bus != "session"
}

type KafkaConfig struct {
	Brokers []string `toml:"brokers"`
	Topic   string   `toml:"topic"`
}

func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

type Config struct {
	Timezone   string                    `toml:"timezone"`
	Admins     []int64                   `toml:"admins"`
	Work       WorkConfig                `toml:"work"`
	Activities map[string]ActivityConfig `toml:"activities"`
	Schedule   ScheduleConfig            `toml:"schedule"`
	Telegram   TelegramConfig            `toml:"telegram"`
	Kafka      KafkaConfig               `toml:"kafka"`
	IPC        IPCConfig                 `toml:"ipc"`

	location *time.Location
}

// Activity kinds shipped by default, in menu order.
var DefaultActivityKinds = []string{"eat", "toilet", "smoke", "meeting"}

func defaultActivities() map[string]ActivityConfig {
	entry := func(label string, limit int, fine int64) ActivityConfig {
		f := decimal.NewFromInt(fine)
		return ActivityConfig{Label: label, LimitMinutes: &limit, Fine: &f}
	}
	return map[string]ActivityConfig{
		"eat":     entry("Eat", 30, 10),
		"toilet":  entry("Toilet", 15, 10),
		"smoke":   entry("Smoke", 10, 10),
		"meeting": entry("Meeting", 60, 0),
	}
}

// Default returns a configuration with every option at its default value.
func Default() *Config {
	c := &Config{}
	c.SetDefault()
	return c
}

// SetDefault fills every unset option. Configured activities are merged over
// the default table, field by field.
func (c *Config) SetDefault() {
	if c.Timezone == "" {
		c.Timezone = "Local"
	}

	if c.Work.LateAfter == nil {
		c.Work.LateAfter = NewTimeOfDay(9, 0, 0)
	}
	if c.Work.LateFine == nil {
		f := decimal.NewFromInt(50)
		c.Work.LateFine = &f
	}

	defaults := defaultActivities()
	if c.Activities == nil {
		c.Activities = make(map[string]ActivityConfig)
	}
	for kind, def := range defaults {
		if _, exists := c.Activities[kind]; !exists {
			c.Activities[kind] = def
		}
	}
	for kind, activity := range c.Activities {
		def, known := defaults[kind]
		if activity.Label == "" {
			if known {
				activity.Label = def.Label
			} else if kind != "" {
				activity.Label = titleCase(kind)
			}
		}
		if known {
			if activity.LimitMinutes == nil {
				activity.LimitMinutes = def.LimitMinutes
			}
			if activity.Fine == nil {
				activity.Fine = def.Fine
			}
		}
		c.Activities[kind] = activity
	}

	if c.Schedule.DailyReset == nil {
		c.Schedule.DailyReset = NewTimeOfDay(15, 0, 0)
	}
	if c.Schedule.MonthlyResetDay == 0 {
		c.Schedule.MonthlyResetDay = 1
	}
	if c.Schedule.MonthlyReset == nil {
		c.Schedule.MonthlyReset = NewTimeOfDay(15, 5, 0)
	}

	if c.Telegram.Listen == "" {
		c.Telegram.Listen = ":5000"
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "breakwarden.summaries"
	}
	if c.IPC.Bus == "" {
		c.IPC.Bus = "system"
	}
}

// titleCase upper-cases the first character of s.
func titleCase(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// ApplyEnv overrides deployment settings from the environment.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup("BOT_TOKEN"); ok && v != "" {
		c.Telegram.Token = v
	}
	if v, ok := lookup("RENDER_EXTERNAL_URL"); ok && v != "" {
		c.Telegram.WebhookURL = strings.TrimRight(v, "/")
	}
	if v, ok := lookup("PORT"); ok && v != "" {
		c.Telegram.Listen = ":" + v
	}
}

var reservedKinds = map[string]struct{}{"work": {}, "off": {}, "back": {}}

// maxKindBytes is the Bot API limit on button callback data.
const maxKindBytes = 64

// Validate checks option ranges and resolves the time zone. SetDefault must
// have run first.
func (c *Config) Validate() error {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return xerrors.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	c.location = loc

	if c.Work.LateFine.IsNegative() {
		return xerrors.Errorf("work.late_fine must not be negative, got %s", c.Work.LateFine)
	}
	for kind, activity := range c.Activities {
		if _, reserved := reservedKinds[kind]; reserved {
			return xerrors.Errorf("activity %q collides with a built-in action", kind)
		}
		if kind == "" {
			return xerrors.New("activity kind must not be empty")
		}
		if len(kind) > maxKindBytes {
			return xerrors.Errorf("activity %q is longer than %d bytes", kind, maxKindBytes)
		}
		if activity.LimitMinutes != nil && *activity.LimitMinutes < 0 {
			return xerrors.Errorf("activities.%s.limit_minutes must not be negative", kind)
		}
		if activity.Fine != nil && activity.Fine.IsNegative() {
			return xerrors.Errorf("activities.%s.fine must not be negative", kind)
		}
	}
	if d := c.Schedule.MonthlyResetDay; d < 1 || d > 31 {
		return xerrors.Errorf("schedule.monthly_reset_day must be within 1..31, got %d", d)
	}
	if c.IPC.Bus != "system" && c.IPC.Bus != "session" {
		return xerrors.Errorf("ipc.bus must be system or session, got %q", c.IPC.Bus)
	}
	return nil
}

// Location is the zone used for time-of-day rules and schedules.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}

func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.Admins {
		if id == userID {
			return true
		}
	}
	return false
}

// ActivityKinds lists configured kinds: defaults first in their fixed order,
// then the rest alphabetically.
func (c *Config) ActivityKinds() []string {
	kinds := make([]string, 0, len(c.Activities))
	seen := make(map[string]struct{})
	for _, kind := range DefaultActivityKinds {
		if _, ok := c.Activities[kind]; ok {
			kinds = append(kinds, kind)
			seen[kind] = struct{}{}
		}
	}
	var extra []string
	for kind := range c.Activities {
		if _, ok := seen[kind]; !ok {
			extra = append(extra, kind)
		}
	}
	sort.Strings(extra)
	return append(kinds, extra...)
}

func LoadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			if err := cfg.Validate(); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, xerrors.Errorf("read config %s: %w", path, err)
	}
	return LoadConfigFromBytes(data)
}

func LoadConfigFromBytes(data []byte) (*Config, error) {
	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, xerrors.Errorf("decode config: %w", err)
	}
	config.SetDefault()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}
