package session

import (
	"time"

	"github.com/shopspring/decimal"
)

// ActivityKind names a configured activity such as "eat" or "smoke".
type ActivityKind string

// ActivitySession is one interval spent away on an activity. A zero End
// means the activity is still open.
type ActivitySession struct {
	Kind  ActivityKind `json:"kind"`
	Start time.Time    `json:"start"`
	End   time.Time    `json:"end"`
}

// Record tracks one user's attendance within one group.
type Record struct {
	Name         string            `json:"name"`
	Activities   []ActivitySession `json:"activities"`
	DailyFines   decimal.Decimal   `json:"daily_fines"`
	MonthlyFines decimal.Decimal   `json:"monthly_fines"`

	// WorkStart is zero unless the user is clocked in.
	WorkStart    time.Time     `json:"work_start"`
	WorkTime     time.Duration `json:"work_time"`
	ActivityTime time.Duration `json:"activity_time"`
	PureWorkTime time.Duration `json:"pure_work_time"`
}

func NewRecord(name string) *Record {
	return &Record{
		Name:         name,
		Activities:   []ActivitySession{},
		DailyFines:   decimal.Zero,
		MonthlyFines: decimal.Zero,
	}
}
