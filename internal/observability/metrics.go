package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

const namespace = "breakwarden"

var (
	actionsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "actions_total",
		Help:      "Attendance actions applied, by action tag.",
	}, []string{"action"})

	finesCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fines_total",
		Help:      "Sum of fine amounts charged, by reason.",
	}, []string{"reason"})

	latePunchesCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "late_punches_total",
		Help:      "Work punches after the late threshold.",
	})

	resetsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "resets_total",
		Help:      "Tenant resets performed, by kind.",
	}, []string{"kind"})

	lastResetGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_reset_timestamp_seconds",
		Help:      "Unix timestamp of the most recent reset run, by kind.",
	}, []string{"kind"})

	deliveryFailuresCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "summary_deliveries_failed_total",
		Help:      "Summary deliveries that failed, by sink.",
	}, []string{"sink"})

	trackedUsersGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "tracked_users",
		Help:      "Attendance records held in memory.",
	})
)

func init() {
	prometheus.MustRegister(
		actionsCounter,
		finesCounter,
		latePunchesCounter,
		resetsCounter,
		lastResetGauge,
		deliveryFailuresCounter,
		trackedUsersGauge,
	)
}

// Fine reasons.
const (
	ReasonLate      = "late"
	ReasonOverLimit = "over_limit"
)

func RecordAction(action string) {
	actionsCounter.WithLabelValues(action).Inc()
}

func RecordLatePunch() {
	latePunchesCounter.Inc()
}

// RecordFine adds a charged amount. Zero amounts are ignored.
func RecordFine(reason string, amount decimal.Decimal) {
	if !amount.IsPositive() {
		return
	}
	finesCounter.WithLabelValues(reason).Add(amount.InexactFloat64())
}

// RecordReset counts one tenant reset of kind.
func RecordReset(kind string) {
	resetsCounter.WithLabelValues(kind).Inc()
}

// RecordResetRun updates the reset watermark for kind.
func RecordResetRun(kind string, ts time.Time) {
	if ts.IsZero() {
		return
	}
	lastResetGauge.WithLabelValues(kind).Set(float64(ts.Unix()))
}

func RecordDeliveryFailure(sink string) {
	deliveryFailuresCounter.WithLabelValues(sink).Inc()
}

func RecordTrackedUsers(n int) {
	trackedUsersGauge.Set(float64(n))
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
