package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	updatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatebot_updates_total",
			Help: "Updates processed by the handler chain",
		},
		[]string{"status"},
	)

	updateDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gatebot_update_duration_seconds",
			Help:    "Time spent processing one update",
			Buckets: prometheus.DefBuckets,
		},
	)

	gateChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatebot_gate_checks_total",
			Help: "Membership gate decisions",
		},
		[]string{"result"},
	)

	gateLookupFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gatebot_gate_lookup_failures_total",
			Help: "Membership lookups that failed and were treated as denial",
		},
	)

	accessOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatebot_access_outcomes_total",
			Help: "Access request outcomes",
		},
		[]string{"outcome"},
	)

	broadcastMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatebot_broadcast_messages_total",
			Help: "Broadcast deliveries by result",
		},
		[]string{"result"},
	)

	moderationActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatebot_moderation_actions_total",
			Help: "Moderation actions taken in groups",
		},
		[]string{"action"},
	)
)

// StartUpdate returns a func recording duration and status of one update.
func StartUpdate() func(status string) {
	start := time.Now()
	return func(status string) {
		updateDuration.Observe(time.Since(start).Seconds())
		updatesTotal.WithLabelValues(status).Inc()
	}
}

func RecordGateCheck(admitted bool, lookupFailures int) {
	result := "denied"
	if admitted {
		result = "admitted"
	}
	gateChecksTotal.WithLabelValues(result).Inc()
	if lookupFailures > 0 {
		gateLookupFailuresTotal.Add(float64(lookupFailures))
	}
}

func RecordAccessOutcome(outcome string) {
	accessOutcomesTotal.WithLabelValues(outcome).Inc()
}

func RecordBroadcast(sent, failed int) {
	broadcastMessagesTotal.WithLabelValues("sent").Add(float64(sent))
	broadcastMessagesTotal.WithLabelValues("failed").Add(float64(failed))
}

func RecordModeration(action string) {
	moderationActionsTotal.WithLabelValues(action).Inc()
}
