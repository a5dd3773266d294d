// 包 metrics 定义 Prometheus 指标：同步轮次、成员活跃度、部落战记录、接口请求与熔断状态。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clan_sync_cycles_total",
			Help: "Total number of reconciliation cycles by outcome",
		},
		[]string{"outcome"}, // success, failure
	)

	CycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clan_sync_cycle_duration_seconds",
			Help:    "Duration of reconciliation cycles in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
	)

	LastCycleTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clan_sync_last_success_timestamp_seconds",
			Help: "Unix time of the last successful reconciliation cycle",
		},
	)

	MemberActivity = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clan_member_activity_total",
			Help: "Activity classifications recorded per member per cycle",
		},
		[]string{"result"}, // hit, miss
	)

	MembersSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clan_members_skipped_total",
			Help: "Roster entries skipped because of fetch or mapping failures",
		},
	)

	MembershipChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clan_membership_changes_total",
			Help: "Members whose current_member flag flipped",
		},
		[]string{"to"}, // current, former
	)

	WarLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clan_war_lookups_total",
			Help: "War lookup attempts by strategy and outcome",
		},
		[]string{"strategy", "outcome"}, // found, no_war, error
	)

	WarAttacksRecorded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clan_war_attacks_recorded_total",
			Help: "New war attacks appended to the store",
		},
	)

	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coc_api_requests_total",
			Help: "Game API requests by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"}, // success, not_found, no_war, failure, rejected
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "coc_api_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	RankRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clan_rank_requests_total",
			Help: "War ranking requests by outcome",
		},
		[]string{"outcome"}, // success, rejected, failure
	)
)
