package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CommandCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plural_gateway_commands_total",
			Help: "Total number of dispatched commands",
		},
		[]string{"group", "status"},
	)

	CommandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "plural_gateway_command_duration_seconds",
			Help: "Command dispatch duration in seconds",
		},
		[]string{"group"},
	)

	ResolutionFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plural_gateway_resolution_failures_total",
			Help: "Total number of entity reference resolution failures",
		},
		[]string{"kind"},
	)

	ContextRedispatches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "plural_gateway_context_redispatches_total",
			Help: "Total number of context-parameter re-dispatches",
		},
	)

	RegisteredSystems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "plural_gateway_registered_systems",
			Help: "Number of registered systems",
		},
	)

	RegisteredMembers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "plural_gateway_registered_members",
			Help: "Number of registered members",
		},
	)
)
