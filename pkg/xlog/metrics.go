package xlog

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	emitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "applog",
		Name:      "entries_total",
		Help:      "Log entries dispatched, by level.",
	}, []string{"level"})

	sinkWriteFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "applog",
		Name:      "sink_write_failures_total",
		Help:      "Failed sink writes, by sink.",
	}, []string{"sink"})

	rotations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "applog",
		Name:      "rotations_total",
		Help:      "Log file rotations.",
	})

	alertsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "applog",
		Name:      "alerts_dropped_total",
		Help:      "Alerts dropped because a subscriber was not keeping up.",
	})
)
