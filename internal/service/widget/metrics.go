package widget

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "support_chat",
		Subsystem: "widget",
		Name:      "sessions_active",
		Help:      "Number of live widget sessions.",
	})
	metricSubmitsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "support_chat",
		Subsystem: "widget",
		Name:      "submits_rejected_total",
		Help:      "Submissions ignored because the input was blank or a reply was pending.",
	}, []string{"reason"})
	metricNotifications = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "support_chat",
		Subsystem: "widget",
		Name:      "notifications_total",
		Help:      "Times the unseen-reply badge was raised.",
	})
	metricEventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "support_chat",
		Subsystem: "widget",
		Name:      "events_dropped_total",
		Help:      "Change events dropped for slow subscribers.",
	})
)
