package inference

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "support_chat",
		Subsystem: "inference",
		Name:      "results_total",
		Help:      "Inference outcomes by normalized result kind.",
	}, []string{"kind"})
	metricLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "support_chat",
		Subsystem: "inference",
		Name:      "duration_seconds",
		Help:      "Wall time of inference module calls.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	})
	metricModuleReady = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "support_chat",
		Subsystem: "inference",
		Name:      "module_ready",
		Help:      "1 once the inference module finished initializing.",
	})
)
