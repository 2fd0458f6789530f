package queue

import "github.com/prometheus/client_golang/prometheus"

var (
	QueueDepthGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "snapq",
		Subsystem: "queue",
		Name:      "depth",
		Help:      "Current count of pending jobs.",
	})

	ProcessingGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "snapq",
		Subsystem: "queue",
		Name:      "processing",
		Help:      "Current count of in-flight jobs.",
	})

	ScheduledJobsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "snapq",
		Subsystem: "queue",
		Name:      "scheduled_entries",
		Help:      "Current count of registered cron entries.",
	})

	DispatchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "snapq",
		Subsystem: "queue",
		Name:      "dispatch_total",
		Help:      "Total job dispatch outcomes by job type and result.",
	}, []string{"job_type", "result"})

	DispatchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "snapq",
		Subsystem: "queue",
		Name:      "dispatch_duration_seconds",
		Help:      "Job handler execution duration by job type.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"job_type"})
)

// RegisterMetrics registers every queue metric with the given registerer.
// Safe to call once per process; registering twice panics, matching
// prometheus's own contract.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(QueueDepthGauge, ProcessingGauge, ScheduledJobsGauge, DispatchTotal, DispatchDuration)
}
