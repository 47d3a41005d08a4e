package monitor

import "github.com/prometheus/client_golang/prometheus"

const namespace = "nucleus"

// collectors is the gauge and counter set on the manager's private
// registry. Manager counters (published, submitted, ...) are bridged
// as gauges because this package samples them instead of owning the
// increments.
type collectors struct {
	goroutines prometheus.Gauge
	heapBytes  prometheus.Gauge
	gcCycles   prometheus.Gauge

	managerHealthy *prometheus.GaugeVec

	taskBacklog    prometheus.Gauge
	tasksByStatus  *prometheus.GaugeVec
	tasksSubmitted prometheus.Gauge
	tasksCompleted prometheus.Gauge
	tasksFailed    prometheus.Gauge
	tasksCancelled prometheus.Gauge

	busQueueDepth    prometheus.Gauge
	busSubscriptions prometheus.Gauge
	busPublished     prometheus.Gauge
	busDelivered     prometheus.Gauge
	busRejected      prometheus.Gauge
	busCallbackFails prometheus.Gauge

	pluginsByState *prometheus.GaugeVec

	samples prometheus.Counter
	alerts  *prometheus.CounterVec
}

func gauge(subsystem, name, help string) prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	})
}

func gaugeVec(subsystem, name, help string, labels ...string) *prometheus.GaugeVec {
	return prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	}, labels)
}

func newCollectors(reg *prometheus.Registry) *collectors {
	c := &collectors{
		goroutines: gauge("runtime", "goroutines", "Sampled goroutine count"),
		heapBytes:  gauge("runtime", "heap_alloc_bytes", "Sampled heap allocation in bytes"),
		gcCycles:   gauge("runtime", "gc_cycles", "Completed GC cycles"),

		managerHealthy: gaugeVec("manager", "healthy", "Whether the manager reports healthy (1) or not (0)", "manager"),

		taskBacklog:    gauge("tasks", "backlog", "Tasks waiting for a worker"),
		tasksByStatus:  gaugeVec("tasks", "by_status", "Tracked tasks by lifecycle status", "status"),
		tasksSubmitted: gauge("tasks", "submitted", "Tasks submitted since start (sampled)"),
		tasksCompleted: gauge("tasks", "completed", "Tasks completed since start (sampled)"),
		tasksFailed:    gauge("tasks", "failed", "Tasks failed since start (sampled)"),
		tasksCancelled: gauge("tasks", "cancelled", "Tasks cancelled since start (sampled)"),

		busQueueDepth:    gauge("bus", "queue_depth", "Events waiting for a bus worker"),
		busSubscriptions: gauge("bus", "subscriptions", "Registered subscriptions"),
		busPublished:     gauge("bus", "published", "Events published since start (sampled)"),
		busDelivered:     gauge("bus", "delivered", "Callback deliveries since start (sampled)"),
		busRejected:      gauge("bus", "rejected", "Publishes rejected by backpressure (sampled)"),
		busCallbackFails: gauge("bus", "callback_failures", "Subscriber callbacks that panicked (sampled)"),

		pluginsByState: gaugeVec("plugins", "by_state", "Discovered plugins by lifecycle state", "state"),

		samples: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "samples_total",
			Help:      "Completed sample passes",
		}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "alerts_total",
			Help:      "Threshold alerts published",
		}, []string{"metric"}),
	}
	reg.MustRegister(
		c.goroutines, c.heapBytes, c.gcCycles,
		c.managerHealthy,
		c.taskBacklog, c.tasksByStatus, c.tasksSubmitted, c.tasksCompleted, c.tasksFailed, c.tasksCancelled,
		c.busQueueDepth, c.busSubscriptions, c.busPublished, c.busDelivered, c.busRejected, c.busCallbackFails,
		c.pluginsByState,
		c.samples, c.alerts,
	)
	return c
}
