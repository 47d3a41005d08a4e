// Package monitor is the monitoring manager. It samples the Go runtime
// and the other managers into prometheus collectors on a private
// registry, and publishes monitoring/alert events when a sampled value
// crosses its configured threshold.
//
// Files:
//
//	manager.go - Manager, lifecycle, configuration listener, status
//	metrics.go - collector set on the private registry
//	sample.go  - one sample pass and the threshold alerts
package monitor
