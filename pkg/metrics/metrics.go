package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Namespace metrics
	NamespacesCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "burrow_namespaces_created_total",
			Help: "Total number of network namespaces created",
		},
	)

	NamespacesDeletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "burrow_namespaces_deleted_total",
			Help: "Total number of network namespaces deleted",
		},
	)

	NamespaceErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "burrow_namespace_errors_total",
			Help: "Total number of failed namespace operations by operation",
		},
		[]string{"operation"},
	)

	// Firewall metrics
	FirewallCommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "burrow_firewall_commands_total",
			Help: "Total number of iptables invocations by table",
		},
		[]string{"table"},
	)

	FirewallErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "burrow_firewall_errors_total",
			Help: "Total number of failed iptables invocations by table",
		},
		[]string{"table"},
	)

	// Instance metrics
	InstancesActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "burrow_instances_active",
			Help: "Number of instances with network isolation currently set up",
		},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(NamespacesCreatedTotal)
	prometheus.MustRegister(NamespacesDeletedTotal)
	prometheus.MustRegister(NamespaceErrorsTotal)
	prometheus.MustRegister(FirewallCommandsTotal)
	prometheus.MustRegister(FirewallErrorsTotal)
	prometheus.MustRegister(InstancesActive)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
