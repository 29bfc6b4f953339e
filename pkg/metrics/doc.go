/*
Package metrics provides Prometheus metrics for Burrow's network isolation
subsystem.

Two kinds of metrics are exposed:

  - Operation counters registered at init: namespace create/delete totals,
    iptables invocation and error totals per table, and a gauge of instances
    with isolation currently set up.
  - ChainCollector, a pull-based collector that reads packet/byte counters
    from iptables chains on every scrape. This is the consumer of the
    firewall controller's ListAllRulesWithCounters operation and feeds
    bandwidth accounting for per-instance chains.

Serve the registry with the standard promhttp handler:

	http.Handle("/metrics", metrics.Handler())
*/
package metrics
