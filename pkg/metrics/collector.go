package metrics

import (
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/burrownet/burrow/pkg/log"
)

// RuleLister is the slice of the firewall controller the collector needs.
type RuleLister interface {
	Table() string
	ListAllRulesWithCounters(chain string) ([]string, error)
}

// ChainCollector exposes per-chain traffic totals scraped from iptables
// rule counters. It is used for bandwidth accounting of instance chains:
// every scrape lists the rules of each configured chain with counters
// (iptables -v -S) and sums the packet/byte counts.
type ChainCollector struct {
	lister RuleLister
	chains []string
	logger zerolog.Logger

	packets *prometheus.Desc
	bytes   *prometheus.Desc
}

// NewChainCollector creates a collector reading counters for the given
// chains through the lister. Register it with prometheus.MustRegister.
func NewChainCollector(lister RuleLister, chains []string) *ChainCollector {
	return &ChainCollector{
		lister: lister,
		chains: chains,
		logger: log.WithComponent("metrics"),
		packets: prometheus.NewDesc(
			"burrow_chain_packets_total",
			"Total packets matched by rules in the chain",
			[]string{"table", "chain"}, nil,
		),
		bytes: prometheus.NewDesc(
			"burrow_chain_bytes_total",
			"Total bytes matched by rules in the chain",
			[]string{"table", "chain"}, nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *ChainCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.packets
	ch <- c.bytes
}

// Collect implements prometheus.Collector
func (c *ChainCollector) Collect(ch chan<- prometheus.Metric) {
	for _, chain := range c.chains {
		rules, err := c.lister.ListAllRulesWithCounters(chain)
		if err != nil {
			c.logger.Error().Err(err).
				Str("chain", chain).Msg("failed to list chain counters")
			continue
		}

		packets, bytes := sumCounters(rules)

		ch <- prometheus.MustNewConstMetric(c.packets, prometheus.CounterValue,
			float64(packets), c.lister.Table(), chain)
		ch <- prometheus.MustNewConstMetric(c.bytes, prometheus.CounterValue,
			float64(bytes), c.lister.Table(), chain)
	}
}

// sumCounters totals the "-c <packets> <bytes>" counter fragments that
// iptables -v -S emits for each rule line. Lines without counters (such as
// the -N chain declaration) contribute nothing.
func sumCounters(rules []string) (packets, bytes uint64) {
	for _, rule := range rules {
		fields := strings.Fields(rule)

		for i, field := range fields {
			if field != "-c" || i+2 >= len(fields) {
				continue
			}

			p, err := strconv.ParseUint(fields[i+1], 10, 64)
			if err != nil {
				break
			}
			b, err := strconv.ParseUint(fields[i+2], 10, 64)
			if err != nil {
				break
			}

			packets += p
			bytes += b
			break
		}
	}

	return packets, bytes
}
