package firewall

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/burrownet/burrow/pkg/log"
	"github.com/burrownet/burrow/pkg/metrics"
)

const (
	// DefaultTable is the netfilter table used when none is given.
	DefaultTable = "filter"

	iptablesBin = "iptables"
)

// runnerFunc executes one iptables invocation and returns its stdout.
// Swapped out in tests to avoid touching the host firewall.
type runnerFunc func(args ...string) (string, error)

// IPTables drives the iptables binary against one netfilter table.
//
// All operations are serialized behind one mutex per controller instance:
// interleaved iptables invocations against the same table can corrupt each
// other's transient state, so concurrent callers block instead. The
// controller provides mechanism only; conditions such as "chain already
// exists" surface as opaque errors for the caller to interpret.
type IPTables struct {
	table string
	mu    sync.Mutex
	run   runnerFunc

	logger zerolog.Logger
}

// Option configures an IPTables controller.
type Option func(*IPTables)

// WithRunner replaces the external-process runner. Intended for tests.
func WithRunner(run func(args ...string) (string, error)) Option {
	return func(ipt *IPTables) {
		ipt.run = run
	}
}

// NewIPTables creates a controller bound to the given table.
// An empty table name selects the "filter" table.
func NewIPTables(table string, opts ...Option) *IPTables {
	if table == "" {
		table = DefaultTable
	}

	ipt := &IPTables{
		table:  table,
		run:    execIPTables,
		logger: log.WithComponent("firewall").With().Str("table", table).Logger(),
	}

	for _, opt := range opts {
		opt(ipt)
	}

	return ipt
}

// Table returns the netfilter table this controller is bound to.
func (ipt *IPTables) Table() string {
	return ipt.table
}

// Append appends the rule to the end of the chain (iptables -A).
func (ipt *IPTables) Append(chain string, rule *RuleBuilder) error {
	args := append([]string{"-t", ipt.table, "-A", chain}, rule.Args()...)

	_, err := ipt.exec(args)
	return err
}

// Insert inserts the rule into the chain at the given position (iptables -I).
// Positions are 1-based, matching iptables itself.
func (ipt *IPTables) Insert(chain string, position uint, rule *RuleBuilder) error {
	args := append([]string{"-t", ipt.table, "-I", chain, strconv.Itoa(int(position))}, rule.Args()...)

	_, err := ipt.exec(args)
	return err
}

// DeleteRule deletes the first rule in the chain matching the specification
// (iptables -D).
func (ipt *IPTables) DeleteRule(chain string, rule *RuleBuilder) error {
	args := append([]string{"-t", ipt.table, "-D", chain}, rule.Args()...)

	_, err := ipt.exec(args)
	return err
}

// NewChain creates a new user-defined chain (iptables -N).
func (ipt *IPTables) NewChain(chain string) error {
	_, err := ipt.exec([]string{"-t", ipt.table, "-N", chain})
	return err
}

// ClearChain flushes all rules from the chain (iptables -F).
func (ipt *IPTables) ClearChain(chain string) error {
	_, err := ipt.exec([]string{"-t", ipt.table, "-F", chain})
	return err
}

// DeleteChain deletes the (empty) chain (iptables -X).
func (ipt *IPTables) DeleteChain(chain string) error {
	_, err := ipt.exec([]string{"-t", ipt.table, "-X", chain})
	return err
}

// ListChains returns the names of all chains in the table, in the order
// iptables reports them.
func (ipt *IPTables) ListChains() ([]string, error) {
	out, err := ipt.exec([]string{"-t", ipt.table, "-L", "-n"})
	if err != nil {
		return nil, err
	}

	var chains []string
	for _, line := range strings.Split(out, "\n") {
		if !strings.HasPrefix(line, "Chain") {
			continue
		}

		// "Chain INPUT (policy ACCEPT)" -> "INPUT"
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		chains = append(chains, fields[1])
	}

	return chains, nil
}

// ListAllRulesWithCounters returns the raw rule lines of the chain including
// packet/byte counters (iptables -v -S). Lines are returned unparsed; the
// caller is responsible for interpreting them (see metrics.ChainCollector).
func (ipt *IPTables) ListAllRulesWithCounters(chain string) ([]string, error) {
	out, err := ipt.exec([]string{"-t", ipt.table, "-v", "-S", chain})
	if err != nil {
		return nil, err
	}

	var rules []string
	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		rules = append(rules, line)
	}

	return rules, nil
}

// exec runs one iptables invocation under the controller lock.
func (ipt *IPTables) exec(args []string) (string, error) {
	ipt.mu.Lock()
	defer ipt.mu.Unlock()

	ipt.logger.Debug().Strs("args", args).Msg("running iptables")
	metrics.FirewallCommandsTotal.WithLabelValues(ipt.table).Inc()

	out, err := ipt.run(args...)
	if err != nil {
		metrics.FirewallErrorsTotal.WithLabelValues(ipt.table).Inc()
		return "", err
	}

	return out, nil
}

// execIPTables is the production runner: fork/exec of the iptables binary
// with structured arguments. Stdout is returned for the list operations;
// on failure the output is discarded and only the spawn/exit error surfaces.
func execIPTables(args ...string) (string, error) {
	out, err := exec.Command(iptablesBin, args...).Output()
	if err != nil {
		return "", fmt.Errorf("failed to execute iptables command: %w", err)
	}

	return string(out), nil
}
