package firewall

import (
	"strconv"
	"strings"
)

// RuleBuilder accumulates iptables match/target fragments into a rule
// specification. Every setter returns the builder so calls can be chained:
//
//	rule := firewall.NewRuleBuilder().
//		Source("10.88.0.0/16").
//		Protocol("tcp").
//		DestinationPort(8080).
//		Jump("ACCEPT")
//
// Setters passed an empty string or port 0 are no-ops, so callers can feed
// optional fields through without conditionals. The builder performs no
// validation and no I/O; it cannot fail.
//
// Fragments are kept as a structured argument vector and handed to the
// process invocation API directly, never joined into a shell command line,
// so rule values cannot be used for shell injection.
type RuleBuilder struct {
	args []string
}

// NewRuleBuilder creates an empty rule builder.
func NewRuleBuilder() *RuleBuilder {
	return &RuleBuilder{}
}

// Source sets the source address (CIDR or plain address).
func (b *RuleBuilder) Source(addr string) *RuleBuilder {
	if addr == "" {
		return b
	}
	b.args = append(b.args, "-s", addr)
	return b
}

// Destination sets the destination address (CIDR or plain address).
func (b *RuleBuilder) Destination(addr string) *RuleBuilder {
	if addr == "" {
		return b
	}
	b.args = append(b.args, "-d", addr)
	return b
}

// Protocol sets the match protocol ("tcp", "udp", ...).
func (b *RuleBuilder) Protocol(proto string) *RuleBuilder {
	if proto == "" {
		return b
	}
	b.args = append(b.args, "-p", proto)
	return b
}

// Jump sets the rule target.
func (b *RuleBuilder) Jump(target string) *RuleBuilder {
	if target == "" {
		return b
	}
	b.args = append(b.args, "-j", target)
	return b
}

// SourcePort sets the source port match.
func (b *RuleBuilder) SourcePort(port uint16) *RuleBuilder {
	if port == 0 {
		return b
	}
	b.args = append(b.args, "--sport", strconv.Itoa(int(port)))
	return b
}

// DestinationPort sets the destination port match.
func (b *RuleBuilder) DestinationPort(port uint16) *RuleBuilder {
	if port == 0 {
		return b
	}
	b.args = append(b.args, "--dport", strconv.Itoa(int(port)))
	return b
}

// ToDestination sets the DNAT rewrite target ("<addr>:<port>").
// Only meaningful together with Jump("DNAT").
func (b *RuleBuilder) ToDestination(dest string) *RuleBuilder {
	if dest == "" {
		return b
	}
	b.args = append(b.args, "--to-destination", dest)
	return b
}

// Args returns the accumulated rule specification as an argument vector
// suitable for appending to an iptables invocation. The returned slice is a
// copy; mutating it does not affect the builder.
func (b *RuleBuilder) Args() []string {
	out := make([]string, len(b.args))
	copy(out, b.args)
	return out
}

// Build renders the rule as its canonical single-string form. Two rules are
// considered equal when their rendered strings are equal.
func (b *RuleBuilder) Build() string {
	return strings.Join(b.args, " ")
}

// Reset clears the builder for reuse.
func (b *RuleBuilder) Reset() {
	b.args = b.args[:0]
}
