/*
Package firewall manages packet-filter and NAT rules for Burrow instances
by driving the iptables binary.

The package has two pieces: RuleBuilder, a fluent accumulator of rule
match/target fragments, and IPTables, a controller bound to a single
netfilter table that translates structured rule operations into iptables
invocations and parses list output back into line-oriented results.

# Architecture

	┌───────────────── FIREWALL CONTROL ─────────────────┐
	│                                                     │
	│  ┌──────────────────────────────────────┐          │
	│  │          RuleBuilder                  │          │
	│  │  Source / Destination / Protocol      │          │
	│  │  SourcePort / DestinationPort / Jump  │          │
	│  │  → structured argv, no shell string   │          │
	│  └──────────────────┬───────────────────┘          │
	│                     │                               │
	│  ┌──────────────────▼───────────────────┐          │
	│  │     IPTables (one per table)          │          │
	│  │  Append / Insert / DeleteRule         │          │
	│  │  NewChain / ClearChain / DeleteChain  │          │
	│  │  ListChains / ListAllRulesWithCounters│          │
	│  │  All ops serialized under one mutex   │          │
	│  └──────────────────┬───────────────────┘          │
	│                     │ fork/exec                     │
	│  ┌──────────────────▼───────────────────┐          │
	│  │        iptables binary (PATH)         │          │
	│  └──────────────────────────────────────┘          │
	└─────────────────────────────────────────────────────┘

# Design Decisions

The controller shells out to iptables rather than speaking netlink to
netfilter directly, trading error granularity and process-spawn overhead for
implementation simplicity. Failures surface as opaque errors: the controller
does not interpret iptables exit codes, so a caller wanting "chain already
exists is fine" semantics implements that itself.

Rule arguments are passed to exec directly as an argument vector. No shell is
involved anywhere, so addresses and ports taken from untrusted specs cannot
inject commands.
*/
package firewall
