/*
Package network provides per-instance network isolation for Burrow workloads.

The network package is the facade over Burrow's isolation primitives. For
each workload instance it creates (or reuses) a named network namespace,
wires a veth pair between the host and the namespace, and installs the
iptables rules that publish the instance's ports on the host.

# Architecture

	┌───────────────── INSTANCE ISOLATION ─────────────────┐
	│                                                       │
	│  ┌────────────────────────────────────────┐          │
	│  │            Isolator                     │          │
	│  │  SetupInstance / TeardownInstance       │          │
	│  └───┬──────────────┬──────────────┬──────┘          │
	│      │              │              │                  │
	│  ┌───▼────────┐ ┌───▼─────────┐ ┌─▼──────────────┐   │
	│  │ netns      │ │ veth attach │ │ PortPublisher  │   │
	│  │ Manager    │ │ (netlink)   │ │ (iptables)     │   │
	│  └───┬────────┘ └───┬─────────┘ └─┬──────────────┘   │
	│      │              │             │                   │
	│  ┌───▼──────────────▼─────────────▼──────┐           │
	│  │         Setup Flow                     │           │
	│  │                                        │           │
	│  │  1. Create/reuse /run/netns/<name>     │           │
	│  │  2. Create veth pair on host           │           │
	│  │  3. Move peer into namespace as eth0   │           │
	│  │  4. Bring both ends up                 │           │
	│  │  5. Create BURROW-<id> chains          │           │
	│  │  6. Install DNAT/MASQUERADE/ACCEPT     │           │
	│  │  7. Hook chains into PREROUTING/FORWARD│           │
	│  └────────────────────────────────────────┘           │
	│                                                       │
	│  Teardown runs the inverse: rules removed, host veth  │
	│  removed, namespace unmounted and unlinked.           │
	└───────────────────────────────────────────────────────┘

# Publishing Rules

For an instance with IP 10.88.0.5 publishing host port 80 to port 8080:

	nat/BURROW-<id>:   -p tcp --dport 80 -j DNAT --to-destination 10.88.0.5:8080
	nat/PREROUTING:    -j BURROW-<id>   (inserted at position 1)
	nat/POSTROUTING:   -p tcp -d 10.88.0.5 --dport 8080 -j MASQUERADE
	filter/BURROW-<id>: -p tcp -d 10.88.0.5 --dport 8080 -j ACCEPT
	filter/FORWARD:    -j BURROW-<id>

Per-instance chains make teardown a flush-and-delete and let the metrics
collector account traffic per instance from the chain counters.
*/
package network
