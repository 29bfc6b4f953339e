package network

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/burrownet/burrow/pkg/firewall"
	"github.com/burrownet/burrow/pkg/log"
	"github.com/burrownet/burrow/pkg/types"
)

// Built-in chains the per-instance chains hook into.
const (
	preroutingChain  = "PREROUTING"
	postroutingChain = "POSTROUTING"
	forwardChain     = "FORWARD"
)

// PortPublisher manages host mode port publishing using iptables.
//
// Each instance gets its own chain (see InstanceChain) in the nat and filter
// tables: DNAT rules live in the nat chain, per-port ACCEPT rules in the
// filter chain. Keeping instance rules in dedicated chains makes teardown a
// flush-and-delete and gives the metrics collector a countable unit for
// per-instance traffic accounting.
type PortPublisher struct {
	nat    *firewall.IPTables
	filter *firewall.IPTables

	mu sync.Mutex
	// Track published ports for cleanup
	published map[string]*publication // instanceID -> publication

	logger zerolog.Logger
}

// publication records what was installed for one instance.
type publication struct {
	chain string
	ip    string
	ports []*types.PortMapping
}

// NewPortPublisher creates a publisher installing rules through the given
// nat- and filter-table controllers.
func NewPortPublisher(nat, filter *firewall.IPTables) *PortPublisher {
	return &PortPublisher{
		nat:       nat,
		filter:    filter,
		published: make(map[string]*publication),
		logger:    log.WithComponent("network"),
	}
}

// InstanceChain derives the iptables chain name for an instance. Chain names
// are capped well under the kernel's 28-character limit.
func InstanceChain(instanceID string) string {
	id := instanceID
	if len(id) > 20 {
		id = id[:20]
	}
	return "BURROW-" + id
}

// PublishPorts sets up iptables rules to forward host ports to instance
// ports. Publishing an instance that is already published is a no-op, so
// setup can be retried safely.
func (p *PortPublisher) PublishPorts(instanceID, instanceIP string, ports []*types.PortMapping) error {
	if len(ports) == 0 {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.published[instanceID]; ok {
		return nil
	}

	pub := &publication{
		chain: InstanceChain(instanceID),
		ip:    instanceIP,
		ports: ports,
	}

	if err := p.install(pub); err != nil {
		// Clean up any rules we already created
		p.remove(pub)
		return fmt.Errorf("failed to publish ports for instance %s: %w", instanceID, err)
	}

	p.published[instanceID] = pub

	p.logger.Info().Str("instance_id", instanceID).Str("ip", instanceIP).
		Int("ports", len(ports)).Msg("ports published")

	return nil
}

// UnpublishPorts removes the iptables rules for an instance's published
// ports. Unknown instances are a no-op.
func (p *PortPublisher) UnpublishPorts(instanceID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	pub, ok := p.published[instanceID]
	if !ok {
		return nil // No ports to clean up
	}

	p.remove(pub)
	delete(p.published, instanceID)

	p.logger.Info().Str("instance_id", instanceID).Msg("ports unpublished")

	return nil
}

// UnpublishSpec removes the publishing rules for an instance computed from
// the given spec fields rather than in-memory tracking, so rules installed
// by an earlier process can be cleaned up. Falls back to tracked state when
// available.
func (p *PortPublisher) UnpublishSpec(instanceID, instanceIP string, ports []*types.PortMapping) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	pub, ok := p.published[instanceID]
	if !ok {
		pub = &publication{
			chain: InstanceChain(instanceID),
			ip:    instanceIP,
			ports: ports,
		}
	}

	p.remove(pub)
	delete(p.published, instanceID)

	p.logger.Info().Str("instance_id", instanceID).Msg("ports unpublished")

	return nil
}

// PublishedPorts returns the ports currently published for an instance.
func (p *PortPublisher) PublishedPorts(instanceID string) []*types.PortMapping {
	p.mu.Lock()
	defer p.mu.Unlock()

	if pub, ok := p.published[instanceID]; ok {
		return pub.ports
	}
	return nil
}

// install creates the instance chains and fills them with the publishing
// rules:
//
//	nat/<chain>:        -p <proto> --dport <host> -j DNAT --to-destination <ip>:<port>
//	nat/PREROUTING:     -j <chain> (inserted at position 1)
//	nat/POSTROUTING:    -p <proto> -d <ip> --dport <port> -j MASQUERADE
//	filter/<chain>:     -p <proto> -d <ip> --dport <port> -j ACCEPT
//	filter/FORWARD:     -j <chain>
func (p *PortPublisher) install(pub *publication) error {
	if err := p.nat.NewChain(pub.chain); err != nil {
		return fmt.Errorf("failed to create nat chain: %w", err)
	}
	if err := p.filter.NewChain(pub.chain); err != nil {
		return fmt.Errorf("failed to create filter chain: %w", err)
	}

	for _, port := range pub.ports {
		dnat := firewall.NewRuleBuilder().
			Protocol(port.Proto()).
			DestinationPort(port.HostPort).
			Jump("DNAT").
			ToDestination(fmt.Sprintf("%s:%d", pub.ip, port.ContainerPort))
		if err := p.nat.Append(pub.chain, dnat); err != nil {
			return fmt.Errorf("failed to add DNAT rule: %w", err)
		}

		// MASQUERADE for return traffic
		masq := firewall.NewRuleBuilder().
			Protocol(port.Proto()).
			Destination(pub.ip).
			DestinationPort(port.ContainerPort).
			Jump("MASQUERADE")
		if err := p.nat.Append(postroutingChain, masq); err != nil {
			return fmt.Errorf("failed to add MASQUERADE rule: %w", err)
		}

		accept := firewall.NewRuleBuilder().
			Protocol(port.Proto()).
			Destination(pub.ip).
			DestinationPort(port.ContainerPort).
			Jump("ACCEPT")
		if err := p.filter.Append(pub.chain, accept); err != nil {
			return fmt.Errorf("failed to add ACCEPT rule: %w", err)
		}
	}

	// Hook the instance chains into the built-in chains last, so traffic
	// never hits a half-filled chain. DNAT must run before any catch-all
	// PREROUTING rules, hence the insert at the top.
	if err := p.nat.Insert(preroutingChain, 1, firewall.NewRuleBuilder().Jump(pub.chain)); err != nil {
		return fmt.Errorf("failed to hook nat chain: %w", err)
	}
	if err := p.filter.Append(forwardChain, firewall.NewRuleBuilder().Jump(pub.chain)); err != nil {
		return fmt.Errorf("failed to hook filter chain: %w", err)
	}

	return nil
}

// remove tears down everything install may have created. Errors are ignored:
// remove runs on partial-failure cleanup and on teardown, where rules or
// chains may legitimately be missing already.
func (p *PortPublisher) remove(pub *publication) {
	p.nat.DeleteRule(preroutingChain, firewall.NewRuleBuilder().Jump(pub.chain)) // Ignore errors on cleanup
	p.filter.DeleteRule(forwardChain, firewall.NewRuleBuilder().Jump(pub.chain)) // Ignore errors on cleanup

	for _, port := range pub.ports {
		masq := firewall.NewRuleBuilder().
			Protocol(port.Proto()).
			Destination(pub.ip).
			DestinationPort(port.ContainerPort).
			Jump("MASQUERADE")
		p.nat.DeleteRule(postroutingChain, masq) // Ignore errors on cleanup
	}

	p.nat.ClearChain(pub.chain)
	p.nat.DeleteChain(pub.chain)
	p.filter.ClearChain(pub.chain)
	p.filter.DeleteChain(pub.chain)
}
