package network

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/burrownet/burrow/pkg/firewall"
	"github.com/burrownet/burrow/pkg/log"
	"github.com/burrownet/burrow/pkg/metrics"
	"github.com/burrownet/burrow/pkg/netiface"
	"github.com/burrownet/burrow/pkg/netns"
	"github.com/burrownet/burrow/pkg/types"
)

// Config holds isolator configuration
type Config struct {
	// NamespaceDir overrides the namespace runtime directory (tests).
	NamespaceDir string
}

// Isolator wires the isolation primitives together for whole-instance
// operations: namespace, veth pair, and publishing rules, set up and torn
// down as one unit.
type Isolator struct {
	namespaces *netns.Manager
	interfaces *netiface.Manager
	publisher  *PortPublisher

	mu       sync.Mutex
	hostVeth map[string]string // instanceID -> host-side veth name

	logger zerolog.Logger
}

// NewIsolator creates an isolator with real kernel-facing managers and
// controllers for the nat and filter tables.
func NewIsolator(cfg *Config) (*Isolator, error) {
	interfaces := netiface.NewManager()

	var nsCfg *netns.Config
	if cfg != nil && cfg.NamespaceDir != "" {
		nsCfg = &netns.Config{RuntimeDir: cfg.NamespaceDir}
	}

	namespaces, err := netns.NewManager(interfaces, nsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create namespace manager: %w", err)
	}

	nat := firewall.NewIPTables("nat")
	filter := firewall.NewIPTables(firewall.DefaultTable)

	return &Isolator{
		namespaces: namespaces,
		interfaces: interfaces,
		publisher:  NewPortPublisher(nat, filter),
		hostVeth:   make(map[string]string),
		logger:     log.WithComponent("network"),
	}, nil
}

// Namespaces exposes the namespace manager for callers that only need
// namespace operations (e.g. handing a netns path to a container runtime).
func (iso *Isolator) Namespaces() *netns.Manager {
	return iso.namespaces
}

// Publisher exposes the port publisher.
func (iso *Isolator) Publisher() *PortPublisher {
	return iso.publisher
}

// SetupInstance establishes network isolation for one instance: create or
// reuse its namespace, attach a veth pair with the peer inside, and install
// the publishing rules. Partial failures tear down whatever was created, so
// a failed setup leaves no namespace file, interface, or rule behind.
func (iso *Isolator) SetupInstance(spec *types.InstanceSpec) error {
	logger := iso.logger.With().Str("instance_id", spec.InstanceID).Logger()
	logger.Info().Msg("setting up instance network")

	ns := spec.NamespaceName()

	if err := iso.namespaces.CreateNetworkNamespace(ns); err != nil {
		return fmt.Errorf("failed to create namespace for instance %s: %w", spec.InstanceID, err)
	}

	hostName, err := attachVeth(iso.namespaces.GetNetworkNamespacePath(ns))
	if err != nil {
		iso.namespaces.DeleteNetworkNamespace(ns) // Ignore errors on cleanup
		return fmt.Errorf("failed to attach veth for instance %s: %w", spec.InstanceID, err)
	}

	if err := iso.publisher.PublishPorts(spec.InstanceID, spec.IP, spec.Ports); err != nil {
		iso.interfaces.RemoveInterface(hostName)  // Ignore errors on cleanup
		iso.namespaces.DeleteNetworkNamespace(ns) // Ignore errors on cleanup
		return err
	}

	iso.mu.Lock()
	iso.hostVeth[spec.InstanceID] = hostName
	iso.mu.Unlock()

	metrics.InstancesActive.Inc()
	logger.Info().Str("netns", ns).Str("host_veth", hostName).Msg("instance network ready")

	return nil
}

// TeardownInstance runs setup in reverse: rules removed, host interface
// removed, namespace unmounted and unlinked. Each step is idempotent, so
// tearing down an instance that is partially or fully gone succeeds.
func (iso *Isolator) TeardownInstance(spec *types.InstanceSpec) error {
	logger := iso.logger.With().Str("instance_id", spec.InstanceID).Logger()
	logger.Info().Msg("tearing down instance network")

	if err := iso.publisher.UnpublishSpec(spec.InstanceID, spec.IP, spec.Ports); err != nil {
		return err
	}

	iso.mu.Lock()
	hostName, attached := iso.hostVeth[spec.InstanceID]
	delete(iso.hostVeth, spec.InstanceID)
	iso.mu.Unlock()

	// Without a recorded host veth (e.g. teardown from a fresh process) the
	// host side disappears with its peer when the namespace is deleted.
	if attached {
		if err := iso.interfaces.RemoveInterface(hostName); err != nil {
			logger.Error().Err(err).Str("host_veth", hostName).Msg("failed to remove host veth")
		}
	}

	if err := iso.namespaces.DeleteNetworkNamespace(spec.NamespaceName()); err != nil {
		return err
	}

	if attached {
		metrics.InstancesActive.Dec()
	}

	logger.Info().Msg("instance network removed")

	return nil
}
