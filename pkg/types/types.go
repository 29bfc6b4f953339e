package types

// InstanceSpec describes the network identity of one workload instance.
// It is the unit consumed by network.Isolator: one namespace, one veth
// pair, and a set of published ports.
type InstanceSpec struct {
	// InstanceID uniquely identifies the workload instance. It is used to
	// derive the per-instance firewall chain name and must be stable across
	// setup and teardown of the same instance.
	InstanceID string `yaml:"instanceId"`

	// Namespace is the network namespace name under the runtime directory
	// (e.g. /run/netns/<Namespace>). Defaults to InstanceID when empty.
	Namespace string `yaml:"namespace,omitempty"`

	// IP is the instance address targeted by DNAT publishing rules.
	IP string `yaml:"ip"`

	// Ports lists the ports to publish on the host.
	Ports []*PortMapping `yaml:"ports,omitempty"`
}

// PortMapping defines port exposure
type PortMapping struct {
	ContainerPort uint16 `yaml:"containerPort"` // Port inside the instance (target port)
	HostPort      uint16 `yaml:"hostPort"`      // Port on the host (published port)
	Protocol      string `yaml:"protocol,omitempty"` // "tcp" or "udp", defaults to "tcp"
}

// Proto returns the mapping protocol, defaulting to "tcp".
func (p *PortMapping) Proto() string {
	if p.Protocol == "" {
		return ProtocolTCP
	}
	return p.Protocol
}

// Supported port mapping protocols.
const (
	ProtocolTCP = "tcp"
	ProtocolUDP = "udp"
)

// NamespaceName returns the namespace the instance should run in,
// falling back to the instance ID when no explicit name is set.
func (s *InstanceSpec) NamespaceName() string {
	if s.Namespace != "" {
		return s.Namespace
	}
	return s.InstanceID
}
