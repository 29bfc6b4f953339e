package network

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/burrownet/burrow/pkg/firewall"
	"github.com/burrownet/burrow/pkg/types"
)

// fakeFirewall records every iptables invocation across both tables and can
// fail calls matching a substring.
type fakeFirewall struct {
	calls   []string
	failOn  string
	failErr error
}

func (f *fakeFirewall) run(args ...string) (string, error) {
	call := strings.Join(args, " ")
	f.calls = append(f.calls, call)

	if f.failOn != "" && strings.Contains(call, f.failOn) {
		return "", f.failErr
	}
	return "", nil
}

func newTestPublisher(fake *fakeFirewall) *PortPublisher {
	nat := firewall.NewIPTables("nat", firewall.WithRunner(fake.run))
	filter := firewall.NewIPTables("filter", firewall.WithRunner(fake.run))
	return NewPortPublisher(nat, filter)
}

func webPorts() []*types.PortMapping {
	return []*types.PortMapping{
		{HostPort: 80, ContainerPort: 8080},
	}
}

// TestPublishPorts tests the exact rule sequence installed for one instance
func TestPublishPorts(t *testing.T) {
	fake := &fakeFirewall{}
	pub := newTestPublisher(fake)

	err := pub.PublishPorts("web", "10.88.0.5", webPorts())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"-t nat -N BURROW-web",
		"-t filter -N BURROW-web",
		"-t nat -A BURROW-web -p tcp --dport 80 -j DNAT --to-destination 10.88.0.5:8080",
		"-t nat -A POSTROUTING -p tcp -d 10.88.0.5 --dport 8080 -j MASQUERADE",
		"-t filter -A BURROW-web -p tcp -d 10.88.0.5 --dport 8080 -j ACCEPT",
		"-t nat -I PREROUTING 1 -j BURROW-web",
		"-t filter -A FORWARD -j BURROW-web",
	}, fake.calls)

	assert.Equal(t, webPorts(), pub.PublishedPorts("web"))
}

// TestPublishPortsIdempotent tests that republishing is a no-op
func TestPublishPortsIdempotent(t *testing.T) {
	fake := &fakeFirewall{}
	pub := newTestPublisher(fake)

	require.NoError(t, pub.PublishPorts("web", "10.88.0.5", webPorts()))
	installed := len(fake.calls)

	require.NoError(t, pub.PublishPorts("web", "10.88.0.5", webPorts()))
	assert.Equal(t, installed, len(fake.calls), "second publish must not touch iptables")
}

// TestPublishPortsEmpty tests that an instance without ports installs nothing
func TestPublishPortsEmpty(t *testing.T) {
	fake := &fakeFirewall{}
	pub := newTestPublisher(fake)

	require.NoError(t, pub.PublishPorts("quiet", "10.88.0.9", nil))
	assert.Empty(t, fake.calls)
}

// TestPublishPortsCleanupOnFailure tests that a mid-install failure removes
// what was already created
func TestPublishPortsCleanupOnFailure(t *testing.T) {
	fake := &fakeFirewall{failOn: "MASQUERADE", failErr: errors.New("exit status 1")}
	pub := newTestPublisher(fake)

	err := pub.PublishPorts("web", "10.88.0.5", webPorts())
	require.Error(t, err)

	assert.Nil(t, pub.PublishedPorts("web"))

	// Cleanup flushed and deleted the instance chains in both tables
	joined := strings.Join(fake.calls, "\n")
	assert.Contains(t, joined, "-t nat -F BURROW-web")
	assert.Contains(t, joined, "-t nat -X BURROW-web")
	assert.Contains(t, joined, "-t filter -F BURROW-web")
	assert.Contains(t, joined, "-t filter -X BURROW-web")
}

// TestUnpublishPorts tests rule removal for a tracked instance
func TestUnpublishPorts(t *testing.T) {
	fake := &fakeFirewall{}
	pub := newTestPublisher(fake)

	require.NoError(t, pub.PublishPorts("web", "10.88.0.5", webPorts()))
	fake.calls = nil

	require.NoError(t, pub.UnpublishPorts("web"))

	assert.Equal(t, []string{
		"-t nat -D PREROUTING -j BURROW-web",
		"-t filter -D FORWARD -j BURROW-web",
		"-t nat -D POSTROUTING -p tcp -d 10.88.0.5 --dport 8080 -j MASQUERADE",
		"-t nat -F BURROW-web",
		"-t nat -X BURROW-web",
		"-t filter -F BURROW-web",
		"-t filter -X BURROW-web",
	}, fake.calls)

	assert.Nil(t, pub.PublishedPorts("web"))

	// Unknown instance is a no-op
	fake.calls = nil
	require.NoError(t, pub.UnpublishPorts("web"))
	assert.Empty(t, fake.calls)
}

// TestUnpublishSpec tests spec-derived removal without in-memory tracking,
// the cross-process teardown path
func TestUnpublishSpec(t *testing.T) {
	fake := &fakeFirewall{}
	pub := newTestPublisher(fake)

	require.NoError(t, pub.UnpublishSpec("web", "10.88.0.5", webPorts()))

	joined := strings.Join(fake.calls, "\n")
	assert.Contains(t, joined, "-t nat -D PREROUTING -j BURROW-web")
	assert.Contains(t, joined, "-t nat -D POSTROUTING -p tcp -d 10.88.0.5 --dport 8080 -j MASQUERADE")
	assert.Contains(t, joined, "-t filter -X BURROW-web")
}

// TestInstanceChain tests chain name derivation and capping
func TestInstanceChain(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want string
	}{
		{
			name: "short id",
			id:   "web",
			want: "BURROW-web",
		},
		{
			name: "long id capped",
			id:   "0123456789abcdef0123456789abcdef",
			want: "BURROW-0123456789abcdef0123",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InstanceChain(tt.id); got != tt.want {
				t.Errorf("InstanceChain(%q) = %q, want %q", tt.id, got, tt.want)
			}
		})
	}
}
