package network

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/vishvananda/netlink"
	vishns "github.com/vishvananda/netns"
)

// PeerName is the interface name instances see for their veth endpoint.
const PeerName = "eth0"

const vethPrefix = "veth"

// vethNames generates random host-side and temporary peer names from one id
// (veth + 7 hex chars), matching the naming convention of common container
// runtimes. The peer gets a temporary name because it is born in the host
// namespace, where PeerName is almost always taken by the physical NIC; it
// is renamed to PeerName only once it is inside the instance namespace.
func vethNames() (host, peer string) {
	id := uuid.NewString()[:7]
	return vethPrefix + id, vethPrefix + "p" + id
}

// attachVeth creates a veth pair, moves the peer end into the namespace at
// nsPath, and brings both ends up. The peer appears inside the namespace as
// PeerName. Returns the generated host-side interface name.
//
// The peer is configured through a netlink handle bound to the namespace fd,
// so no thread ever switches namespaces here.
func attachVeth(nsPath string) (string, error) {
	hostName, peerName := vethNames()

	veth := &netlink.Veth{
		LinkAttrs: netlink.LinkAttrs{Name: hostName},
		PeerName:  peerName,
	}

	if err := netlink.LinkAdd(veth); err != nil {
		return "", fmt.Errorf("failed to create veth pair: %w", err)
	}

	cleanup := func() {
		if link, err := netlink.LinkByName(hostName); err == nil {
			netlink.LinkDel(link) // Ignore errors on cleanup
		}
	}

	nsHandle, err := vishns.GetFromPath(nsPath)
	if err != nil {
		cleanup()
		return "", fmt.Errorf("failed to open namespace %s: %w", nsPath, err)
	}
	defer nsHandle.Close()

	peer, err := netlink.LinkByName(peerName)
	if err != nil {
		cleanup()
		return "", fmt.Errorf("failed to get veth peer: %w", err)
	}

	if err := netlink.LinkSetNsFd(peer, int(nsHandle)); err != nil {
		cleanup()
		return "", fmt.Errorf("failed to move veth peer into namespace: %w", err)
	}

	hostLink, err := netlink.LinkByName(hostName)
	if err != nil {
		cleanup()
		return "", fmt.Errorf("failed to get host veth: %w", err)
	}
	if err := netlink.LinkSetUp(hostLink); err != nil {
		cleanup()
		return "", fmt.Errorf("failed to bring up host veth: %w", err)
	}

	nsNetlink, err := netlink.NewHandleAt(nsHandle)
	if err != nil {
		cleanup()
		return "", fmt.Errorf("failed to open netlink handle in namespace: %w", err)
	}
	defer nsNetlink.Close()

	nsPeer, err := nsNetlink.LinkByName(peerName)
	if err != nil {
		cleanup()
		return "", fmt.Errorf("failed to get veth peer in namespace: %w", err)
	}
	if err := nsNetlink.LinkSetName(nsPeer, PeerName); err != nil {
		cleanup()
		return "", fmt.Errorf("failed to rename veth peer: %w", err)
	}
	if err := nsNetlink.LinkSetUp(nsPeer); err != nil {
		cleanup()
		return "", fmt.Errorf("failed to bring up veth peer: %w", err)
	}

	return hostName, nil
}
