package netiface

import (
	"encoding/binary"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"github.com/burrownet/burrow/pkg/log"
)

// Manager controls single network interfaces through the minimum kernel
// surfaces required: a raw NETLINK_ROUTE socket for removal and a SIOCGIFFLAGS
// ioctl socket for activation. No interface state is cached; the kernel is
// the only source of truth.
type Manager struct {
	logger zerolog.Logger
}

// NewManager creates a new interface manager
func NewManager() *Manager {
	return &Manager{
		logger: log.WithComponent("netiface"),
	}
}

// RemoveInterface deletes the named link by sending an RTM_DELLINK netlink
// message. The send is fire-and-forget: the kernel's acknowledgment is not
// read back, matching best-effort teardown semantics, so a delete the kernel
// rejects (e.g. unknown interface) still returns nil here.
func (m *Manager) RemoveInterface(ifname string) error {
	m.logger.Debug().Str("interface", ifname).Msg("removing interface")

	if len(ifname) >= unix.IFNAMSIZ {
		return fmt.Errorf("interface name %q too long", ifname)
	}

	sock, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_RAW, unix.NETLINK_ROUTE)
	if err != nil {
		return fmt.Errorf("failed to create netlink socket: %w", err)
	}
	defer unix.Close(sock)

	req := buildDelLinkRequest(ifname)

	if err := unix.Sendto(sock, req, 0, &unix.SockaddrNetlink{Family: unix.AF_NETLINK}); err != nil {
		return fmt.Errorf("failed to send netlink request: %w", err)
	}

	return nil
}

// BringUpInterface activates the named interface by reading its current
// flags via SIOCGIFFLAGS, setting IFF_UP|IFF_RUNNING, and writing them back
// via SIOCSIFFLAGS. The ioctl socket is closed on every exit path.
func (m *Manager) BringUpInterface(ifname string) error {
	m.logger.Debug().Str("interface", ifname).Msg("bringing up interface")

	sock, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM, 0)
	if err != nil {
		return fmt.Errorf("failed to create ioctl socket: %w", err)
	}
	defer unix.Close(sock)

	ifr, err := unix.NewIfreq(ifname)
	if err != nil {
		return fmt.Errorf("invalid interface name %q: %w", ifname, err)
	}

	if err := unix.IoctlIfreq(sock, unix.SIOCGIFFLAGS, ifr); err != nil {
		return fmt.Errorf("failed to get interface flags: %w", err)
	}

	ifr.SetUint16(ifr.Uint16() | unix.IFF_UP | unix.IFF_RUNNING)

	if err := unix.IoctlIfreq(sock, unix.SIOCSIFFLAGS, ifr); err != nil {
		return fmt.Errorf("failed to set interface flags: %w", err)
	}

	return nil
}

const nlmsgAlignTo = 4

// nlmsgAlign rounds n up to the netlink 4-byte boundary.
func nlmsgAlign(n int) int {
	return (n + nlmsgAlignTo - 1) &^ (nlmsgAlignTo - 1)
}

// buildDelLinkRequest encodes an RTM_DELLINK request identifying the link
// by an IFLA_IFNAME attribute: nlmsghdr, zeroed ifinfomsg (AF_UNSPEC), then
// one rtattr carrying the NUL-terminated name. Netlink is host-endian.
func buildDelLinkRequest(ifname string) []byte {
	attrLen := unix.SizeofRtAttr + len(ifname) + 1
	msgLen := unix.NLMSG_HDRLEN + unix.SizeofIfInfomsg + nlmsgAlign(attrLen)

	buf := make([]byte, msgLen)

	// nlmsghdr; seq and pid stay zero for a one-shot request socket
	binary.NativeEndian.PutUint32(buf[0:4], uint32(msgLen))
	binary.NativeEndian.PutUint16(buf[4:6], unix.RTM_DELLINK)
	binary.NativeEndian.PutUint16(buf[6:8], unix.NLM_F_REQUEST)

	// ifinfomsg stays zeroed: family AF_UNSPEC, index 0 (lookup is by name)

	attr := unix.NLMSG_HDRLEN + unix.SizeofIfInfomsg
	binary.NativeEndian.PutUint16(buf[attr:attr+2], uint16(attrLen))
	binary.NativeEndian.PutUint16(buf[attr+2:attr+4], unix.IFLA_IFNAME)
	copy(buf[attr+unix.SizeofRtAttr:], ifname) // trailing NUL is already zero

	return buf
}
