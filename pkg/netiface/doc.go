/*
Package netiface provides low-level control of single network interfaces.

Two operations are exposed, each using the minimum kernel interface required
and nothing above it:

  - RemoveInterface sends an RTM_DELLINK message over a raw NETLINK_ROUTE
    socket, identifying the link by an IFLA_IFNAME attribute. The send is
    fire-and-forget; no acknowledgment is read.
  - BringUpInterface ORs IFF_UP|IFF_RUNNING into the interface flags through
    the SIOCGIFFLAGS/SIOCSIFFLAGS ioctl pair on an AF_INET datagram socket.

Both operations open and deterministically close their socket within the
call; no descriptors or state outlive it. The namespace manager uses
BringUpInterface("lo") inside freshly created namespaces, and teardown paths
use RemoveInterface for veth endpoints.
*/
package netiface
