/*
Package netns manages named network namespaces for Burrow instances.

Each namespace is published as a bind-mounted file under a runtime directory
(/run/netns by default), named exactly as the caller's namespace identifier.
The layout matches standard Linux namespace tooling, so namespaces created
here are visible to `ip netns` and can be handed to a container runtime as a
netns path.

# Lifecycle

	absent ──CreateNetworkNamespace──▶ created ──DeleteNetworkNamespace──▶ absent

Creation captures the calling thread's original namespace, unshares a new
network namespace, publishes it by bind-mounting the thread's
/proc/<pid>/task/<tid>/ns/net entry onto an exclusively created file, brings
up loopback through the netiface collaborator, and restores the original
namespace. Any failure after the unshare removes the partial file: a
namespace file exists if and only if the namespace is usable.

Both create (name exists) and delete (name absent) are idempotent successes,
letting the orchestrator retry instance setup and teardown blindly.

# Thread affinity

unshare(CLONE_NEWNET) and setns(2) act on the calling OS thread only. The
creation sequence pins its goroutine with runtime.LockOSThread for the whole
unshare/mount/restore window. If restoring the original namespace fails, the
thread is left locked so the Go runtime retires it with the goroutine rather
than scheduling unrelated goroutines onto a thread stuck in the wrong
namespace.

# Concurrency

Creating different names concurrently is safe (independent files). Two
concurrent creators of the same name race on the exclusive file create; the
loser gets an EEXIST-backed error from that sub-step, distinct from the
idempotent fast path that applies when the file already exists at entry.
*/
package netns
