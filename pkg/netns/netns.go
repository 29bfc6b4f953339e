package netns

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/rs/zerolog"
	vishns "github.com/vishvananda/netns"
	"golang.org/x/sys/unix"

	"github.com/burrownet/burrow/pkg/log"
	"github.com/burrownet/burrow/pkg/metrics"
)

// DefaultRuntimeDir is where namespace files are published by default.
// The layout is compatible with `ip netns` and other standard tooling.
const DefaultRuntimeDir = "/run/netns"

// loopback is brought up inside every new namespace so intra-namespace
// localhost traffic works.
const loopback = "lo"

// InterfaceManager is the collaborator used to activate interfaces inside
// freshly created namespaces.
type InterfaceManager interface {
	BringUpInterface(ifname string) error
}

// Config holds namespace manager configuration
type Config struct {
	// RuntimeDir overrides the namespace directory. Tests point this at a
	// temp dir; production leaves it empty for /run/netns.
	RuntimeDir string
}

// Manager creates, locates, and deletes named network namespaces.
//
// Each namespace is published as a regular file under the runtime directory,
// bind-mounted over the creating thread's /proc/<pid>/task/<tid>/ns/net
// entry. A namespace exists exactly when its file exists; existence is a
// filesystem check, never a kernel inode comparison.
type Manager struct {
	runtimeDir string
	netIf      InterfaceManager
	logger     zerolog.Logger
}

// NewManager creates a namespace manager and ensures the runtime directory
// exists. The directory is process-wide shared state created once here, not
// lazily on first use, so permission problems surface at startup.
func NewManager(netIf InterfaceManager, cfg *Config) (*Manager, error) {
	dir := DefaultRuntimeDir
	if cfg != nil && cfg.RuntimeDir != "" {
		dir = cfg.RuntimeDir
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create runtime directory %s: %w", dir, err)
	}

	return &Manager{
		runtimeDir: dir,
		netIf:      netIf,
		logger:     log.WithComponent("netns"),
	}, nil
}

// CreateNetworkNamespace creates a named network namespace and publishes it
// under the runtime directory. If the namespace file already exists the call
// succeeds immediately, so instance setup can be retried without tracking
// prior state.
//
// The creation sequence (unshare, bind mount, loopback bring-up, restore)
// changes the calling OS thread's namespace membership, so the goroutine is
// pinned to its thread for the whole sequence. On any failure after the
// unshare, the original namespace is restored and the partial namespace file
// is removed; a half-built namespace is never left visible. Cleanup failures
// are logged, never returned, so they cannot mask the original error.
func (m *Manager) CreateNetworkNamespace(ns string) error {
	logger := m.logger.With().Str("name", ns).Logger()
	logger.Debug().Msg("creating network namespace")

	path := filepath.Join(m.runtimeDir, ns)

	if _, err := os.Stat(path); err == nil {
		logger.Debug().Msg("namespace already exists")
		return nil
	}

	runtime.LockOSThread()

	origin, err := vishns.Get()
	if err != nil {
		runtime.UnlockOSThread()
		metrics.NamespaceErrorsTotal.WithLabelValues("create").Inc()
		return fmt.Errorf("failed to open original namespace: %w", err)
	}
	defer origin.Close()

	if err := unix.Unshare(unix.CLONE_NEWNET); err != nil {
		runtime.UnlockOSThread()
		metrics.NamespaceErrorsTotal.WithLabelValues("create").Inc()
		return fmt.Errorf("failed to unshare network namespace: %w", err)
	}

	// The thread now lives in the new namespace until restored.
	err = m.publish(path)

	if restoreErr := vishns.Set(origin); restoreErr != nil {
		// The calling thread is stuck in the wrong namespace. Leave it
		// locked so the runtime retires it with the goroutine instead of
		// scheduling other goroutines onto it.
		logger.Error().Err(restoreErr).Msg("failed to return to original namespace")
		m.unpublish(path, logger)
		if err == nil {
			metrics.NamespacesCreatedTotal.Inc()
		} else {
			metrics.NamespaceErrorsTotal.WithLabelValues("create").Inc()
		}
		return err
	}

	runtime.UnlockOSThread()

	if err != nil {
		logger.Error().Err(err).Msg("failed to create network namespace")
		m.unpublish(path, logger)
		metrics.NamespaceErrorsTotal.WithLabelValues("create").Inc()
		return err
	}

	metrics.NamespacesCreatedTotal.Inc()
	logger.Info().Str("path", path).Msg("network namespace created")

	return nil
}

// GetNetworkNamespacePath returns the filesystem path of the named
// namespace. Pure path computation: no existence check is performed, so
// callers must have created the namespace before relying on the path.
func (m *Manager) GetNetworkNamespacePath(ns string) string {
	return filepath.Join(m.runtimeDir, ns)
}

// DeleteNetworkNamespace unmounts and unlinks the named namespace. A
// namespace that does not exist is not an error, so teardown can be retried
// without tracking prior state.
func (m *Manager) DeleteNetworkNamespace(ns string) error {
	logger := m.logger.With().Str("name", ns).Logger()
	logger.Debug().Msg("deleting network namespace")

	path := filepath.Join(m.runtimeDir, ns)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Debug().Msg("namespace already absent")
		return nil
	}

	// MNT_DETACH so in-flight users of the namespace are not disrupted.
	if err := unix.Unmount(path, unix.MNT_DETACH); err != nil {
		metrics.NamespaceErrorsTotal.WithLabelValues("delete").Inc()
		return fmt.Errorf("failed to unmount namespace: %w", err)
	}

	if err := os.Remove(path); err != nil {
		metrics.NamespaceErrorsTotal.WithLabelValues("delete").Inc()
		return fmt.Errorf("failed to remove namespace file: %w", err)
	}

	metrics.NamespacesDeletedTotal.Inc()
	logger.Info().Msg("network namespace deleted")

	return nil
}

// ListNamespaces returns the names of all namespaces currently published
// under the runtime directory.
func (m *Manager) ListNamespaces() ([]string, error) {
	entries, err := os.ReadDir(m.runtimeDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read runtime directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}

	return names, nil
}

// publish runs inside the new namespace: it creates the placeholder file,
// bind-mounts the calling thread's namespace entry onto it, and brings up
// loopback. The exclusive create makes concurrent creators of the same name
// lose cleanly instead of double-mounting.
func (m *Manager) publish(path string) error {
	fd, err := unix.Open(path, unix.O_CREAT|unix.O_EXCL|unix.O_RDWR|unix.O_CLOEXEC, 0o444)
	if err != nil {
		return fmt.Errorf("failed to create namespace file: %w", err)
	}
	unix.Close(fd)

	src := fmt.Sprintf("/proc/%d/task/%d/ns/net", os.Getpid(), unix.Gettid())

	if err := unix.Mount(src, path, "none", unix.MS_BIND, ""); err != nil {
		return fmt.Errorf("failed to bind mount namespace: %w", err)
	}

	if err := m.netIf.BringUpInterface(loopback); err != nil {
		return fmt.Errorf("failed to bring up loopback: %w", err)
	}

	return nil
}

// unpublish removes a partially created namespace file. Best effort: errors
// are logged, not returned, so they never mask the error that triggered the
// cleanup. The lazy unmount tolerates a file that was never mounted.
func (m *Manager) unpublish(path string, logger zerolog.Logger) {
	if err := unix.Unmount(path, unix.MNT_DETACH); err != nil && err != unix.EINVAL {
		logger.Error().Err(err).Msg("failed to unmount partial namespace")
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Error().Err(err).Msg("failed to remove namespace file")
	}
}
