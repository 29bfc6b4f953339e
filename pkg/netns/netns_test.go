package netns

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	vishns "github.com/vishvananda/netns"
)

// stubInterfaceManager records loopback bring-up calls and can be made to fail.
type stubInterfaceManager struct {
	err   error
	calls []string
}

func (s *stubInterfaceManager) BringUpInterface(ifname string) error {
	s.calls = append(s.calls, ifname)
	return s.err
}

func newTestManager(t *testing.T, netIf InterfaceManager) *Manager {
	t.Helper()

	mgr, err := NewManager(netIf, &Config{RuntimeDir: filepath.Join(t.TempDir(), "netns")})
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	return mgr
}

func requireRoot(t *testing.T) {
	t.Helper()

	if os.Geteuid() != 0 {
		t.Skip("requires root for unshare/mount")
	}
}

// TestNewManagerCreatesRuntimeDir tests runtime directory setup
func TestNewManagerCreatesRuntimeDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "netns")

	if _, err := NewManager(&stubInterfaceManager{}, &Config{RuntimeDir: dir}); err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("runtime dir not created: %v", err)
	}
	if !info.IsDir() {
		t.Errorf("runtime dir is not a directory")
	}
}

// TestGetNetworkNamespacePath tests pure path computation
func TestGetNetworkNamespacePath(t *testing.T) {
	mgr := newTestManager(t, &stubInterfaceManager{})

	path := mgr.GetNetworkNamespacePath("ns1")

	if filepath.Base(path) != "ns1" {
		t.Errorf("basename = %q, want %q", filepath.Base(path), "ns1")
	}
	if filepath.Dir(path) != mgr.runtimeDir {
		t.Errorf("dir = %q, want %q", filepath.Dir(path), mgr.runtimeDir)
	}

	// No existence check: the path is returned for absent namespaces too
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected namespace to be absent, stat err = %v", err)
	}
}

// TestDeleteAbsentNamespace tests idempotent delete
func TestDeleteAbsentNamespace(t *testing.T) {
	mgr := newTestManager(t, &stubInterfaceManager{})

	if err := mgr.DeleteNetworkNamespace("never-created"); err != nil {
		t.Errorf("DeleteNetworkNamespace() on absent name = %v, want nil", err)
	}
}

// TestCreateExistingFileFastPath tests the idempotent create fast path.
// A pre-existing file short-circuits before any kernel work, so no loopback
// bring-up happens and no privilege is needed.
func TestCreateExistingFileFastPath(t *testing.T) {
	stub := &stubInterfaceManager{}
	mgr := newTestManager(t, stub)

	path := mgr.GetNetworkNamespacePath("pre-existing")
	if err := os.WriteFile(path, nil, 0o444); err != nil {
		t.Fatalf("failed to seed namespace file: %v", err)
	}

	if err := mgr.CreateNetworkNamespace("pre-existing"); err != nil {
		t.Fatalf("CreateNetworkNamespace() = %v, want nil", err)
	}
	if len(stub.calls) != 0 {
		t.Errorf("loopback brought up %d times on fast path, want 0", len(stub.calls))
	}
}

// TestListNamespaces tests directory listing
func TestListNamespaces(t *testing.T) {
	mgr := newTestManager(t, &stubInterfaceManager{})

	for _, name := range []string{"ns-a", "ns-b"} {
		if err := os.WriteFile(mgr.GetNetworkNamespacePath(name), nil, 0o444); err != nil {
			t.Fatalf("failed to seed namespace file: %v", err)
		}
	}

	names, err := mgr.ListNamespaces()
	if err != nil {
		t.Fatalf("ListNamespaces() error = %v", err)
	}
	if len(names) != 2 {
		t.Errorf("ListNamespaces() = %v, want 2 names", names)
	}
}

// TestCreateDeleteRoundTrip tests the full namespace lifecycle against the
// real kernel, including both idempotent paths.
func TestCreateDeleteRoundTrip(t *testing.T) {
	requireRoot(t)

	stub := &stubInterfaceManager{}
	mgr := newTestManager(t, stub)

	if err := mgr.CreateNetworkNamespace("test-ns"); err != nil {
		t.Fatalf("CreateNetworkNamespace() error = %v", err)
	}

	path := mgr.GetNetworkNamespacePath("test-ns")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("namespace file missing after create: %v", err)
	}
	if len(stub.calls) != 1 || stub.calls[0] != "lo" {
		t.Errorf("loopback calls = %v, want [lo]", stub.calls)
	}

	// Second create is an idempotent success and leaves one file
	if err := mgr.CreateNetworkNamespace("test-ns"); err != nil {
		t.Fatalf("second CreateNetworkNamespace() error = %v", err)
	}
	if len(stub.calls) != 1 {
		t.Errorf("loopback brought up again on idempotent create")
	}

	if err := mgr.DeleteNetworkNamespace("test-ns"); err != nil {
		t.Fatalf("DeleteNetworkNamespace() error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("namespace file still present after delete, stat err = %v", err)
	}

	// Second delete is an idempotent success
	if err := mgr.DeleteNetworkNamespace("test-ns"); err != nil {
		t.Errorf("second DeleteNetworkNamespace() error = %v", err)
	}
}

// TestCreateCleanupOnLoopbackFailure tests the cleanup invariant: a failing
// loopback bring-up must fail the create AND leave no namespace file behind.
func TestCreateCleanupOnLoopbackFailure(t *testing.T) {
	requireRoot(t)

	wantErr := errors.New("loopback is broken")
	mgr := newTestManager(t, &stubInterfaceManager{err: wantErr})

	err := mgr.CreateNetworkNamespace("half-built")
	if !errors.Is(err, wantErr) {
		t.Fatalf("CreateNetworkNamespace() error = %v, want %v", err, wantErr)
	}

	path := mgr.GetNetworkNamespacePath("half-built")
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Fatalf("partial namespace file leaked at %s, stat err = %v", path, statErr)
	}
}

// TestCreateRestoresCallingThread tests that the calling thread observes its
// original namespace after create returns, success and failure alike.
func TestCreateRestoresCallingThread(t *testing.T) {
	requireRoot(t)

	// Pin the test goroutine so before/after handles describe one OS thread.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	before, err := vishns.Get()
	if err != nil {
		t.Fatalf("failed to get current namespace: %v", err)
	}
	defer before.Close()

	mgr := newTestManager(t, &stubInterfaceManager{})
	if err := mgr.CreateNetworkNamespace("restore-check"); err != nil {
		t.Fatalf("CreateNetworkNamespace() error = %v", err)
	}
	defer mgr.DeleteNetworkNamespace("restore-check")

	after, err := vishns.Get()
	if err != nil {
		t.Fatalf("failed to get namespace after create: %v", err)
	}
	defer after.Close()

	if !before.Equal(after) {
		t.Errorf("calling thread left in a different namespace: %s != %s", before, after)
	}

	// Failure path restores too
	failing := &stubInterfaceManager{err: errors.New("boom")}
	mgr2 := newTestManager(t, failing)
	if err := mgr2.CreateNetworkNamespace("restore-check-2"); err == nil {
		t.Fatal("CreateNetworkNamespace() with failing loopback succeeded")
	}

	afterFail, err := vishns.Get()
	if err != nil {
		t.Fatalf("failed to get namespace after failed create: %v", err)
	}
	defer afterFail.Close()

	if !before.Equal(afterFail) {
		t.Errorf("calling thread left in a different namespace after failure")
	}
}
