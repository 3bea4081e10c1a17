package assets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/snapseek/snapseek/internal/domain"
)

type mockBlob struct {
	mu     sync.Mutex
	puts   int
	err    error
	lastID string
}

func (m *mockBlob) Put(_ context.Context, id string, _ []byte, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	m.lastID = id
	return m.err
}

func (m *mockBlob) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts
}

func newTestManager(t *testing.T, blob BlobStore, retention time.Duration, dev bool) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		Dir:       t.TempDir(),
		Retention: retention,
		DevMode:   dev,
	}, blob, zap.NewNop())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(m.Close)
	return m
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestLocalSave_BecomesAvailable(t *testing.T) {
	m := newTestManager(t, nil, time.Minute, true)

	m.BeginLocalSave("img-1", []byte("jpeg bytes"))

	// Immediately after the call the state is defined: pending or a
	// completion state, never unknown.
	if st := m.Status("img-1"); st == StatusUnknown {
		t.Fatalf("status undefined right after BeginLocalSave: %v", st)
	}

	eventually(t, func() bool { return m.Status("img-1") == StatusAvailable },
		"save never became available")

	data, err := m.Open("img-1")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if string(data) != "jpeg bytes" {
		t.Fatalf("wrong bytes: %q", data)
	}
}

func TestLocalSave_FailureMarksFailed(t *testing.T) {
	m := newTestManager(t, nil, time.Minute, true)
	// Make the directory unwritable by replacing it with a file path.
	m.cfg.Dir = filepath.Join(m.cfg.Dir, "not-a-dir", "missing")

	m.BeginLocalSave("img-2", []byte("x"))
	eventually(t, func() bool { return m.Status("img-2") == StatusFailed },
		"failed save never marked failed")

	if _, err := m.Open("img-2"); !errors.Is(err, domain.ErrAssetNotFound) {
		t.Fatalf("want ErrAssetNotFound, got %v", err)
	}
}

func TestOpen_UnknownID(t *testing.T) {
	m := newTestManager(t, nil, time.Minute, true)
	if _, err := m.Open("never-saved"); !errors.Is(err, domain.ErrAssetNotFound) {
		t.Fatalf("want ErrAssetNotFound, got %v", err)
	}
}

func TestDurableUpload_EvictsAfterRetention(t *testing.T) {
	blob := &mockBlob{}
	m := newTestManager(t, blob, 20*time.Millisecond, false)

	m.BeginLocalSave("img-3", []byte("x"))
	eventually(t, func() bool { return m.Status("img-3") == StatusAvailable },
		"save never became available")

	m.BeginDurableUpload("img-3", []byte("x"))
	eventually(t, func() bool { return blob.calls() == 1 }, "upload never ran")
	eventually(t, func() bool { return m.Status("img-3") == StatusFailed },
		"eviction never fired")

	if _, err := os.Stat(filepath.Join(m.cfg.Dir, "img-3.jpg")); !os.IsNotExist(err) {
		t.Fatal("local file survived eviction")
	}
}

func TestDurableUpload_SkippedInDevMode(t *testing.T) {
	blob := &mockBlob{}
	m := newTestManager(t, blob, 10*time.Millisecond, true)

	m.BeginLocalSave("img-4", []byte("x"))
	m.BeginDurableUpload("img-4", []byte("x"))

	eventually(t, func() bool { return m.Status("img-4") == StatusAvailable },
		"save never became available")
	time.Sleep(30 * time.Millisecond)

	if blob.calls() != 0 {
		t.Fatal("upload ran in dev mode")
	}
	if m.Status("img-4") != StatusAvailable {
		t.Fatal("asset evicted without upload")
	}
}

func TestDurableUpload_FailureKeepsLocalCopy(t *testing.T) {
	blob := &mockBlob{err: errors.New("bucket on fire")}
	m := newTestManager(t, blob, 10*time.Millisecond, false)

	m.BeginLocalSave("img-5", []byte("x"))
	eventually(t, func() bool { return m.Status("img-5") == StatusAvailable },
		"save never became available")

	m.BeginDurableUpload("img-5", []byte("x"))
	eventually(t, func() bool { return blob.calls() == 1 }, "upload never ran")
	time.Sleep(30 * time.Millisecond)

	// No eviction timer was armed: the local copy must still be served.
	if _, err := m.Open("img-5"); err != nil {
		t.Fatalf("local copy lost after failed upload: %v", err)
	}
}

func TestDelete_Idempotent(t *testing.T) {
	m := newTestManager(t, nil, time.Minute, true)

	m.BeginLocalSave("img-6", []byte("x"))
	eventually(t, func() bool { return m.Status("img-6") == StatusAvailable },
		"save never became available")

	if err := m.Delete("img-6"); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := m.Delete("img-6"); err != nil {
		t.Fatalf("second delete must be a no-op, got: %v", err)
	}
	if m.Status("img-6") != StatusFailed {
		t.Fatal("deleted asset not marked failed")
	}
}

func TestDelete_CancelsEvictionTimer(t *testing.T) {
	blob := &mockBlob{}
	m := newTestManager(t, blob, 50*time.Millisecond, false)

	m.BeginLocalSave("img-7", []byte("x"))
	eventually(t, func() bool { return m.Status("img-7") == StatusAvailable },
		"save never became available")
	m.BeginDurableUpload("img-7", []byte("x"))
	eventually(t, func() bool { return blob.calls() == 1 }, "upload never ran")

	if err := m.Delete("img-7"); err != nil {
		t.Fatalf("explicit delete: %v", err)
	}
	// The armed timer firing later against the already-deleted asset
	// must not error or resurrect state.
	time.Sleep(80 * time.Millisecond)
	if m.Status("img-7") != StatusFailed {
		t.Fatal("status changed after cancelled timer window")
	}
}
