package kv

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func testRoundTrip(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := store.Load(ctx, KeyControls); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound before save, got %v", err)
	}
	if err := store.Save(ctx, KeyControls, []byte(`[{"id":"c1"}]`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	payload, err := store.Load(ctx, KeyControls)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(payload) != `[{"id":"c1"}]` {
		t.Fatalf("unexpected payload %s", payload)
	}

	if err := store.Save(ctx, KeyControls, []byte(`[]`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	payload, err = store.Load(ctx, KeyControls)
	if err != nil {
		t.Fatalf("load after overwrite: %v", err)
	}
	if string(payload) != `[]` {
		t.Fatalf("overwrite not observed: %s", payload)
	}

	if err := store.Delete(ctx, KeyControls); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Load(ctx, KeyControls); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.Delete(ctx, KeyControls); err != nil {
		t.Fatalf("delete of absent key should be a no-op, got %v", err)
	}
}

func TestMemoryRoundTrip(t *testing.T) {
	testRoundTrip(t, NewMemory())
}

func TestMemoryLoadReturnsCopy(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	if err := store.Save(ctx, KeySession, []byte(`{"id":"u1"}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	payload, err := store.Load(ctx, KeySession)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	payload[0] = 'X'
	again, err := store.Load(ctx, KeySession)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if string(again) != `{"id":"u1"}` {
		t.Fatalf("stored payload mutated through returned slice: %s", again)
	}
}

func TestFileRoundTrip(t *testing.T) {
	store, err := NewFile(t.TempDir())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	testRoundTrip(t, store)
}

func TestFileRejectsTraversalKeys(t *testing.T) {
	store, err := NewFile(t.TempDir())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	ctx := context.Background()
	for _, key := range []string{"..", "../escape", "/abs"} {
		if err := store.Save(ctx, key, []byte("x")); err == nil {
			t.Fatalf("expected rejection for key %q", key)
		}
	}
}

func TestFileSurvivesReopen(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()
	first, err := NewFile(root)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	if err := first.Save(ctx, KeyControls, []byte(`[{"id":"c1"}]`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	second, err := NewFile(root)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	payload, err := second.Load(ctx, KeyControls)
	if err != nil {
		t.Fatalf("load after reopen: %v", err)
	}
	if string(payload) != `[{"id":"c1"}]` {
		t.Fatalf("unexpected payload %s", payload)
	}
	if _, err := os.Stat(filepath.Join(root, KeyControls+".json")); err != nil {
		t.Fatalf("expected one document per key on disk: %v", err)
	}
}

func TestSQLiteRoundTrip(t *testing.T) {
	store, err := NewSQLite(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("new sqlite store: %v", err)
	}
	defer func() { _ = store.Close() }()
	testRoundTrip(t, store)
}

func TestSQLiteSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	ctx := context.Background()
	first, err := NewSQLite(path)
	if err != nil {
		t.Fatalf("new sqlite store: %v", err)
	}
	if err := first.Save(ctx, KeySession, []byte(`{"id":"u1"}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	second, err := NewSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = second.Close() }()
	payload, err := second.Load(ctx, KeySession)
	if err != nil {
		t.Fatalf("load after reopen: %v", err)
	}
	if string(payload) != `{"id":"u1"}` {
		t.Fatalf("unexpected payload %s", payload)
	}
}

func TestOpenDefaultsToFile(t *testing.T) {
	t.Setenv(EnvStorageDriver, "")
	t.Setenv(EnvFileRoot, t.TempDir())
	store, err := Open(context.Background())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if store.Driver() != DriverFile {
		t.Fatalf("expected file driver, got %s", store.Driver())
	}
}

func TestOpenSelectsMemory(t *testing.T) {
	t.Setenv(EnvStorageDriver, "memory")
	store, err := Open(context.Background())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if store.Driver() != DriverMemory {
		t.Fatalf("expected memory driver, got %s", store.Driver())
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	t.Setenv(EnvStorageDriver, "etcd")
	if _, err := Open(context.Background()); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}
