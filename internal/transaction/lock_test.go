package transaction

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestAcquireLock(t *testing.T) {
	t.Run("creates lock file", func(t *testing.T) {
		dir := t.TempDir()
		ctx := context.Background()

		lock, err := AcquireLock(ctx, dir, 0)
		if err != nil {
			t.Fatalf("AcquireLock failed: %v", err)
		}
		defer lock.Release()

		lockPath := filepath.Join(dir, LockFileName)
		if lock.path != lockPath {
			t.Errorf("expected lock path %s, got %s", lockPath, lock.path)
		}
		data, err := os.ReadFile(lockPath)
		if err != nil {
			t.Fatalf("failed to read lock file: %v", err)
		}
		if len(data) == 0 {
			t.Error("lock file should contain metadata")
		}
	})

	t.Run("prevents concurrent locks", func(t *testing.T) {
		dir := t.TempDir()
		ctx := context.Background()

		lock1, err := AcquireLock(ctx, dir, 0)
		if err != nil {
			t.Fatalf("first AcquireLock failed: %v", err)
		}
		defer lock1.Release()

		_, err = AcquireLock(ctx, dir, 0)
		if !errors.Is(err, ErrLockExists) {
			t.Errorf("expected ErrLockExists, got %v", err)
		}
	})

	t.Run("gives up after waiting", func(t *testing.T) {
		dir := t.TempDir()
		ctx := context.Background()

		lock1, err := AcquireLock(ctx, dir, 0)
		if err != nil {
			t.Fatalf("first AcquireLock failed: %v", err)
		}
		defer lock1.Release()

		start := time.Now()
		_, err = AcquireLock(ctx, dir, 300*time.Millisecond)
		if !errors.Is(err, ErrLockExists) {
			t.Errorf("expected ErrLockExists, got %v", err)
		}
		if time.Since(start) < 200*time.Millisecond {
			t.Error("AcquireLock returned before the wait elapsed")
		}
	})

	t.Run("waits for release", func(t *testing.T) {
		dir := t.TempDir()
		ctx := context.Background()

		lock1, err := AcquireLock(ctx, dir, 0)
		if err != nil {
			t.Fatalf("first AcquireLock failed: %v", err)
		}
		go func() {
			time.Sleep(100 * time.Millisecond)
			lock1.Release()
		}()

		lock2, err := AcquireLock(ctx, dir, 10*time.Second)
		if err != nil {
			t.Fatalf("AcquireLock should succeed once released: %v", err)
		}
		defer lock2.Release()
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		dir := t.TempDir()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := AcquireLock(ctx, dir, time.Second)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("creates directory if needed", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "install")

		lock, err := AcquireLock(context.Background(), dir, 0)
		if err != nil {
			t.Fatalf("AcquireLock failed: %v", err)
		}
		defer lock.Release()

		if _, err := os.Stat(dir); os.IsNotExist(err) {
			t.Error("directory not created")
		}
	})
}

func TestLockRelease(t *testing.T) {
	t.Run("removes lock file and is idempotent", func(t *testing.T) {
		dir := t.TempDir()

		lock, err := AcquireLock(context.Background(), dir, 0)
		if err != nil {
			t.Fatalf("AcquireLock failed: %v", err)
		}

		if err := lock.Release(); err != nil {
			t.Fatalf("first Release failed: %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, LockFileName)); !os.IsNotExist(err) {
			t.Error("lock file should be removed after release")
		}
		if err := lock.Release(); err != nil {
			t.Fatalf("second Release should not error: %v", err)
		}
	})
}

func TestStaleLockHandling(t *testing.T) {
	writeLock := func(t *testing.T, dir string, age time.Duration) {
		t.Helper()
		lockPath := filepath.Join(dir, LockFileName)
		if err := os.WriteFile(lockPath, []byte("pid=99999\ntimestamp=2020-01-01T00:00:00Z\n"), 0o600); err != nil {
			t.Fatalf("failed to create lock: %v", err)
		}
		mtime := time.Now().Add(-age)
		if err := os.Chtimes(lockPath, mtime, mtime); err != nil {
			t.Fatalf("failed to set lock time: %v", err)
		}
	}

	t.Run("removes stale lock and acquires new one", func(t *testing.T) {
		dir := t.TempDir()
		writeLock(t, dir, StaleLockThreshold+time.Minute)

		lock, err := AcquireLock(context.Background(), dir, 0)
		if err != nil {
			t.Fatalf("AcquireLock should succeed with stale lock: %v", err)
		}
		defer lock.Release()
	})

	t.Run("fails for non-stale lock", func(t *testing.T) {
		dir := t.TempDir()
		writeLock(t, dir, 0)

		if _, err := AcquireLock(context.Background(), dir, 0); !errors.Is(err, ErrLockExists) {
			t.Errorf("expected ErrLockExists, got %v", err)
		}
	})
}
