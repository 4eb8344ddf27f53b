package transaction

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeLock plants a lock file held by pid, last touched at mtime.
func writeLock(t *testing.T, dir string, pid int, mtime time.Time) string {
	t.Helper()
	path := filepath.Join(dir, LockFileName)
	if err := os.WriteFile(path, []byte(fmt.Sprintf("pid=%d\ntimestamp=%s\n", pid, mtime.UTC().Format(time.RFC3339))), 0600); err != nil {
		t.Fatalf("write lock: %v", err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("set lock time: %v", err)
	}
	return path
}

func TestAcquireLock(t *testing.T) {
	t.Run("records holder", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "data")

		lock, err := AcquireLock(context.Background(), dir)
		if err != nil {
			t.Fatalf("AcquireLock failed: %v", err)
		}
		defer lock.Release()

		data, err := os.ReadFile(filepath.Join(dir, LockFileName))
		if err != nil {
			t.Fatalf("lock file not created: %v", err)
		}
		if want := fmt.Sprintf("pid=%d\n", os.Getpid()); !strings.HasPrefix(string(data), want) {
			t.Errorf("lock content = %q, want prefix %q", data, want)
		}
	})

	t.Run("second holder fails fast", func(t *testing.T) {
		dir := t.TempDir()
		lock, err := AcquireLock(context.Background(), dir)
		if err != nil {
			t.Fatalf("first AcquireLock failed: %v", err)
		}
		defer lock.Release()

		if _, err := AcquireLock(context.Background(), dir); !errors.Is(err, ErrLockExists) {
			t.Errorf("expected ErrLockExists, got %v", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := AcquireLock(ctx, t.TempDir()); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestLockRelease(t *testing.T) {
	dir := t.TempDir()

	lock, err := AcquireLock(context.Background(), dir)
	if err != nil {
		t.Fatalf("AcquireLock failed: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("second Release should be a no-op: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, LockFileName)); !os.IsNotExist(err) {
		t.Error("lock file should be removed after release")
	}

	again, err := AcquireLock(context.Background(), dir)
	if err != nil {
		t.Fatalf("AcquireLock after release failed: %v", err)
	}
	again.Release()
}

func TestStaleLockHandling(t *testing.T) {
	// Far above any pid a test machine hands out.
	const deadPID = 2147483000

	tests := []struct {
		name    string
		pid     int
		age     time.Duration
		wantErr error
	}{
		{"live holder, fresh", os.Getpid(), 0, ErrLockExists},
		{"live holder, expired", os.Getpid(), StaleLockThreshold + time.Minute, nil},
		{"dead holder, fresh", deadPID, 0, nil},
		{"unreadable holder, fresh", 0, 0, ErrLockExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeLock(t, dir, tt.pid, time.Now().Add(-tt.age))

			lock, err := AcquireLock(context.Background(), dir)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("AcquireLock error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("AcquireLock should replace the stale lock: %v", err)
			}
			lock.Release()
		})
	}
}

func TestTakeOver(t *testing.T) {
	t.Run("removes stale lock", func(t *testing.T) {
		dir := t.TempDir()
		path := writeLock(t, dir, os.Getpid(), time.Now().Add(-StaleLockThreshold-time.Minute))

		if !takeOver(path) {
			t.Fatal("takeOver = false for a stale lock")
		}
		entries, _ := os.ReadDir(dir)
		if len(entries) != 0 {
			t.Errorf("expected empty dir, found %d entries", len(entries))
		}
	})

	t.Run("restores a fresh lock", func(t *testing.T) {
		// A competing process already replaced the stale lock with its own.
		dir := t.TempDir()
		path := writeLock(t, dir, os.Getpid(), time.Now())

		if takeOver(path) {
			t.Fatal("takeOver = true for a fresh lock")
		}
		if pid, ok := lockHolder(path); !ok || pid != os.Getpid() {
			t.Errorf("lock not restored: pid=%d ok=%v", pid, ok)
		}
		entries, _ := os.ReadDir(dir)
		if len(entries) != 1 {
			t.Errorf("expected only the lock file, found %d entries", len(entries))
		}
	})
}

func TestAcquireLockWaitsForRelease(t *testing.T) {
	dir := t.TempDir()

	held, err := AcquireLock(context.Background(), dir)
	if err != nil {
		t.Fatalf("AcquireLock failed: %v", err)
	}

	go func() {
		time.Sleep(150 * time.Millisecond)
		held.Release()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	lock, err := AcquireLock(ctx, dir)
	if err != nil {
		t.Fatalf("waiting AcquireLock failed: %v", err)
	}
	lock.Release()
}

func TestAcquireLockDeadlineExpires(t *testing.T) {
	dir := t.TempDir()

	held, err := AcquireLock(context.Background(), dir)
	if err != nil {
		t.Fatalf("AcquireLock failed: %v", err)
	}
	defer held.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()

	if _, err := AcquireLock(ctx, dir); err != ErrLockExists {
		t.Errorf("expected ErrLockExists after deadline, got %v", err)
	}
}
