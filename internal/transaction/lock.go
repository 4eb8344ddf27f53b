package transaction

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/ZebulonRouseFrantzich/grip/internal/log"
)

const (
	// LockFileName is the advisory lock held by every mutating command.
	LockFileName = "grip.lock"

	// StaleLockThreshold is the maximum age of a lock whose holder cannot be
	// checked before it is considered stale.
	StaleLockThreshold = 10 * time.Minute

	// lockPollInterval is how often a waiting process retries the lock.
	lockPollInterval = 100 * time.Millisecond
)

var (
	ErrLockExists = errors.New("data directory is locked: another grip process may be running")
	ErrStaleLock  = errors.New("stale lock detected")
)

// Lock represents a held data-directory lock.
type Lock struct {
	path string
	file *os.File
}

// AcquireLock takes the exclusive lock for dir. Without a context deadline it
// fails immediately with ErrLockExists when the lock is held; with a deadline
// it polls until the deadline passes.
func AcquireLock(ctx context.Context, dir string) (*Lock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	lockPath := filepath.Join(dir, LockFileName)
	_, hasDeadline := ctx.Deadline()

	for {
		lock, err := tryLock(lockPath)
		if err == nil {
			return lock, nil
		}
		if !errors.Is(err, ErrLockExists) || !hasDeadline {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ErrLockExists
		case <-time.After(lockPollInterval):
		}
	}
}

func tryLock(lockPath string) (*Lock, error) {
	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0600)
	if err != nil {
		if !os.IsExist(err) {
			return nil, fmt.Errorf("create lock file: %w", err)
		}
		if !isLockStale(lockPath) || !takeOver(lockPath) {
			return nil, ErrLockExists
		}
		file, err = os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0600)
		if err != nil {
			return nil, ErrLockExists
		}
	}

	lockData := fmt.Sprintf("pid=%d\ntimestamp=%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	if _, err := file.WriteString(lockData); err != nil {
		file.Close()
		os.Remove(lockPath)
		return nil, fmt.Errorf("write lock data: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(lockPath)
		return nil, fmt.Errorf("sync lock file: %w", err)
	}

	return &Lock{
		path: lockPath,
		file: file,
	}, nil
}

// takeOver moves a stale lock aside and reports whether it was removed. If
// another process replaced the stale lock in the meantime, its lock is put
// back and takeOver reports false.
func takeOver(lockPath string) bool {
	aside := fmt.Sprintf("%s.stale-%d", lockPath, os.Getpid())
	if err := os.Rename(lockPath, aside); err != nil {
		return false
	}
	defer os.Remove(aside)

	if !isLockStale(aside) {
		if err := os.Link(aside, lockPath); err != nil && !os.IsExist(err) {
			log.Warn("could not restore lock", "path", lockPath, "error", err)
		}
		return false
	}
	log.Warn("removed stale lock", "path", lockPath)
	return true
}

// Release releases the lock. Calling it more than once is harmless.
func (l *Lock) Release() error {
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}

	if l.path != "" {
		path := l.path
		l.path = ""
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove lock file: %w", err)
		}
	}

	return nil
}

// isLockStale reports whether the lock at lockPath was left behind. A lock
// naming a process that no longer exists is stale at once; otherwise only
// age counts.
func isLockStale(lockPath string) bool {
	info, err := os.Stat(lockPath)
	if err != nil {
		return false
	}
	if pid, ok := lockHolder(lockPath); ok && pid != os.Getpid() {
		alive, err := process.PidExists(int32(pid))
		if err == nil && !alive {
			return true
		}
	}
	return time.Since(info.ModTime()) > StaleLockThreshold
}

// lockHolder reads the pid recorded in a lock file.
func lockHolder(lockPath string) (int, bool) {
	data, err := os.ReadFile(lockPath)
	if err != nil {
		return 0, false
	}
	for _, line := range strings.Split(string(data), "\n") {
		if v, ok := strings.CutPrefix(line, "pid="); ok {
			pid, err := strconv.Atoi(strings.TrimSpace(v))
			return pid, err == nil && pid > 0
		}
	}
	return 0, false
}
