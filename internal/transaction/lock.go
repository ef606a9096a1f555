package transaction

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff"
)

const (
	// StaleLockThreshold is the maximum age of a lock before it's considered stale.
	StaleLockThreshold = 10 * time.Minute

	// LockFileName is the lock file created inside the install directory.
	LockFileName = "install.lock"

	lockPollInterval = 250 * time.Millisecond
)

var (
	ErrLockExists = errors.New("install lock exists: another install may be in progress")
)

// Lock represents an install lock.
type Lock struct {
	path string
	file *os.File
}

// AcquireLock takes the exclusive install lock in dir. When the lock is
// held by someone else it polls for up to wait before giving up with
// ErrLockExists; a zero wait tries exactly once.
func AcquireLock(ctx context.Context, dir string, wait time.Duration) (*Lock, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	lockPath := filepath.Join(dir, LockFileName)
	if wait <= 0 {
		return tryLock(lockPath)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = lockPollInterval
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = wait

	var lock *Lock
	err := backoff.Retry(func() error {
		l, err := tryLock(lockPath)
		if errors.Is(err, ErrLockExists) {
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		lock = l
		return nil
	}, backoff.WithContext(b, ctx))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("context cancelled: %w", ctxErr)
		}
		return nil, err
	}
	return lock, nil
}

// tryLock uses O_CREATE|O_EXCL for atomic lock creation.
func tryLock(lockPath string) (*Lock, error) {
	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o600)
	if err != nil {
		if !os.IsExist(err) {
			return nil, fmt.Errorf("create lock file: %w", err)
		}
		// Lock exists - reclaim it only if it is stale
		if isStale, _ := isLockStale(lockPath); !isStale {
			return nil, ErrLockExists
		}
		os.Remove(lockPath)
		file, err = os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o600)
		if err != nil {
			return nil, ErrLockExists
		}
	}

	// Write lock metadata (PID and timestamp)
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

// Release releases the lock.
func (l *Lock) Release() error {
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}

	if l.path != "" {
		if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove lock file: %w", err)
		}
		l.path = ""
	}

	return nil
}

// isLockStale checks if a lock file is older than the stale lock threshold.
func isLockStale(lockPath string) (bool, error) {
	info, err := os.Stat(lockPath)
	if err != nil {
		return false, err
	}

	age := time.Since(info.ModTime())
	return age > StaleLockThreshold, nil
}
