package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/flock"

	"github.com/dmdcache/dmdcache/internal/common"
)

// lockRetryInterval is how often a contended lock is retried until the timeout.
const lockRetryInterval = 100 * time.Millisecond

// ScopedLock is an advisory cross-process lock over a named lock file.
// Concurrency in this system exists only across wrapper processes
// (parallel build jobs), so in-process mutexes can't serialize anything here.
// The lock file itself is never deleted: deleting it would race with another
// process opening it, re-creation is idempotent instead.
type ScopedLock struct {
	fl *flock.Flock
}

// AcquireLock takes an exclusive lock on lockPath, retrying every
// lockRetryInterval. A zero timeout waits indefinitely.
// Returns ErrLockTimeout (wrapped) if the deadline elapses first.
func AcquireLock(lockPath string, timeout time.Duration) (*ScopedLock, error) {
	if err := common.MkdirForFile(lockPath); err != nil {
		return nil, err
	}

	ctx := context.Background()
	cancel := func() {}
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	fl := flock.New(lockPath)
	locked, err := fl.TryLockContext(ctx, lockRetryInterval)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, lockPath)
		}
		return nil, err
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrLockTimeout, lockPath)
	}
	return &ScopedLock{fl: fl}, nil
}

// Release unlocks and closes the underlying handle. Safe to defer
// immediately after a successful AcquireLock.
func (lock *ScopedLock) Release() {
	_ = lock.fl.Unlock()
}
