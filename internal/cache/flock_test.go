package cache

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireLockAndRelease(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "usage.lock")

	lock, err := AcquireLock(lockPath, time.Second)
	require.NoError(t, err)
	lock.Release()

	// the lock file stays behind after release, re-creation is idempotent
	_, err = os.Stat(lockPath)
	assert.NoError(t, err)

	lock2, err := AcquireLock(lockPath, time.Second)
	require.NoError(t, err)
	lock2.Release()
}

func TestAcquireLockTimesOutUnderContention(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "stats.lock")

	holder, err := AcquireLock(lockPath, time.Second)
	require.NoError(t, err)

	start := time.Now()
	_, err = AcquireLock(lockPath, 300*time.Millisecond)
	assert.True(t, errors.Is(err, ErrLockTimeout))
	assert.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)

	holder.Release()
	contender, err := AcquireLock(lockPath, time.Second)
	require.NoError(t, err)
	contender.Release()
}

func TestAcquireLockCreatesParentDirs(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "ab", "stats.lock")

	lock, err := AcquireLock(lockPath, 0) // zero timeout waits indefinitely
	require.NoError(t, err)
	lock.Release()
}
