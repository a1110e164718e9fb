package cache

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dmdcache/dmdcache/internal/common"
)

const usageFileName = "usage"

// UsageTracker persists an approximate total of all entry sizes in a single
// integer file. It's a cache of the truth, not a ledger: entries evicted by
// hand or written by a crashed process make it drift, and eviction rewrites
// it from an actual disk scan. The drift is bounded by the eviction trigger.
type UsageTracker struct {
	rootDir     string
	limitBytes  int64
	lockTimeout time.Duration
}

func MakeUsageTracker(cfg *Config) *UsageTracker {
	return &UsageTracker{
		rootDir:     cfg.RootDir,
		limitBytes:  cfg.LimitBytes,
		lockTimeout: cfg.LockTimeout,
	}
}

func (tracker *UsageTracker) usageFile() string {
	return filepath.Join(tracker.rootDir, usageFileName)
}

// RecordAddition adds a freshly committed entry's size to the persisted total
// and, if the ceiling is now exceeded, runs eviction synchronously before
// returning, still under the usage lock.
func (tracker *UsageTracker) RecordAddition(entrySize int64) error {
	lock, err := AcquireLock(tracker.usageFile()+".lock", tracker.lockTimeout)
	if err != nil {
		return err
	}
	defer lock.Release()

	total := tracker.readUsage() + entrySize
	if err = tracker.writeUsage(total); err != nil {
		return err
	}

	if total > tracker.limitBytes {
		return tracker.evictLocked()
	}
	return nil
}

// CurrentUsage reads the persisted total under the usage lock.
func (tracker *UsageTracker) CurrentUsage() (int64, error) {
	lock, err := AcquireLock(tracker.usageFile()+".lock", tracker.lockTimeout)
	if err != nil {
		return 0, err
	}
	defer lock.Release()
	return tracker.readUsage(), nil
}

// Clean recomputes usage from disk and evicts if over the ceiling.
// This is the administrative entry point (`dmdcache clean`).
func (tracker *UsageTracker) Clean() error {
	lock, err := AcquireLock(tracker.usageFile()+".lock", tracker.lockTimeout)
	if err != nil {
		return err
	}
	defer lock.Release()
	return tracker.evictLocked()
}

// readUsage tolerates a missing or garbled file, starting over at zero.
func (tracker *UsageTracker) readUsage() int64 {
	contents, err := os.ReadFile(tracker.usageFile())
	if err != nil {
		return 0
	}
	total, err := strconv.ParseInt(strings.TrimSpace(string(contents)), 10, 64)
	if err != nil {
		return 0
	}
	return total
}

func (tracker *UsageTracker) writeUsage(total int64) error {
	return common.WriteFileAtomically(tracker.usageFile(), []byte(strconv.FormatInt(total, 10)+"\n"))
}
