package cache

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/dmdcache/dmdcache/internal/common"
)

// scannedEntry is one entry directory as seen by an eviction scan.
type scannedEntry struct {
	dir     string
	size    int64
	recency time.Time // artifact mtime, refreshed on every hit
}

// evictLocked is the eviction pass; the caller holds the usage lock.
// It enumerates every entry that has an artifact, and if their total size
// exceeds the ceiling, keeps the most-recently-used entries up to 80% of the
// ceiling and removes the rest. The 80% margin is hysteresis: evicting to the
// exact ceiling would re-trigger on the very next commit.
// Whatever happens, the sum of the kept entries becomes the new persisted
// usage value: the scan is authoritative, the incremental counter is not.
func (tracker *UsageTracker) evictLocked() error {
	entries := tracker.scanEntries()

	total := int64(0)
	for _, entry := range entries {
		total += entry.size
	}
	if total <= tracker.limitBytes {
		return tracker.writeUsage(total)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].recency.After(entries[j].recency)
	})

	softLimit := int64(80.0 * (float64(tracker.limitBytes) / 100.0))
	keptSize := int64(0)
	for i, entry := range entries {
		if keptSize+entry.size > softLimit {
			for _, doomed := range entries[i:] {
				_ = os.RemoveAll(doomed.dir)
			}
			break
		}
		keptSize += entry.size
	}
	return tracker.writeUsage(keptSize)
}

// scanEntries walks <root>/<xx>/<rest> collecting sizes and recency.
// Entries without an artifact are skipped: they're either mid-commit by a
// concurrent process or already broken, and neither should crash an eviction.
// A component file vanishing mid-scan counts as size 0 for the same reason.
func (tracker *UsageTracker) scanEntries() []scannedEntry {
	entries := make([]scannedEntry, 0, 256)

	shardDirs, err := os.ReadDir(tracker.rootDir)
	if err != nil {
		return entries
	}
	for _, shard := range shardDirs {
		if !shard.IsDir() || !isShardName(shard.Name()) {
			continue
		}
		shardDir := filepath.Join(tracker.rootDir, shard.Name())
		entryDirs, err := os.ReadDir(shardDir)
		if err != nil {
			continue
		}
		for _, entryDir := range entryDirs {
			if !entryDir.IsDir() {
				continue
			}
			dir := filepath.Join(shardDir, entryDir.Name())
			objectStat, err := os.Stat(filepath.Join(dir, objectFileName))
			if err != nil {
				continue // no artifact yet, skip
			}

			size := int64(0)
			for _, name := range []string{stdoutFileName, stderrFileName, objectFileName, importsFileName, fullHashFileName} {
				size += common.FileSize(filepath.Join(dir, name))
			}
			entries = append(entries, scannedEntry{dir: dir, size: size, recency: objectStat.ModTime()})
		}
	}
	return entries
}

// CountEntries reports how many complete entries are on disk right now.
// Unlocked, approximate; used for the stats display only.
func (tracker *UsageTracker) CountEntries() int {
	return len(tracker.scanEntries())
}

func isShardName(name string) bool {
	if len(name) != 2 {
		return false
	}
	for _, c := range name {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
