package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dmdcache/dmdcache/internal/common"
)

const statsFileName = "stats"

// Counter names as persisted. Global scope holds direct/error,
// shard scope holds hit/miss, keyed by the entry hash's first two hex chars.
const (
	CounterHit    = "hit"
	CounterMiss   = "miss"
	CounterDirect = "direct"
	CounterError  = "error"
)

// shardsCount is the full prefix space of two hex characters.
const shardsCount = 256

// Ledger persists invocation counters across uncoordinated wrapper processes.
// Sharding hit/miss by hash prefix means parallel compilations of different
// units almost never contend on the same lock; only direct/error share the
// single global file.
type Ledger struct {
	rootDir     string
	lockTimeout time.Duration
}

// Totals is the aggregate snapshot: global counters plus hit/miss summed
// over all shards.
type Totals struct {
	Hits   int64
	Misses int64
	Direct int64
	Errors int64
}

func MakeLedger(cfg *Config) *Ledger {
	return &Ledger{rootDir: cfg.RootDir, lockTimeout: cfg.LockTimeout}
}

// IncrementGlobal bumps a global counter (direct, error) under the global lock.
func (ledger *Ledger) IncrementGlobal(counter string) error {
	return ledger.increment(filepath.Join(ledger.rootDir, statsFileName), counter)
}

// IncrementShard bumps a shard counter (hit, miss) for the given entry hash,
// under that shard's own lock.
func (ledger *Ledger) IncrementShard(counter string, hash string) error {
	return ledger.increment(filepath.Join(ledger.rootDir, hash[:2], statsFileName), counter)
}

func (ledger *Ledger) increment(statsFile string, counter string) error {
	if err := common.MkdirForFile(statsFile); err != nil {
		return err
	}
	lock, err := AcquireLock(statsFile+".lock", ledger.lockTimeout)
	if err != nil {
		return err
	}
	defer lock.Release()

	counters := readCounters(statsFile)
	counters[counter]++
	return writeCounters(statsFile, counters)
}

// Snapshot sums the global counters and all 256 possible shard prefixes.
// It probes every prefix regardless of cache population; a shard without a
// stats file contributes zero. Shard locks are taken one at a time, so the
// snapshot is not an atomic cut across shards, good enough for statistics.
func (ledger *Ledger) Snapshot() (Totals, error) {
	var totals Totals

	globalFile := filepath.Join(ledger.rootDir, statsFileName)
	if _, err := os.Stat(globalFile); err == nil {
		lock, err := AcquireLock(globalFile+".lock", ledger.lockTimeout)
		if err != nil {
			return totals, err
		}
		counters := readCounters(globalFile)
		lock.Release()
		totals.Direct = counters[CounterDirect]
		totals.Errors = counters[CounterError]
	}

	for i := 0; i < shardsCount; i++ {
		shardFile := filepath.Join(ledger.rootDir, fmt.Sprintf("%02x", i), statsFileName)
		if _, err := os.Stat(shardFile); err != nil {
			continue
		}
		lock, err := AcquireLock(shardFile+".lock", ledger.lockTimeout)
		if err != nil {
			return totals, err
		}
		counters := readCounters(shardFile)
		lock.Release()
		totals.Hits += counters[CounterHit]
		totals.Misses += counters[CounterMiss]
	}
	return totals, nil
}

// Reset deletes every stats file, global and per-shard, without taking locks:
// unlink is atomic, and a concurrent increment at worst recreates a file with
// a count of one. Reset is administrative, not a hot path.
func (ledger *Ledger) Reset() {
	_ = os.Remove(filepath.Join(ledger.rootDir, statsFileName))
	for i := 0; i < shardsCount; i++ {
		_ = os.Remove(filepath.Join(ledger.rootDir, fmt.Sprintf("%02x", i), statsFileName))
	}
}

// readCounters tolerates a missing or garbled file: counters restart at zero
// rather than failing an unrelated compilation.
func readCounters(statsFile string) map[string]int64 {
	counters := make(map[string]int64, 4)
	contents, err := os.ReadFile(statsFile)
	if err != nil {
		return counters
	}

	for _, line := range strings.Split(string(contents), "\n") {
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		if value, err := strconv.ParseInt(fields[1], 10, 64); err == nil {
			counters[fields[0]] = value
		}
	}
	return counters
}

func writeCounters(statsFile string, counters map[string]int64) error {
	names := make([]string, 0, len(counters))
	for name := range counters {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		sb.WriteString(name)
		sb.WriteByte(' ')
		sb.WriteString(strconv.FormatInt(counters[name], 10))
		sb.WriteByte('\n')
	}
	return common.WriteFileAtomically(statsFile, []byte(sb.String()))
}
