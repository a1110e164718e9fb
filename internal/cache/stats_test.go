package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeTestLedger(t *testing.T) (*Ledger, string) {
	t.Helper()
	rootDir := t.TempDir()
	cfg := &Config{RootDir: rootDir, LimitBytes: 1 << 30, HashAlgo: AlgoXXHash64, LockTimeout: 5 * time.Second}
	return MakeLedger(cfg), rootDir
}

func TestLedgerShardIsolation(t *testing.T) {
	ledger, rootDir := makeTestLedger(t)

	require.NoError(t, ledger.IncrementShard(CounterHit, "ab1234cdef"))
	require.NoError(t, ledger.IncrementShard(CounterHit, "ab1234cdef"))
	require.NoError(t, ledger.IncrementShard(CounterMiss, "cd5678ef01"))

	abStats, err := os.ReadFile(filepath.Join(rootDir, "ab", "stats"))
	require.NoError(t, err)
	assert.Equal(t, "hit 2\n", string(abStats))

	cdStats, err := os.ReadFile(filepath.Join(rootDir, "cd", "stats"))
	require.NoError(t, err)
	assert.Equal(t, "miss 1\n", string(cdStats))

	// incrementing shard ab must not create any other shard's stats file
	_, err = os.Stat(filepath.Join(rootDir, "ef", "stats"))
	assert.True(t, os.IsNotExist(err))
}

func TestLedgerSnapshotSumsShardsAndGlobals(t *testing.T) {
	ledger, _ := makeTestLedger(t)

	require.NoError(t, ledger.IncrementShard(CounterHit, "ab1234cdef"))
	require.NoError(t, ledger.IncrementShard(CounterHit, "cd5678ef01"))
	require.NoError(t, ledger.IncrementShard(CounterMiss, "0099aabbcc"))
	require.NoError(t, ledger.IncrementGlobal(CounterDirect))
	require.NoError(t, ledger.IncrementGlobal(CounterDirect))
	require.NoError(t, ledger.IncrementGlobal(CounterError))

	totals, err := ledger.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, Totals{Hits: 2, Misses: 1, Direct: 2, Errors: 1}, totals)
}

func TestLedgerSnapshotOfEmptyCache(t *testing.T) {
	ledger, _ := makeTestLedger(t)
	totals, err := ledger.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, Totals{}, totals)
}

func TestLedgerReset(t *testing.T) {
	ledger, rootDir := makeTestLedger(t)

	require.NoError(t, ledger.IncrementShard(CounterHit, "ab1234cdef"))
	require.NoError(t, ledger.IncrementGlobal(CounterDirect))

	ledger.Reset()

	_, err := os.Stat(filepath.Join(rootDir, "stats"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(rootDir, "ab", "stats"))
	assert.True(t, os.IsNotExist(err))

	totals, err := ledger.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, Totals{}, totals)
}

func TestLedgerSurvivesGarbledStatsFile(t *testing.T) {
	ledger, rootDir := makeTestLedger(t)

	statsFile := filepath.Join(rootDir, "stats")
	require.NoError(t, os.WriteFile(statsFile, []byte("not numbers at all\n"), 0644))

	require.NoError(t, ledger.IncrementGlobal(CounterDirect))
	totals, err := ledger.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, int64(1), totals.Direct)
}
