package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dmdcache/dmdcache/internal/common"
)

// Component file names inside an entry directory. The layout is a contract:
// other tooling inspects cache trees, so names and formats stay fixed.
const (
	stdoutFileName   = "stdout"
	stderrFileName   = "stderr"
	objectFileName   = "object.o"
	importsFileName  = "imports"
	fullHashFileName = "fullhash"
)

// Store maps an identity hash to an on-disk entry directory
// <root>/<hash[:2]>/<hash[2:]>. The two-char shard prefix bounds the number
// of directory entries per level, same scheme the statistics shards use.
//
// No lock is held across lookup and commit for the same hash: two concurrent
// misses for equal inputs both compile and the last writer wins. That race is
// benign (equal inputs produce equivalent entries) and keeping the hit path
// lock-free is worth more than eliminating a duplicate write.
type Store struct {
	rootDir string
}

// Entry is a verified cache hit, with the captured compiler output preloaded.
type Entry struct {
	Dir    string
	Stdout []byte
	Stderr []byte
}

func MakeStore(rootDir string) *Store {
	return &Store{rootDir: rootDir}
}

func (store *Store) EntryDir(hash string) string {
	return filepath.Join(store.rootDir, hash[:2], hash[2:])
}

// Lookup decides hit or miss for an identity hash. It is a hit iff extending
// a fork of the identity state with the current bytes of every manifest file,
// in stored (sorted) order, reproduces the stored full hash. Every failure
// mode in here (missing entry, unreadable manifest file, truncated entry) is
// a miss: the cache degrades to recompute, never aborts a build.
func (store *Store) Lookup(hash string, identity *Hasher) (*Entry, bool) {
	entryDir := store.EntryDir(hash)

	storedFullHash, err := os.ReadFile(filepath.Join(entryDir, fullHashFileName))
	if err != nil {
		return nil, false
	}
	manifest, err := readManifest(filepath.Join(entryDir, importsFileName))
	if err != nil {
		return nil, false
	}

	forked, err := identity.Fork()
	if err != nil {
		return nil, false
	}
	fullHash, err := forked.ExtendWithFiles(manifest)
	if err != nil {
		return nil, false // ErrManifestRead, downgraded by design
	}
	if fullHash != strings.TrimSpace(string(storedFullHash)) {
		return nil, false
	}

	entry := &Entry{Dir: entryDir}
	if entry.Stdout, err = os.ReadFile(filepath.Join(entryDir, stdoutFileName)); err != nil {
		return nil, false
	}
	if entry.Stderr, err = os.ReadFile(filepath.Join(entryDir, stderrFileName)); err != nil {
		return nil, false
	}
	return entry, true
}

// Commit creates the entry for a freshly compiled artifact and returns the
// total size of the entry's component files (the usage tracker records it).
// A racing mkdir by a concurrent process is success, not an error: both
// writers hold equivalent content. Any failure after the directory exists
// rolls the whole entry back, so a partial entry is never left to be
// mistaken for a valid one.
func (store *Store) Commit(hash string, stdout []byte, stderr []byte, artifactPath string, manifestFiles []string, identity *Hasher) (int64, error) {
	entryDir := store.EntryDir(hash)
	if err := os.MkdirAll(entryDir, os.ModePerm); err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrEntryCreate, entryDir, err)
	}

	manifest := append([]string{}, manifestFiles...)
	sort.Strings(manifest)

	entrySize, err := store.writeComponents(entryDir, stdout, stderr, artifactPath, manifest, identity)
	if err != nil {
		_ = os.RemoveAll(entryDir) // rollback, never keep a partial entry
		return 0, err
	}
	return entrySize, nil
}

func (store *Store) writeComponents(entryDir string, stdout []byte, stderr []byte, artifactPath string, sortedManifest []string, identity *Hasher) (int64, error) {
	if err := common.WriteFileAtomically(filepath.Join(entryDir, stdoutFileName), stdout); err != nil {
		return 0, err
	}
	if err := common.WriteFileAtomically(filepath.Join(entryDir, stderrFileName), stderr); err != nil {
		return 0, err
	}

	objectPath := filepath.Join(entryDir, objectFileName)
	if err := common.CopyFile(artifactPath, objectPath); err != nil {
		return 0, err
	}

	manifestContents := ""
	if len(sortedManifest) > 0 {
		manifestContents = strings.Join(sortedManifest, "\n") + "\n"
	}
	if err := common.WriteFileAtomically(filepath.Join(entryDir, importsFileName), []byte(manifestContents)); err != nil {
		return 0, err
	}

	forked, err := identity.Fork()
	if err != nil {
		return 0, err
	}
	fullHash, err := forked.ExtendWithFiles(sortedManifest)
	if err != nil {
		return 0, err
	}
	if err = common.WriteFileAtomically(filepath.Join(entryDir, fullHashFileName), []byte(fullHash+"\n")); err != nil {
		return 0, err
	}

	entrySize := int64(0)
	for _, name := range []string{stdoutFileName, stderrFileName, objectFileName, importsFileName, fullHashFileName} {
		entrySize += common.FileSize(filepath.Join(entryDir, name))
	}
	return entrySize, nil
}

// Materialize copies the stored artifact to the caller's output path,
// preserving mode, and touches the stored artifact's mtime. That mtime is the
// eviction recency signal, so entries age by last hit, not by creation.
func (store *Store) Materialize(entry *Entry, destPath string) error {
	objectPath := filepath.Join(entry.Dir, objectFileName)
	if err := common.CopyFile(objectPath, destPath); err != nil {
		return err
	}

	now := time.Now()
	_ = os.Chtimes(objectPath, now, now)
	return nil
}

func readManifest(importsPath string) ([]string, error) {
	contents, err := os.ReadFile(importsPath)
	if err != nil {
		return nil, err
	}

	manifest := make([]string, 0, 16)
	for _, line := range strings.Split(string(contents), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			manifest = append(manifest, line)
		}
	}
	return manifest, nil
}
