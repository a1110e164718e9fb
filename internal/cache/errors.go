package cache

import "errors"

// Every failure path in the cache engine is classified into one of these.
// None of them is process-fatal: the compiler still runs, only the caching
// side effect of the current invocation is skipped.
var (
	// ErrLockTimeout: an advisory lock wasn't acquired within the deadline.
	ErrLockTimeout = errors.New("lock not acquired within timeout")
	// ErrUnreadableSource: a named source file (or the compiler binary) can't be read,
	// so no trustworthy cache key exists for this invocation.
	ErrUnreadableSource = errors.New("source file unreadable")
	// ErrEntryCreate: the entry directory can't be created.
	ErrEntryCreate = errors.New("cache entry create failed")
	// ErrManifestRead: a manifest-listed file can't be re-hashed during hit
	// verification; always downgraded to a plain miss.
	ErrManifestRead = errors.New("manifest file unreadable")
	// ErrArtifactMissing: the compiler reported success but produced no output file.
	ErrArtifactMissing = errors.New("compiler produced no output artifact")
)
