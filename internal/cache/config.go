package cache

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// Config is constructed once per process and passed to every cache component.
// Nothing in this package reads the environment: that keeps concurrently
// running wrapper instances honest about which cache tree they share.
type Config struct {
	// RootDir is the cache directory, shared by all concurrent invocations.
	RootDir string
	// LimitBytes is the size ceiling; exceeding it triggers eviction.
	LimitBytes int64
	// HashAlgo selects the identity digest, see hasher.go.
	HashAlgo string
	// LockTimeout bounds lock acquisition; 0 means wait indefinitely.
	LockTimeout time.Duration
}

// MakeConfig parses the human-readable settings ("1G", "10s") into a Config.
func MakeConfig(rootDir string, maxSize string, hashAlgo string, lockTimeout string) (*Config, error) {
	limitBytes, err := humanize.ParseBytes(maxSize)
	if err != nil {
		return nil, fmt.Errorf("can't parse max cache size %q: %w", maxSize, err)
	}

	timeout := time.Duration(0)
	if lockTimeout != "" {
		timeout, err = time.ParseDuration(lockTimeout)
		if err != nil {
			return nil, fmt.Errorf("can't parse lock timeout %q: %w", lockTimeout, err)
		}
	}

	return &Config{
		RootDir:     rootDir,
		LimitBytes:  int64(limitBytes),
		HashAlgo:    hashAlgo,
		LockTimeout: timeout,
	}, nil
}
