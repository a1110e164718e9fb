package cache

import (
	"crypto/sha256"
	"encoding"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

const (
	// AlgoXXHash64 is the default: not cryptographic, but fast and stable,
	// which is what a cache key needs.
	AlgoXXHash64 = "xxhash64"
	// AlgoSHA256 is the guaranteed-available fallback; any unknown algorithm
	// name resolves to it rather than failing the invocation.
	AlgoSHA256 = "sha256"
)

// Hasher is a running digest with a hex rendering.
// The same running state that produced the identity hash is later extended
// with manifest file bytes to produce the full hash, so the state must be
// streamable and forkable, not a one-shot digest.
type Hasher struct {
	algo string
	h    hash.Hash
}

func newDigest(algo string) (string, hash.Hash) {
	if algo == AlgoXXHash64 {
		return AlgoXXHash64, xxhash.New()
	}
	return AlgoSHA256, sha256.New()
}

func NewHasher(algo string) *Hasher {
	name, h := newDigest(algo)
	return &Hasher{algo: name, h: h}
}

func (hasher *Hasher) WriteString(s string) {
	_, _ = hasher.h.Write([]byte(s))
}

func (hasher *Hasher) WriteFile(fileName string) error {
	f, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(hasher.h, f)
	return err
}

// HexDigest renders the current state without consuming it.
func (hasher *Hasher) HexDigest() string {
	return hex.EncodeToString(hasher.h.Sum(nil))
}

// Fork clones the running state. Lookup and commit both extend the identity
// state independently, so each takes its own fork.
// Both supported digests implement encoding.BinaryMarshaler.
func (hasher *Hasher) Fork() (*Hasher, error) {
	marshaler, ok := hasher.h.(encoding.BinaryMarshaler)
	if !ok {
		return nil, fmt.Errorf("digest %s is not forkable", hasher.algo)
	}
	state, err := marshaler.MarshalBinary()
	if err != nil {
		return nil, err
	}

	_, forked := newDigest(hasher.algo)
	if err = forked.(encoding.BinaryUnmarshaler).UnmarshalBinary(state); err != nil {
		return nil, err
	}
	return &Hasher{algo: hasher.algo, h: forked}, nil
}

// ComputeIdentity produces the cache key for one compiler invocation.
// The inputs, hashed in this fixed order: the compiler binary size (a cheap
// version proxy; two different builds of equal size do collide, an inherited
// limitation), the option tokens joined by spaces in original order, the
// source paths joined by spaces, then the raw bytes of every source file.
// The returned Hasher still holds the running state for later extension.
func ComputeIdentity(algo string, compilerPath string, options []string, sourceFiles []string) (string, *Hasher, error) {
	compilerStat, err := os.Stat(compilerPath)
	if err != nil {
		return "", nil, fmt.Errorf("%w: compiler %s: %v", ErrUnreadableSource, compilerPath, err)
	}

	hasher := NewHasher(algo)
	hasher.WriteString(strconv.FormatInt(compilerStat.Size(), 10))
	hasher.WriteString(strings.Join(options, " "))
	hasher.WriteString(strings.Join(sourceFiles, " "))
	for _, srcFile := range sourceFiles {
		if err = hasher.WriteFile(srcFile); err != nil {
			return "", nil, fmt.Errorf("%w: %s: %v", ErrUnreadableSource, srcFile, err)
		}
	}
	return hasher.HexDigest(), hasher, nil
}

// ExtendWithFiles feeds file bytes into the running state, in the order given
// (callers pass sorted paths; the order at write time and at verify time must
// be the same or equal trees would produce different digests).
func (hasher *Hasher) ExtendWithFiles(sortedFiles []string) (string, error) {
	for _, depFile := range sortedFiles {
		if err := hasher.WriteFile(depFile); err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrManifestRead, depFile, err)
		}
	}
	return hasher.HexDigest(), nil
}
