package cache

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestFile(t *testing.T, dir string, name string, contents string) string {
	t.Helper()
	fileName := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(fileName, []byte(contents), 0644))
	return fileName
}

func TestComputeIdentityIsDeterministic(t *testing.T) {
	tmpDir := t.TempDir()
	compiler := writeTestFile(t, tmpDir, "dmd", "fake compiler binary")
	source := writeTestFile(t, tmpDir, "main.d", "void main() {}\n")

	hash1, _, err := ComputeIdentity(AlgoXXHash64, compiler, []string{"-c"}, []string{source})
	require.NoError(t, err)
	hash2, _, err := ComputeIdentity(AlgoXXHash64, compiler, []string{"-c"}, []string{source})
	require.NoError(t, err)

	assert.Equal(t, hash1, hash2)
	assert.NotEmpty(t, hash1)
}

func TestComputeIdentityIsSourceSensitive(t *testing.T) {
	tmpDir := t.TempDir()
	compiler := writeTestFile(t, tmpDir, "dmd", "fake compiler binary")
	source := writeTestFile(t, tmpDir, "main.d", "void main() {}\n")

	hashBefore, _, err := ComputeIdentity(AlgoXXHash64, compiler, nil, []string{source})
	require.NoError(t, err)

	// one-byte change must change the identity
	require.NoError(t, os.WriteFile(source, []byte("void main() { }\n"), 0644))
	hashAfter, _, err := ComputeIdentity(AlgoXXHash64, compiler, nil, []string{source})
	require.NoError(t, err)

	assert.NotEqual(t, hashBefore, hashAfter)
}

func TestComputeIdentityIsOptionSensitive(t *testing.T) {
	tmpDir := t.TempDir()
	compiler := writeTestFile(t, tmpDir, "dmd", "fake compiler binary")
	source := writeTestFile(t, tmpDir, "main.d", "void main() {}\n")

	hashNoFlags, _, err := ComputeIdentity(AlgoXXHash64, compiler, nil, []string{source})
	require.NoError(t, err)
	hashOptimized, _, err := ComputeIdentity(AlgoXXHash64, compiler, []string{"-O"}, []string{source})
	require.NoError(t, err)

	assert.NotEqual(t, hashNoFlags, hashOptimized)
}

func TestComputeIdentityUnreadableSource(t *testing.T) {
	tmpDir := t.TempDir()
	compiler := writeTestFile(t, tmpDir, "dmd", "fake compiler binary")

	_, _, err := ComputeIdentity(AlgoXXHash64, compiler, nil, []string{filepath.Join(tmpDir, "no-such.d")})
	assert.True(t, errors.Is(err, ErrUnreadableSource))
}

func TestHasherAlgorithms(t *testing.T) {
	tests := []struct {
		algo      string
		hexDigits int
	}{
		{algo: AlgoXXHash64, hexDigits: 16},
		{algo: AlgoSHA256, hexDigits: 64},
		{algo: "no-such-algo", hexDigits: 64}, // unknown names fall back to sha256
	}
	for _, tt := range tests {
		hasher := NewHasher(tt.algo)
		hasher.WriteString("abc")
		assert.Len(t, hasher.HexDigest(), tt.hexDigits, tt.algo)
	}
}

func TestHasherForkIsIndependent(t *testing.T) {
	for _, algo := range []string{AlgoXXHash64, AlgoSHA256} {
		hasher := NewHasher(algo)
		hasher.WriteString("identity part")
		identity := hasher.HexDigest()

		forked, err := hasher.Fork()
		require.NoError(t, err)
		forked.WriteString("extended part")

		// extending the fork must not disturb the original state
		assert.Equal(t, identity, hasher.HexDigest(), algo)
		assert.NotEqual(t, identity, forked.HexDigest(), algo)

		// a second fork extended identically reproduces the same digest
		forked2, err := hasher.Fork()
		require.NoError(t, err)
		forked2.WriteString("extended part")
		assert.Equal(t, forked.HexDigest(), forked2.HexDigest(), algo)
	}
}

func TestExtendWithFiles(t *testing.T) {
	tmpDir := t.TempDir()
	depFile := writeTestFile(t, tmpDir, "dep.d", "module dep;\n")

	hasher := NewHasher(AlgoXXHash64)
	hasher.WriteString("seed")
	fullHash, err := hasher.ExtendWithFiles([]string{depFile})
	require.NoError(t, err)
	assert.NotEmpty(t, fullHash)

	hasher2 := NewHasher(AlgoXXHash64)
	hasher2.WriteString("seed")
	_, err = hasher2.ExtendWithFiles([]string{filepath.Join(tmpDir, "gone.d")})
	assert.True(t, errors.Is(err, ErrManifestRead))
}
