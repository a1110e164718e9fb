package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearDmdcacheEnv(t *testing.T) {
	t.Helper()
	for _, envName := range []string{"DMDCACHE_CONFIG", "DMDCACHE_DIR", "DMDCACHE_SIZE", "DMDCACHE_HASH", "DMDCACHE_DMD", "DMDCACHE_LOCK_TIMEOUT", "DMDCACHE_LOG_FILENAME", "DMDCACHE_DEBUG"} {
		t.Setenv(envName, "")
		require.NoError(t, os.Unsetenv(envName))
	}
}

func TestLoadSettingsDefaults(t *testing.T) {
	clearDmdcacheEnv(t)
	t.Setenv("DMDCACHE_CONFIG", filepath.Join(t.TempDir(), "absent.yml"))

	settings, err := LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, "1G", settings.MaxSize)
	assert.Equal(t, "xxhash64", settings.HashAlgo)
	assert.Equal(t, "10s", settings.LockTimeout)
	assert.Contains(t, settings.CacheDir, ".dmdcache")
	assert.Equal(t, int64(-1), settings.Verbosity)
}

func TestLoadSettingsFromYamlFile(t *testing.T) {
	clearDmdcacheEnv(t)
	configFile := filepath.Join(t.TempDir(), "dmdcache.yml")
	require.NoError(t, os.WriteFile(configFile, []byte("cache_dir: /var/cache/dmdcache\nmax_size: 512M\nhash_algo: sha256\n"), 0644))
	t.Setenv("DMDCACHE_CONFIG", configFile)

	settings, err := LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, "/var/cache/dmdcache", settings.CacheDir)
	assert.Equal(t, "512M", settings.MaxSize)
	assert.Equal(t, "sha256", settings.HashAlgo)
}

func TestLoadSettingsEnvOverridesYaml(t *testing.T) {
	clearDmdcacheEnv(t)
	configFile := filepath.Join(t.TempDir(), "dmdcache.yml")
	require.NoError(t, os.WriteFile(configFile, []byte("max_size: 512M\n"), 0644))
	t.Setenv("DMDCACHE_CONFIG", configFile)
	t.Setenv("DMDCACHE_SIZE", "2G")
	t.Setenv("DMDCACHE_DEBUG", "1")

	settings, err := LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, "2G", settings.MaxSize)
	assert.Equal(t, int64(2), settings.Verbosity)
}

func TestLoadSettingsMalformedYamlFails(t *testing.T) {
	clearDmdcacheEnv(t)
	configFile := filepath.Join(t.TempDir(), "dmdcache.yml")
	require.NoError(t, os.WriteFile(configFile, []byte("max_size: [unclosed\n"), 0644))
	t.Setenv("DMDCACHE_CONFIG", configFile)

	_, err := LoadSettings()
	assert.Error(t, err)
}
