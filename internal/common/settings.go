// Settings combine three sources, lowest to highest precedence:
// built-in defaults, an optional yaml file, DMDCACHE_* environment variables.
// The purpose is to configure the wrapper without touching build scripts:
// env vars travel through build systems easily, the yaml file covers per-user defaults.

package common

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Settings struct {
	CacheDir    string `yaml:"cache_dir"`
	MaxSize     string `yaml:"max_size"`
	HashAlgo    string `yaml:"hash_algo"`
	Compiler    string `yaml:"compiler"`
	LockTimeout string `yaml:"lock_timeout"`
	LogFile     string `yaml:"log_file"`
	Verbosity   int64  `yaml:"verbosity"`
}

func defaultSettings() Settings {
	homeDir, _ := os.UserHomeDir()
	return Settings{
		CacheDir:    filepath.Join(homeDir, ".dmdcache"),
		MaxSize:     "1G",
		HashAlgo:    "xxhash64",
		LockTimeout: "10s",
		Verbosity:   -1,
	}
}

func settingsFileName() string {
	if fromEnv := os.Getenv("DMDCACHE_CONFIG"); fromEnv != "" {
		return fromEnv
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".dmdcache.yml")
}

// LoadSettings never fails on a missing yaml file: the wrapper must stay
// usable with nothing but defaults. A malformed yaml file is an error,
// silently compiling with wrong cache settings would be worse.
func LoadSettings() (Settings, error) {
	settings := defaultSettings()

	if fileName := settingsFileName(); fileName != "" {
		contents, err := os.ReadFile(fileName)
		if err == nil {
			if err = yaml.Unmarshal(contents, &settings); err != nil {
				return settings, err
			}
		}
	}

	overrideFromEnv(&settings.CacheDir, "DMDCACHE_DIR")
	overrideFromEnv(&settings.MaxSize, "DMDCACHE_SIZE")
	overrideFromEnv(&settings.HashAlgo, "DMDCACHE_HASH")
	overrideFromEnv(&settings.Compiler, "DMDCACHE_DMD")
	overrideFromEnv(&settings.LockTimeout, "DMDCACHE_LOCK_TIMEOUT")
	overrideFromEnv(&settings.LogFile, "DMDCACHE_LOG_FILENAME")
	if envVal := os.Getenv("DMDCACHE_DEBUG"); envVal == "1" || envVal == "true" {
		settings.Verbosity = 2
	}

	return settings, nil
}

func overrideFromEnv(value *string, envName string) {
	if envVal := os.Getenv(envName); envVal != "" {
		*value = envVal
	}
}
