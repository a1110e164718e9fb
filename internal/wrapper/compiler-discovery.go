package wrapper

import (
	"fmt"
	"os"
	"path/filepath"
)

// ResolveCompiler finds the real compiler binary for a wrapper invocation.
// When the wrapper is installed as a symlink named `dmd` early in PATH, a
// plain exec.LookPath would find the wrapper itself and recurse forever, so
// the search walks PATH manually and skips anything that is our own binary.
// An explicitly configured path short-circuits the search.
func ResolveCompiler(configuredPath string, compilerName string) (string, error) {
	if configuredPath != "" {
		return configuredPath, nil
	}

	ownPath, _ := os.Executable()
	ownStat, _ := os.Stat(ownPath)

	for _, dir := range filepath.SplitList(os.Getenv("PATH")) {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, compilerName)
		candidateStat, err := os.Stat(candidate)
		if err != nil || candidateStat.IsDir() {
			continue
		}
		if ownStat != nil && os.SameFile(candidateStat, ownStat) {
			continue // that's us, keep looking
		}
		if candidateStat.Mode().Perm()&0111 == 0 {
			continue
		}
		return candidate, nil
	}
	return "", fmt.Errorf("real compiler %q not found in PATH", compilerName)
}
