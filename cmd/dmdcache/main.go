package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmdcache/dmdcache/internal/cache"
	"github.com/dmdcache/dmdcache/internal/common"
	"github.com/dmdcache/dmdcache/internal/wrapper"
)

// dmdcache sits in front of the D compiler. Three ways in:
//   - a symlink named dmd/ldmd2/gdmd points at this binary → wrapper mode;
//   - `dmdcache dmd -c file.d ...` → wrapper mode with an explicit compiler;
//   - `dmdcache stats|zero-stats|clean|version` → administration, see admin.go.

func failedStart(err interface{}) {
	_, _ = fmt.Fprintln(os.Stderr, "[dmdcache]", err)
	os.Exit(1)
}

func main() {
	invokedAs := filepath.Base(os.Args[0])
	if invokedAs != "dmdcache" {
		runWrapper(invokedAs, os.Args[1:])
		return
	}
	if len(os.Args) >= 2 && !isAdminCommand(os.Args[1]) {
		runWrapper(os.Args[1], os.Args[2:])
		return
	}
	executeAdminCommand()
}

func runWrapper(compilerArg string, cmdArgs []string) {
	settings, err := common.LoadSettings()
	if err != nil {
		failedStart(err)
	}
	if err = wrapper.MakeLoggerWrapper(settings.LogFile, settings.Verbosity); err != nil {
		failedStart(err)
	}
	cfg, err := cache.MakeConfig(settings.CacheDir, settings.MaxSize, settings.HashAlgo, settings.LockTimeout)
	if err != nil {
		failedStart(err)
	}

	// `dmdcache /usr/bin/dmd ...` pins the compiler; a bare name gets resolved
	configuredCompiler := settings.Compiler
	if configuredCompiler == "" && strings.ContainsRune(compilerArg, os.PathSeparator) {
		configuredCompiler = compilerArg
	}
	compilerPath, err := wrapper.ResolveCompiler(configuredCompiler, filepath.Base(compilerArg))
	if err != nil {
		failedStart(err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		failedStart(err)
	}

	invocation := wrapper.ParseCmdLine(filepath.Base(compilerArg), cwd, cmdArgs)
	dispatcher := wrapper.MakeDispatcher(cfg, compilerPath)
	exitCode, stdout, stderr := dispatcher.HandleInvocation(invocation, cwd)

	_, _ = os.Stdout.Write(stdout)
	_, _ = os.Stderr.Write(stderr)
	if exitCode < 0 {
		exitCode = 1
	}
	os.Exit(exitCode)
}
