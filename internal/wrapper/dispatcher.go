package wrapper

import (
	"os"

	"github.com/dmdcache/dmdcache/internal/cache"
)

// Dispatcher drives one wrapper invocation through the cache engine:
// identity hash → lookup → [hit: materialize + replay] or [miss: compile,
// commit, account usage]. One Dispatcher per process; all cross-process
// coordination lives in the cache package.
type Dispatcher struct {
	cfg          *cache.Config
	compilerPath string
	store        *cache.Store
	ledger       *cache.Ledger
	usage        *cache.UsageTracker
}

func MakeDispatcher(cfg *cache.Config, compilerPath string) *Dispatcher {
	return &Dispatcher{
		cfg:          cfg,
		compilerPath: compilerPath,
		store:        cache.MakeStore(cfg.RootDir),
		ledger:       cache.MakeLedger(cfg),
		usage:        cache.MakeUsageTracker(cfg),
	}
}

// HandleInvocation returns the compiler's exit code and the stdout/stderr to
// echo. Whether those bytes come from a live run or a stored capture, the
// caller can't tell the difference: the wrapper is output-transparent.
func (d *Dispatcher) HandleInvocation(invocation *Invocation, cwd string) (exitCode int, stdout []byte, stderr []byte) {
	if invocation.invokeType == invokedDirectly {
		if err := d.ledger.IncrementGlobal(cache.CounterDirect); err != nil {
			logWrapper.Error(err)
		}
		result := RunCompiler(d.compilerPath, invocation.args, cwd)
		return result.ExitCode, result.Stdout, result.Stderr
	}

	hash, hasher, err := cache.ComputeIdentity(d.cfg.HashAlgo, d.compilerPath, invocation.options, invocation.sourceFiles)
	if err != nil {
		// no trustworthy cache key: record the error, run the compiler anyway
		logWrapper.Error("caching disabled for this invocation:", err)
		if err = d.ledger.IncrementGlobal(cache.CounterError); err != nil {
			logWrapper.Error(err)
		}
		result := RunCompiler(d.compilerPath, invocation.args, cwd)
		return result.ExitCode, result.Stdout, result.Stderr
	}

	if entry, ok := d.store.Lookup(hash, hasher); ok {
		if err = d.store.Materialize(entry, invocation.objOutFile); err == nil {
			logWrapper.Info(1, "cache hit", hash)
			if err = d.ledger.IncrementShard(cache.CounterHit, hash); err != nil {
				logWrapper.Error(err)
			}
			return 0, entry.Stdout, entry.Stderr
		}
		// a verified entry we can't copy out degrades to a recompile
		logWrapper.Error("could not materialize cached artifact:", err)
	}

	logWrapper.Info(1, "cache miss", hash)
	if err = d.ledger.IncrementShard(cache.CounterMiss, hash); err != nil {
		logWrapper.Error(err)
	}

	compileArgs := invocation.args
	injectedVerbose := !invocation.userVerbose
	if injectedVerbose {
		compileArgs = append(append(make([]string, 0, len(compileArgs)+1), compileArgs...), "-v")
	}
	result := RunCompiler(d.compilerPath, compileArgs, cwd)
	depFiles, userStdout := ExtractImports(result.Stdout, injectedVerbose)

	if result.ExitCode != 0 {
		return result.ExitCode, userStdout, result.Stderr
	}

	if _, err = os.Stat(invocation.objOutFile); err != nil {
		logWrapper.Error(cache.ErrArtifactMissing, invocation.objOutFile)
		if err = d.ledger.IncrementGlobal(cache.CounterError); err != nil {
			logWrapper.Error(err)
		}
		return result.ExitCode, userStdout, result.Stderr
	}

	entrySize, err := d.store.Commit(hash, userStdout, result.Stderr, invocation.objOutFile, depFiles, hasher)
	if err != nil {
		// caching this result is skipped, the compile itself succeeded
		logWrapper.Error("skip caching:", err)
		if err = d.ledger.IncrementGlobal(cache.CounterError); err != nil {
			logWrapper.Error(err)
		}
	} else if err = d.usage.RecordAddition(entrySize); err != nil {
		logWrapper.Error(err)
	}

	return result.ExitCode, userStdout, result.Stderr
}
