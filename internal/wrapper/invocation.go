package wrapper

import (
	"path/filepath"
	"strings"
)

const (
	// invokedForCompiling: the command line names sources and produces an
	// artifact we can cache.
	invokedForCompiling = iota
	// invokedDirectly: immediate-run requests, suppressed output, help/version
	// queries, or anything else with no artifact to cache. Still routed through
	// the wrapper for accounting (the `direct` counter).
	invokedDirectly
)

// Invocation is one parsed compiler command line.
// args keeps the original command line verbatim for execution; options holds
// the non-source tokens in original order for hashing (minus -of/-od: the
// output location doesn't influence what the compiler produces).
type Invocation struct {
	invokeType int

	compilerName string // dmd / ldmd2 / gdmd, the name we masquerade as
	args         []string
	options      []string
	sourceFiles  []string // absolutized against cwd
	objOutFile   string   // absolutized against cwd

	compileOnly bool // -c given
	userVerbose bool // the caller passed -v themselves
}

func isSourceFileName(fileName string) bool {
	return strings.HasSuffix(fileName, ".d") || strings.HasSuffix(fileName, ".di")
}

func pathAbs(cwd string, relPath string) string {
	if filepath.IsAbs(relPath) {
		return relPath
	}
	return filepath.Join(cwd, relPath)
}

// ParseCmdLine classifies a dmd-style command line.
// It doesn't need to understand every dmd option: tokens it doesn't recognize
// are opaque option strings that only matter as hash input.
func ParseCmdLine(compilerName string, cwd string, cmdArgs []string) *Invocation {
	invocation := &Invocation{
		invokeType:   invokedForCompiling,
		compilerName: compilerName,
		args:         cmdArgs,
		options:      make([]string, 0, len(cmdArgs)),
		sourceFiles:  make([]string, 0, 1),
	}

	direct := false
	odDir := ""
	for _, arg := range cmdArgs {
		if len(arg) == 0 {
			continue
		}
		if arg[0] == '-' {
			switch {
			case arg == "-run":
				// everything past -run belongs to the compiled program
				direct = true
			case arg == "-o-":
				direct = true // suppressed object output, nothing to cache
			case arg == "-h" || arg == "--help" || arg == "-man" || arg == "--version":
				direct = true
			case arg == "-c":
				invocation.compileOnly = true
				invocation.options = append(invocation.options, arg)
			case arg == "-v":
				invocation.userVerbose = true
				invocation.options = append(invocation.options, arg)
			case strings.HasPrefix(arg, "-of"):
				invocation.objOutFile = strings.TrimPrefix(strings.TrimPrefix(arg, "-of"), "=")
			case strings.HasPrefix(arg, "-od"):
				odDir = strings.TrimPrefix(strings.TrimPrefix(arg, "-od"), "=")
			default:
				invocation.options = append(invocation.options, arg)
			}
			if direct {
				break
			}
		} else if isSourceFileName(arg) {
			invocation.sourceFiles = append(invocation.sourceFiles, pathAbs(cwd, arg))
		} else {
			// extra .o files, libraries etc.: opaque, but part of the identity
			invocation.options = append(invocation.options, arg)
		}
	}

	if direct || len(invocation.sourceFiles) == 0 {
		invocation.invokeType = invokedDirectly
		return invocation
	}

	if invocation.objOutFile == "" {
		invocation.objOutFile = defaultOutFileName(invocation.sourceFiles[0], invocation.compileOnly)
	}
	if odDir != "" && !filepath.IsAbs(invocation.objOutFile) {
		invocation.objOutFile = filepath.Join(odDir, invocation.objOutFile)
	}
	invocation.objOutFile = pathAbs(cwd, invocation.objOutFile)

	return invocation
}

// defaultOutFileName mirrors dmd's naming: -c yields <first source>.o,
// linking yields an executable named after the first source, both in cwd.
func defaultOutFileName(firstSource string, compileOnly bool) string {
	base := filepath.Base(firstSource)
	base = strings.TrimSuffix(strings.TrimSuffix(base, ".di"), ".d")
	if compileOnly {
		return base + ".o"
	}
	return base
}
