package wrapper

import (
	"strings"
)

// With -v, dmd interleaves a trace into stdout: one line per phase, the first
// token naming the phase. The "import" lines carry the transitively imported
// file path in parentheses: that's the dependency manifest. Everything else
// is noise we injected and must strip before echoing stdout to the caller.
var verboseLinePrefixes = map[string]bool{
	"binary":    true,
	"version":   true,
	"config":    true,
	"DFLAGS":    true,
	"predefs":   true,
	"parse":     true,
	"importall": true,
	"import":    true,
	"semantic":  true,
	"semantic2": true,
	"semantic3": true,
	"entry":     true,
	"library":   true,
	"function":  true,
	"code":      true,
	"gc":        true,
}

// ExtractImports pulls the imported file paths out of `dmd -v` stdout.
// When stripVerbose is set (we injected -v ourselves), the returned stdout has
// all trace lines removed; when the caller asked for -v, stdout is returned
// untouched so the wrapper stays output-transparent.
func ExtractImports(stdout []byte, stripVerbose bool) (depFiles []string, userStdout []byte) {
	depFiles = make([]string, 0, 16)
	seen := make(map[string]bool, 16)
	userLines := make([]string, 0, 8)

	lines := strings.Split(string(stdout), "\n")
	for i, line := range lines {
		fields := strings.Fields(line)
		isVerbose := len(fields) > 0 && verboseLinePrefixes[fields[0]]

		if isVerbose && fields[0] == "import" {
			if depFile, ok := parseImportLine(line); ok && !seen[depFile] {
				seen[depFile] = true
				depFiles = append(depFiles, depFile)
			}
		}
		if !isVerbose {
			// drop the trailing empty line produced by splitting on '\n'
			if i == len(lines)-1 && line == "" {
				continue
			}
			userLines = append(userLines, line)
		}
	}

	if !stripVerbose {
		return depFiles, stdout
	}
	if len(userLines) == 0 {
		return depFiles, nil
	}
	return depFiles, []byte(strings.Join(userLines, "\n") + "\n")
}

// parseImportLine extracts the path from `import    std.stdio	(/path/std/stdio.d)`.
func parseImportLine(line string) (string, bool) {
	openIdx := strings.LastIndexByte(line, '(')
	closeIdx := strings.LastIndexByte(line, ')')
	if openIdx < 0 || closeIdx < openIdx+2 {
		return "", false
	}
	return line[openIdx+1 : closeIdx], true
}
