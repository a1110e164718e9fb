package wrapper

import (
	"bytes"
	"fmt"
	"os/exec"
)

// CompileResult is the outcome of running the real compiler: the exit code is
// honored verbatim, stdout/stderr are captured so a later hit can replay them.
type CompileResult struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// RunCompiler invokes the real compiler binary and waits for it.
// No timeout is enforced here: the compiler runs to completion or failure,
// exactly as it would without the wrapper in front.
func RunCompiler(compilerPath string, cmdArgs []string, cwd string) CompileResult {
	compilerCommand := exec.Command(compilerPath, cmdArgs...)
	compilerCommand.Dir = cwd
	var compilerStdout, compilerStderr bytes.Buffer
	compilerCommand.Stdout = &compilerStdout
	compilerCommand.Stderr = &compilerStderr
	err := compilerCommand.Run()

	result := CompileResult{
		ExitCode: -1,
		Stdout:   compilerStdout.Bytes(),
		Stderr:   compilerStderr.Bytes(),
	}
	if compilerCommand.ProcessState != nil {
		result.ExitCode = compilerCommand.ProcessState.ExitCode()
	}
	if len(result.Stderr) == 0 && err != nil {
		result.Stderr = []byte(fmt.Sprintln(err))
	}
	return result
}
