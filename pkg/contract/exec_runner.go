package contract

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
)

// execRunner is the default ProcessRunner, shelling out via os/exec —
// the same approach the teacher's pkg/dagger.ExecScript takes to
// invoke an external binary and capture its output.
type execRunner struct{}

// NewExecProcessRunner returns the default ProcessRunner backed by
// os/exec.
func NewExecProcessRunner() ProcessRunner {
	return execRunner{}
}

func (execRunner) Run(ctx context.Context, name string, args []string, cwd string, env []string) (ProcessResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = cwd
	if len(env) > 0 {
		cmd.Env = env
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	result := ProcessResult{
		Stdout: stdout.Bytes(),
		Stderr: stderr.Bytes(),
	}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return result, nil // non-zero exit is reported via ExitCode, not as a Go error
		}
		return result, runErr
	}
	return result, nil
}
