package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/kballard/go-shellquote"
)

// Command is one external process invocation
type Command struct {
	Name string
	Args []string

	// Env is appended to the parent environment. It may carry the database
	// credential, so String never includes it.
	Env []string
}

// String renders the command as a shell-quoted line
func (c Command) String() string {
	return shellquote.Join(append([]string{c.Name}, c.Args...)...)
}

// RunResult is what a finished process left behind
type RunResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner starts external processes. Run returns an error only when the
// process could not be started or was killed because ctx ended; a non-zero
// exit is reported through RunResult.ExitCode.
type Runner interface {
	LookPath(name string) (string, error)
	Run(ctx context.Context, cmd Command) (RunResult, error)
}

// ExecRunner runs commands with os/exec
type ExecRunner struct{}

// NewExecRunner returns the production Runner
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

func (r *ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

func (r *ExecRunner) Run(ctx context.Context, c Command) (RunResult, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Env = append(os.Environ(), c.Env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := RunResult{Stdout: stdout.String(), Stderr: stderr.String()}

	if ctxErr := ctx.Err(); ctxErr != nil {
		res.ExitCode = -1
		return res, fmt.Errorf("%s interrupted: %w", c.Name, ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	if err != nil {
		res.ExitCode = -1
		return res, fmt.Errorf("failed to start %s: %w", c.Name, err)
	}

	return res, nil
}
