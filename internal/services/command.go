package services

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Command describes a single external tool invocation.
type Command struct {
	Name string
	Args []string
	// Dir is the working directory; empty means the current directory.
	Dir string
}

// String renders the command line for logs.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, c.Name)
	for _, arg := range c.Args {
		if arg == "" || strings.ContainsAny(arg, " \t\"") {
			arg = fmt.Sprintf("%q", arg)
		}
		parts = append(parts, arg)
	}
	return strings.Join(parts, " ")
}

// CommandRunner executes a command and returns its combined output. The output
// is returned alongside a non-nil error so callers can inspect diagnostics.
type CommandRunner func(ctx context.Context, cmd Command) ([]byte, error)

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, cmd Command) ([]byte, error) {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	output, err := c.CombinedOutput()
	if err != nil {
		return output, fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return output, nil
}
