package crew

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Compile-time interface satisfaction check.
var _ Provider = (*ExecProvider)(nil)

// ExecProvider runs the crew as a local command, typically the project's CLI
// entry point. Inputs are written as JSON to stdin; trimmed stdout is the
// result; stderr is folded into the error on failure.
type ExecProvider struct {
	command string
	args    []string
	dir     string
}

// NewExecProvider validates the command and returns the provider.
func NewExecProvider(command string, args []string, dir string) (*ExecProvider, error) {
	if command == "" {
		return nil, errors.New("crew command is required")
	}
	return &ExecProvider{command: command, args: args, dir: dir}, nil
}

// Name identifies the provider by its command.
func (p *ExecProvider) Name() string {
	return "exec:" + p.command
}

// Execute runs the crew command once.
func (p *ExecProvider) Execute(ctx context.Context, inputs map[string]any) (string, error) {
	payload, err := json.Marshal(map[string]any{"inputs": inputs})
	if err != nil {
		return "", fmt.Errorf("encode inputs: %w", err)
	}

	cmd := exec.CommandContext(ctx, p.command, p.args...)
	if p.dir != "" {
		cmd.Dir = p.dir
	}
	cmd.Stdin = bytes.NewReader(payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return "", fmt.Errorf("crew command: %w", err)
		}
		return "", fmt.Errorf("crew command: %w: %s", err, msg)
	}

	return strings.TrimSpace(stdout.String()), nil
}
