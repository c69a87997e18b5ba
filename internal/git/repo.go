package git

import (
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"strings"
)

// run executes git in dir and returns trimmed stdout. Failures are classified.
func run(ctx context.Context, binary, dir string, args ...string) (string, error) {
	out, err := runRaw(ctx, binary, dir, args...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func runRaw(ctx context.Context, binary, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Dir = dir

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return nil, classify(ctx, err, stderr.String())
	}
	return out, nil
}

// FindGitRoot returns the root directory of the repository containing dir
func FindGitRoot(ctx context.Context, binary, dir string) (string, error) {
	return run(ctx, binary, dir, "rev-parse", "--show-toplevel")
}

// UserName returns the configured git user.name for the repository at dir
func UserName(ctx context.Context, binary, dir string) (string, error) {
	return run(ctx, binary, dir, "config", "user.name")
}

// WorkingTreeEncoding returns the working-tree-encoding attribute of file,
// or "" when it is unset.
// Output format: "<path>: working-tree-encoding: <value>"
func WorkingTreeEncoding(ctx context.Context, binary, file string) (string, error) {
	out, err := run(ctx, binary, filepath.Dir(file), "check-attr", "working-tree-encoding", "--", filepath.Base(file))
	if err != nil {
		return "", err
	}

	idx := strings.LastIndex(out, ": ")
	if idx < 0 {
		return "", nil
	}
	value := strings.TrimSpace(out[idx+2:])
	switch value {
	case "unspecified", "unset", "set", "":
		return "", nil
	}
	return value, nil
}
