package git

import (
	"context"
	stderrors "errors"
	"os/exec"
	"strings"

	"github.com/rohankatakam/crisk-annotate/internal/errors"
)

// Provider failures. Callers skip the file on any of them.
var (
	ErrNotVersioned       = stderrors.New("file is not under version control")
	ErrBrokenConnection   = stderrors.New("connection to version control backend broken")
	ErrUnsupportedBackend = stderrors.New("unsupported version control backend")
)

// IsProviderFailure reports whether err is one of the expected provider failures
func IsProviderFailure(err error) bool {
	return stderrors.Is(err, ErrNotVersioned) ||
		stderrors.Is(err, ErrBrokenConnection) ||
		stderrors.Is(err, ErrUnsupportedBackend)
}

var notVersionedMarkers = []string{
	"not a git repository",
	"no such path",
	"is outside repository",
	"no such file or directory",
	"cannot stat path",
	"does not exist",
}

var connectionMarkers = []string{
	"unable to access",
	"could not read from remote",
	"connection timed out",
	"early eof",
}

// classify maps a failed git invocation to a provider error
func classify(ctx context.Context, err error, stderr string) error {
	msg := strings.TrimSpace(stderr)
	lower := strings.ToLower(msg)

	switch {
	case stderrors.Is(err, exec.ErrNotFound):
		return errors.VCSError(ErrUnsupportedBackend, "git executable not found")
	case stderrors.Is(ctx.Err(), context.DeadlineExceeded):
		return errors.VCSError(ErrBrokenConnection, "git timed out")
	}

	for _, m := range notVersionedMarkers {
		if strings.Contains(lower, m) {
			return errors.VCSError(ErrNotVersioned, msg)
		}
	}
	for _, m := range connectionMarkers {
		if strings.Contains(lower, m) {
			return errors.VCSError(ErrBrokenConnection, msg)
		}
	}

	if msg == "" {
		return errors.VCSError(err, "git failed")
	}
	return errors.VCSError(err, msg)
}
