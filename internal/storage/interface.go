package storage

import (
	"context"
	"errors"

	"github.com/rohankatakam/crisk-annotate/internal/models"
)

// Common errors
var (
	ErrNotFound = errors.New("not found")

	// ErrTxAborted means a marker transaction can no longer be used and
	// the surrounding Update must give up
	ErrTxAborted = errors.New("marker transaction aborted")
)

// MarkerTx is the unit of work handed to MarkerStore.Update. Nothing done
// through it is visible to readers until the surrounding Update returns nil.
type MarkerTx interface {
	// DeleteKinds removes every marker of the given kinds on the file
	DeleteKinds(kinds ...models.MarkerKind) error

	// Create adds one marker. A failed Create leaves the transaction usable
	// unless the error matches ErrTxAborted.
	Create(marker models.MarkerSpec) error
}

// MarkerStore persists markers per file
type MarkerStore interface {
	// Update runs fn atomically against the markers of one file.
	// If fn returns an error nothing it did is applied.
	Update(ctx context.Context, file string, fn func(tx MarkerTx) error) error

	// List returns the file's markers ordered by start offset
	List(ctx context.Context, file string) ([]models.MarkerSpec, error)

	// Files returns every file that has markers
	Files(ctx context.Context) ([]string, error)

	Close() error
}

// IsTxAborted reports whether err ended a marker transaction
func IsTxAborted(err error) bool {
	return errors.Is(err, ErrTxAborted)
}
