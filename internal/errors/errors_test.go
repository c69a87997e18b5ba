package errors

import (
	stderrors "errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsCause(t *testing.T) {
	err := VCSError(io.ErrUnexpectedEOF, "blame failed")

	assert.True(t, stderrors.Is(err, io.ErrUnexpectedEOF))
	assert.Equal(t, "blame failed: unexpected EOF", err.Error())
	assert.Equal(t, ErrorTypeVCS, GetType(err))
	assert.False(t, IsFatal(err))
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, StorageError(nil, "nothing"))
}

func TestIsMatchesType(t *testing.T) {
	err := CacheError(io.EOF, "read entry")
	assert.True(t, stderrors.Is(err, &Error{Type: ErrorTypeCache}))
	assert.False(t, stderrors.Is(err, &Error{Type: ErrorTypeStorage}))
}

func TestDetailedString(t *testing.T) {
	err := ConfigErrorf("bad mode %q", "x").WithContext("key", "highlight.mode")

	s := err.DetailedString()
	assert.Contains(t, s, "[CRITICAL] [CONFIG] bad mode \"x\"")
	assert.Contains(t, s, "key: highlight.mode")
	assert.True(t, IsFatal(err))
}
