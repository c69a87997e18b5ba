package annotate

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/crisk-annotate/internal/models"
)

func makeLines(n int) []*models.LineRevision {
	lines := make([]*models.LineRevision, n)
	for i := range lines {
		lines[i] = &models.LineRevision{Revision: "r", Author: "a", StartOffset: -1, EndOffset: -1}
	}
	return lines
}

func ranges(lines []*models.LineRevision) [][2]int {
	out := make([][2]int, len(lines))
	for i, l := range lines {
		out[i] = [2]int{l.StartOffset, l.EndOffset}
	}
	return out
}

func TestMapOffsetsPartitionsContent(t *testing.T) {
	content := "one\ntwo\nthree"
	lines := makeLines(3)

	diags := MapOffsets(strings.NewReader(content), "", lines)
	require.Empty(t, diags)

	assert.Equal(t, [][2]int{{0, 4}, {4, 8}, {8, 13}}, ranges(lines))

	// contiguous, in order, covering everything
	assert.Equal(t, 0, lines[0].StartOffset)
	for i := 1; i < len(lines); i++ {
		assert.Equal(t, lines[i-1].EndOffset, lines[i].StartOffset)
	}
	assert.Equal(t, len([]rune(content)), lines[2].EndOffset)
}

func TestMapOffsetsScenario(t *testing.T) {
	lines := makeLines(3)
	MapOffsets(strings.NewReader("a\nb\nc\n"), "", lines)
	assert.Equal(t, [][2]int{{0, 2}, {2, 4}, {4, 6}}, ranges(lines))
}

func TestMapOffsetsStreamShorterThanRecords(t *testing.T) {
	lines := makeLines(4)
	diags := MapOffsets(strings.NewReader("a\nb\n"), "", lines)

	assert.Empty(t, diags)
	assert.Equal(t, [][2]int{{0, 2}, {2, 4}, {4, 4}, {4, 4}}, ranges(lines))
}

func TestMapOffsetsIgnoresTrailingContent(t *testing.T) {
	lines := makeLines(1)
	MapOffsets(strings.NewReader("a\nb\nc\n"), "", lines)
	assert.Equal(t, [][2]int{{0, 2}}, ranges(lines))
}

func TestMapOffsetsEmptyInputs(t *testing.T) {
	assert.Empty(t, MapOffsets(strings.NewReader("anything"), "", nil))

	lines := makeLines(2)
	MapOffsets(strings.NewReader(""), "", lines)
	assert.Equal(t, [][2]int{{0, 0}, {0, 0}}, ranges(lines))
}

func TestMapOffsetsCRLFCountsCarriageReturn(t *testing.T) {
	lines := makeLines(2)
	MapOffsets(strings.NewReader("a\r\nb\r\n"), "", lines)
	assert.Equal(t, [][2]int{{0, 3}, {3, 6}}, ranges(lines))
}

func TestMapOffsetsCountsCharactersNotBytes(t *testing.T) {
	lines := makeLines(2)
	MapOffsets(strings.NewReader("été\nx\n"), "UTF-8", lines)
	assert.Equal(t, [][2]int{{0, 4}, {4, 6}}, ranges(lines))
}

func TestMapOffsetsHonoursDeclaredCharset(t *testing.T) {
	// two bytes that are one character in UTF-8 and two in Latin-1
	content := "\xc3\xa9\n"

	tests := []struct {
		charset string
		want    [2]int
	}{
		{"ISO-8859-1", [2]int{0, 3}},
		{"", [2]int{0, 2}},
		{"x-no-such-charset", [2]int{0, 2}},
	}
	for _, tt := range tests {
		lines := makeLines(1)
		MapOffsets(strings.NewReader(content), tt.charset, lines)
		assert.Equal(t, tt.want, ranges(lines)[0], tt.charset)
	}
}

type failingReader struct {
	data string
	err  error
	done bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if !r.done {
		r.done = true
		return copy(p, r.data), nil
	}
	return 0, r.err
}

func TestMapOffsetsRecordsReadFailures(t *testing.T) {
	boom := errors.New("disk on fire")
	lines := makeLines(3)

	diags := MapOffsets(&failingReader{data: "a\n", err: boom}, "", lines)

	require.Len(t, diags, 2)
	assert.Equal(t, 2, diags[0].Line)
	assert.Equal(t, 3, diags[1].Line)
	assert.ErrorIs(t, diags[0].Err, boom)
	assert.Equal(t, "offsets", diags[0].Stage)

	assert.Equal(t, [][2]int{{0, 2}, {2, 2}, {2, 2}}, ranges(lines))
}
