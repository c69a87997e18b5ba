package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/crisk-annotate/internal/models"
)

func sampleView() *FileView {
	bundle := &models.Bundle{
		File:        "main.go",
		Fingerprint: "f00d",
		Mode:        models.ModeTop5,
		Groups: []*models.RevisionGroup{
			{ID: "aaaaaaaaaaaa", Author: "alice", Timestamp: 100_000, Lines: []int{1, 3, models.EndLine}},
			{ID: "bbbbbbbbbbbb", Author: "bob", Timestamp: 200_000, Lines: []int{2, models.EndLine}},
		},
	}
	markers := []models.MarkerSpec{
		{Kind: models.RankMarker(1), Start: 0, End: 2, Message: "hover a"},
		{Kind: models.RankMarker(0), Start: 2, End: 5, Message: "hover b"},
	}
	return BuildFileView(bundle, "a\nbé\nc\n", markers)
}

func TestBuildFileView(t *testing.T) {
	view := sampleView()

	require.Len(t, view.Lines, 3)
	assert.Equal(t, 2, view.Revisions)

	assert.Equal(t, "a", view.Lines[0].Text)
	assert.Equal(t, "aaaaaaaa", view.Lines[0].Revision)
	assert.Equal(t, models.RankMarker(1), view.Lines[0].Marker)

	assert.Equal(t, "bé", view.Lines[1].Text)
	assert.Equal(t, "bob", view.Lines[1].Author)
	assert.Equal(t, "hover b", view.Lines[1].Message)

	// line 3 starts at rune offset 5 and carries no marker
	assert.Equal(t, "alice", view.Lines[2].Author)
	assert.Empty(t, view.Lines[2].Marker)
}

func TestBuildFileViewWithoutBundle(t *testing.T) {
	view := BuildFileView(nil, "x\ny", nil)
	require.Len(t, view.Lines, 2)
	assert.Empty(t, view.Lines[0].Revision)
	assert.Equal(t, "y", view.Lines[1].Text)

	assert.Empty(t, BuildFileView(nil, "", nil).Lines)
}

func TestTableFormat(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(FormatTable, false).FormatFile(&buf, sampleView()))

	out := buf.String()
	assert.Contains(t, out, "File: main.go (3 lines, 2 revisions, mode top5)")
	assert.Contains(t, out, "#2")
	assert.Contains(t, out, "#1")
	assert.Contains(t, out, "2 of 3 lines marked")
	assert.NotContains(t, out, "\033[")
}

func TestTableFormatTruncatesLongAuthorsByRune(t *testing.T) {
	view := sampleView()
	view.Lines[0].Author = "Zoë Åström-Łukasiewicz"

	var buf bytes.Buffer
	require.NoError(t, NewFormatter(FormatTable, false).FormatFile(&buf, view))

	out := buf.String()
	assert.True(t, utf8.ValidString(out))
	assert.Contains(t, out, "Zoë Åström-Łu...")
}

func TestTableFormatColor(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(FormatTable, true).FormatFile(&buf, sampleView()))
	assert.Contains(t, buf.String(), rankColors[0])
	assert.Contains(t, buf.String(), colorReset)
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(FormatJSON, false).FormatFile(&buf, sampleView()))

	var decoded FileView
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "main.go", decoded.File)
	assert.Equal(t, models.ModeTop5, decoded.Mode)
	assert.Len(t, decoded.Lines, 3)
}

func TestCSVFormat(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(FormatCSV, false).FormatFile(&buf, sampleView()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, "line", records[0][0])
	assert.Equal(t, []string{"2", "bbbbbbbb", "bob", "1970-01-01T00:03:20Z", "rev.rank0", "hover b", "bé"}, records[2])
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatTable, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}
