package annotate

import (
	"bufio"
	"io"

	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"

	"github.com/rohankatakam/crisk-annotate/internal/models"
)

// LineTerminator ends a line for offset mapping. It is counted as part of
// the line it terminates.
const LineTerminator = '\n'

// Decode wraps r with a decoder for charset. Unknown or empty charsets fall
// back to UTF-8. The returned bool reports whether the declared charset was used.
func Decode(r io.Reader, charset string) (io.Reader, bool) {
	if charset == "" {
		return r, false
	}
	enc, err := ianaindex.IANA.Encoding(charset)
	if err != nil || enc == nil {
		return r, false
	}
	return transform.NewReader(r, enc.NewDecoder()), true
}

// MapOffsets assigns each line its half-open character range [start, end),
// terminator included, in one forward pass over the decoded stream.
//
// If the stream runs out first, remaining lines get a zero-width range at the
// final cursor. Extra stream content after the last line is never read. A read
// error is recorded against its line and the pass moves on to the next line.
func MapOffsets(r io.Reader, charset string, lines []*models.LineRevision) []models.Diagnostic {
	decoded, _ := Decode(r, charset)
	br := bufio.NewReader(decoded)

	var diags []models.Diagnostic
	cursor := 0
	exhausted := false

	for i, line := range lines {
		line.StartOffset = cursor

		for !exhausted {
			ch, _, err := br.ReadRune()
			if err == io.EOF {
				exhausted = true
				break
			}
			if err != nil {
				diags = append(diags, models.Diagnostic{Stage: "offsets", Line: i + 1, Err: err})
				break
			}
			cursor++
			if ch == LineTerminator {
				break
			}
		}

		line.EndOffset = cursor
	}

	return diags
}
