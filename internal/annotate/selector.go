package annotate

import (
	"fmt"
	"sort"
	"time"

	"github.com/rohankatakam/crisk-annotate/internal/models"
)

// Selection is a marker chosen for one line
type Selection struct {
	Line   int // 1-based
	Marker models.MarkerSpec
}

type selectRequest struct {
	file        string
	groups      []*models.RevisionGroup
	index       map[string]*models.RevisionGroup
	lines       []*models.LineRevision
	highlighter Highlighter
}

type modeHandler func(req selectRequest) []Selection

// modeHandlers has one entry per HighlightingMode; unknown modes select nothing
var modeHandlers = map[models.HighlightingMode]modeHandler{
	models.ModeUnchecked: selectUnchecked,
	models.ModeTop5:      selectTop5,
	models.ModeOff:       selectNone,
}

// Select decides which lines get a marker under mode. groups and index are
// the output of Aggregate over lines.
func Select(file string, mode models.HighlightingMode, groups []*models.RevisionGroup, index map[string]*models.RevisionGroup, lines []*models.LineRevision, highlighter Highlighter) []Selection {
	handler, ok := modeHandlers[mode]
	if !ok {
		handler = selectNone
	}
	return handler(selectRequest{
		file:        file,
		groups:      groups,
		index:       index,
		lines:       lines,
		highlighter: highlighter,
	})
}

// ChangeMessage is the message of an unchecked-mode marker
func ChangeMessage(date time.Time, author string) string {
	return fmt.Sprintf("Changed on %s by %s", date.Format(time.UnixDate), author)
}

func selectUnchecked(req selectRequest) []Selection {
	if req.highlighter == nil {
		return nil
	}

	var out []Selection
	for i, line := range req.lines {
		date := line.Date()
		if !req.highlighter.IsChangeOfInterest(req.file, date, line.Author) {
			continue
		}
		out = append(out, Selection{
			Line: i + 1,
			Marker: models.MarkerSpec{
				Kind:    models.MarkerNewLine,
				Start:   line.StartOffset,
				End:     line.EndOffset,
				Message: ChangeMessage(date, line.Author),
			},
		})
	}
	return out
}

func selectTop5(req selectRequest) []Selection {
	ranks := make(map[*models.RevisionGroup]int, models.TopRevisions)
	for rank, group := range RankByRecency(req.groups, models.TopRevisions) {
		ranks[group] = rank
	}

	var out []Selection
	for i, line := range req.lines {
		group, ok := req.index[line.Revision]
		if !ok {
			continue
		}
		rank, ok := ranks[group]
		if !ok {
			continue
		}
		out = append(out, Selection{
			Line: i + 1,
			Marker: models.MarkerSpec{
				Kind:    models.RankMarker(rank),
				Start:   line.StartOffset,
				End:     line.EndOffset,
				Message: group.HoverInfo(),
			},
		})
	}
	return out
}

func selectNone(selectRequest) []Selection {
	return nil
}

// RankByRecency returns up to n groups, most recent first. Groups with equal
// timestamps keep their first-appearance order.
func RankByRecency(groups []*models.RevisionGroup, n int) []*models.RevisionGroup {
	ranked := append([]*models.RevisionGroup(nil), groups...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Timestamp > ranked[j].Timestamp
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
