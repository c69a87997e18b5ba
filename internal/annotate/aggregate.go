package annotate

import "github.com/rohankatakam/crisk-annotate/internal/models"

// GroupColor is the display color given to every revision group
var GroupColor = models.RGB{R: 255, G: 0, B: 0}

// Aggregate groups lines by revision id in order of first appearance. Each
// group lists its 1-based line numbers and is closed with models.EndLine.
// The returned index maps revision id to group.
func Aggregate(lines []*models.LineRevision) ([]*models.RevisionGroup, map[string]*models.RevisionGroup) {
	var groups []*models.RevisionGroup
	byID := make(map[string]*models.RevisionGroup)

	for i, line := range lines {
		group, ok := byID[line.Revision]
		if !ok {
			group = &models.RevisionGroup{
				ID:        line.Revision,
				Author:    line.Author,
				Color:     GroupColor,
				Timestamp: line.Timestamp,
			}
			byID[line.Revision] = group
			groups = append(groups, group)
		}
		group.Lines = append(group.Lines, i+1)
	}

	for _, group := range groups {
		group.Lines = append(group.Lines, models.EndLine)
	}

	return groups, byID
}
