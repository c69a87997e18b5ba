package models

import (
	"fmt"
	"strings"
)

// HighlightingMode selects which lines receive a marker
type HighlightingMode string

const (
	// ModeUnchecked marks every line the highlighter reports as of interest
	ModeUnchecked HighlightingMode = "unchecked"
	// ModeTop5 marks lines belonging to the five most recent revisions
	ModeTop5 HighlightingMode = "top5"
	// ModeOff emits no markers
	ModeOff HighlightingMode = "off"
)

// Modes lists the supported highlighting modes
func Modes() []HighlightingMode {
	return []HighlightingMode{ModeUnchecked, ModeTop5, ModeOff}
}

// ParseHighlightingMode converts a config/flag value to a mode
func ParseHighlightingMode(s string) (HighlightingMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "unchecked", "new", "new_lines":
		return ModeUnchecked, nil
	case "top5", "top-5", "recent":
		return ModeTop5, nil
	case "off", "none", "":
		return ModeOff, nil
	}
	return "", fmt.Errorf("unknown highlighting mode %q (want unchecked, top5 or off)", s)
}

func (m HighlightingMode) String() string {
	return string(m)
}
