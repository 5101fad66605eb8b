package datasets

import (
	"fmt"
	"strings"
)

// Colors names the color classes. Color c has label c.
var Colors = []string{"blue", "green", "red", "cyan", "magenta", "yellow", "black", "gray"}

// Markers names the marker classes. Marker m has label len(Colors)+m.
var Markers = []string{"o", "v", "^", "<", ">", "s", "*", "P"}

var abbreviations = map[string]string{
	"blue": "b", "green": "g", "red": "r", "cyan": "c",
	"magenta": "m", "yellow": "y", "black": "k", "gray": "a",
}

// VocabularySize is the number of answer labels.
func VocabularySize() int {
	return len(Colors) + len(Markers)
}

// ColorLabel maps a color class to its label.
func ColorLabel(c int) int { return c }

// MarkerLabel maps a marker class to its label.
func MarkerLabel(m int) int { return len(Colors) + m }

// Label returns the name of a label, or "?" when out of range.
func Label(l int) string {
	switch {
	case l >= 0 && l < len(Colors):
		return Colors[l]
	case l >= len(Colors) && l < VocabularySize():
		return Markers[l-len(Colors)]
	}
	return "?"
}

// Caption renders the query line "<anchor> <jumps> <target>" followed by the
// per step predictions, colors shortened to one letter.
func Caption(s *Sample, steps []int) string {
	var sb strings.Builder
	for _, p := range steps {
		name := Label(p)
		if short, ok := abbreviations[name]; ok {
			name = short
		}
		sb.WriteString(name)
	}
	return fmt.Sprintf("%s %d %s\n%s", Label(s.Anchor), s.Jumps, Label(s.Target), sb.String())
}
