package speech

import "strings"

// sentenceTerminators covers the Latin and CJK punctuation the supported
// languages use.
var sentenceTerminators = map[rune]bool{
	'.': true, '!': true, '?': true, '\n': true,
	'。': true, '！': true, '？': true,
}

// SplitSentences breaks text into synthesis-sized pieces at sentence
// boundaries. The terminator stays attached to its sentence; text without
// any terminator comes back as a single piece.
func SplitSentences(text string) []string {
	var pieces []string
	var current strings.Builder

	for _, r := range text {
		if r == '\n' {
			if piece := strings.TrimSpace(current.String()); piece != "" {
				pieces = append(pieces, piece)
			}
			current.Reset()
			continue
		}
		current.WriteRune(r)
		if sentenceTerminators[r] {
			if piece := strings.TrimSpace(current.String()); piece != "" {
				pieces = append(pieces, piece)
			}
			current.Reset()
		}
	}
	if piece := strings.TrimSpace(current.String()); piece != "" {
		pieces = append(pieces, piece)
	}
	return pieces
}
