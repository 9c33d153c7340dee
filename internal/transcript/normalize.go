// Package transcript normalizes recognized text before it is typed.
package transcript

import (
	"strings"
	"unicode"
)

// Options controls transcript normalization.
type Options struct {
	TrailingSpace bool
	// SingleLine folds line breaks into spaces so typing never submits a form.
	SingleLine bool
}

// Normalize trims the transcript, collapses runs of spaces, and applies opts.
// Whitespace-only input yields "".
func Normalize(text string, opts Options) string {
	text = strings.Map(func(r rune) rune {
		if r == '\r' {
			return -1
		}
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			return -1
		}
		return r
	}, text)

	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			continue
		}
		kept = append(kept, line)
	}
	if len(kept) == 0 {
		return ""
	}

	sep := "\n"
	if opts.SingleLine {
		sep = " "
	}
	normalized := strings.Join(kept, sep)

	if opts.TrailingSpace {
		return normalized + " "
	}
	return normalized
}
