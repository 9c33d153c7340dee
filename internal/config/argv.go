package config

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// typingPlaceholder marks where the typed character goes in typing.command.
const typingPlaceholder = "{}"

// parseTypingCommand splits typing.command into argv.
func parseTypingCommand(raw string) (CommandConfig, error) {
	argv, err := splitWords(raw)
	if err != nil {
		return CommandConfig{}, fmt.Errorf("invalid typing.command: %w", err)
	}
	if len(argv) > 0 && strings.Contains(argv[0], typingPlaceholder) {
		return CommandConfig{}, errors.New("invalid typing.command: the program cannot contain the {} placeholder")
	}
	return CommandConfig{Raw: raw, Argv: argv}, nil
}

// splitWords tokenizes like a POSIX shell without expansion. Single quotes
// are literal, double quotes honour \" and \\, and an unquoted # at the start
// of a word comments out the rest of the line.
func splitWords(input string) ([]string, error) {
	var (
		words  []string
		word   strings.Builder
		inWord bool
		quote  rune
	)
	runes := []rune(input)

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		switch quote {
		case '\'':
			if r == '\'' {
				quote = 0
			} else {
				word.WriteRune(r)
			}
			continue
		case '"':
			switch {
			case r == '"':
				quote = 0
			case r == '\\' && i+1 < len(runes) && (runes[i+1] == '"' || runes[i+1] == '\\'):
				i++
				word.WriteRune(runes[i])
			default:
				word.WriteRune(r)
			}
			continue
		}

		switch {
		case unicode.IsSpace(r):
			if inWord {
				words = append(words, word.String())
				word.Reset()
				inWord = false
			}
		case r == '#' && !inWord:
			return words, nil
		case r == '\\':
			if i+1 == len(runes) {
				return nil, errors.New("trailing backslash")
			}
			i++
			word.WriteRune(runes[i])
			inWord = true
		case r == '\'' || r == '"':
			quote = r
			inWord = true
		default:
			word.WriteRune(r)
			inWord = true
		}
	}

	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote", quote)
	}
	if inWord {
		words = append(words, word.String())
	}
	return words, nil
}
