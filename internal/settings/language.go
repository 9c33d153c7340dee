package settings

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Language is a validated transcription language hint.
type Language struct {
	Code string
	Name string
}

// Auto reports whether the hint requests automatic detection.
func (l Language) Auto() bool { return l.Code == "" }

// ResolveLanguage accepts BCP 47 or ISO 639 codes ("en", "pt-BR", "deu") and
// reduces them to the base language the transcription service expects.
func ResolveLanguage(input string) (Language, error) {
	input = strings.TrimSpace(input)
	if input == "" || strings.EqualFold(input, "auto") {
		return Language{Name: AutoLanguageName}, nil
	}

	tag, err := language.Parse(input)
	if err != nil {
		return Language{}, fmt.Errorf("unknown language %q: %w", input, err)
	}
	base, confidence := tag.Base()
	if confidence == language.No || base.String() == "und" {
		return Language{}, fmt.Errorf("unknown language %q", input)
	}

	name := display.English.Languages().Name(base)
	if name == "" {
		name = base.String()
	}
	return Language{Code: base.String(), Name: name}, nil
}
