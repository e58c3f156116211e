// Package slug derives URL-safe shop identifiers from display names.
package slug

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	whitespace = regexp.MustCompile(`\s+`)
	nonWord    = regexp.MustCompile(`[^\p{L}\p{N}_\-]+`)
	lower      = cases.Lower(language.Und)
)

// ErrEmpty is returned when nothing usable is left of the name
var ErrEmpty = errors.New("slug: name has no usable characters")

// Make lower-cases name, turns whitespace runs into a single hyphen and drops anything
// that is not a letter, digit, underscore or hyphen.
func Make(name string) string {
	s := lower.String(strings.TrimSpace(name))
	s = whitespace.ReplaceAllString(s, "-")
	return nonWord.ReplaceAllString(s, "")
}

// Unique returns the slug of name, or the first of "<slug>-1", "<slug>-2", ... for which
// exists reports false.
func Unique(name string, exists func(candidate string) (bool, error)) (string, error) {
	base := Make(name)
	if base == "" {
		return "", ErrEmpty
	}

	candidate := base
	for i := 1; ; i++ {
		taken, err := exists(candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}
