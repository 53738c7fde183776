package textutil

import (
	"regexp"
	"strings"
	"unicode"
)

const MaxSlugLength = 64

var (
	whitespaceRegex   = regexp.MustCompile(`[\s\p{Zs}]+`)
	tagRegex          = regexp.MustCompile(`<[^>]*>`)
	slugDisallowed    = regexp.MustCompile(`[^a-z0-9а-яё\s\p{Zs}-]`)
	repeatedHyphens   = regexp.MustCompile(`-{2,}`)
	nonPrintableRunes = func(r rune) rune {
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}
)

// Cleanup strips markup, drops non-printable runes and collapses whitespace.
func Cleanup(text string) string {
	text = tagRegex.ReplaceAllString(text, " ")
	text = strings.Map(nonPrintableRunes, text)
	text = whitespaceRegex.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Slugify turns a display title into a filename and url safe identifier.
// Latin letters, digits, cyrillic letters and hyphens survive, whitespace
// runs become single hyphens and the result is at most MaxSlugLength runes.
//
// Slugify(Slugify(x)) == Slugify(x)
func Slugify(title string) string {
	slug := strings.ToLower(title)
	slug = slugDisallowed.ReplaceAllString(slug, "")
	slug = whitespaceRegex.ReplaceAllString(slug, "-")
	slug = repeatedHyphens.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")

	runes := []rune(slug)
	if len(runes) > MaxSlugLength {
		// the cut can land right after a hyphen
		slug = strings.TrimRight(string(runes[:MaxSlugLength]), "-")
	}
	return slug
}

// Matcher reports whether a text contains any of a fixed set of keywords,
// ignoring case.
type Matcher struct {
	pattern *regexp.Regexp
}

func NewMatcher(keywords ...string) Matcher {
	quoted := make([]string, len(keywords))
	for i, k := range keywords {
		quoted[i] = regexp.QuoteMeta(k)
	}
	return Matcher{pattern: regexp.MustCompile(`(?i)` + strings.Join(quoted, "|"))}
}

func (m Matcher) Match(text string) bool {
	return m.pattern.MatchString(text)
}
