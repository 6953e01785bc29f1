package eligibility

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// stripMarks removes diacritics: decompose, drop combining marks, recompose.
	stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

	whitespaceRe = regexp.MustCompile(`\s+`)
	shortTokenRe = regexp.MustCompile(`^[a-z0-9]+$`)
)

// Normalize lowercases, strips diacritics, and collapses whitespace.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if out, _, err := transform.String(stripMarks, s); err == nil {
		s = out
	}
	return whitespaceRe.ReplaceAllString(s, " ")
}

type matcher struct {
	name string // original tag name
	norm string
	re   *regexp.Regexp // nil means plain substring match
}

// Filter decides whether a product name is on-topic for the configured tag
// catalog. Short purely-alphanumeric tags (<= 3 chars) must match on word
// boundaries so a tag like "tv" cannot fire inside "atvidade"; longer tags
// match as case-insensitive substrings.
type Filter struct {
	matchers      []matcher
	permitOnEmpty bool
}

// New compiles a filter over tag names. permitOnEmpty decides the policy when
// the tag catalog is empty: true permits every name, false denies every name.
func New(tags []string, permitOnEmpty bool) *Filter {
	f := &Filter{permitOnEmpty: permitOnEmpty}
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		n := Normalize(tag)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		m := matcher{name: tag, norm: n}
		if len(n) <= 3 && shortTokenRe.MatchString(n) {
			m.re = regexp.MustCompile(`\b` + regexp.QuoteMeta(n) + `\b`)
		}
		f.matchers = append(f.matchers, m)
	}
	return f
}

// Eligible reports whether name matches at least one tag, and returns the
// matched tag names for downstream fan-out targeting. With an empty tag
// catalog the permitOnEmpty policy decides and no tags are returned.
func (f *Filter) Eligible(name string) (bool, []string) {
	if len(f.matchers) == 0 {
		return f.permitOnEmpty, nil
	}
	matched := f.Match(name)
	return len(matched) > 0, matched
}

// Match returns the tag names matching the normalized product name.
func (f *Filter) Match(name string) []string {
	n := Normalize(name)
	var matched []string
	for _, m := range f.matchers {
		if m.re != nil {
			if m.re.MatchString(n) {
				matched = append(matched, m.name)
			}
		} else if strings.Contains(n, m.norm) {
			matched = append(matched, m.name)
		}
	}
	return matched
}
