package normalize

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/johnrirwin/dailylens/internal/htmltext"
	"github.com/johnrirwin/dailylens/internal/models"
)

// Rule is one publisher quirk. Rules are evaluated in slice order; a rule
// applies when Match accepts the feed title. Nil hooks are skipped.
type Rule struct {
	Name          string
	Match         func(source string) bool
	CleanTitle    func(title string) string
	CleanSource   func(source string) string
	ImageFallback func(item models.RawFeedItem) string
}

func (r Rule) matches(source string) bool {
	return r.Match == nil || r.Match(source)
}

func SourceContains(name string) func(string) bool {
	return func(source string) bool {
		return name != "" && strings.Contains(source, name)
	}
}

func SourceEquals(name string) func(string) bool {
	return func(source string) bool {
		return strings.TrimSpace(source) == name
	}
}

// SuppressSource blanks the source of every feed whose title contains name.
func SuppressSource(name string) Rule {
	return Rule{
		Name:        "suppress-source:" + name,
		Match:       SourceContains(name),
		CleanSource: func(string) string { return "" },
	}
}

// ImageFromFullContent looks for an <img> in content:encoded for feeds that
// only embed images there.
func ImageFromFullContent(name string) Rule {
	return Rule{
		Name:  "full-content-image:" + name,
		Match: SourceEquals(name),
		ImageFallback: func(item models.RawFeedItem) string {
			return htmltext.FirstImageSrc(item.FullContent)
		},
	}
}

// StripTitlePattern removes a case-insensitive pattern from every title.
func StripTitlePattern(pattern string) (Rule, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return Rule{}, fmt.Errorf("invalid title pattern %q: %w", pattern, err)
	}
	return Rule{
		Name: "strip-title:" + pattern,
		CleanTitle: func(title string) string {
			return re.ReplaceAllString(title, "")
		},
	}, nil
}

// RulesFromConfig builds the rule table: title patterns first, then source
// suppression, then image fallbacks, each in the order given.
func RulesFromConfig(suppressSources, contentImageSources, titlePatterns []string) ([]Rule, error) {
	rules := make([]Rule, 0, len(suppressSources)+len(contentImageSources)+len(titlePatterns))

	for _, p := range titlePatterns {
		if strings.TrimSpace(p) == "" {
			continue
		}
		r, err := StripTitlePattern(p)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	for _, name := range suppressSources {
		if name = strings.TrimSpace(name); name != "" {
			rules = append(rules, SuppressSource(name))
		}
	}
	for _, name := range contentImageSources {
		if name = strings.TrimSpace(name); name != "" {
			rules = append(rules, ImageFromFullContent(name))
		}
	}

	return rules, nil
}
