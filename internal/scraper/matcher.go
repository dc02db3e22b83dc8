package scraper

import (
	"github.com/PuerkitoBio/goquery"
)

// Matcher yields the candidate headline elements found under root.
type Matcher struct {
	Name  string
	match func(root *goquery.Selection) *goquery.Selection
}

func (m Matcher) Match(root *goquery.Selection) *goquery.Selection {
	return m.match(root)
}

// CSSMatcher matches descendants of root with a CSS selector.
func CSSMatcher(selector string) Matcher {
	return Matcher{
		Name: selector,
		match: func(root *goquery.Selection) *goquery.Selection {
			return root.Find(selector)
		},
	}
}

// ClassMatcher matches every element carrying the given class.
func ClassMatcher(class string) Matcher {
	m := CSSMatcher("." + class)
	m.Name = class
	return m
}

func cssMatchers(selectors []string) []Matcher {
	matchers := make([]Matcher, 0, len(selectors))
	for _, s := range selectors {
		matchers = append(matchers, CSSMatcher(s))
	}
	return matchers
}

func classMatchers(classes []string) []Matcher {
	matchers := make([]Matcher, 0, len(classes))
	for _, c := range classes {
		matchers = append(matchers, ClassMatcher(c))
	}
	return matchers
}

// headlineTitle returns the printable title for a log line.
func headlineTitle(title string) string {
	r := []rune(title)
	if len(r) > 100 {
		return string(r[:100]) + "..."
	}
	return title
}
