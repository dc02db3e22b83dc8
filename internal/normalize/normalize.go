package normalize

import (
	"net/url"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Text trims a scraped string, turns NBSP into plain spaces and collapses
// runs of whitespace.
func Text(s string) string {
	s = strings.ReplaceAll(s, "\u00A0", " ")
	return strings.Join(strings.Fields(s), " ")
}

// TruncatePreview shortens text to at most width terminal columns, cutting
// at the last space when possible.
func TruncatePreview(text string, width int) string {
	if width <= 0 || runewidth.StringWidth(text) <= width {
		return text
	}

	truncated := runewidth.Truncate(text, width-1, "")
	if lastSpace := strings.LastIndex(truncated, " "); lastSpace > 0 {
		truncated = truncated[:lastSpace]
	}

	return truncated + "…"
}

// NormalizeURL trims the URL and drops its fragment.
func NormalizeURL(urlStr string) string {
	urlStr = strings.TrimSpace(urlStr)
	if idx := strings.Index(urlStr, "#"); idx > -1 {
		urlStr = urlStr[:idx]
	}
	return urlStr
}

// ResolveURL resolves href against base the way a browser would. An empty
// href resolves to base itself; an unparsable one yields "".
func ResolveURL(base, href string) string {
	baseURL, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return ""
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	return baseURL.ResolveReference(ref).String()
}
