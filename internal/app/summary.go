package app

import (
	"fmt"
	"io"
	"strings"

	"finnews-scraper/internal/normalize"
	"finnews-scraper/internal/scraper"
)

const noHeadlinesMessage = "No headlines were scraped. Check the logs for errors."

// PrintSummary writes the end-of-run report.
func PrintSummary(w io.Writer, result *RunResult) {
	if result == nil || len(result.Headlines) == 0 {
		fmt.Fprintln(w, noHeadlinesMessage)
		return
	}

	fmt.Fprintf(w, "\n=== Summary ===\n")
	fmt.Fprintf(w, "Total headlines scraped: %d\n", len(result.Headlines))
	for _, sc := range result.PerSource {
		fmt.Fprintf(w, "%s: %d headlines\n", sc.Source, sc.Count)
	}

	if len(result.Outputs) > 0 {
		fmt.Fprintln(w)
		for _, out := range result.Outputs {
			fmt.Fprintf(w, "Data saved to: %s\n", out)
		}
	}
	if result.SinkErrors > 0 {
		fmt.Fprintf(w, "Warning: %d output(s) failed, see the log for details\n", result.SinkErrors)
	}
}

// PrintHeadlines shows the first maxDisplay headlines, titles cut to
// columns display cells.
func PrintHeadlines(w io.Writer, headlines []scraper.Headline, maxDisplay, columns int) {
	if len(headlines) == 0 {
		fmt.Fprintln(w, "No headlines found.")
		return
	}

	fmt.Fprintf(w, "\n=== Found %d Headlines ===\n\n", len(headlines))

	for i, h := range headlines {
		if i >= maxDisplay {
			break
		}
		url := h.URL
		if !h.HasURL() {
			url = "-"
		}
		fmt.Fprintf(w, "%d. %s\n", i+1, normalize.TruncatePreview(h.Title, columns))
		fmt.Fprintf(w, "   Source: %s\n", h.Source)
		fmt.Fprintf(w, "   URL: %s\n", url)
		fmt.Fprintf(w, "   Date: %s\n", h.PostingDate)
		fmt.Fprintln(w, strings.Repeat("-", 80))
	}

	if len(headlines) > maxDisplay {
		fmt.Fprintf(w, "... and %d more headlines\n", len(headlines)-maxDisplay)
	}
}
