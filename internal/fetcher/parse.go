package fetcher

import (
	"fmt"
	"io"

	"github.com/PuerkitoBio/goquery"
)

func parseHTML(r io.Reader) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}
