package storage

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"finnews-scraper/internal/scraper"
)

// CSVHeader is the column order of the CSV export.
var CSVHeader = []string{"title", "url", "source", "posting_date"}

// OutputPath builds <dir>/<prefix>_<YYYYMMDD_HHMMSS><ext>.
func OutputPath(dir, prefix string, ts time.Time, ext string) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s%s", prefix, ts.Format("20060102_150405"), ext))
}

// WriteCSV writes a header row and one row per headline. Every row has the
// same four cells; an absent link is an empty cell.
func WriteCSV(w io.Writer, headlines []scraper.Headline) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, h := range headlines {
		if err := cw.Write([]string{h.Title, h.URL, h.Source, h.PostingDate}); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

type jsonHeadline struct {
	Title       string  `json:"title"`
	URL         *string `json:"url"`
	Source      string  `json:"source"`
	PostingDate string  `json:"posting_date"`
}

// WriteJSON writes the headlines as an indented array. Text is written as
// is (no HTML or non-ASCII escaping) and an absent link is null.
func WriteJSON(w io.Writer, headlines []scraper.Headline) error {
	out := make([]jsonHeadline, 0, len(headlines))
	for _, h := range headlines {
		item := jsonHeadline{Title: h.Title, Source: h.Source, PostingDate: h.PostingDate}
		if h.HasURL() {
			link := h.URL
			item.URL = &link
		}
		out = append(out, item)
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// FileSink writes a batch to a timestamped file in dir.
type FileSink struct {
	name   string
	dir    string
	prefix string
	ext    string
	write  func(io.Writer, []scraper.Headline) error
}

func NewCSVSink(dir, prefix string) *FileSink {
	return &FileSink{name: "csv", dir: dir, prefix: prefix, ext: ".csv", write: WriteCSV}
}

func NewJSONSink(dir, prefix string) *FileSink {
	return &FileSink{name: "json", dir: dir, prefix: prefix, ext: ".json", write: WriteJSON}
}

func (s *FileSink) Name() string {
	return s.name
}

// Path returns the file the batch will be written to.
func (s *FileSink) Path(batch *Batch) string {
	return OutputPath(s.dir, s.prefix, batch.ScrapedAt, s.ext)
}

func (s *FileSink) Save(_ context.Context, batch *Batch) (path string, err error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}

	path = s.Path(batch)
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, closeErr)
		}
	}()

	if err := s.write(file, batch.Headlines); err != nil {
		return "", err
	}
	return path, nil
}
