package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finnews-scraper/internal/observability"
)

const rssFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel>
  <title>Panama Banking News</title>
  <item><title>Banco Nacional reporta ganancias</title><link>/2024/01/story</link><pubDate>Mon, 15 Jan 2024 10:00:00 +0000</pubDate></item>
  <item><title>Sin fecha</title><link>https://panamabankingnews.com/sin-fecha</link></item>
  <item><title>Banco Nacional reporta ganancias</title><link>/2024/01/story</link><pubDate>Mon, 15 Jan 2024 10:00:00 +0000</pubDate></item>
  <item><title>  </title><link>/vacio</link></item>
</channel></rss>`

func TestFeedExtract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, rssFeed)
	}))
	defer srv.Close()

	source := FeedSource{URL: srv.URL + "/feed/", Source: "Panama Banking News (RSS)"}
	e := NewFeedExtractor(source, &http.Client{Timeout: 5 * time.Second}, "test-agent", observability.NewNopLogger())

	headlines, err := e.Extract(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Panama Banking News (RSS)", e.Name())
	assert.Equal(t, []Headline{
		{Title: "Banco Nacional reporta ganancias", URL: srv.URL + "/2024/01/story", Source: source.Source, PostingDate: "Mon, 15 Jan 2024 10:00:00 +0000"},
		{Title: "Sin fecha", URL: "https://panamabankingnews.com/sin-fecha", Source: source.Source, PostingDate: DateNA},
	}, headlines)
}

func TestFeedExtractFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	e := NewFeedExtractor(FeedSource{URL: srv.URL, Source: "x"}, http.DefaultClient, "test-agent", observability.NewNopLogger())
	headlines, err := e.Extract(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, headlines)
}
