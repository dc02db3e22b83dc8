package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// RobotsCache keeps parsed robots.txt files per scheme+host.
type RobotsCache struct {
	cache map[string]*robotsEntry
	ttl   time.Duration
	mu    sync.RWMutex
}

type robotsEntry struct {
	data      *robotstxt.RobotsData
	expiresAt time.Time
}

func NewRobotsCache(ttl time.Duration) *RobotsCache {
	return &RobotsCache{
		cache: make(map[string]*robotsEntry),
		ttl:   ttl,
	}
}

// IsAllowed reports whether agent may fetch target. Unreachable robots.txt
// files allow everything.
func (rc *RobotsCache) IsAllowed(ctx context.Context, target *url.URL, agent string, client *http.Client) bool {
	key := target.Scheme + "://" + target.Host

	rc.mu.RLock()
	cached, exists := rc.cache[key]
	rc.mu.RUnlock()

	if exists && time.Now().Before(cached.expiresAt) {
		return cached.allows(target, agent)
	}

	data, err := rc.fetch(ctx, key, agent, client)
	if err != nil {
		return true
	}

	entry := &robotsEntry{data: data, expiresAt: time.Now().Add(rc.ttl)}
	rc.mu.Lock()
	rc.cache[key] = entry
	rc.mu.Unlock()

	return entry.allows(target, agent)
}

func (rc *RobotsCache) fetch(ctx context.Context, origin, agent string, client *http.Client) (*robotstxt.RobotsData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", agent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return nil, err
	}

	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse robots.txt: %w", err)
	}
	return data, nil
}

func (e *robotsEntry) allows(target *url.URL, agent string) bool {
	if e.data == nil {
		return true
	}
	path := target.EscapedPath()
	if path == "" {
		path = "/"
	}
	if target.RawQuery != "" {
		path += "?" + target.RawQuery
	}
	return e.data.TestAgent(path, agent)
}
