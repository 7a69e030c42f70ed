// Package sitemap reads the page list of a sitemap.xml document.
package sitemap

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const defaultMaxSize = 50 << 20

type document struct {
	URLs     []location `xml:"url"`
	Sitemaps []location `xml:"sitemap"`
}

type location struct {
	Loc string `xml:"loc"`
}

// Loader reads sitemaps from disk or over HTTP.
type Loader struct {
	httpClient *http.Client
	maxSize    int64
}

// Option configures a Loader.
type Option func(*Loader)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(l *Loader) {
		l.httpClient.Timeout = d
	}
}

// WithMaxSize caps how many bytes of a sitemap are read. A document cut off
// by the cap fails to decode.
func WithMaxSize(n int64) Option {
	return func(l *Loader) {
		l.maxSize = n
	}
}

// NewLoader creates a new sitemap loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		maxSize:    defaultMaxSize,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load returns every location listed in source, which is either a file path
// or an http(s) URL. Duplicates are dropped; order is not significant.
func (l *Loader) Load(ctx context.Context, source string) ([]string, error) {
	var r io.ReadCloser
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		body, err := l.get(ctx, source)
		if err != nil {
			return nil, err
		}
		r = body
	} else {
		f, err := os.Open(source)
		if err != nil {
			return nil, fmt.Errorf("open sitemap: %w", err)
		}
		r = f
	}
	defer r.Close()

	return Parse(io.LimitReader(r, l.maxSize))
}

func (l *Loader) get(ctx context.Context, source string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "random-k8s/1.0")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch sitemap: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// Parse decodes a urlset or sitemapindex document.
func Parse(r io.Reader) ([]string, error) {
	var doc document
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode sitemap: %w", err)
	}

	seen := make(map[string]bool)
	var urls []string
	for _, loc := range append(doc.URLs, doc.Sitemaps...) {
		u := strings.TrimSpace(loc.Loc)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		urls = append(urls, u)
	}
	return urls, nil
}
