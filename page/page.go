// Package page fetches documentation pages and extracts their title and
// description.
package page

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"

	"github.com/stefanbuck/random-k8s/tweet"
)

const (
	defaultTitlePrefix    = "Random K8s"
	defaultMaxTitleLength = 40
	maxBodySize           = 5 << 20
)

// Fetcher downloads pages and turns them into post metadata.
type Fetcher struct {
	httpClient     *http.Client
	titlePrefix    string
	maxTitleLength int
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.httpClient.Timeout = d
	}
}

// WithTitlePrefix sets the text every title starts with.
func WithTitlePrefix(prefix string) Option {
	return func(f *Fetcher) {
		f.titlePrefix = prefix
	}
}

// WithMaxTitleLength caps the heading length before the ellipsis.
func WithMaxTitleLength(n int) Option {
	return func(f *Fetcher) {
		f.maxTitleLength = n
	}
}

// NewFetcher creates a new page fetcher.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		httpClient:     &http.Client{Timeout: 10 * time.Second},
		titlePrefix:    defaultTitlePrefix,
		maxTitleLength: defaultMaxTitleLength,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads rawURL and extracts its metadata. When the page has no meta
// description the readability excerpt is used instead.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (tweet.PageMeta, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		return tweet.PageMeta{}, fmt.Errorf("invalid URL: %s", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return tweet.PageMeta{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; random-k8s/1.0)")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return tweet.PageMeta{}, fmt.Errorf("fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return tweet.PageMeta{}, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return tweet.PageMeta{}, fmt.Errorf("read body: %w", err)
	}

	doc := strings.ReplaceAll(string(body), "\n", " ")

	meta := tweet.PageMeta{
		Title:       ExtractTitle(doc, f.titlePrefix, f.maxTitleLength),
		Description: ExtractDescription(doc),
		URL:         rawURL,
	}

	if meta.Description == "" {
		article, err := readability.FromReader(bytes.NewReader(body), parsedURL)
		if err != nil {
			return tweet.PageMeta{}, fmt.Errorf("parse content: %w", err)
		}
		meta.Description = collapseSpaces(strings.TrimSpace(article.Excerpt))
	}

	return meta, nil
}
