// Package poster runs one posting round: pick a candidate, build its post and
// publish it, retrying with another candidate on failure.
package poster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/stefanbuck/random-k8s/selector"
	"github.com/stefanbuck/random-k8s/tweet"
)

const (
	defaultRetryLimit    = 10
	defaultRecencyWindow = 30 * 24 * time.Hour
)

// ErrRetriesExhausted is returned when every attempt of a round failed.
var ErrRetriesExhausted = errors.New("unable to find a page to post")

// StoredPost is a published post handed to storage.
type StoredPost struct {
	URL      string
	Title    string
	Text     string
	TweetID  string
	PostedAt time.Time
}

// Result describes a successful round.
type Result struct {
	URL      string
	Text     string
	ID       string
	Attempts int
}

// Fetcher loads the metadata of a page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (tweet.PageMeta, error)
}

// Composer turns page metadata into post text.
type Composer interface {
	Compose(meta tweet.PageMeta, opts ...tweet.ComposeOption) (string, error)
}

// Sender publishes post text.
type Sender interface {
	Send(ctx context.Context, text string) (string, error)
}

// Storage provides persistence operations.
type Storage interface {
	GetRecentlyPostedURLs(ctx context.Context, within time.Duration) ([]string, error)
	SavePost(ctx context.Context, post *StoredPost) error
}

// Chooser returns an index in [0, n).
type Chooser func(n int) int

// RandomChooser picks uniformly at random.
func RandomChooser(n int) int {
	return rand.Intn(n)
}

// Runner orchestrates a posting round.
type Runner struct {
	candidates    []selector.Candidate
	fetcher       Fetcher
	composer      Composer
	storage       Storage
	sender        Sender
	chooser       Chooser
	retryLimit    int
	recencyWindow time.Duration
	composeOpts   []tweet.ComposeOption
	dryRun        bool
}

// Option configures a Runner.
type Option func(*Runner)

// WithRetryLimit sets how many failed attempts are retried.
func WithRetryLimit(n int) Option {
	return func(r *Runner) {
		r.retryLimit = n
	}
}

// WithRecencyWindow sets how long a posted URL is skipped.
func WithRecencyWindow(d time.Duration) Option {
	return func(r *Runner) {
		r.recencyWindow = d
	}
}

// WithChooser replaces the random candidate chooser.
func WithChooser(c Chooser) Option {
	return func(r *Runner) {
		r.chooser = c
	}
}

// WithComposeOptions passes opts to every Compose call.
func WithComposeOptions(opts ...tweet.ComposeOption) Option {
	return func(r *Runner) {
		r.composeOpts = opts
	}
}

// WithDryRun disables recording published posts.
func WithDryRun(dryRun bool) Option {
	return func(r *Runner) {
		r.dryRun = dryRun
	}
}

// NewRunner creates a new posting runner.
func NewRunner(
	candidates []selector.Candidate,
	fetcher Fetcher,
	composer Composer,
	storage Storage,
	sender Sender,
	opts ...Option,
) *Runner {
	r := &Runner{
		candidates:    candidates,
		fetcher:       fetcher,
		composer:      composer,
		storage:       storage,
		sender:        sender,
		chooser:       RandomChooser,
		retryLimit:    defaultRetryLimit,
		recencyWindow: defaultRecencyWindow,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run publishes one post. Each failed attempt picks a new candidate; after
// the retry limit is exceeded it returns ErrRetriesExhausted.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	if len(r.candidates) == 0 {
		return nil, selector.ErrEmptySelection
	}

	pool := r.filterRecent(ctx)
	attempts := r.retryLimit + 1

	slog.Info("starting post run", "candidates", len(pool), "max_attempts", attempts, "dry_run", r.dryRun)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		i := r.chooser(len(pool))
		if i < 0 || i >= len(pool) {
			return nil, fmt.Errorf("chooser returned index %d for %d candidates", i, len(pool))
		}
		candidate := pool[i]

		result, err := r.post(ctx, candidate)
		if err != nil {
			lastErr = err
			slog.Warn("post attempt failed", "url", candidate.URL, "attempt", attempt, "error", err)
			continue
		}

		result.Attempts = attempt
		slog.Info("post published", "url", result.URL, "id", result.ID, "attempts", attempt)
		return result, nil
	}

	return nil, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempts, lastErr)
}

func (r *Runner) filterRecent(ctx context.Context) []selector.Candidate {
	recent, err := r.storage.GetRecentlyPostedURLs(ctx, r.recencyWindow)
	if err != nil {
		slog.Warn("failed to get recently posted URLs", "error", err)
		return r.candidates
	}

	recentSet := make(map[string]bool, len(recent))
	for _, u := range recent {
		recentSet[u] = true
	}

	var filtered []selector.Candidate
	for _, c := range r.candidates {
		if !recentSet[c.URL] {
			filtered = append(filtered, c)
		}
	}
	slog.Info("filtered candidates", "before", len(r.candidates), "after", len(filtered))

	// Everything was posted recently; repeat rather than stall.
	if len(filtered) == 0 {
		return r.candidates
	}
	return filtered
}

func (r *Runner) post(ctx context.Context, c selector.Candidate) (*Result, error) {
	var meta tweet.PageMeta
	if c.Prebuilt() {
		meta = *c.Meta
	} else {
		fetched, err := r.fetcher.Fetch(ctx, c.URL)
		if err != nil {
			return nil, fmt.Errorf("fetch page: %w", err)
		}
		meta = fetched
	}

	text, err := r.composer.Compose(meta, r.composeOpts...)
	if err != nil {
		return nil, fmt.Errorf("compose post: %w", err)
	}

	id, err := r.sender.Send(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("send post: %w", err)
	}

	// A published post is never retried, even if saving it fails.
	if !r.dryRun {
		stored := &StoredPost{
			URL:      c.URL,
			Title:    meta.Title,
			Text:     text,
			TweetID:  id,
			PostedAt: time.Now(),
		}
		if err := r.storage.SavePost(ctx, stored); err != nil {
			slog.Warn("failed to save post", "url", c.URL, "id", id, "error", err)
		}
	}

	return &Result{URL: c.URL, Text: text, ID: id}, nil
}
