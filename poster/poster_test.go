package poster

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stefanbuck/random-k8s/selector"
	"github.com/stefanbuck/random-k8s/tweet"
)

// Mocks

type mockFetcher struct {
	pages   map[string]tweet.PageMeta
	failing map[string]bool
	fetched []string
}

func (m *mockFetcher) Fetch(ctx context.Context, url string) (tweet.PageMeta, error) {
	m.fetched = append(m.fetched, url)
	if m.failing[url] {
		return tweet.PageMeta{}, errors.New("unexpected status: 404")
	}
	if meta, ok := m.pages[url]; ok {
		return meta, nil
	}
	return tweet.PageMeta{Title: "Random K8s", Description: "Default description", URL: url}, nil
}

type mockSender struct {
	err   error
	texts []string
}

func (m *mockSender) Send(ctx context.Context, text string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.texts = append(m.texts, text)
	return "tweet-1", nil
}

type mockStorage struct {
	recent  []string
	posts   []*StoredPost
	getErr  error
	saveErr error
	within  time.Duration
}

func (m *mockStorage) GetRecentlyPostedURLs(ctx context.Context, within time.Duration) ([]string, error) {
	m.within = within
	return m.recent, m.getErr
}

func (m *mockStorage) SavePost(ctx context.Context, post *StoredPost) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.posts = append(m.posts, post)
	return nil
}

// sequence returns a chooser that yields the given indexes in order.
func sequence(indexes ...int) Chooser {
	i := 0
	return func(n int) int {
		idx := indexes[i%len(indexes)]
		i++
		return idx
	}
}

func candidates(urls ...string) []selector.Candidate {
	return selector.Merge(urls, nil)
}

func newComposer() *tweet.Composer {
	return tweet.NewComposer(tweet.NewCounter())
}

func TestRun(t *testing.T) {
	fetcher := &mockFetcher{pages: map[string]tweet.PageMeta{
		"https://kubernetes.io/docs/concepts/workloads/pods/": {
			Title:       "Random K8s: Pods",
			Description: "Pods are the smallest deployable units of computing.",
			URL:         "https://kubernetes.io/docs/concepts/workloads/pods/",
		},
	}}
	sender := &mockSender{}
	storage := &mockStorage{}

	r := NewRunner(
		candidates("https://kubernetes.io/docs/concepts/workloads/pods/"),
		fetcher, newComposer(), storage, sender,
		WithChooser(sequence(0)),
		WithRecencyWindow(48*time.Hour),
	)

	result, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := "Random K8s: Pods\n\nPods are the smallest deployable units of computing.\n\n" +
		"https://kubernetes.io/docs/concepts/workloads/pods/\n\n#kubernetes"
	if result.Text != want {
		t.Errorf("Text = %q, want %q", result.Text, want)
	}
	if result.ID != "tweet-1" || result.Attempts != 1 {
		t.Errorf("result = %+v", result)
	}
	if len(sender.texts) != 1 {
		t.Fatalf("expected 1 send, got %d", len(sender.texts))
	}
	if storage.within != 48*time.Hour {
		t.Errorf("recency window = %v", storage.within)
	}
	if len(storage.posts) != 1 {
		t.Fatalf("expected 1 saved post, got %d", len(storage.posts))
	}
	saved := storage.posts[0]
	if saved.URL != result.URL || saved.TweetID != "tweet-1" || saved.Text != want {
		t.Errorf("saved post = %+v", saved)
	}
	if saved.PostedAt.IsZero() {
		t.Error("PostedAt should be set")
	}
}

func TestRunRetriesThenSucceeds(t *testing.T) {
	fetcher := &mockFetcher{failing: map[string]bool{
		"https://kubernetes.io/a/": true,
		"https://kubernetes.io/b/": true,
	}}
	sender := &mockSender{}

	r := NewRunner(
		candidates("https://kubernetes.io/a/", "https://kubernetes.io/b/", "https://kubernetes.io/c/"),
		fetcher, newComposer(), &mockStorage{}, sender,
		WithChooser(sequence(0, 1, 2)),
	)

	result, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.URL != "https://kubernetes.io/c/" {
		t.Errorf("URL = %q", result.URL)
	}
	if result.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", result.Attempts)
	}
}

func TestRunRetriesExhausted(t *testing.T) {
	fetcher := &mockFetcher{failing: map[string]bool{"https://kubernetes.io/a/": true}}
	sender := &mockSender{}

	r := NewRunner(
		candidates("https://kubernetes.io/a/"),
		fetcher, newComposer(), &mockStorage{}, sender,
		WithRetryLimit(2),
	)

	_, err := r.Run(context.Background())
	if !errors.Is(err, ErrRetriesExhausted) {
		t.Fatalf("expected ErrRetriesExhausted, got %v", err)
	}
	if len(fetcher.fetched) != 3 {
		t.Errorf("expected 3 attempts, got %d", len(fetcher.fetched))
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("error should carry the last failure: %v", err)
	}
}

func TestRunSendFailureRetries(t *testing.T) {
	sendErr := errors.New("duplicate content")
	storage := &mockStorage{}

	r := NewRunner(
		candidates("https://kubernetes.io/a/"),
		&mockFetcher{}, newComposer(), storage, &mockSender{err: sendErr},
		WithRetryLimit(1),
	)

	_, err := r.Run(context.Background())
	if !errors.Is(err, ErrRetriesExhausted) || !errors.Is(err, sendErr) {
		t.Fatalf("expected exhausted send error, got %v", err)
	}
	if len(storage.posts) != 0 {
		t.Error("nothing should be saved when sending fails")
	}
}

func TestRunEmptyCandidates(t *testing.T) {
	r := NewRunner(nil, &mockFetcher{}, newComposer(), &mockStorage{}, &mockSender{})

	if _, err := r.Run(context.Background()); !errors.Is(err, selector.ErrEmptySelection) {
		t.Fatalf("expected ErrEmptySelection, got %v", err)
	}
}

func TestRunGlossaryCandidateNotFetched(t *testing.T) {
	entry := tweet.PageMeta{
		Title:       "Pod",
		Description: "The smallest and simplest Kubernetes object.",
		URL:         "https://kubernetes.io/docs/reference/glossary/?all=true#term-pod",
	}
	fetcher := &mockFetcher{}
	sender := &mockSender{}

	r := NewRunner(
		selector.Merge(nil, []tweet.PageMeta{entry}),
		fetcher, newComposer(), &mockStorage{}, sender,
	)

	result, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(fetcher.fetched) != 0 {
		t.Errorf("glossary entry should not be fetched, fetched %v", fetcher.fetched)
	}
	if !strings.HasPrefix(result.Text, "Pod\n\nThe smallest") {
		t.Errorf("Text = %q", result.Text)
	}
	if result.URL != entry.URL {
		t.Errorf("URL = %q", result.URL)
	}
}

func TestRunSkipsRecentlyPosted(t *testing.T) {
	fetcher := &mockFetcher{}
	storage := &mockStorage{recent: []string{"https://kubernetes.io/a/"}}

	var poolSize int
	chooser := func(n int) int {
		poolSize = n
		return 0
	}

	r := NewRunner(
		candidates("https://kubernetes.io/a/", "https://kubernetes.io/b/"),
		fetcher, newComposer(), storage, &mockSender{},
		WithChooser(chooser),
	)

	result, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if poolSize != 1 {
		t.Errorf("pool size = %d, want 1", poolSize)
	}
	if result.URL != "https://kubernetes.io/b/" {
		t.Errorf("URL = %q, want b", result.URL)
	}
}

func TestRunAllRecentlyPosted(t *testing.T) {
	storage := &mockStorage{recent: []string{"https://kubernetes.io/a/"}}

	r := NewRunner(
		candidates("https://kubernetes.io/a/"),
		&mockFetcher{}, newComposer(), storage, &mockSender{},
	)

	result, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.URL != "https://kubernetes.io/a/" {
		t.Errorf("URL = %q", result.URL)
	}
}

func TestRunStorageFailures(t *testing.T) {
	storage := &mockStorage{
		getErr:  errors.New("database is locked"),
		saveErr: errors.New("database is locked"),
	}
	sender := &mockSender{}

	r := NewRunner(
		candidates("https://kubernetes.io/a/"),
		&mockFetcher{}, newComposer(), storage, sender,
		WithRetryLimit(0),
	)

	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("storage failures should not fail the run: %v", err)
	}
	if len(sender.texts) != 1 {
		t.Errorf("expected exactly 1 send, got %d", len(sender.texts))
	}
}

func TestRunDryRun(t *testing.T) {
	storage := &mockStorage{}

	r := NewRunner(
		candidates("https://kubernetes.io/a/"),
		&mockFetcher{}, newComposer(), storage, &mockSender{},
		WithDryRun(true),
	)

	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(storage.posts) != 0 {
		t.Error("dry run should not save posts")
	}
}

func TestRunComposeOptions(t *testing.T) {
	r := NewRunner(
		candidates("https://kubernetes.io/a/"),
		&mockFetcher{}, newComposer(), &mockStorage{}, &mockSender{},
		WithComposeOptions(tweet.WithHashtag("#k8s")),
	)

	result, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !strings.HasSuffix(result.Text, "\n\n#k8s") {
		t.Errorf("Text = %q", result.Text)
	}
}

func TestRunChooserOutOfRange(t *testing.T) {
	r := NewRunner(
		candidates("https://kubernetes.io/a/"),
		&mockFetcher{}, newComposer(), &mockStorage{}, &mockSender{},
		WithChooser(func(n int) int { return n }),
	)

	if _, err := r.Run(context.Background()); err == nil {
		t.Fatal("expected error for out of range index")
	}
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sender := &mockSender{}
	r := NewRunner(
		candidates("https://kubernetes.io/a/"),
		&mockFetcher{}, newComposer(), &mockStorage{}, sender,
	)

	if _, err := r.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(sender.texts) != 0 {
		t.Error("nothing should be sent after cancellation")
	}
}

func TestRandomChooser(t *testing.T) {
	for i := 0; i < 100; i++ {
		if idx := RandomChooser(3); idx < 0 || idx >= 3 {
			t.Fatalf("RandomChooser(3) = %d", idx)
		}
	}
}
