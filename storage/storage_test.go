package storage

import (
	"context"
	"path/filepath"
	"sort"
	"testing"
	"time"
)

func TestNewDB(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	db, err := NewDB(dbPath)
	if err != nil {
		t.Fatalf("NewDB failed: %v", err)
	}
	defer db.Close()

	// Verify tables exist by querying them
	ctx := context.Background()
	if _, err := db.conn.ExecContext(ctx, "SELECT 1 FROM posts LIMIT 1"); err != nil {
		t.Errorf("posts table not created: %v", err)
	}
	if _, err := db.conn.ExecContext(ctx, "SELECT 1 FROM settings LIMIT 1"); err != nil {
		t.Errorf("settings table not created: %v", err)
	}
}

func TestNewDBReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	db, err := NewDB(dbPath)
	if err != nil {
		t.Fatalf("NewDB failed: %v", err)
	}
	if err := db.SavePost(ctx, &Post{URL: "https://kubernetes.io/docs/", Text: "post"}); err != nil {
		t.Fatalf("SavePost failed: %v", err)
	}
	db.Close()

	db, err = NewDB(dbPath)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer db.Close()

	count, err := db.GetPostCount(ctx)
	if err != nil {
		t.Fatalf("GetPostCount failed: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestPostCRUD(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	ctx := context.Background()

	post := &Post{
		URL:     "https://kubernetes.io/docs/concepts/workloads/pods/",
		Title:   "Random K8s: Pods",
		Text:    "Random K8s: Pods\n\nPods are the smallest deployable units.",
		TweetID: "1790000000000000000",
	}

	if err := db.SavePost(ctx, post); err != nil {
		t.Fatalf("SavePost failed: %v", err)
	}
	if post.ID == 0 {
		t.Error("SavePost should set the ID")
	}
	if post.PostedAt.IsZero() {
		t.Error("SavePost should set PostedAt")
	}

	retrieved, err := db.GetPost(ctx, post.ID)
	if err != nil {
		t.Fatalf("GetPost failed: %v", err)
	}

	if retrieved.URL != post.URL {
		t.Errorf("URL = %q, want %q", retrieved.URL, post.URL)
	}
	if retrieved.Title != post.Title {
		t.Errorf("Title = %q, want %q", retrieved.Title, post.Title)
	}
	if retrieved.Text != post.Text {
		t.Errorf("Text = %q, want %q", retrieved.Text, post.Text)
	}
	if retrieved.TweetID != post.TweetID {
		t.Errorf("TweetID = %q, want %q", retrieved.TweetID, post.TweetID)
	}

	if _, err := db.GetPost(ctx, 99999); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
}

func TestGetLastPost(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	ctx := context.Background()

	if _, err := db.GetLastPost(ctx); err != ErrNotFound {
		t.Errorf("expected ErrNotFound on empty db, got: %v", err)
	}

	now := time.Now()
	posts := []*Post{
		{URL: "https://kubernetes.io/a/", Text: "a", PostedAt: now.Add(-2 * time.Hour)},
		{URL: "https://kubernetes.io/b/", Text: "b", PostedAt: now.Add(-1 * time.Hour)},
		{URL: "https://kubernetes.io/c/", Text: "c", PostedAt: now.Add(-3 * time.Hour)},
	}
	for _, p := range posts {
		if err := db.SavePost(ctx, p); err != nil {
			t.Fatalf("SavePost failed: %v", err)
		}
	}

	last, err := db.GetLastPost(ctx)
	if err != nil {
		t.Fatalf("GetLastPost failed: %v", err)
	}
	if last.URL != "https://kubernetes.io/b/" {
		t.Errorf("last URL = %q, want b", last.URL)
	}
}

func TestGetRecentlyPostedURLs(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	ctx := context.Background()

	now := time.Now()

	posts := []*Post{
		// Posted 3 days ago (within range)
		{URL: "https://kubernetes.io/recent/", Text: "recent", PostedAt: now.Add(-3 * 24 * time.Hour)},
		// Posted 10 days ago (outside range)
		{URL: "https://kubernetes.io/old/", Text: "old", PostedAt: now.Add(-10 * 24 * time.Hour)},
		// Posted twice recently
		{URL: "https://kubernetes.io/twice/", Text: "one", PostedAt: now.Add(-2 * 24 * time.Hour)},
		{URL: "https://kubernetes.io/twice/", Text: "two", PostedAt: now.Add(-1 * time.Hour)},
	}
	for _, p := range posts {
		if err := db.SavePost(ctx, p); err != nil {
			t.Fatalf("SavePost failed: %v", err)
		}
	}

	urls, err := db.GetRecentlyPostedURLs(ctx, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("GetRecentlyPostedURLs failed: %v", err)
	}
	sort.Strings(urls)

	want := []string{"https://kubernetes.io/recent/", "https://kubernetes.io/twice/"}
	if len(urls) != len(want) {
		t.Fatalf("got URLs %v, want %v", urls, want)
	}
	for i := range want {
		if urls[i] != want[i] {
			t.Errorf("urls[%d] = %q, want %q", i, urls[i], want[i])
		}
	}
}

func TestGetPostCount(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	ctx := context.Background()

	count, err := db.GetPostCount(ctx)
	if err != nil {
		t.Fatalf("GetPostCount failed: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}

	for i := 0; i < 3; i++ {
		if err := db.SavePost(ctx, &Post{URL: "https://kubernetes.io/", Text: "x"}); err != nil {
			t.Fatalf("SavePost failed: %v", err)
		}
	}

	count, _ = db.GetPostCount(ctx)
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
}

func TestSettingsOperations(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	ctx := context.Background()

	// Get non-existent setting
	_, err := db.GetSetting(ctx, "unknown")
	if err != ErrNotFound {
		t.Errorf("expected ErrNotFound for unknown setting, got: %v", err)
	}

	if err := db.SetSetting(ctx, "last_run", "2024-01-01T09:00:00Z"); err != nil {
		t.Fatalf("SetSetting failed: %v", err)
	}

	val, err := db.GetSetting(ctx, "last_run")
	if err != nil {
		t.Fatalf("GetSetting failed: %v", err)
	}
	if val != "2024-01-01T09:00:00Z" {
		t.Errorf("value = %q", val)
	}

	// Update setting
	if err := db.SetSetting(ctx, "last_run", "2024-01-02T09:00:00Z"); err != nil {
		t.Fatalf("SetSetting (update) failed: %v", err)
	}

	val, _ = db.GetSetting(ctx, "last_run")
	if val != "2024-01-02T09:00:00Z" {
		t.Errorf("value = %q", val)
	}
}

// Helper functions

func newTestDB(t *testing.T) *DB {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")
	db, err := NewDB(dbPath)
	if err != nil {
		t.Fatalf("NewDB failed: %v", err)
	}
	return db
}
