package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a record is not found.
var ErrNotFound = errors.New("not found")

// Post is a published post and the page it links to.
type Post struct {
	ID       int64
	URL      string
	Title    string
	Text     string
	TweetID  string
	PostedAt time.Time
}

// DB wraps the SQLite database connection and provides storage operations.
type DB struct {
	conn *sql.DB
}

// NewDB creates a new database connection and initializes the schema.
func NewDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS posts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		text TEXT NOT NULL,
		tweet_id TEXT NOT NULL DEFAULT '',
		posted_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_posts_posted_at ON posts(posted_at);
	CREATE INDEX IF NOT EXISTS idx_posts_url ON posts(url);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// SavePost records a published post and sets its ID. A zero PostedAt is
// replaced with the current time.
func (db *DB) SavePost(ctx context.Context, post *Post) error {
	if post.PostedAt.IsZero() {
		post.PostedAt = time.Now()
	}

	query := `
	INSERT INTO posts (url, title, text, tweet_id, posted_at)
	VALUES (?, ?, ?, ?, ?)
	`

	res, err := db.conn.ExecContext(ctx, query,
		post.URL,
		post.Title,
		post.Text,
		post.TweetID,
		post.PostedAt,
	)
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("post id: %w", err)
	}
	post.ID = id
	return nil
}

// GetPost retrieves a post by ID.
func (db *DB) GetPost(ctx context.Context, id int64) (*Post, error) {
	query := `SELECT id, url, title, text, tweet_id, posted_at FROM posts WHERE id = ?`
	return db.scanPost(db.conn.QueryRowContext(ctx, query, id))
}

// GetLastPost returns the most recently published post.
func (db *DB) GetLastPost(ctx context.Context) (*Post, error) {
	query := `
	SELECT id, url, title, text, tweet_id, posted_at
	FROM posts ORDER BY posted_at DESC, id DESC LIMIT 1
	`
	return db.scanPost(db.conn.QueryRowContext(ctx, query))
}

func (db *DB) scanPost(row *sql.Row) (*Post, error) {
	post := &Post{}
	err := row.Scan(
		&post.ID,
		&post.URL,
		&post.Title,
		&post.Text,
		&post.TweetID,
		&post.PostedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return post, nil
}

// GetRecentlyPostedURLs returns the distinct URLs posted within the given duration.
func (db *DB) GetRecentlyPostedURLs(ctx context.Context, within time.Duration) ([]string, error) {
	cutoff := time.Now().Add(-within)
	query := `SELECT DISTINCT url FROM posts WHERE posted_at > ?`

	rows, err := db.conn.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		urls = append(urls, u)
	}
	return urls, rows.Err()
}

// GetPostCount returns the total number of published posts.
func (db *DB) GetPostCount(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM posts`
	var count int
	err := db.conn.QueryRowContext(ctx, query).Scan(&count)
	return count, err
}

// GetSetting retrieves a setting value by key.
func (db *DB) GetSetting(ctx context.Context, key string) (string, error) {
	query := `SELECT value FROM settings WHERE key = ?`
	var value string
	err := db.conn.QueryRowContext(ctx, query, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return value, err
}

// SetSetting stores or updates a setting.
func (db *DB) SetSetting(ctx context.Context, key, value string) error {
	query := `
	INSERT INTO settings (key, value) VALUES (?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`
	_, err := db.conn.ExecContext(ctx, query, key, value)
	return err
}
