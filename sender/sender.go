// Package sender publishes composed posts to Twitter and mirrors them to
// other channels.
package sender

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// ErrEmptyText is returned when asked to publish an empty post.
var ErrEmptyText = errors.New("empty post text")

// Sender publishes a post and returns the ID the channel assigned to it.
type Sender interface {
	Send(ctx context.Context, text string) (string, error)
}

// Multi sends to a primary channel and then to best-effort mirrors.
type Multi struct {
	primary Sender
	mirrors []Sender
}

// NewMulti creates a sender that publishes to primary and then every mirror.
func NewMulti(primary Sender, mirrors ...Sender) *Multi {
	return &Multi{primary: primary, mirrors: mirrors}
}

// Send publishes text to the primary sender and returns its ID. Mirrors are
// only tried after the primary succeeded and their failures are logged.
func (m *Multi) Send(ctx context.Context, text string) (string, error) {
	id, err := m.primary.Send(ctx, text)
	if err != nil {
		return "", err
	}

	for i, mirror := range m.mirrors {
		if _, err := mirror.Send(ctx, text); err != nil {
			slog.Warn("failed to mirror post", "mirror", i, "id", id, "error", err)
		}
	}
	return id, nil
}

// StdoutSender writes posts to a writer instead of publishing them.
type StdoutSender struct {
	mu  sync.Mutex
	w   io.Writer
	seq int
}

// NewStdoutSender creates a sender that prints to w.
func NewStdoutSender(w io.Writer) *StdoutSender {
	return &StdoutSender{w: w}
}

// Send prints text followed by a blank line and returns a local sequence ID.
func (s *StdoutSender) Send(ctx context.Context, text string) (string, error) {
	if text == "" {
		return "", ErrEmptyText
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := fmt.Fprintf(s.w, "%s\n\n", text); err != nil {
		return "", fmt.Errorf("write post: %w", err)
	}
	s.seq++
	return fmt.Sprintf("dry-run-%d", s.seq), nil
}
