package sender

import (
	"context"
	"fmt"
	"net/http"
	"time"

	twitter "github.com/g8rswimmer/go-twitter/v2"
)

const defaultTwitterHost = "https://api.twitter.com"

type bearerAuthorizer struct {
	token string
}

func (a bearerAuthorizer) Add(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+a.token)
}

// TwitterSender publishes posts through the Twitter v2 API.
type TwitterSender struct {
	client *twitter.Client
}

// TwitterOption configures a TwitterSender.
type TwitterOption func(*twitter.Client)

// WithTwitterHost overrides the API host.
func WithTwitterHost(host string) TwitterOption {
	return func(c *twitter.Client) {
		c.Host = host
	}
}

// WithTwitterTimeout sets the HTTP client timeout.
func WithTwitterTimeout(d time.Duration) TwitterOption {
	return func(c *twitter.Client) {
		c.Client.Timeout = d
	}
}

// NewTwitterSender creates a sender authorized with an OAuth 2.0 user
// context access token.
func NewTwitterSender(token string, opts ...TwitterOption) *TwitterSender {
	client := &twitter.Client{
		Authorizer: bearerAuthorizer{token: token},
		Client:     &http.Client{Timeout: 30 * time.Second},
		Host:       defaultTwitterHost,
	}
	for _, opt := range opts {
		opt(client)
	}
	return &TwitterSender{client: client}
}

// Send creates a tweet and returns its ID.
func (s *TwitterSender) Send(ctx context.Context, text string) (string, error) {
	if text == "" {
		return "", ErrEmptyText
	}

	resp, err := s.client.CreateTweet(ctx, twitter.CreateTweetRequest{Text: text})
	if err != nil {
		return "", fmt.Errorf("create tweet: %w", err)
	}
	if resp.Tweet == nil {
		return "", fmt.Errorf("create tweet: empty response")
	}
	return resp.Tweet.ID, nil
}
