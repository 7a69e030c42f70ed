// Package tweet composes length-checked posts from page metadata.
package tweet

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const (
	// DefaultHashtag closes every post.
	DefaultHashtag = "#kubernetes"
	// Separator joins post segments.
	Separator = "\n\n"
)

// ErrTooLong is returned when a composed post fails the final validation.
var ErrTooLong = errors.New("tweet is too long")

// TooLongError reports a composed post that the validator rejected.
type TooLongError struct {
	Text           string
	WeightedLength int
}

func (e *TooLongError) Error() string {
	return fmt.Sprintf("%s: weighted length %d", ErrTooLong, e.WeightedLength)
}

func (e *TooLongError) Unwrap() error {
	return ErrTooLong
}

// PageMeta describes a page or glossary term to post about.
type PageMeta struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// Composer assembles posts that pass a Validator.
type Composer struct {
	validator Validator
	rules     []Rule
	urlLength int
	hashtag   string
}

// Option configures a Composer.
type Option func(*Composer)

// WithRules replaces the cleanup pipeline.
func WithRules(rules []Rule) Option {
	return func(c *Composer) {
		c.rules = rules
	}
}

// WithDefaultHashtag sets the hashtag used when a call does not pass one.
func WithDefaultHashtag(tag string) Option {
	return func(c *Composer) {
		c.hashtag = tag
	}
}

// WithURLDisplayLength sets the length reserved for the link segment.
func WithURLDisplayLength(n int) Option {
	return func(c *Composer) {
		c.urlLength = n
	}
}

// NewComposer creates a Composer around the given validator.
func NewComposer(validator Validator, opts ...Option) *Composer {
	c := &Composer{
		validator: validator,
		rules:     DefaultRules(),
		urlLength: DefaultURLLength,
		hashtag:   DefaultHashtag,
	}
	if lv, ok := validator.(interface{ URLLength() int }); ok {
		c.urlLength = lv.URLLength()
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type composeConfig struct {
	hashtag    string
	includeURL bool
}

// ComposeOption adjusts a single Compose call.
type ComposeOption func(*composeConfig)

// WithHashtag overrides the hashtag for one post.
func WithHashtag(tag string) ComposeOption {
	return func(cc *composeConfig) {
		cc.hashtag = tag
	}
}

// WithoutURL leaves the link out of the post.
func WithoutURL() ComposeOption {
	return func(cc *composeConfig) {
		cc.includeURL = false
	}
}

// Compose builds a post for meta. It returns a *TooLongError if the result
// still fails validation after truncation.
func (c *Composer) Compose(meta PageMeta, opts ...ComposeOption) (string, error) {
	cc := composeConfig{hashtag: c.hashtag, includeURL: true}
	for _, opt := range opts {
		opt(&cc)
	}

	d := Draft{
		Title:       norm.NFC.String(meta.Title),
		Description: norm.NFC.String(meta.Description),
		Hashtag:     cc.hashtag,
	}
	if cc.includeURL {
		d.URL = meta.URL
	}
	applyRules(&d, c.rules)

	full := c.validator.Parse(join(d.Title, d.Description, d.URL, d.Hashtag))

	text := join(d.Title, d.Description)

	urlOffset := 0
	if d.URL != "" {
		urlOffset = c.urlLength + Length(Separator)
	}

	if full.Valid {
		post := assemble(text, d)
		if v := c.validator.Parse(post); !v.Valid {
			return "", &TooLongError{Text: post, WeightedLength: v.WeightedLength}
		}
		return post, nil
	}

	budget := full.ValidRangeEnd - urlOffset -
		Length(d.Hashtag) - Length(Separator)
	for {
		truncated := Truncate(text, budget)
		post := assemble(truncated, d)

		v := c.validator.Parse(post)
		if v.Valid {
			return post, nil
		}
		if budget <= 0 {
			return "", &TooLongError{Text: post, WeightedLength: v.WeightedLength}
		}

		// Links keep their normalized weight however short they are, so a
		// cut can still overflow. Shrink by the overflow and cut again. A
		// trailing link past the fitting range counts as urlLength.
		overflow := Length(post) - 1 - v.ValidRangeEnd
		if d.URL != "" && v.ValidRangeEnd < Length(truncated)+Length(Separator) {
			overflow -= Length(d.URL) - c.urlLength
		}
		budget = min(budget, Length(truncated)) - max(overflow, 1)
	}
}

func assemble(text string, d Draft) string {
	var sb strings.Builder
	sb.WriteString(text)
	if d.URL != "" {
		sb.WriteString(Separator)
		sb.WriteString(d.URL)
	}
	sb.WriteString(Separator)
	sb.WriteString(d.Hashtag)
	return sb.String()
}

func join(segments ...string) string {
	kept := make([]string, 0, len(segments))
	for _, s := range segments {
		if s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, Separator)
}
