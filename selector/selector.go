// Package selector narrows a candidate URL list down to the pages worth
// posting about.
package selector

import (
	"errors"
	"sort"
	"strings"

	"github.com/stefanbuck/random-k8s/tweet"
)

// Wildcard marks a pattern as a prefix match.
const Wildcard = "*"

// ErrEmptySelection is returned when no candidate survives filtering.
var ErrEmptySelection = errors.New("no tweetable urls")

// Rules holds the allow and ignore pattern sets.
type Rules struct {
	Allow  []string `yaml:"allow"`
	Ignore []string `yaml:"ignore"`
}

// Match reports whether url matches pattern. A pattern ending in Wildcard
// matches every URL starting with the rest of the pattern, so a bare "*"
// matches everything. Any other pattern must equal url exactly.
func Match(pattern, url string) bool {
	if prefix, ok := strings.CutSuffix(pattern, Wildcard); ok {
		return strings.HasPrefix(url, prefix)
	}
	return url == pattern
}

func matchAny(patterns []string, url string) bool {
	for _, p := range patterns {
		if Match(p, url) {
			return true
		}
	}
	return false
}

func isExplicitlyAllowed(patterns []string, url string) bool {
	for _, p := range patterns {
		if p == url {
			return true
		}
	}
	return false
}

// Select returns the tweetable subset of candidates in ascending order.
//
// After sorting, a URL contained in its successor is treated as an overview
// page and kept only when an allow pattern names it exactly. This is a
// heuristic: two unrelated URLs where one is a substring of the next are
// treated the same way. Every other URL must match an allow pattern and no
// ignore pattern. The input slice is not modified.
func Select(candidates []string, rules Rules) []string {
	sorted := make([]string, len(candidates))
	copy(sorted, candidates)
	sort.Strings(sorted)

	selected := make([]string, 0, len(sorted))
	for i, url := range sorted {
		if i+1 < len(sorted) && strings.Contains(sorted[i+1], url) {
			if isExplicitlyAllowed(rules.Allow, url) {
				selected = append(selected, url)
			}
			continue
		}

		if matchAny(rules.Allow, url) && !matchAny(rules.Ignore, url) {
			selected = append(selected, url)
		}
	}
	return selected
}

// Tweetable is Select that fails with ErrEmptySelection on an empty result.
func Tweetable(candidates []string, rules Rules) ([]string, error) {
	selected := Select(candidates, rules)
	if len(selected) == 0 {
		return nil, ErrEmptySelection
	}
	return selected, nil
}

// Candidate is something that can be posted about: either a URL whose
// metadata still has to be fetched, or a pre-built glossary entry.
type Candidate struct {
	URL  string
	Meta *tweet.PageMeta
}

// Prebuilt reports whether the candidate carries its own metadata.
func (c Candidate) Prebuilt() bool {
	return c.Meta != nil
}

// Merge combines selected URLs and glossary entries into one candidate list.
func Merge(urls []string, glossary []tweet.PageMeta) []Candidate {
	candidates := make([]Candidate, 0, len(urls)+len(glossary))
	for _, u := range urls {
		candidates = append(candidates, Candidate{URL: u})
	}
	for i := range glossary {
		entry := glossary[i]
		candidates = append(candidates, Candidate{URL: entry.URL, Meta: &entry})
	}
	return candidates
}
