// Package glossary builds and loads the Kubernetes glossary entries that are
// posted alongside documentation pages.
package glossary

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"

	"github.com/stefanbuck/random-k8s/tweet"
)

const termURL = "https://kubernetes.io/docs/reference/glossary/?all=true#term-"

// IgnoredTags lists the categories that are never posted.
var IgnoredTags = []string{"community", "user-type"}

var ErrNoFrontMatter = errors.New("missing front matter")

var (
	noteRegex      = regexp.MustCompile(`\{\{<\s*/?\s*note\s*>\}\}`)
	textAttrRegex  = regexp.MustCompile(`\{\{[^}]*?\btext="([^"]+)"[^}]*\}\}`)
	termAttrRegex  = regexp.MustCompile(`\{\{[^}]*?\bterm_id="([^"]+)"[^}]*\}\}`)
	shortcodeRegex = regexp.MustCompile(`\{\{[^}]+\}\}`)
)

type frontMatter struct {
	Title string   `yaml:"title"`
	ID    string   `yaml:"id"`
	Tags  []string `yaml:"tags"`
}

// Load reads a glossary previously written by Save.
func Load(path string) ([]tweet.PageMeta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read glossary: %w", err)
	}

	var entries []tweet.PageMeta
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse glossary: %w", err)
	}
	return entries, nil
}

// Save writes entries as indented JSON.
func Save(path string, entries []tweet.PageMeta) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode glossary: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write glossary: %w", err)
	}
	return nil
}

// Build reads the markdown term files of the Kubernetes website glossary
// directory (content/en/docs/reference/glossary) and returns one entry per
// term, sorted by term id.
func Build(dir string) ([]tweet.PageMeta, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read glossary dir: %w", err)
	}

	type term struct {
		id    string
		entry tweet.PageMeta
	}
	var terms []term

	for _, f := range files {
		name := f.Name()
		if f.IsDir() || filepath.Ext(name) != ".md" || strings.HasSuffix(name, "index.md") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}

		fm, body, err := parseTerm(data)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		if ignored(fm.Tags) {
			continue
		}

		terms = append(terms, term{
			id: fm.ID,
			entry: tweet.PageMeta{
				Title:       fm.Title,
				Description: markdownToText(stripShortcodes(body)),
				URL:         termURL + fm.ID,
			},
		})
	}

	sort.Slice(terms, func(i, j int) bool { return terms[i].id < terms[j].id })

	entries := make([]tweet.PageMeta, len(terms))
	for i, t := range terms {
		entries[i] = t.entry
	}
	return entries, nil
}

func parseTerm(data []byte) (frontMatter, []byte, error) {
	var fm frontMatter

	rest, ok := bytes.CutPrefix(bytes.TrimLeft(data, " \t\r\n"), []byte("---"))
	if !ok {
		return fm, nil, ErrNoFrontMatter
	}
	header, body, ok := bytes.Cut(rest, []byte("\n---"))
	if !ok {
		return fm, nil, ErrNoFrontMatter
	}
	if err := yaml.Unmarshal(header, &fm); err != nil {
		return fm, nil, fmt.Errorf("front matter: %w", err)
	}
	if fm.ID == "" {
		return fm, nil, errors.New("front matter has no id")
	}

	// Drop the remainder of the closing delimiter line.
	if i := bytes.IndexByte(body, '\n'); i >= 0 {
		body = body[i+1:]
	} else {
		body = nil
	}
	return fm, body, nil
}

// The first tag is the category of a term.
func ignored(tags []string) bool {
	if len(tags) == 0 {
		return false
	}
	for _, t := range IgnoredTags {
		if strings.TrimSpace(tags[0]) == t {
			return true
		}
	}
	return false
}

func stripShortcodes(md []byte) []byte {
	md = noteRegex.ReplaceAll(md, nil)
	md = textAttrRegex.ReplaceAll(md, []byte("$1"))
	md = termAttrRegex.ReplaceAll(md, []byte("$1"))
	return shortcodeRegex.ReplaceAll(md, nil)
}

func markdownToText(md []byte) string {
	doc := goldmark.DefaultParser().Parse(text.NewReader(md))

	var b strings.Builder
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch n := n.(type) {
		case *ast.HTMLBlock, *ast.RawHTML:
			if entering {
				return ast.WalkSkipChildren, nil
			}
		case *ast.Text:
			if entering {
				b.Write(n.Segment.Value(md))
				if n.SoftLineBreak() || n.HardLineBreak() {
					b.WriteByte(' ')
				}
			}
		case *ast.String:
			if entering {
				b.Write(n.Value)
			}
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			if entering {
				lines := n.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					b.Write(seg.Value(md))
				}
			}
		}
		if !entering && n.Type() == ast.TypeBlock {
			b.WriteByte(' ')
		}
		return ast.WalkContinue, nil
	})

	return strings.Join(strings.Fields(b.String()), " ")
}
