package tweet

import (
	"regexp"

	"github.com/rivo/uniseg"
	"golang.org/x/text/unicode/norm"
)

// Validity is the result of checking a message against the platform budget.
type Validity struct {
	Valid          bool
	WeightedLength int
	// ValidRangeEnd is the offset of the last character (grapheme cluster)
	// of text that still fits the budget, or -1 when nothing fits. A link
	// either fits whole or not at all.
	ValidRangeEnd int
}

// Validator decides whether a message fits the platform's length budget.
type Validator interface {
	Parse(text string) Validity
}

// WeightRange assigns a weight to a closed range of code points.
type WeightRange struct {
	Start  rune
	End    rune
	Weight int
}

// Counter implements the Twitter weighted-length rules. Links are detected
// with a simplified pattern; the platform's full TLD list is not carried.
type Counter struct {
	MaxWeightedLength    int
	Scale                int
	DefaultWeight        int
	TransformedURLLength int
	Ranges               []WeightRange
}

// DefaultURLLength is the display length every link is normalized to.
const DefaultURLLength = 23

// urlRegex matches links the platform would shorten: anything with an
// http(s) scheme, and bare domains ending in a common top-level domain.
var urlRegex = regexp.MustCompile(
	`https?://[^\s<>"]+` +
		`|\b(?:[a-zA-Z0-9][a-zA-Z0-9-]*\.)+(?:com|org|net|io|dev|sh|app|cloud|ai|co|me|info|edu|gov|us|uk|de|eu|ly)\b(?:/[^\s<>"]*)?`,
)

// CounterOption configures a Counter.
type CounterOption func(*Counter)

// WithMaxWeightedLength overrides the weighted budget.
func WithMaxWeightedLength(n int) CounterOption {
	return func(c *Counter) {
		c.MaxWeightedLength = n
	}
}

// WithURLLength overrides the normalized URL length.
func WithURLLength(n int) CounterOption {
	return func(c *Counter) {
		c.TransformedURLLength = n
	}
}

// NewCounter returns a Counter with the v3 configuration.
func NewCounter(opts ...CounterOption) *Counter {
	c := &Counter{
		MaxWeightedLength:    280,
		Scale:                100,
		DefaultWeight:        200,
		TransformedURLLength: DefaultURLLength,
		Ranges: []WeightRange{
			{Start: 0, End: 4351, Weight: 100},
			{Start: 8192, End: 8205, Weight: 100},
			{Start: 8208, End: 8223, Weight: 100},
			{Start: 8242, End: 8247, Weight: 100},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URLLength reports the normalized length of an embedded link.
func (c *Counter) URLLength() int {
	return c.TransformedURLLength
}

// Parse measures the NFC form of text.
func (c *Counter) Parse(text string) Validity {
	text = norm.NFC.String(text)
	if text == "" {
		return Validity{ValidRangeEnd: -1}
	}

	m := measure{limit: c.MaxWeightedLength * c.Scale, lastFit: -1}

	bytePos := 0
	for _, loc := range urlRegex.FindAllStringIndex(text, -1) {
		c.measurePlain(&m, text[bytePos:loc[0]])
		// A link is all-or-nothing: it only fits if its whole length fits.
		m.add(Length(text[loc[0]:loc[1]]), c.TransformedURLLength*c.Scale)
		bytePos = loc[1]
	}
	c.measurePlain(&m, text[bytePos:])

	return Validity{
		Valid:          m.weighted <= m.limit,
		WeightedLength: m.weighted / c.Scale,
		ValidRangeEnd:  m.lastFit,
	}
}

type measure struct {
	limit    int
	weighted int
	pos      int
	lastFit  int
	overflow bool
}

func (m *measure) add(positions, weight int) {
	m.weighted += weight
	m.pos += positions
	if m.overflow || m.weighted > m.limit {
		m.overflow = true
		return
	}
	m.lastFit = m.pos - 1
}

func (c *Counter) measurePlain(m *measure, s string) {
	gr := uniseg.NewGraphemes(s)
	for gr.Next() {
		m.add(1, c.weightOf(gr.Runes()[0]))
	}
}

func (c *Counter) weightOf(r rune) int {
	for _, wr := range c.Ranges {
		if r >= wr.Start && r <= wr.End {
			return wr.Weight
		}
	}
	return c.DefaultWeight
}

// Length returns the number of characters (grapheme clusters) in s.
func Length(s string) int {
	return uniseg.GraphemeClusterCount(s)
}
