package tweet

import (
	"strings"
	"unicode"

	"github.com/rivo/uniseg"
)

// Ellipsis is appended to every truncated text.
const Ellipsis = "…"

// Truncate cuts text to at most maxLength characters, drops the last
// (possibly partial) word and appends Ellipsis. The last word is dropped
// even when the text already fits. Characters are grapheme clusters.
func Truncate(text string, maxLength int) string {
	cut := 0 // byte offset of the last whitespace within the first maxLength characters
	gr := uniseg.NewGraphemes(text)
	for n := 0; n < maxLength && gr.Next(); n++ {
		if unicode.IsSpace(gr.Runes()[0]) {
			cut, _ = gr.Positions()
		}
	}

	return strings.TrimRightFunc(text[:cut], unicode.IsSpace) + Ellipsis
}
