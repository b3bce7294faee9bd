// Package sanitize cleans response payloads before they are stored or
// relayed.
package sanitize

import "strings"

// Clean removes every byte outside the safe set (tab, LF, CR, space through
// tilde) from the text. Empty input, or input stripped down to nothing,
// becomes the empty-object literal. The result is kept even when it is still
// not valid JSON; sanitization never blocks response delivery.
func Clean(text string) string {
	if text == "" {
		return "{}"
	}
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c == '\t' || c == '\n' || c == '\r' || (c >= 0x20 && c <= 0x7e) {
			b.WriteByte(c)
		}
	}
	if b.Len() == 0 {
		return "{}"
	}
	return b.String()
}
