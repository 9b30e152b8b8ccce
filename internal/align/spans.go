package align

import (
	"strings"
	"unicode/utf8"
)

// Spans maps each whitespace-delimited token of reference onto its rune
// offset range in the normalized, whitespace-stripped reference string.
//
// Spans are contiguous, non-overlapping, and in original token order; a
// token that normalizes to nothing gets a zero-width span. The spans cover
// the normalized no-space string exactly, so
// sum(span.Len()) == utf8.RuneCountInString(NormalizeNoSpace(reference)).
//
// The result depends only on reference, so callers scoring the same script
// repeatedly may compute it once and reuse it.
func Spans(reference string) []TokenSpan {
	tokens := strings.Fields(reference)
	spans := make([]TokenSpan, 0, len(tokens))

	offset := 0
	for _, tok := range tokens {
		n := utf8.RuneCountInString(NormalizeNoSpace(tok))
		spans = append(spans, TokenSpan{
			Start: offset,
			End:   offset + n,
			Text:  tok,
		})
		offset += n
	}
	return spans
}
