package align

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// punctuation is the fixed set stripped during normalization. Sentence
// punctuation, quoting, and the CJK bracket forms commonly produced by
// script editors are all removed so they never count against the speaker.
var punctuation = func() map[rune]struct{} {
	set := make(map[rune]struct{})
	for _, r := range `.,?!;:"'-…·()[]「」『』《》<>` {
		set[r] = struct{}{}
	}
	return set
}()

// Normalize canonicalizes text for alignment while preserving word
// boundaries: NFC Unicode normalization, Korean-numeral-to-digit
// conversion, punctuation stripping, and collapsing of whitespace runs to
// a single space. It is idempotent and side-effect-free.
func Normalize(text string) string {
	return strings.Join(strings.Fields(normalizeCore(text)), " ")
}

// NormalizeNoSpace is [Normalize] with all whitespace removed. The result
// is the character domain the aligner and [TokenSpan] offsets operate on.
func NormalizeNoSpace(text string) string {
	return strings.Join(strings.Fields(normalizeCore(text)), "")
}

// normalizeCore applies the order-sensitive steps shared by both forms:
// NFC first so decomposed jamo sequences compare equal to precomposed
// syllables, numeral conversion before punctuation stripping so the run
// detector sees the original character sequence.
func normalizeCore(text string) string {
	text = norm.NFC.String(text)
	text = convertNumerals(text)

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if _, ok := punctuation[r]; ok {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
