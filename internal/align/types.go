// Package align implements the live-script scoring engine: text
// normalization (including Korean-numeral-to-digit conversion), reference
// token span mapping, character-level alignment of a growing hypothesis
// against a fixed reference script, token classification, and partial
// WER/CER computation over the processed prefix only.
//
// The engine is a pure function of its inputs. It holds no mutable state,
// performs no I/O, and is safe for concurrent use. Callers re-run
// [Engine.Score] with the full accumulated hypothesis on every tick; there
// is no incremental mode and none is needed — a single pass over the
// reference with bounded lookahead keeps recomputation cheap.
package align

// CharState is the per-character alignment verdict for one character of the
// normalized, whitespace-stripped reference string.
type CharState uint8

const (
	// CharPending marks reference content the hypothesis has not reached yet.
	// It is the zero value so a fresh state array starts fully pending.
	CharPending CharState = iota

	// CharHit marks a character matched exactly by the hypothesis.
	CharHit

	// CharSub marks a character the hypothesis replaced with something else.
	CharSub

	// CharDel marks a character the hypothesis skipped over entirely.
	CharDel
)

// String returns a short lowercase label for the state.
func (s CharState) String() string {
	switch s {
	case CharHit:
		return "hit"
	case CharSub:
		return "sub"
	case CharDel:
		return "del"
	default:
		return "pending"
	}
}

// AlignType classifies one whole reference token after folding its
// character states.
type AlignType string

const (
	// AlignHit — the token matched (exactly or above the similarity threshold).
	AlignHit AlignType = "hit"

	// AlignSub — the token was spoken but misrecognized.
	AlignSub AlignType = "sub"

	// AlignDel — the token was confirmed omitted within processed content.
	AlignDel AlignType = "del"

	// AlignIns — a token present only in the hypothesis. Reserved: the
	// character-level engine discards inserted hypothesis content and never
	// emits this verdict itself.
	AlignIns AlignType = "ins"

	// AlignPending — the token has not been spoken yet. Distinct from
	// AlignDel, which is a confirmed omission.
	AlignPending AlignType = "pending"
)

// AlignedToken is one classified reference token, carrying the token's
// original (unnormalized) text for display.
type AlignedToken struct {
	Text string
	Type AlignType
}

// TokenSpan maps one whitespace-delimited reference token onto a half-open
// rune offset range [Start, End) in the normalized, whitespace-stripped
// reference string. A token that normalizes to nothing (pure punctuation)
// has Start == End.
type TokenSpan struct {
	Start int
	End   int

	// Text is the token's original, unnormalized text.
	Text string
}

// Len returns the number of normalized characters the span covers.
func (s TokenSpan) Len() int { return s.End - s.Start }

// PartialMetrics are error rates and counts over the processed reference
// prefix only — reference content the hypothesis has not reached yet is
// excluded, so a speaker mid-script is not penalized for the remainder.
//
// All counts are token-level except CER, which is character-level.
// Insertions is always zero in this engine: inserted hypothesis content is
// detected during the character scan but discarded, not surfaced per token.
type PartialMetrics struct {
	WER           float64
	CER           float64
	Hits          int
	Substitutions int
	Deletions     int
	Insertions    int

	// RefProcessed is the number of reference tokens the hypothesis has
	// reached: Hits + Substitutions + Deletions.
	RefProcessed int

	// CharsProcessed is the number of normalized no-space reference
	// characters the hypothesis has reached. Unlike RefProcessed it counts
	// runes, not tokens, so it can slice the normalized reference directly.
	CharsProcessed int
}

// Strategy produces a per-character state array for the normalized,
// whitespace-stripped reference, plus the index of the last character the
// hypothesis has reached (-1 when none). Implementations must be pure and
// safe for concurrent use.
type Strategy interface {
	Align(ref, hyp string) (states []CharState, lastProcessed int)
}
