package align

import "strings"

// Option is a functional option for configuring an [Engine].
type Option func(*Engine)

// WithThreshold sets the token hit-ratio threshold. Default: [DefaultThreshold].
func WithThreshold(threshold float64) Option {
	return func(e *Engine) {
		e.threshold = threshold
	}
}

// WithStrategy selects the alignment strategy. Default: [Sequential] with
// [DefaultLookahead].
func WithStrategy(s Strategy) Option {
	return func(e *Engine) {
		e.strategy = s
	}
}

// WithLookahead sets the resynchronization window of the default
// [Sequential] strategy. It has no effect when [WithStrategy] installs a
// non-sequential strategy.
func WithLookahead(lookahead int) Option {
	return func(e *Engine) {
		if s, ok := e.strategy.(Sequential); ok {
			s.Lookahead = lookahead
			e.strategy = s
		}
	}
}

// Engine is the alignment and partial-scoring engine. It is read-only
// after construction and safe for concurrent use.
type Engine struct {
	threshold float64
	strategy  Strategy
}

// New returns an [Engine] configured with the supplied options.
func New(opts ...Option) *Engine {
	e := &Engine{
		threshold: DefaultThreshold,
		strategy:  Sequential{Lookahead: DefaultLookahead},
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Score aligns the accumulated hypothesis against the reference script and
// returns one classified token per whitespace-delimited reference token
// plus partial metrics over the processed prefix.
//
// An empty reference yields no tokens and zero metrics. An empty
// hypothesis yields every reference token pending with zero metrics. Score
// never fails: malformed numerals, punctuation-only tokens, and degenerate
// metric inputs all resolve to defined results.
func (e *Engine) Score(reference, hypothesis string) ([]AlignedToken, PartialMetrics) {
	if strings.TrimSpace(reference) == "" {
		return []AlignedToken{}, PartialMetrics{}
	}

	spans := Spans(reference)
	return e.ScoreSpans(spans, reference, hypothesis)
}

// ScoreSpans is [Engine.Score] with precomputed reference spans, for
// callers that score a fixed script repeatedly. spans must be the result
// of [Spans] for the same reference string.
func (e *Engine) ScoreSpans(spans []TokenSpan, reference, hypothesis string) ([]AlignedToken, PartialMetrics) {
	// Nothing spoken yet: the whole script is pending, including tokens
	// that would otherwise classify as trivial zero-width hits.
	if strings.TrimSpace(hypothesis) == "" {
		tokens := make([]AlignedToken, 0, len(spans))
		for _, span := range spans {
			tokens = append(tokens, AlignedToken{Text: span.Text, Type: AlignPending})
		}
		return tokens, PartialMetrics{}
	}

	refNoSpace := NormalizeNoSpace(reference)
	hypNoSpace := NormalizeNoSpace(hypothesis)

	states, last := e.strategy.Align(refNoSpace, hypNoSpace)
	tokens := Classify(spans, states, last, e.threshold)
	metrics := ComputeMetrics(tokens, []rune(refNoSpace), []rune(hypNoSpace), last)
	return tokens, metrics
}

// Completed reports whether every token has been reached: no pending
// tokens remain, meaning the speaker has worked through the whole script.
func Completed(tokens []AlignedToken) bool {
	if len(tokens) == 0 {
		return false
	}
	for _, t := range tokens {
		if t.Type == AlignPending {
			return false
		}
	}
	return true
}
