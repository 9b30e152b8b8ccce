package align

// DefaultThreshold is the hit-ratio a token's processed characters must
// reach for the token to count as matched wholesale.
const DefaultThreshold = 0.6

// Classify folds the character states within each token span into one
// verdict per token, in span order.
//
// Per-span rules, in priority order:
//
//  1. Zero-width span (pure punctuation token) → Hit, trivially matched.
//  2. Span entirely beyond lastProcessed → Pending.
//  3. Span straddling the processed boundary → Pending if nothing in it
//     was processed yet, otherwise Hit when the hit ratio over the
//     processed part reaches threshold, else Sub.
//  4. Fully processed span → Hit when the hit ratio reaches threshold,
//     else Sub when hits+subs outweigh deletions, else Del.
//
// The threshold trades exactness for robustness to minor phonetic and
// spelling noise: a token with majority-matching characters is accepted
// wholesale even when a character or two differ.
func Classify(spans []TokenSpan, states []CharState, lastProcessed int, threshold float64) []AlignedToken {
	tokens := make([]AlignedToken, 0, len(spans))

	for _, span := range spans {
		tokens = append(tokens, AlignedToken{
			Text: span.Text,
			Type: classifySpan(span, states, lastProcessed, threshold),
		})
	}
	return tokens
}

func classifySpan(span TokenSpan, states []CharState, lastProcessed int, threshold float64) AlignType {
	if span.Len() == 0 {
		return AlignHit
	}
	if span.Start > lastProcessed {
		return AlignPending
	}

	var hits, subs, dels, pendings int
	for _, st := range states[span.Start:span.End] {
		switch st {
		case CharHit:
			hits++
		case CharSub:
			subs++
		case CharDel:
			dels++
		default:
			pendings++
		}
	}

	// Straddling the processed/unprocessed boundary: judge only the
	// processed part.
	if pendings > 0 && pendings < span.Len() {
		processed := hits + subs + dels
		if processed == 0 {
			return AlignPending
		}
		if float64(hits)/float64(processed) >= threshold {
			return AlignHit
		}
		return AlignSub
	}

	if pendings == span.Len() {
		return AlignPending
	}

	tokenLen := hits + subs + dels
	var hitRatio float64
	if tokenLen > 0 {
		hitRatio = float64(hits) / float64(tokenLen)
	}
	switch {
	case hitRatio >= threshold:
		return AlignHit
	case hits+subs > dels:
		return AlignSub
	default:
		return AlignDel
	}
}
