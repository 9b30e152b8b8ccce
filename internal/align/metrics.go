package align

import (
	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// ComputeMetrics derives [PartialMetrics] from a classification pass.
//
// Token counts tally the classified tokens; pending tokens are excluded
// everywhere, so the as-yet-unspoken remainder of the script never inflates
// the error rates. WER is (substitutions+deletions)/refProcessed.
//
// CER compares the processed reference prefix — the normalized no-space
// reference up to and including lastProcessed — against the whole
// normalized no-space hypothesis using unit-cost Levenshtein distance.
// Degenerate inputs (nothing processed, empty operands) yield 0 rather
// than an error; the engine is total over its input domain.
func ComputeMetrics(tokens []AlignedToken, refNoSpace, hypNoSpace []rune, lastProcessed int) PartialMetrics {
	var m PartialMetrics

	for _, t := range tokens {
		switch t.Type {
		case AlignHit:
			m.Hits++
		case AlignSub:
			m.Substitutions++
		case AlignDel:
			m.Deletions++
		case AlignIns:
			m.Insertions++
		}
	}

	m.RefProcessed = m.Hits + m.Substitutions + m.Deletions
	if m.RefProcessed > 0 {
		m.WER = float64(m.Substitutions+m.Deletions) / float64(m.RefProcessed)
	}

	if lastProcessed >= 0 && lastProcessed < len(refNoSpace) {
		m.CharsProcessed = lastProcessed + 1
		partial := refNoSpace[:m.CharsProcessed]
		dist := levenshtein.DistanceForStrings(partial, hypNoSpace, levenshtein.DefaultOptions)
		m.CER = float64(dist) / float64(len(partial))
	}

	return m
}
