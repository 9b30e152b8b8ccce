package align

import (
	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// Chunked is the optimal alignment strategy: a full minimum-edit-distance
// script between reference and hypothesis, with the trailing run of
// deletions after the last non-delete operation reclassified as pending
// rather than deleted.
//
// It produces globally minimal edit cost but can resynchronize a short
// repeated phrase against a later occurrence in the reference, so
// [Sequential] is the better default for live streams. Both strategies
// feed the same classifier and metrics contract.
type Chunked struct{}

var _ Strategy = Chunked{}

// Align computes the character-level edit script for ref and hyp (both
// normalized, whitespace-stripped) and folds it into per-character states:
// matches become Hit, substitutions Sub, deletions Del, and insertions are
// discarded (they consume no reference character). Deletions past the last
// match or substitution are the not-yet-spoken remainder and stay Pending.
func (Chunked) Align(ref, hyp string) ([]CharState, int) {
	refRunes := []rune(ref)
	hypRunes := []rune(hyp)
	states := make([]CharState, len(refRunes))

	if len(refRunes) == 0 || len(hypRunes) == 0 {
		return states, -1
	}

	script := levenshtein.EditScriptForStrings(refRunes, hypRunes, levenshtein.DefaultOptions)

	// Index of the last operation that is not a deletion; delete operations
	// after it are trailing and must remain pending.
	lastNonDel := -1
	for i, op := range script {
		if op != levenshtein.Del {
			lastNonDel = i
		}
	}

	refIdx := 0
	for i, op := range script {
		switch op {
		case levenshtein.Match:
			states[refIdx] = CharHit
			refIdx++
		case levenshtein.Sub:
			states[refIdx] = CharSub
			refIdx++
		case levenshtein.Del:
			if i <= lastNonDel {
				states[refIdx] = CharDel
			}
			refIdx++
		case levenshtein.Ins:
			// Hypothesis-only content, no reference character to mark.
		}
	}

	return states, lastProcessed(states)
}
