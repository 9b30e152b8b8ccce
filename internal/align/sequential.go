package align

// DefaultLookahead is the resynchronization window of the sequential
// strategy: how far ahead either string is searched for a matching
// character before a position is declared a substitution.
const DefaultLookahead = 3

// Sequential is the streaming alignment strategy: an online, single-pass,
// bounded-lookahead character matcher.
//
// A globally optimal edit-distance alignment is the wrong tool for a
// growing hypothesis — it can match a short repeated phrase against a
// later occurrence in the reference, corrupting the "how far has the
// speaker progressed" signal that separates real omissions from
// not-yet-spoken text. Sequential never jumps: both cursors only move
// forward, and resynchronization is limited to the lookahead window.
type Sequential struct {
	// Lookahead is the resynchronization window. Zero or negative values
	// fall back to [DefaultLookahead].
	Lookahead int
}

var _ Strategy = Sequential{}

// Align walks ref and hyp (both normalized, whitespace-stripped) with two
// forward-only cursors and returns one [CharState] per ref rune plus the
// highest ref index the hypothesis has reached (-1 when none).
//
// At each step, in order: an exact match marks Hit; a ref character within
// the lookahead window matching the current hyp character marks the
// skipped ref range Del; a hyp character within the window matching the
// current ref character discards the skipped hyp range as inserted noise;
// otherwise the position is a Sub and both cursors advance. Reference
// characters beyond wherever either cursor ran out stay Pending.
func (s Sequential) Align(ref, hyp string) ([]CharState, int) {
	look := s.Lookahead
	if look <= 0 {
		look = DefaultLookahead
	}

	refRunes := []rune(ref)
	hypRunes := []rune(hyp)
	states := make([]CharState, len(refRunes))

	refIdx, hypIdx := 0, 0
outer:
	for refIdx < len(refRunes) && hypIdx < len(hypRunes) {
		if refRunes[refIdx] == hypRunes[hypIdx] {
			states[refIdx] = CharHit
			refIdx++
			hypIdx++
			continue
		}

		// Skipped reference content: deletion.
		for d := 1; d <= look; d++ {
			if refIdx+d < len(refRunes) && refRunes[refIdx+d] == hypRunes[hypIdx] {
				for i := refIdx; i < refIdx+d; i++ {
					states[i] = CharDel
				}
				refIdx += d
				// The matching character is re-evaluated next iteration.
				continue outer
			}
		}

		// Extra hypothesis content: inserted noise, discarded.
		for d := 1; d <= look; d++ {
			if hypIdx+d < len(hypRunes) && hypRunes[hypIdx+d] == refRunes[refIdx] {
				hypIdx += d
				continue outer
			}
		}

		states[refIdx] = CharSub
		refIdx++
		hypIdx++
	}

	return states, lastProcessed(states)
}

// lastProcessed returns the highest index whose state is not pending, or
// -1 when the whole array is pending. This index is the authoritative
// boundary between content the hypothesis has reached and content not yet
// spoken; it does not fall on token boundaries.
func lastProcessed(states []CharState) int {
	for i := len(states) - 1; i >= 0; i-- {
		if states[i] != CharPending {
			return i
		}
	}
	return -1
}
