package align

import "strconv"

// Korean numeral vocabulary. Digit words set a pending digit value; unit
// words scale it. Two-character words (하나, 다섯, …) are matched before
// single characters.
var hangulDigits = map[string]int64{
	"영": 0, "공": 0, "빵": 0,
	"일": 1, "하나": 1, "한": 1,
	"이": 2, "둘": 2, "두": 2,
	"삼": 3, "셋": 3, "세": 3,
	"사": 4, "넷": 4, "네": 4,
	"오": 5, "다섯": 5,
	"육": 6, "여섯": 6,
	"칠": 7, "일곱": 7,
	"팔": 8, "여덟": 8,
	"구": 9, "아홉": 9,
}

var hangulUnits = map[string]int64{
	"십": 10,
	"백": 100,
	"천": 1000,
	"만": 10_000,
	"억": 100_000_000,
	"조": 1_000_000_000_000,
}

// largeUnit is the threshold above which a unit closes the running segment
// (만, 억, 조) instead of scaling only the pending digit (십, 백, 천).
const largeUnit = 10_000

// hangulNumeralRunes is the alphabet used to detect candidate numeral runs:
// every rune that appears in any digit or unit word.
var hangulNumeralRunes = func() map[rune]struct{} {
	set := make(map[rune]struct{})
	for w := range hangulDigits {
		for _, r := range w {
			set[r] = struct{}{}
		}
	}
	for w := range hangulUnits {
		for _, r := range w {
			set[r] = struct{}{}
		}
	}
	return set
}()

// KoreanToNumber converts a run of Korean numeral words to its decimal
// string form: "천구백오십이" → "1952", "삼십오" → "35".
//
// The scan is greedy left to right, trying a two-character match before a
// single character at each position. Conversion is fail-soft: any character
// matching neither table aborts the whole run and text is returned
// unchanged — there is no partial conversion. A value of zero also returns
// text unchanged. Numerals are assumed to be read in standard
// descending-magnitude order; out-of-order input is not validated and
// yields whatever the greedy scan produces.
func KoreanToNumber(text string) string {
	runes := []rune(text)
	if len(runes) == 0 {
		return text
	}

	var acc, pending int64
	havePending := false

	i := 0
	for i < len(runes) {
		matched := false

		// Two-character words first (하나, 다섯, 일곱, …).
		for _, n := range [2]int{2, 1} {
			if i+n > len(runes) {
				continue
			}
			word := string(runes[i : i+n])
			if d, ok := hangulDigits[word]; ok {
				pending = d
				havePending = true
				i += n
				matched = true
				break
			}
			if u, ok := hangulUnits[word]; ok {
				if u >= largeUnit {
					// Close the current segment. A bare large unit ("만")
					// counts as one of itself.
					base := acc + pending
					if base == 0 && !havePending {
						base = 1
					}
					acc = base * u
				} else {
					// Small unit scales the pending digit, default 1 ("십" = 10).
					d := pending
					if d == 0 && !havePending {
						d = 1
					}
					acc += d * u
				}
				pending = 0
				havePending = false
				i += n
				matched = true
				break
			}
		}

		if !matched {
			return text
		}
	}

	total := acc + pending
	if total == 0 {
		return text
	}
	return strconv.FormatInt(total, 10)
}

// convertNumerals replaces every maximal run of Korean numeral characters
// in text with its decimal form. Runs that fail to parse are kept verbatim.
func convertNumerals(text string) string {
	runes := []rune(text)
	var out []rune

	i := 0
	for i < len(runes) {
		if _, ok := hangulNumeralRunes[runes[i]]; !ok {
			out = append(out, runes[i])
			i++
			continue
		}

		j := i
		for j < len(runes) {
			if _, ok := hangulNumeralRunes[runes[j]]; !ok {
				break
			}
			j++
		}
		out = append(out, []rune(KoreanToNumber(string(runes[i:j])))...)
		i = j
	}

	return string(out)
}
