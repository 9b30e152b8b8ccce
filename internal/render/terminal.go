// Package render draws scoring output for a terminal: each reference
// token colored by its alignment verdict, plus a metrics summary line.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/hangulab/scriptlive/internal/align"
)

// ANSI SGR sequences per verdict. Pending tokens are not rendered at all;
// inserted tokens are additionally bracketed.
var sgr = map[align.AlignType]string{
	align.AlignHit: "\x1b[32m",       // green
	align.AlignSub: "\x1b[31m",       // red
	align.AlignDel: "\x1b[33m",       // yellow
	align.AlignIns: "\x1b[38;5;208m", // orange
}

const sgrReset = "\x1b[0m"

// Terminal renders aligned tokens and metrics to a writer.
type Terminal struct {
	w io.Writer

	// Color disables ANSI sequences when false, for dumb terminals and
	// log files.
	color bool
}

// Option configures a [Terminal].
type Option func(*Terminal)

// WithColor toggles ANSI color output. Default: enabled.
func WithColor(enabled bool) Option {
	return func(t *Terminal) {
		t.color = enabled
	}
}

// New returns a [Terminal] writing to w.
func New(w io.Writer, opts ...Option) *Terminal {
	t := &Terminal{w: w, color: true}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Tokens writes one line containing every non-pending token, space
// separated, colored by verdict. Inserted tokens are bracketed. A trailing
// newline is always written, even when every token is still pending.
func (t *Terminal) Tokens(tokens []align.AlignedToken) error {
	var b strings.Builder

	first := true
	for _, tok := range tokens {
		if tok.Type == align.AlignPending {
			continue
		}
		if !first {
			b.WriteByte(' ')
		}
		first = false

		text := tok.Text
		if tok.Type == align.AlignIns {
			text = "[" + text + "]"
		}
		if t.color {
			b.WriteString(sgr[tok.Type])
			b.WriteString(text)
			b.WriteString(sgrReset)
		} else {
			b.WriteString(text)
		}
	}
	b.WriteByte('\n')

	_, err := io.WriteString(t.w, b.String())
	return err
}

// Metrics writes the summary line: percentages for the partial rates plus
// the raw token tallies.
func (t *Terminal) Metrics(m align.PartialMetrics) error {
	_, err := fmt.Fprintf(t.w, "WER %6.2f%%  CER %6.2f%%  (hit %d / sub %d / del %d, processed %d)\n",
		m.WER*100, m.CER*100, m.Hits, m.Substitutions, m.Deletions, m.RefProcessed)
	return err
}
