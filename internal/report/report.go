// Package report builds and persists end-of-session scoring summaries.
//
// A [Report] captures the final state of one caption session: the accumulated
// word and character error rates, per-token outcome counts, and a fuzzy
// similarity between what was spoken and the portion of the script it was
// scored against. Reports are persisted through the [Store] interface, which
// has an in-memory implementation for single-process use and a PostgreSQL
// implementation for durable storage.
package report

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/antzucaro/matchr"

	"github.com/hangulab/scriptlive/internal/align"
)

// ErrNotFound is returned by Get when no report with the requested ID exists.
var ErrNotFound = errors.New("report not found")

// ErrDuplicateID is returned by Save when a report with the same non-empty ID
// was already saved.
var ErrDuplicateID = errors.New("report with that ID already exists")

// Report is the final summary of one scoring session.
type Report struct {
	// ID uniquely identifies the report. Left empty, the store assigns one.
	ID string

	// Reference is the original script text the session was scored against.
	Reference string

	// Hypothesis is the full accumulated recognizer output at session end.
	Hypothesis string

	// TokenCounts maps each alignment outcome to the number of reference
	// tokens that ended the session in that state.
	TokenCounts map[align.AlignType]int

	// Metrics holds the final partial error rates.
	Metrics align.PartialMetrics

	// Similarity is the Jaro-Winkler similarity between the processed
	// portion of the normalized reference and the normalized hypothesis,
	// in [0, 1]. It complements the error rates with an order-tolerant
	// signal: a session that spoke the right words in a slightly wrong
	// order scores low on WER but high on similarity.
	Similarity float64

	// Completed reports whether every reference token left the pending
	// state before the session ended.
	Completed bool

	// StartedAt and FinishedAt bound the session wall-clock time.
	StartedAt  time.Time
	FinishedAt time.Time
}

// Build assembles a Report from the final scoring pass of a session.
// The caller supplies the original reference and accumulated hypothesis;
// token counts, similarity and the completed flag are derived here.
func Build(reference, hypothesis string, tokens []align.AlignedToken, metrics align.PartialMetrics, started, finished time.Time) Report {
	counts := make(map[align.AlignType]int, 5)
	for _, tok := range tokens {
		counts[tok.Type]++
	}

	refNorm := []rune(align.NormalizeNoSpace(reference))
	hypNorm := align.NormalizeNoSpace(hypothesis)

	processed := metrics.CharsProcessed
	if processed > len(refNorm) {
		processed = len(refNorm)
	}

	var similarity float64
	if processed > 0 || hypNorm != "" {
		similarity = matchr.JaroWinkler(string(refNorm[:processed]), hypNorm, false)
	}

	return Report{
		Reference:   reference,
		Hypothesis:  hypothesis,
		TokenCounts: counts,
		Metrics:     metrics,
		Similarity:  similarity,
		Completed:   align.Completed(tokens),
		StartedAt:   started,
		FinishedAt:  finished,
	}
}

// Store persists session reports.
//
// All implementations must be safe for concurrent use.
type Store interface {
	// Save persists the report, assigning an ID when the report's ID is
	// empty, and returns the stored report.
	// Returns [ErrDuplicateID] if a report with the same non-empty ID exists.
	Save(ctx context.Context, r Report) (Report, error)

	// Get retrieves a report by ID.
	// Returns [ErrNotFound] when no report with that ID exists.
	Get(ctx context.Context, id string) (Report, error)

	// List returns all stored reports ordered by FinishedAt, oldest first.
	List(ctx context.Context) ([]Report, error)
}

// generateID produces a random 16-byte hex string using crypto/rand.
func generateID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
