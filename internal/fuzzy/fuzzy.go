// Package fuzzy ranks and filters records against a free-text query using
// normalized Levenshtein distance, with a plain substring fallback.
//
// Scores live in [0,1] and lower is better: 0 is an exact (case-insensitive)
// match, 1 shares nothing with the query. Every function is pure.
package fuzzy

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

const (
	DefaultThreshold  = 0.4
	DefaultMaxResults = 200
)

// Options controls RankAndFilter.
type Options struct {
	// Threshold is the worst score still included. Clamped into [0,1].
	Threshold float64
	// MaxResults caps the result size. Zero or negative yields no results.
	MaxResults int
	// Fuzzy selects edit-distance ranking; false means substring containment.
	Fuzzy bool
}

// DefaultOptions returns fuzzy matching with the default threshold and cap.
func DefaultOptions() Options {
	return Options{Threshold: DefaultThreshold, MaxResults: DefaultMaxResults, Fuzzy: true}
}

func (o Options) clamped() Options {
	switch {
	case o.Threshold < 0:
		o.Threshold = 0
	case o.Threshold > 1:
		o.Threshold = 1
	}
	if o.MaxResults < 0 {
		o.MaxResults = 0
	}
	return o
}

// Selector returns the searchable fields of a record. Empty strings are ignored.
type Selector[T any] func(T) []string

// EditDistance returns the Levenshtein distance between a and b, ignoring case.
// Distances are counted in runes.
func EditDistance(a, b string) int {
	return levenshtein.ComputeDistance(strings.ToLower(a), strings.ToLower(b))
}

// NormalizedScore is EditDistance divided by the longer input length.
// Two empty inputs score 0.
func NormalizedScore(a, b string) float64 {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	n := max(utf8.RuneCountInString(la), utf8.RuneCountInString(lb), 1)
	return float64(levenshtein.ComputeDistance(la, lb)) / float64(n)
}

// BestFieldScore returns the lowest NormalizedScore of query against the
// non-empty fields. An empty query, or no non-empty field, scores 1.
func BestFieldScore(query string, fields []string) float64 {
	best := 1.0
	if query == "" {
		return best
	}
	for _, f := range fields {
		if f == "" {
			continue
		}
		if s := NormalizedScore(query, f); s < best {
			best = s
		}
		if best == 0 {
			break
		}
	}
	return best
}

// RankAndFilter returns the records matching query.
//
// A blank query returns records unchanged. In substring mode records keep
// their input order. In fuzzy mode records scoring above the threshold are
// dropped and the rest are sorted best first, ties keeping input order.
// Either way the result is capped at opts.MaxResults. The input slice is
// never modified.
func RankAndFilter[T any](records []T, query string, sel Selector[T], opts Options) []T {
	q := strings.TrimSpace(query)
	if q == "" {
		return records
	}
	opts = opts.clamped()

	if !opts.Fuzzy {
		out := make([]T, 0)
		needle := strings.ToLower(q)
		for _, r := range records {
			if len(out) >= opts.MaxResults {
				break
			}
			if containsAny(sel(r), needle) {
				out = append(out, r)
			}
		}
		return out
	}

	type scored struct {
		rec   T
		score float64
	}
	hits := make([]scored, 0, len(records))
	for _, r := range records {
		s := BestFieldScore(q, sel(r))
		if s <= opts.Threshold {
			hits = append(hits, scored{rec: r, score: s})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score < hits[j].score })

	if len(hits) > opts.MaxResults {
		hits = hits[:opts.MaxResults]
	}
	out := make([]T, len(hits))
	for i, h := range hits {
		out[i] = h.rec
	}
	return out
}

func containsAny(fields []string, needle string) bool {
	for _, f := range fields {
		if f != "" && strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}
