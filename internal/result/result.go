// Package result renders query output as one JSON object per line
// (spec.md §4.6 "Output"). The single wall-clock duration printed in
// benchmarking mode is written by cmd/processor, not by this package.
package result

import (
	"encoding/json"
	"io"
	"math"
)

// Entry is one ranked hit within a query's Results array.
type Entry struct {
	URL   string  `json:"URL"`
	Score float64 `json:"Score"`
}

// QueryResult is the full per-query output object.
type QueryResult struct {
	Query   string  `json:"Query"`
	Results []Entry `json:"Results"`
}

// round1 rounds s to one decimal place, matching spec.md's
// `round(s, 1)` (Python round-half-to-even is not reproduced; ties are
// rare for floating-point scores and the spec does not pin a rounding
// mode beyond one decimal digit).
func round1(s float64) float64 {
	return math.Round(s*10) / 10
}

// NewQueryResult builds a QueryResult from a query string and hits,
// rounding every score to one decimal place. A query with no
// surviving tokens yields hits == nil, which encodes as an empty
// Results array, never null (spec.md §9 "Boundary behaviors").
func NewQueryResult(query string, hits []Hit) QueryResult {
	entries := make([]Entry, len(hits))
	for i, h := range hits {
		entries[i] = Entry{URL: h.URL, Score: round1(h.Score)}
	}
	return QueryResult{Query: query, Results: entries}
}

// Hit is the minimal shape NewQueryResult needs from a ranked result,
// kept independent of the ranking package so result has no import on
// it; cmd/processor converts each ranking.Hit into a result.Hit.
type Hit struct {
	URL   string
	Score float64
}

// Encoder writes one QueryResult per line as compact JSON, matching
// spec.md's "one JSON object per line" wire format. ensure_ascii=false
// in the source system maps directly onto encoding/json's default
// UTF-8 (non-ASCII-escaping) behavior once HTML-escaping is disabled.
type Encoder struct {
	enc *json.Encoder
}

// NewEncoder wraps w for line-delimited QueryResult output.
func NewEncoder(w io.Writer) *Encoder {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &Encoder{enc: enc}
}

// Encode writes one QueryResult followed by a newline.
func (e *Encoder) Encode(qr QueryResult) error {
	return e.enc.Encode(qr)
}
