package ranking

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warcidx/internal/codec"
)

func newTestIndex(meta Metadata, urlMapping map[int64]DocInfo, postings map[string][]codec.Posting) *Index {
	return &Index{
		meta:       meta,
		urlMapping: urlMapping,
		cache:      postings,
		notFound:   make(map[string]struct{}),
	}
}

func TestIDFMatchesPinnedFormula(t *testing.T) {
	got := idf(10, 2)
	want := math.Log((10.0-2.0+0.5)/(2.0+0.5) + 1)
	assert.InDelta(t, want, got, 1e-12)
}

func TestContributionTFIDFMatchesPinnedFormula(t *testing.T) {
	// (f/doclen) * idf(df)
	got := contribution(TFIDF, 3, 2, 10, 10, 5.0)
	want := (3.0 / 10.0) * idf(10, 2)
	assert.InDelta(t, want, got, 1e-12)
}

func TestContributionBM25MatchesPinnedFormula(t *testing.T) {
	// idf(df) * ( (f*(k1+1)/f) + k1*(1-b+b*doclen/avgdoclen) )
	// note: f cancels out of the first term by construction (spec.md's
	// literal, not textbook, parenthesization).
	f, df, docLen, numDocs := int64(4), int64(3), int64(20), int64(10)
	avgDocLen := 8.0
	got := contribution(BM25, f, df, docLen, numDocs, avgDocLen)

	bm := float64(f)*(bm25K1+1)/float64(f) + bm25K1*(1-bm25B+bm25B*float64(docLen)/avgDocLen)
	want := idf(numDocs, df) * bm
	assert.InDelta(t, want, got, 1e-12)

	// f should have cancelled out of the first addend entirely.
	assert.InDelta(t, bm25K1+1, float64(f)*(bm25K1+1)/float64(f), 1e-12)
}

func TestScoreReturnsHighestFirstAndExcludesZeroScoreDocs(t *testing.T) {
	meta := Metadata{NumDocs: 3, MaxDocid: 3, AvgDocLen: 4}
	urlMapping := map[int64]DocInfo{
		0: {DocLen: 4, URL: "http://a"},
		1: {DocLen: 4, URL: "http://b"},
		2: {DocLen: 4, URL: "http://c"},
	}
	postings := map[string][]codec.Posting{
		"zebra": {{DocID: 0, Freq: 1}, {DocID: 1, Freq: 5}},
	}
	idx := newTestIndex(meta, urlMapping, postings)

	results := Score(idx, TFIDF, []string{"zebra"})
	require.Len(t, results, 2)
	assert.Equal(t, int64(1), results[0].docid, "doc with higher freq should score highest")
	assert.Equal(t, int64(0), results[1].docid)
}

func TestScoreWithNoSurvivingTermsReturnsEmpty(t *testing.T) {
	meta := Metadata{NumDocs: 1, MaxDocid: 1, AvgDocLen: 4}
	idx := newTestIndex(meta, map[int64]DocInfo{0: {DocLen: 4, URL: "http://a"}}, map[string][]codec.Posting{})

	results := Score(idx, TFIDF, []string{"missingterm"})
	assert.Empty(t, results)
}

func TestScoreBoundsResultsToTopTen(t *testing.T) {
	const n = 25
	meta := Metadata{NumDocs: n, MaxDocid: n, AvgDocLen: 4}
	urlMapping := make(map[int64]DocInfo, n)
	var postingsList []codec.Posting
	for i := int64(0); i < n; i++ {
		urlMapping[i] = DocInfo{DocLen: 4, URL: "http://doc"}
		postingsList = append(postingsList, codec.Posting{DocID: i, Freq: int64(i + 1)})
	}
	idx := newTestIndex(meta, urlMapping, map[string][]codec.Posting{"lion": postingsList})

	results := Score(idx, TFIDF, []string{"lion"})
	assert.Len(t, results, NumResults)
	// Highest-frequency doc (n-1) must be present, lowest (0) must not.
	var found bool
	for _, r := range results {
		if r.docid == n-1 {
			found = true
		}
		assert.NotEqual(t, int64(0), r.docid)
	}
	assert.True(t, found)
}

func TestScoreTieBreaksByLowerDocidFirst(t *testing.T) {
	meta := Metadata{NumDocs: 2, MaxDocid: 2, AvgDocLen: 4}
	urlMapping := map[int64]DocInfo{
		0: {DocLen: 4, URL: "http://a"},
		1: {DocLen: 4, URL: "http://b"},
	}
	postings := map[string][]codec.Posting{
		"tiger": {{DocID: 0, Freq: 2}, {DocID: 1, Freq: 2}},
	}
	idx := newTestIndex(meta, urlMapping, postings)

	results := Score(idx, TFIDF, []string{"tiger"})
	require.Len(t, results, 2)
	assert.Equal(t, int64(0), results[0].docid, "equal scores should prefer the lower docid first")
	assert.Equal(t, int64(1), results[1].docid)
}

func TestQueryResolvesDocidsToURLs(t *testing.T) {
	meta := Metadata{NumDocs: 1, MaxDocid: 1, AvgDocLen: 4}
	urlMapping := map[int64]DocInfo{0: {DocLen: 4, URL: "http://example.test/page"}}
	postings := map[string][]codec.Posting{"zebra": {{DocID: 0, Freq: 2}}}
	idx := newTestIndex(meta, urlMapping, postings)
	idx.notFound = make(map[string]struct{})

	hits := Query(idx, TFIDF, "zebra")
	require.Len(t, hits, 1)
	assert.Equal(t, "http://example.test/page", hits[0].URL)
	assert.Greater(t, hits[0].Score, 0.0)
}
