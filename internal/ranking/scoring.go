package ranking

import (
	"container/heap"
	"math"

	"warcidx/internal/analysis"
	"warcidx/internal/codec"
)

// Type selects the scoring function, modeled as a tagged choice
// resolved once at ranker construction (spec.md §9 "Subtype
// polymorphism (TF-IDF vs BM25)").
type Type int

const (
	TFIDF Type = iota
	BM25
)

// ParseType maps the -r CLI flag to a Type.
func ParseType(s string) (Type, bool) {
	switch s {
	case "TFIDF":
		return TFIDF, true
	case "BM25":
		return BM25, true
	default:
		return 0, false
	}
}

const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// idf implements spec.md §4.6's idf(df) = ln((N-df+0.5)/(df+0.5)+1).
func idf(numDocs, df int64) float64 {
	n := float64(numDocs)
	d := float64(df)
	return math.Log((n-d+0.5)/(d+0.5) + 1)
}

// contribution implements spec.md §4.6's per-(term, doc) score. The
// BM25 branch is pinned exactly to the literal expression spec.md
// gives — including the numerator/denominator grouping that lets f
// cancel out of f·(k1+1)/f — rather than the more familiar textbook
// form with the whole denominator under one division, per spec.md
// §9's explicit "reproduce faithfully" instruction.
func contribution(rtype Type, f, df, docLen, numDocs int64, avgDocLen float64) float64 {
	switch rtype {
	case BM25:
		freq := float64(f)
		bm := freq*(bm25K1+1)/freq + bm25K1*(1-bm25B+bm25B*float64(docLen)/avgDocLen)
		return idf(numDocs, df) * bm
	default:
		return (float64(f) / float64(docLen)) * idf(numDocs, df)
	}
}

// scored is one (docid, score) result candidate.
type scored struct {
	docid int64
	score float64
}

// scoreHeap is a min-heap of size <= NumResults ordered by score
// ascending, so the smallest current top-10 entry is always evictable
// in O(log k) (spec.md §4.6 "Top-k selection"). Mirrors
// weaviate/engine/engine.go's minBlockHeap shape.
type scoreHeap []scored

func (h scoreHeap) Len() int { return len(h) }
func (h scoreHeap) Less(i, j int) bool {
	if h[i].score != h[j].score {
		return h[i].score < h[j].score
	}
	// Ties broken by lower docid first; within the min-heap this means
	// the higher docid is "smaller" so it is evicted first, keeping the
	// lower docid among the survivors (spec.md §4.6 "Top-k selection").
	return h[i].docid > h[j].docid
}
func (h scoreHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *scoreHeap) Push(x interface{}) { *h = append(*h, x.(scored)) }
func (h *scoreHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// NumResults is the fixed top-k pinned by spec.md §4.6.
const NumResults = 10

// termState is one query term's DAAT cursor into its cached postings.
type termState struct {
	postings []codec.Posting
	idx      int
	df       int64
}

// Score runs spec.md §4.6's DAAT scoring loop for one query's already
// tokenized, normalized terms (terms not found in the index must
// already be excluded by the caller). Returns up to NumResults
// (docid, score) pairs, highest score first, ties broken by lower
// docid.
func Score(idx *Index, rtype Type, terms []string) []scored {
	meta := idx.Metadata()

	states := make([]*termState, 0, len(terms))
	for _, t := range terms {
		postings, ok := idx.postings(t)
		if !ok {
			continue
		}
		states = append(states, &termState{postings: postings, df: int64(len(postings))})
	}
	if len(states) == 0 {
		return nil
	}

	h := &scoreHeap{}
	for target := int64(0); target < meta.MaxDocid; target++ {
		var score float64
		for _, st := range states {
			for st.idx < len(st.postings) && st.postings[st.idx].DocID < target {
				st.idx++
			}
			if st.idx < len(st.postings) && st.postings[st.idx].DocID == target {
				info, ok := idx.DocInfo(target)
				docLen := info.DocLen
				if !ok {
					docLen = 1
				}
				score += contribution(rtype, st.postings[st.idx].Freq, st.df, docLen, meta.NumDocs, meta.AvgDocLen)
				st.idx++
			}
		}
		if score > 0 {
			heap.Push(h, scored{docid: target, score: score})
			if h.Len() > NumResults {
				heap.Pop(h)
			}
		}
	}

	results := make([]scored, h.Len())
	for i := len(results) - 1; i >= 0; i-- {
		results[i] = heap.Pop(h).(scored)
	}
	return results
}

// TokenizeQuery applies the same pipeline the indexer uses, so query
// terms and corpus terms are directly comparable (spec.md §4.6
// "Initialization... tokenize each input query using the same
// pipeline as the indexer").
func TokenizeQuery(text string) []string {
	return analysis.TokenizeAndNormalize(text)
}
