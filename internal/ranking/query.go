package ranking

// Hit is one ranked result: a document URL and its final score.
type Hit struct {
	URL   string
	Score float64
}

// Query runs one full query end to end: tokenize/normalize, prefetch
// the query's distinct terms into idx's shared cache, run DAAT
// scoring, then resolve the winning docids back to URLs (spec.md §4.6
// "Initialization" through "Top-k selection"). Safe to call
// concurrently from multiple goroutines sharing the same *Index once
// construction (Load) has completed.
func Query(idx *Index, rtype Type, queryText string) []Hit {
	terms := TokenizeQuery(queryText)
	if len(terms) == 0 {
		return nil
	}
	idx.Prefetch(terms)

	scoredDocs := Score(idx, rtype, terms)
	hits := make([]Hit, 0, len(scoredDocs))
	for _, sd := range scoredDocs {
		info, ok := idx.DocInfo(sd.docid)
		if !ok {
			continue
		}
		hits = append(hits, Hit{URL: info.URL, Score: sd.score})
	}
	return hits
}
