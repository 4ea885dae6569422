// Package ranking implements the ranker (C6): index loading, DAAT
// TF-IDF/BM25 scoring, bounded top-10 selection, and concurrent query
// fan-out over a shared, read-only loaded index.
package ranking

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"warcidx/internal/codec"
	xerrors "warcidx/internal/errors"
	"warcidx/internal/markindex"
)

const (
	beginURLMapping = "-----BEGIN URL MAPPING-----"
	endURLMapping   = "-----END URL MAPPING-----"
	beginIndexMeta  = "-----BEGIN INDEX METADATA-----"
	endIndexMeta    = "-----END INDEX METADATA-----"
)

// DocInfo is a loaded (doc_len, url) pair keyed by docid.
type DocInfo struct {
	DocLen int64
	URL    string
}

// Metadata is the parsed index-metadata trailer.
type Metadata struct {
	NumDocs   int64
	MaxDocid  int64
	AvgDocLen float64
}

// Index is the ranker's process-wide, read-only loaded state: the full
// url-mapping, the metadata trailer, the mark index, and a per-term
// posting cache populated lazily on first lookup (spec.md §4.6
// "Initialization").
type Index struct {
	path     string
	maxChars int

	urlMapping map[int64]DocInfo
	meta       Metadata
	marks      *markindex.Index

	cacheMu  sync.Mutex
	cache    map[string][]codec.Posting
	notFound map[string]struct{}
}

// Load reads the url-mapping and index-metadata blocks fully, then
// builds the mark index over the postings region that follows
// (spec.md §4.6 "Initialization").
func Load(path string, maxChars int) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, xerrors.NewConfigError("index", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	idx := &Index{
		path:       path,
		maxChars:   maxChars,
		urlMapping: make(map[int64]DocInfo),
		cache:      make(map[string][]codec.Posting),
		notFound:   make(map[string]struct{}),
	}

	var offset int64
	section := ""
	for scanner.Scan() {
		line := scanner.Text()
		lineLen := int64(len(line)) + 1 // + LF

		switch line {
		case beginURLMapping:
			section = "url"
			offset += lineLen
			continue
		case endURLMapping:
			section = ""
			offset += lineLen
			continue
		case beginIndexMeta:
			section = "meta"
			offset += lineLen
			continue
		case endIndexMeta:
			section = ""
			offset += lineLen
			idx.marks = nil // built below once offset is known
			postingsStart := offset
			marks, err := markindex.Build(path, postingsStart, maxChars)
			if err != nil {
				return nil, err
			}
			idx.marks = marks
			if err := scanner.Err(); err != nil {
				return nil, xerrors.NewConfigError("index", path, err)
			}
			return idx, nil
		}

		switch section {
		case "url":
			if err := parseURLMappingLine(line, idx.urlMapping); err != nil {
				return nil, xerrors.NewConfigError("index", path, err)
			}
		case "meta":
			if err := parseMetadataLine(line, &idx.meta); err != nil {
				return nil, xerrors.NewConfigError("index", path, err)
			}
		}
		offset += lineLen
	}
	if err := scanner.Err(); err != nil {
		return nil, xerrors.NewConfigError("index", path, err)
	}
	return nil, xerrors.NewConfigError("index", path, fmt.Errorf("missing index-metadata trailer"))
}

func parseURLMappingLine(line string, out map[int64]DocInfo) error {
	fields := strings.SplitN(line, " ", 3)
	if len(fields) != 3 {
		return fmt.Errorf("malformed url-mapping line: %q", line)
	}
	docid, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return fmt.Errorf("malformed docid in url-mapping line: %q", line)
	}
	docLen, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return fmt.Errorf("malformed doc_len in url-mapping line: %q", line)
	}
	out[docid] = DocInfo{DocLen: docLen, URL: fields[2]}
	return nil
}

func parseMetadataLine(line string, meta *Metadata) error {
	fields := strings.SplitN(line, " ", 2)
	if len(fields) != 2 {
		return fmt.Errorf("malformed index-metadata line: %q", line)
	}
	switch fields[0] {
	case "num_docs":
		v, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return err
		}
		meta.NumDocs = v
	case "max_docid":
		v, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return err
		}
		meta.MaxDocid = v
	case "avg_doc_len":
		v, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return err
		}
		meta.AvgDocLen = v
	}
	return nil
}

// Metadata returns the loaded index-metadata trailer.
func (idx *Index) Metadata() Metadata { return idx.meta }

// DocInfo returns the loaded (doc_len, url) for a docid.
func (idx *Index) DocInfo(docid int64) (DocInfo, bool) {
	d, ok := idx.urlMapping[docid]
	return d, ok
}

// Prefetch resolves every term in terms into the shared per-term
// cache, recording unresolvable ones (spec.md §4.6 "Build the set U of
// all distinct query terms... fetch its inverted list once").
func (idx *Index) Prefetch(terms []string) (notFound []string) {
	idx.cacheMu.Lock()
	defer idx.cacheMu.Unlock()

	for _, t := range terms {
		if _, ok := idx.cache[t]; ok {
			continue
		}
		if _, ok := idx.notFound[t]; ok {
			notFound = append(notFound, t)
			continue
		}
		postings, ok, err := idx.marks.Lookup(t)
		if err != nil || !ok {
			idx.notFound[t] = struct{}{}
			notFound = append(notFound, t)
			continue
		}
		idx.cache[t] = postings
	}
	return notFound
}

// postings returns a term's cached postings. Reads take cacheMu
// because concurrent Query calls may be running Prefetch, which adds
// entries to the same map; a cached slice itself is never modified.
func (idx *Index) postings(term string) ([]codec.Posting, bool) {
	idx.cacheMu.Lock()
	defer idx.cacheMu.Unlock()
	p, ok := idx.cache[term]
	return p, ok
}
