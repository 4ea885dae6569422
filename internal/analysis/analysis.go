// Package analysis implements the tokenize/stopword/stem/truncate
// pipeline shared verbatim by the indexer and the ranker (spec.md §9
// Design Notes: "any drift between them breaks recall").
package analysis

import (
	"strings"
	"unicode"

	"github.com/surgebase/porter2"
	"golang.org/x/text/width"
)

// MinCharsWord and MaxCharsWord pin spec.md §4.3 step 2's bounds.
const (
	MinCharsWord = 3
	MaxCharsWord = 20
)

// leadingPunctuation mirrors original_source's PUNCTUATIONS set
// (common/preprocessing/normalize.py): tokens starting with any of
// these are dropped as malformed ("',123'", "'.hello'", "'(melt'").
const leadingPunctuation = ",.[](){}/\\"

// stopwords is an English stopword set. The original source unions
// Portuguese and English NLTK stopword lists because it stems with both
// a Portuguese and an English stemmer; this implementation resolves the
// single-vs-double-stemmer Open Question (DESIGN.md) in favor of one
// stemmer, so only the matching English stopword list is carried.
var stopwords = buildStopwords()

func buildStopwords() map[string]struct{} {
	words := []string{
		"a", "about", "above", "after", "again", "against", "all", "am", "an", "and",
		"any", "are", "aren't", "as", "at", "be", "because", "been", "before", "being",
		"below", "between", "both", "but", "by", "can't", "cannot", "could", "couldn't",
		"did", "didn't", "do", "does", "doesn't", "doing", "don't", "down", "during",
		"each", "few", "for", "from", "further", "had", "hadn't", "has", "hasn't",
		"have", "haven't", "having", "he", "he'd", "he'll", "he's", "her", "here",
		"here's", "hers", "herself", "him", "himself", "his", "how", "how's", "i",
		"i'd", "i'll", "i'm", "i've", "if", "in", "into", "is", "isn't", "it", "it's",
		"its", "itself", "let's", "me", "more", "most", "mustn't", "my", "myself",
		"no", "nor", "not", "of", "off", "on", "once", "only", "or", "other", "ought",
		"our", "ours", "ourselves", "out", "over", "own", "same", "shan't", "she",
		"she'd", "she'll", "she's", "should", "shouldn't", "so", "some", "such",
		"than", "that", "that's", "the", "their", "theirs", "them", "themselves",
		"then", "there", "there's", "these", "they", "they'd", "they'll", "they're",
		"they've", "this", "those", "through", "to", "too", "under", "until", "up",
		"very", "was", "wasn't", "we", "we'd", "we'll", "we're", "we've", "were",
		"weren't", "what", "what's", "when", "when's", "where", "where's", "which",
		"while", "who", "who's", "whom", "why", "why's", "with", "won't", "would",
		"wouldn't", "you", "you'd", "you'll", "you're", "you've", "your", "yours",
		"yourself", "yourselves",
	}
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// Tokenize splits whitespace-normalized text into raw word tokens. This
// is the spec.md §1 "assumed available" tokenize(s) -> [word]
// collaborator. It splits on whitespace only, leaving punctuation
// attached to whichever token it appears in — matching
// original_source's nltk.word_tokenize closely enough that a token can
// still arrive at NormalizeWord wearing leading punctuation (e.g.
// "(melt"), which is why that check below still has work to do.
func Tokenize(text string) []string {
	return strings.FieldsFunc(text, unicode.IsSpace)
}

// NormalizeWord applies spec.md §4.3 step 2 to a single raw token:
// lowercase, stopword removal, length/punctuation checks, stemming,
// truncation. Returns ("", false) when the token is dropped.
func NormalizeWord(raw string) (string, bool) {
	folded := width.Fold.String(strings.ToLower(raw))

	if _, isStop := stopwords[folded]; isStop {
		return "", false
	}
	if len(folded) < MinCharsWord {
		return "", false
	}
	if strings.ContainsRune(leadingPunctuation, rune(folded[0])) {
		return "", false
	}

	stemmed := porter2.Stem(folded)
	if len(stemmed) == 0 {
		return "", false
	}
	if len(stemmed) > MaxCharsWord {
		stemmed = stemmed[:MaxCharsWord]
	}
	return stemmed, true
}

// TokenizeAndNormalize is the full tokenize_and_normalize(text) -> [term]
// pipeline named in spec.md §9.
func TokenizeAndNormalize(text string) []string {
	raw := Tokenize(text)
	out := make([]string, 0, len(raw))
	for _, tok := range raw {
		if term, ok := NormalizeWord(tok); ok {
			out = append(out, term)
		}
	}
	return out
}

// TermFrequencies counts normalized-term occurrences in text, producing
// the per-document word->freq map spec.md §4.3 step 2 requires before
// indexing (step 3).
func TermFrequencies(text string) map[string]int {
	freqs := make(map[string]int)
	for _, term := range TokenizeAndNormalize(text) {
		freqs[term]++
	}
	return freqs
}

// NormalizeWhitespace collapses runs of tab/CR/LF/space into a single
// space and trims the result, per spec.md §4.3 step 1.
func NormalizeWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastWasSpace := false
	for _, r := range s {
		if r == '\t' || r == '\r' || r == '\n' || r == ' ' {
			if !lastWasSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			lastWasSpace = true
			continue
		}
		b.WriteRune(r)
		lastWasSpace = false
	}
	return strings.TrimRight(b.String(), " ")
}
