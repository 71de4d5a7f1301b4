package bm25

import (
	"math"
	"strings"
	"unicode"

	"github.com/kirillkom/filing-research/internal/core/domain"
	"github.com/kirillkom/filing-research/internal/core/ports"
)

const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// Index is an Okapi BM25 index over one corpus snapshot. Read-only after
// Build; a corpus change means building a fresh Index.
type Index struct {
	termFreqs []map[string]int
	docLens   []int
	docFreq   map[string]int
	avgDocLen float64
	size      int
}

type Builder struct{}

func NewBuilder() Builder { return Builder{} }

func (Builder) Build(passages []domain.Passage) ports.LexicalIndex {
	return Build(passages)
}

func Build(passages []domain.Passage) *Index {
	idx := &Index{
		termFreqs: make([]map[string]int, len(passages)),
		docLens:   make([]int, len(passages)),
		docFreq:   make(map[string]int),
		size:      len(passages),
	}

	totalLen := 0
	for i, passage := range passages {
		tokens := tokenizeAlphaNum(passage.Content)
		tf := make(map[string]int, len(tokens))
		for _, token := range tokens {
			tf[token]++
		}
		idx.termFreqs[i] = tf
		idx.docLens[i] = len(tokens)
		totalLen += len(tokens)
		for term := range tf {
			idx.docFreq[term]++
		}
	}
	if idx.size > 0 {
		idx.avgDocLen = float64(totalLen) / float64(idx.size)
	}
	return idx
}

func (idx *Index) Tokenize(text string) []string {
	return tokenizeAlphaNum(text)
}

// ScoreAll returns one relevance per passage, zero-overlap passages included,
// aligned with the corpus order the index was built from. Repeated query
// terms contribute once per occurrence.
func (idx *Index) ScoreAll(terms []string) []domain.LexicalScore {
	out := make([]domain.LexicalScore, idx.size)
	for i := range out {
		out[i].PassageIndex = i
	}
	if idx.size == 0 || len(terms) == 0 {
		return out
	}

	for _, term := range terms {
		df, ok := idx.docFreq[term]
		if !ok {
			continue
		}
		idf := math.Log(1 + (float64(idx.size)-float64(df)+0.5)/(float64(df)+0.5))
		for i := 0; i < idx.size; i++ {
			tf := idx.termFreqs[i][term]
			if tf == 0 {
				continue
			}
			lengthNorm := 1 - bm25B + bm25B*float64(idx.docLens[i])/idx.avgDocLen
			out[i].Relevance += idf * (float64(tf) * (bm25K1 + 1)) / (float64(tf) + bm25K1*lengthNorm)
		}
	}
	return out
}

func tokenizeAlphaNum(s string) []string {
	if s == "" {
		return nil
	}
	out := make([]string, 0, 24)
	var b strings.Builder
	for _, r := range s {
		r = unicode.ToLower(r)
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			out = append(out, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		out = append(out, b.String())
	}
	return out
}
