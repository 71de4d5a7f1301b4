package ports

import (
	"context"
	"io"

	"github.com/kirillkom/filing-research/internal/core/domain"
)

// FilingStore persists and reads filing state.
type FilingStore interface {
	Create(ctx context.Context, filing *domain.Filing) error
	GetByID(ctx context.Context, id string) (*domain.Filing, error)
	UpdateStatus(ctx context.Context, id string, status domain.FilingStatus, errMessage string) error
	MarkReady(ctx context.Context, id string, passageCount int) error
}

// PassageStore persists the passage-level corpus. ListAll returns passages in
// stable corpus order; that order is what lexical tie-breaking refers to.
type PassageStore interface {
	ReplaceForFiling(ctx context.Context, filingID string, passages []domain.Passage) error
	ListAll(ctx context.Context) ([]domain.Passage, error)
}

// ObjectStorage stores raw filing files.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes pipeline events.
type MessageQueue interface {
	PublishFilingIngested(ctx context.Context, filingID string) error
	SubscribeFilingIngested(ctx context.Context, handler func(context.Context, string) error) error
	PublishCorpusUpdated(ctx context.Context, filingID string) error
	SubscribeCorpusUpdated(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor extracts plain text from a stored filing.
type TextExtractor interface {
	Extract(ctx context.Context, filing *domain.Filing) (string, error)
}

// Chunker splits filing text into passage drafts, labeling sections where it
// can detect them.
type Chunker interface {
	Split(text string) []domain.PassageDraft
}

// Embedder builds vectors for passages and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// DenseIndex is the embedding-similarity search capability. Search results
// come back already ranked, most similar first; raw similarity scores stay
// inside the adapter.
type DenseIndex interface {
	IndexPassages(ctx context.Context, filingID string, passages []domain.Passage, vectors [][]float32) error
	DeleteFiling(ctx context.Context, filingID string) error
	SimilaritySearch(ctx context.Context, query string, k int, filter domain.PassageFilter) ([]domain.Passage, error)
}

// LexicalIndex scores every passage of one corpus snapshot against query
// terms. ScoreAll output is aligned with the snapshot's passage order and
// includes zero-overlap passages.
type LexicalIndex interface {
	Tokenize(text string) []string
	ScoreAll(terms []string) []domain.LexicalScore
}

// LexicalIndexBuilder builds a read-only lexical index over one corpus
// snapshot.
type LexicalIndexBuilder interface {
	Build(passages []domain.Passage) LexicalIndex
}

// RelevanceScorer scores (query, candidate) pairs through a cross-attention
// relevance model, batched. Scores come back aligned with the candidate
// order.
type RelevanceScorer interface {
	Score(ctx context.Context, query string, candidates []string) ([]float64, error)
}

// TextGenerator is the language-generation capability used by query
// decomposition. Output is expected, not guaranteed, to be parseable JSON.
type TextGenerator interface {
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}
