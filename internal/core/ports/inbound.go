package ports

import (
	"context"

	"github.com/kirillkom/filing-research/internal/core/domain"
)

// SearchService is the inbound contract for retrieval and cross-year
// comparison.
type SearchService interface {
	Retrieve(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.RetrievalResult, error)
	CompareAcross(ctx context.Context, query string, axisValues []string, opts domain.CompareOptions) (map[string][]domain.RetrievalResult, error)
}

// CorpusRefresher rebuilds the in-process corpus snapshot behind lexical
// retrieval. Returns the passage count of the new snapshot.
type CorpusRefresher interface {
	RefreshCorpus(ctx context.Context) (int, error)
}

// FilingIngestor is the inbound contract for filing upload orchestration.
type FilingIngestor interface {
	Upload(ctx context.Context, upload domain.FilingUpload) (*domain.Filing, error)
}

// FilingReader is the inbound read model for filing metadata/state.
type FilingReader interface {
	GetByID(ctx context.Context, id string) (*domain.Filing, error)
}

// FilingProcessor is the inbound contract for asynchronous filing processing.
type FilingProcessor interface {
	ProcessByID(ctx context.Context, filingID string) error
}
