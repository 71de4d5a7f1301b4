package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/filing-research/internal/core/domain"
	"github.com/kirillkom/filing-research/internal/core/ports"
)

// corpusSnapshot is one immutable view of the passage corpus plus the lexical
// index built over it. Snapshots are swapped whole; readers never see a
// half-built index.
type corpusSnapshot struct {
	passages []domain.Passage
	lexical  ports.LexicalIndex
}

// RefreshCorpus reloads every passage from the store and rebuilds the lexical
// index over the new list. Returns the passage count of the fresh snapshot.
func (uc *SearchUseCase) RefreshCorpus(ctx context.Context) (int, error) {
	passages, err := uc.passages.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("list corpus passages: %w", err)
	}

	snap := &corpusSnapshot{
		passages: passages,
		lexical:  uc.builder.Build(passages),
	}
	uc.snapshot.Store(snap)

	slog.Info("corpus_snapshot_rebuilt", "passages", len(passages))
	return len(passages), nil
}
