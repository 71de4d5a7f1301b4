package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/kirillkom/filing-research/internal/core/domain"
)

// rerank re-scores every candidate against the query through the relevance
// scorer and sorts descending. Retrieval-stage scores are discarded; the
// output is a permutation of the input and ties keep their pre-sort order.
func (uc *SearchUseCase) rerank(
	ctx context.Context,
	query string,
	candidates []domain.RetrievalResult,
) ([]domain.RetrievalResult, error) {
	if len(candidates) == 0 {
		return candidates, nil
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Content
	}

	scores, err := uc.scorer.Score(ctx, query, texts)
	if err != nil {
		return nil, fmt.Errorf("score candidates: %w", err)
	}
	if len(scores) != len(candidates) {
		return nil, domain.WrapError(
			domain.ErrInvalidInput,
			"score candidates",
			fmt.Errorf("scores/candidates mismatch: %d/%d", len(scores), len(candidates)),
		)
	}

	out := make([]domain.RetrievalResult, len(candidates))
	copy(out, candidates)
	for i := range out {
		out[i].Score = scores[i]
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out, nil
}
