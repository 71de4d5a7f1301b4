package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/kirillkom/filing-research/internal/core/domain"
)

var errNoCorpusSnapshot = errors.New("no corpus snapshot loaded")

// hybridSearch collects up to k candidates per selected index and merges them
// into one deduplicated pool of at most 2k results. The pool order is
// dense-first and is NOT a ranking; re-ranking decides the final order.
func (uc *SearchUseCase) hybridSearch(
	ctx context.Context,
	query string,
	k int,
	filter domain.PassageFilter,
	strategy domain.Strategy,
) ([]domain.RetrievalResult, error) {
	if k <= 0 {
		k = uc.policy.KSub
	}
	wantDense := strategy != domain.StrategySparse
	wantSparse := strategy != domain.StrategyDense

	var dense []domain.RetrievalResult
	var denseErr error
	if wantDense {
		dense, denseErr = uc.denseCandidates(ctx, query, k, filter)
	}

	var sparse []domain.RetrievalResult
	sparseAvailable := false
	if wantSparse {
		sparse, sparseAvailable = uc.sparseCandidates(query, k, filter)
	}

	if denseErr != nil {
		if !wantSparse || !sparseAvailable {
			return nil, domain.WrapError(domain.ErrRetrievalUnavailable, "hybrid search", denseErr)
		}
		// One healthy index is enough to serve the query.
		slog.Warn("dense_retrieval_degraded", "error", denseErr)
	}
	if wantSparse && !wantDense && !sparseAvailable {
		return nil, domain.WrapError(domain.ErrRetrievalUnavailable, "sparse search", errNoCorpusSnapshot)
	}

	return mergeCandidates(dense, sparse), nil
}

func (uc *SearchUseCase) denseCandidates(
	ctx context.Context,
	query string,
	k int,
	filter domain.PassageFilter,
) ([]domain.RetrievalResult, error) {
	passages, err := uc.dense.SimilaritySearch(ctx, query, k, filter)
	if err != nil {
		return nil, fmt.Errorf("dense similarity search: %w", err)
	}
	out := make([]domain.RetrievalResult, 0, len(passages))
	for _, p := range passages {
		out = append(out, domain.RetrievalResult{
			Content:  p.Content,
			Metadata: p.Metadata,
			Source:   domain.SourceDense,
		})
	}
	return out, nil
}

// sparseCandidates scores the whole snapshot and keeps the k best
// filter-qualifying passages with positive relevance. Equal scores keep
// corpus order. The second return value reports snapshot availability, not
// result presence.
func (uc *SearchUseCase) sparseCandidates(
	query string,
	k int,
	filter domain.PassageFilter,
) ([]domain.RetrievalResult, bool) {
	snap := uc.snapshot.Load()
	if snap == nil || snap.lexical == nil {
		return nil, false
	}
	if len(snap.passages) == 0 {
		return nil, true
	}

	terms := snap.lexical.Tokenize(query)
	scores := snap.lexical.ScoreAll(terms)
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Relevance > scores[j].Relevance
	})

	out := make([]domain.RetrievalResult, 0, k)
	for _, s := range scores {
		if len(out) == k || s.Relevance <= 0 {
			break
		}
		p := snap.passages[s.PassageIndex]
		if !filter.Matches(p.Metadata) {
			continue
		}
		out = append(out, domain.RetrievalResult{
			Content:  p.Content,
			Metadata: p.Metadata,
			Score:    s.Relevance,
			Source:   domain.SourceSparse,
		})
	}
	return out, true
}

// mergeCandidates concatenates dense-first and deduplicates on passage
// identity. A passage surfaced by both indexes keeps its dense copy retagged
// hybrid.
func mergeCandidates(dense, sparse []domain.RetrievalResult) []domain.RetrievalResult {
	out := make([]domain.RetrievalResult, 0, len(dense)+len(sparse))
	seen := make(map[string]int, len(dense)+len(sparse))

	for _, r := range dense {
		key := r.IdentityKey()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = len(out)
		out = append(out, r)
	}
	for _, r := range sparse {
		key := r.IdentityKey()
		if i, ok := seen[key]; ok {
			if out[i].Source == domain.SourceDense {
				out[i].Source = domain.SourceHybrid
			}
			continue
		}
		seen[key] = len(out)
		out = append(out, r)
	}
	return out
}
