package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/filing-research/internal/core/domain"
	"github.com/kirillkom/filing-research/internal/core/ports"
)

// RetrievalPolicy carries the tuning knobs of the retrieval pipeline. Zero
// fields fall back to defaults via normalize.
type RetrievalPolicy struct {
	// Strategy is the default retrieval strategy when a request names none.
	Strategy domain.Strategy
	// KSub is the per-index candidate count fetched for each sub-query.
	KSub int
	// KPerSub is how many re-ranked results each sub-query keeps.
	KPerSub int
	// KFinal caps the pooled result list of one Retrieve call.
	KFinal int
	// CompareK caps both retrieval depth and result count per comparison axis.
	CompareK int
	// Parallelism bounds concurrent sub-query and axis passes.
	Parallelism int
	// Decompose toggles query decomposition; disabled means the original
	// query runs as the only sub-query.
	Decompose bool
}

func DefaultRetrievalPolicy() RetrievalPolicy {
	return RetrievalPolicy{Decompose: true}.normalize()
}

func (p RetrievalPolicy) normalize() RetrievalPolicy {
	if p.Strategy == "" {
		p.Strategy = domain.StrategyHybrid
	}
	if p.KSub <= 0 {
		p.KSub = 20
	}
	if p.KPerSub <= 0 {
		p.KPerSub = 5
	}
	if p.KFinal <= 0 {
		p.KFinal = 10
	}
	if p.CompareK <= 0 {
		p.CompareK = 5
	}
	if p.Parallelism <= 0 {
		p.Parallelism = 4
	}
	return p
}

// SearchUseCase runs the multi-stage retrieval pipeline: decomposition,
// hybrid candidate retrieval, re-ranking, pooling and deduplication. It also
// owns the corpus snapshot behind lexical retrieval.
type SearchUseCase struct {
	dense     ports.DenseIndex
	scorer    ports.RelevanceScorer
	generator ports.TextGenerator
	passages  ports.PassageStore
	builder   ports.LexicalIndexBuilder
	policy    RetrievalPolicy

	snapshot atomic.Pointer[corpusSnapshot]
}

func NewSearchUseCase(
	dense ports.DenseIndex,
	scorer ports.RelevanceScorer,
	generator ports.TextGenerator,
	passages ports.PassageStore,
	builder ports.LexicalIndexBuilder,
	policy RetrievalPolicy,
) *SearchUseCase {
	return &SearchUseCase{
		dense:     dense,
		scorer:    scorer,
		generator: generator,
		passages:  passages,
		builder:   builder,
		policy:    policy.normalize(),
	}
}

// Retrieve answers one query: decompose into sub-queries, retrieve and
// re-rank each concurrently, then pool, deduplicate and cap. A scoring
// failure drops only its sub-query; total index unavailability aborts the
// call.
func (uc *SearchUseCase) Retrieve(
	ctx context.Context,
	query string,
	opts domain.SearchOptions,
) ([]domain.RetrievalResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "retrieve", errors.New("empty query"))
	}
	opts = uc.resolveSearchOptions(opts)

	subQueries := uc.decompose(ctx, query)

	// One slot per sub-query keeps pooling order equal to sub-query order
	// regardless of which goroutine finishes first.
	slots := make([][]domain.RetrievalResult, len(subQueries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.policy.Parallelism)
	for i, subQuery := range subQueries {
		g.Go(func() error {
			results, err := uc.retrieveForSubQuery(gctx, subQuery, opts)
			if err != nil {
				if abortsRetrieve(err) {
					return err
				}
				slog.Warn("sub_query_dropped",
					"sub_query", subQuery,
					"error", err,
				)
				return nil
			}
			slots[i] = results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	pooled := make([]domain.RetrievalResult, 0, len(subQueries)*opts.KPerSub)
	for _, slot := range slots {
		pooled = append(pooled, slot...)
	}

	deduped := dedupeByIdentity(pooled)
	sort.SliceStable(deduped, func(i, j int) bool {
		return deduped[i].Score > deduped[j].Score
	})

	return trimResults(deduped, opts.KFinal), nil
}

func (uc *SearchUseCase) retrieveForSubQuery(
	ctx context.Context,
	subQuery string,
	opts domain.SearchOptions,
) ([]domain.RetrievalResult, error) {
	candidates, err := uc.hybridSearch(ctx, subQuery, opts.KSub, opts.Filter, opts.Strategy)
	if err != nil {
		return nil, err
	}
	ranked, err := uc.rerank(ctx, subQuery, candidates)
	if err != nil {
		return nil, err
	}
	return trimResults(ranked, opts.KPerSub), nil
}

func (uc *SearchUseCase) resolveSearchOptions(opts domain.SearchOptions) domain.SearchOptions {
	if opts.Strategy == "" {
		opts.Strategy = uc.policy.Strategy
	}
	if opts.KSub <= 0 {
		opts.KSub = uc.policy.KSub
	}
	if opts.KPerSub <= 0 {
		opts.KPerSub = uc.policy.KPerSub
	}
	if opts.KFinal <= 0 {
		opts.KFinal = uc.policy.KFinal
	}
	return opts
}

// abortsRetrieve reports whether a sub-query error must fail the whole call
// instead of dropping one sub-query's contribution.
func abortsRetrieve(err error) bool {
	return domain.IsKind(err, domain.ErrRetrievalUnavailable) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// dedupeByIdentity collapses results sharing a passage identity, keeping the
// higher-scored occurrence. The first occurrence keeps its position; equal
// scores keep the earlier one.
func dedupeByIdentity(results []domain.RetrievalResult) []domain.RetrievalResult {
	out := make([]domain.RetrievalResult, 0, len(results))
	seen := make(map[string]int, len(results))
	for _, r := range results {
		key := r.IdentityKey()
		if i, ok := seen[key]; ok {
			if r.Score > out[i].Score {
				out[i] = r
			}
			continue
		}
		seen[key] = len(out)
		out = append(out, r)
	}
	return out
}

func trimResults(results []domain.RetrievalResult, limit int) []domain.RetrievalResult {
	if limit <= 0 || len(results) <= limit {
		return results
	}
	return results[:limit]
}
