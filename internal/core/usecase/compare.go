package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/filing-research/internal/core/domain"
)

// CompareAcross runs one restricted retrieval pass per requested year, each
// in isolation, and returns one ranked list per year. Lists are comparable
// by rank position only. Every requested year appears as a key; years with
// no qualifying passages map to an empty list.
func (uc *SearchUseCase) CompareAcross(
	ctx context.Context,
	query string,
	axisValues []string,
	opts domain.CompareOptions,
) (map[string][]domain.RetrievalResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "compare across years", errors.New("empty query"))
	}
	if len(axisValues) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "compare across years", errors.New("no years requested"))
	}
	if opts.Strategy == "" {
		opts.Strategy = uc.policy.Strategy
	}
	if opts.K <= 0 {
		opts.K = uc.policy.CompareK
	}

	slots := make([][]domain.RetrievalResult, len(axisValues))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.policy.Parallelism)
	for i, year := range axisValues {
		g.Go(func() error {
			results, err := uc.retrieveForYear(gctx, query, year, opts)
			if err != nil {
				if abortsRetrieve(err) {
					return err
				}
				slog.Warn("comparison_axis_dropped",
					"year", year,
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

	out := make(map[string][]domain.RetrievalResult, len(axisValues))
	for i, year := range axisValues {
		if slots[i] == nil {
			slots[i] = []domain.RetrievalResult{}
		}
		out[year] = slots[i]
	}
	return out, nil
}

// retrieveForYear is the per-axis pass: year-qualified query, year-restricted
// filter, no decomposition.
func (uc *SearchUseCase) retrieveForYear(
	ctx context.Context,
	query, year string,
	opts domain.CompareOptions,
) ([]domain.RetrievalResult, error) {
	axisQuery := fmt.Sprintf("%s (year: %s)", query, year)

	filter := opts.Filter
	filter.Year = year

	candidates, err := uc.hybridSearch(ctx, axisQuery, opts.K, filter, opts.Strategy)
	if err != nil {
		return nil, err
	}
	ranked, err := uc.rerank(ctx, axisQuery, candidates)
	if err != nil {
		return nil, err
	}
	return trimResults(ranked, opts.K), nil
}
