package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kirillkom/filing-research/internal/core/domain"
)

func supplyChainCorpus() []domain.Passage {
	return []domain.Passage{
		acmePassage("2021", "supply chain risk rose on component shortages", "acme-2021#0"),
		acmePassage("2022", "supply chain risk stayed elevated on freight costs", "acme-2022#0"),
		acmePassage("2023", "supply chain risk eased after diversifying suppliers", "acme-2023#0"),
	}
}

func TestCompareAcrossYears(t *testing.T) {
	corpus := supplyChainCorpus()
	dense := &denseIndexFake{passages: corpus}
	scorer := &scorerFake{scoreFn: func(_, candidate string) float64 { return float64(len(candidate)) }}
	gen := &generatorFake{response: `["must never be used"]`}
	uc := newLoadedSearch(t, dense, scorer, gen, corpus, nil, RetrievalPolicy{Decompose: true})

	years := []string{"2021", "2022", "2023"}
	byYear, err := uc.CompareAcross(context.Background(), "supply chain risk", years, domain.CompareOptions{})
	if err != nil {
		t.Fatalf("CompareAcross() error = %v", err)
	}
	if len(byYear) != 3 {
		t.Fatalf("expected 3 axis keys, got %d", len(byYear))
	}

	for _, year := range years {
		results, ok := byYear[year]
		if !ok {
			t.Fatalf("missing axis key %s", year)
		}
		if len(results) == 0 || len(results) > 5 {
			t.Fatalf("year %s: expected 1..5 results, got %d", year, len(results))
		}
		for _, r := range results {
			if r.Metadata.Year != year {
				t.Fatalf("year %s leaked a %s passage", year, r.Metadata.Year)
			}
		}
	}

	// Comparison skips decomposition entirely.
	if len(gen.prompts) != 0 {
		t.Fatalf("decomposer consulted during comparison")
	}

	// Each axis pass retrieves with the year-qualified query.
	joined := strings.Join(dense.queries, "\n")
	for _, year := range years {
		if !strings.Contains(joined, "(year: "+year+")") {
			t.Fatalf("missing axis-qualified query for %s in %q", year, joined)
		}
	}
}

func TestCompareAcrossKeepsEmptyAxisKey(t *testing.T) {
	corpus := supplyChainCorpus()
	dense := &denseIndexFake{passages: corpus}
	scorer := &scorerFake{scoreFn: func(string, string) float64 { return 1 }}
	uc := newLoadedSearch(t, dense, scorer, nil, corpus, nil, RetrievalPolicy{})

	byYear, err := uc.CompareAcross(context.Background(), "supply chain risk", []string{"2021", "2024"}, domain.CompareOptions{})
	if err != nil {
		t.Fatalf("CompareAcross() error = %v", err)
	}
	results, ok := byYear["2024"]
	if !ok {
		t.Fatalf("empty axis key omitted")
	}
	if results == nil {
		t.Fatalf("expected non-nil empty slice for empty axis")
	}
	if len(results) != 0 {
		t.Fatalf("expected no results for 2024, got %d", len(results))
	}
}

func TestCompareAcrossCapsPerAxis(t *testing.T) {
	corpus := make([]domain.Passage, 0, 8)
	for i := 0; i < 8; i++ {
		corpus = append(corpus, acmePassage("2022", strings.Repeat("x", i+1)+" disclosure", "f#"+string(rune('0'+i))))
	}
	dense := &denseIndexFake{passages: corpus}
	scorer := &scorerFake{scoreFn: func(_, candidate string) float64 { return float64(len(candidate)) }}
	uc := newLoadedSearch(t, dense, scorer, nil, corpus, nil, RetrievalPolicy{})

	byYear, err := uc.CompareAcross(context.Background(), "disclosure", []string{"2022"}, domain.CompareOptions{K: 3})
	if err != nil {
		t.Fatalf("CompareAcross() error = %v", err)
	}
	if len(byYear["2022"]) != 3 {
		t.Fatalf("expected axis capped at 3, got %d", len(byYear["2022"]))
	}
}

func TestCompareAcrossRejectsEmptyInput(t *testing.T) {
	uc := NewSearchUseCase(&denseIndexFake{}, &scorerFake{}, nil, &passageStoreFake{}, &lexicalBuilderFake{}, RetrievalPolicy{})

	if _, err := uc.CompareAcross(context.Background(), "  ", []string{"2021"}, domain.CompareOptions{}); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for empty query, got %v", err)
	}
	if _, err := uc.CompareAcross(context.Background(), "q", nil, domain.CompareOptions{}); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for empty axis list, got %v", err)
	}
}

func TestCompareAcrossDropsAxisOnScoringFailure(t *testing.T) {
	corpus := supplyChainCorpus()
	dense := &denseIndexFake{passages: corpus}
	scorer := &scorerFake{
		scoreFn: func(string, string) float64 { return 1 },
		failFor: "(year: 2022)",
	}
	uc := newLoadedSearch(t, dense, scorer, nil, corpus, nil, RetrievalPolicy{})

	byYear, err := uc.CompareAcross(context.Background(), "supply chain risk", []string{"2021", "2022", "2023"}, domain.CompareOptions{})
	if err != nil {
		t.Fatalf("expected partial comparison, got error %v", err)
	}
	if len(byYear["2022"]) != 0 {
		t.Fatalf("expected failed axis empty, got %d results", len(byYear["2022"]))
	}
	if len(byYear["2021"]) == 0 || len(byYear["2023"]) == 0 {
		t.Fatalf("healthy axes lost results: %d/%d", len(byYear["2021"]), len(byYear["2023"]))
	}
}

func TestCompareAcrossUnavailableAborts(t *testing.T) {
	dense := &denseIndexFake{err: errors.New("vector db down")}
	uc := NewSearchUseCase(dense, &scorerFake{}, nil, &passageStoreFake{}, &lexicalBuilderFake{}, RetrievalPolicy{})

	_, err := uc.CompareAcross(context.Background(), "q", []string{"2021", "2022"}, domain.CompareOptions{})
	if !domain.IsKind(err, domain.ErrRetrievalUnavailable) {
		t.Fatalf("expected retrieval unavailable kind, got %v", err)
	}
}
