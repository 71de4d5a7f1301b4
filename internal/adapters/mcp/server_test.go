package mcpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kirillkom/filing-research/internal/config"
	"github.com/kirillkom/filing-research/internal/core/domain"
)

type retrievalFake struct {
	results     []domain.RetrievalResult
	retrieveErr error
}

func (f retrievalFake) Retrieve(context.Context, string, domain.SearchOptions) ([]domain.RetrievalResult, error) {
	if f.retrieveErr != nil {
		return nil, f.retrieveErr
	}
	return f.results, nil
}

func (f retrievalFake) CompareAcross(_ context.Context, _ string, axisValues []string, _ domain.CompareOptions) (map[string][]domain.RetrievalResult, error) {
	out := make(map[string][]domain.RetrievalResult, len(axisValues))
	for _, value := range axisValues {
		out[value] = f.results
	}
	return out, nil
}

func toolRequest(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("expected one content block, got %d", len(res.Content))
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", res.Content[0])
	}
	return text.Text
}

func TestSearchToolReturnsCitedResults(t *testing.T) {
	srv := NewServer(config.Config{}, retrievalFake{results: []domain.RetrievalResult{
		{
			Content: "Revenue grew 12%.",
			Metadata: domain.PassageMetadata{
				Entity:        "ACME",
				Year:          "2023",
				Section:       "Item 7.",
				SourceLocator: "acme-2023.pdf#p41",
			},
			Score:  0.9,
			Source: domain.SourceHybrid,
		},
	}})

	res, err := srv.handleSearch(context.Background(), toolRequest("search_filings", map[string]any{
		"query": "revenue growth",
	}))
	if err != nil {
		t.Fatalf("handleSearch() error = %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}

	var payload struct {
		Query    string `json:"query"`
		Strategy string `json:"strategy"`
		Results  []struct {
			Content  string         `json:"content"`
			Citation map[string]any `json:"citation"`
		} `json:"results"`
	}
	if err := json.Unmarshal([]byte(resultText(t, res)), &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Strategy != "hybrid" {
		t.Fatalf("expected default strategy hybrid, got %q", payload.Strategy)
	}
	if len(payload.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(payload.Results))
	}
	citation := payload.Results[0].Citation
	if citation["source_type"] != "10-K" || citation["entity"] != "ACME" || citation["year"] != "2023" {
		t.Fatalf("unexpected citation: %v", citation)
	}
}

func TestSearchToolRequiresQuery(t *testing.T) {
	srv := NewServer(config.Config{}, retrievalFake{})

	res, err := srv.handleSearch(context.Background(), toolRequest("search_filings", map[string]any{}))
	if err != nil {
		t.Fatalf("handleSearch() error = %v", err)
	}
	if !res.IsError {
		t.Fatalf("expected tool error for missing query")
	}
}

func TestSearchToolReportsRetrievalFailure(t *testing.T) {
	srv := NewServer(config.Config{}, retrievalFake{
		retrieveErr: domain.WrapError(domain.ErrRetrievalUnavailable, "retrieve", errors.New("no index reachable")),
	})

	res, err := srv.handleSearch(context.Background(), toolRequest("search_filings", map[string]any{
		"query": "revenue",
	}))
	if err != nil {
		t.Fatalf("handleSearch() error = %v", err)
	}
	if !res.IsError {
		t.Fatalf("expected tool error for unavailable retrieval")
	}
}

func TestCompareToolGroupsByYear(t *testing.T) {
	srv := NewServer(config.Config{}, retrievalFake{results: []domain.RetrievalResult{
		{
			Content:  "Risk factors narrowed.",
			Metadata: domain.PassageMetadata{Entity: "ACME", Year: "2023"},
			Score:    0.7,
			Source:   domain.SourceDense,
		},
	}})

	res, err := srv.handleCompare(context.Background(), toolRequest("compare_filings", map[string]any{
		"query": "risk factors",
		"years": []any{"2022", "2023"},
	}))
	if err != nil {
		t.Fatalf("handleCompare() error = %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}

	var payload struct {
		Years map[string][]struct {
			Citation map[string]any `json:"citation"`
		} `json:"years"`
	}
	if err := json.Unmarshal([]byte(resultText(t, res)), &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if len(payload.Years) != 2 {
		t.Fatalf("expected 2 year groups, got %d", len(payload.Years))
	}
	for _, year := range []string{"2022", "2023"} {
		group, ok := payload.Years[year]
		if !ok {
			t.Fatalf("missing year group %s", year)
		}
		for _, result := range group {
			if result.Citation["year"] != year {
				t.Fatalf("expected citation year %s, got %v", year, result.Citation["year"])
			}
		}
	}
}

func TestCompareToolRequiresYears(t *testing.T) {
	srv := NewServer(config.Config{}, retrievalFake{})

	res, err := srv.handleCompare(context.Background(), toolRequest("compare_filings", map[string]any{
		"query": "risk factors",
	}))
	if err != nil {
		t.Fatalf("handleCompare() error = %v", err)
	}
	if !res.IsError {
		t.Fatalf("expected tool error for missing years")
	}
}
