// Package mcpadapter exposes the retrieval surface to research agents over
// the Model Context Protocol. The tools return the same JSON payloads as the
// REST endpoints so agents and direct API clients see identical shapes.
package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/filing-research/internal/config"
	"github.com/kirillkom/filing-research/internal/core/domain"
	"github.com/kirillkom/filing-research/internal/core/ports"
)

type Server struct {
	cfg    config.Config
	search ports.SearchService
}

func NewServer(cfg config.Config, search ports.SearchService) *Server {
	return &Server{cfg: cfg, search: search}
}

// Handler returns the streamable HTTP endpoint, mountable next to the REST
// routes.
func (s *Server) Handler() http.Handler {
	srv := server.NewMCPServer("filing-research", "1.0.0",
		server.WithToolCapabilities(false),
	)
	srv.AddTool(searchTool(), s.handleSearch)
	srv.AddTool(compareTool(), s.handleCompare)
	return server.NewStreamableHTTPServer(srv)
}

type searchPayload struct {
	Query    string               `json:"query"`
	Strategy string               `json:"strategy"`
	Results  []domain.CitedResult `json:"results"`
}

type comparePayload struct {
	Query string                          `json:"query"`
	Years map[string][]domain.CitedResult `json:"years"`
}

func searchTool() mcp.Tool {
	return mcp.NewTool("search_filings",
		mcp.WithDescription("Search the filing corpus with a natural-language question; returns ranked passages with citations."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Natural-language question")),
		mcp.WithString("entity", mcp.Description("Restrict results to one registrant")),
		mcp.WithString("year", mcp.Description("Restrict results to one fiscal year")),
		mcp.WithString("strategy", mcp.Description("hybrid, dense or sparse; empty selects the configured default")),
		mcp.WithNumber("k", mcp.Description("Maximum number of results")),
	)
}

func compareTool() mcp.Tool {
	return mcp.NewTool("compare_filings",
		mcp.WithDescription("Run the same question independently against several fiscal years; returns per-year ranked passages with citations."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Natural-language question")),
		mcp.WithArray("years", mcp.Required(),
			mcp.Description("Fiscal years to compare"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithString("entity", mcp.Description("Restrict results to one registrant")),
		mcp.WithString("strategy", mcp.Description("hybrid, dense or sparse; empty selects the configured default")),
		mcp.WithNumber("k", mcp.Description("Per-year maximum number of results")),
	)
}

func (s *Server) handleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	strategy, err := parseStrategyArg(req.GetString("strategy", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	entity := req.GetString("entity", "")

	results, err := s.search.Retrieve(ctx, query, domain.SearchOptions{
		Strategy: strategy,
		Filter: domain.PassageFilter{
			Entity: entity,
			Year:   req.GetString("year", ""),
		},
		KFinal: req.GetInt("k", 0),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return toolResultJSON(searchPayload{
		Query:    query,
		Strategy: string(s.effectiveStrategy(strategy)),
		Results:  domain.CiteResults(results, domain.SourceTypeAnnualFiling, entity, ""),
	})
}

func (s *Server) handleCompare(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	years, err := req.RequireStringSlice("years")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(years) == 0 {
		return mcp.NewToolResultError("years is required"), nil
	}

	strategy, err := parseStrategyArg(req.GetString("strategy", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	entity := req.GetString("entity", "")

	byYear, err := s.search.CompareAcross(ctx, query, years, domain.CompareOptions{
		Strategy: strategy,
		Filter:   domain.PassageFilter{Entity: entity},
		K:        req.GetInt("k", 0),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	grouped := make(map[string][]domain.CitedResult, len(byYear))
	for year, results := range byYear {
		grouped[year] = domain.CiteResults(results, domain.SourceTypeAnnualFiling, entity, year)
	}

	return toolResultJSON(comparePayload{Query: query, Years: grouped})
}

func toolResultJSON(payload any) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal tool payload: %w", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}

func (s *Server) effectiveStrategy(requested domain.Strategy) domain.Strategy {
	if requested != "" {
		return requested
	}
	strategy, err := domain.ParseStrategy(s.cfg.RetrievalStrategy)
	if err != nil {
		return domain.StrategyHybrid
	}
	return strategy
}

func parseStrategyArg(raw string) (domain.Strategy, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	return domain.ParseStrategy(raw)
}
