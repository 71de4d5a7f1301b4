package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/filing-research/internal/core/domain"
)

type searchRequest struct {
	Query    string `json:"query"`
	Strategy string `json:"strategy"`
	Entity   string `json:"entity"`
	Year     string `json:"year"`
	K        int    `json:"k"`
}

type compareRequest struct {
	Query    string   `json:"query"`
	Years    []string `json:"years"`
	Entity   string   `json:"entity"`
	Strategy string   `json:"strategy"`
	K        int      `json:"k"`
}

type searchResponse struct {
	Query    string               `json:"query"`
	Strategy string               `json:"strategy"`
	Results  []domain.CitedResult `json:"results"`
}

type compareResponse struct {
	Query string                          `json:"query"`
	Years map[string][]domain.CitedResult `json:"years"`
}

func (rt *Router) searchFilings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	strategy, err := parseRequestStrategy(req.Strategy)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	start := time.Now()
	results, err := rt.search.Retrieve(r.Context(), req.Query, domain.SearchOptions{
		Strategy: strategy,
		Filter:   domain.PassageFilter{Entity: req.Entity, Year: req.Year},
		KFinal:   req.K,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	effective := rt.effectiveStrategy(strategy)
	rt.metrics.RecordRetrieval(serviceName, "search", len(results), time.Since(start))
	rt.metrics.RecordRetrievalStrategy(serviceName, "search", string(effective))

	writeJSON(w, http.StatusOK, searchResponse{
		Query:    req.Query,
		Strategy: string(effective),
		Results:  domain.CiteResults(results, domain.SourceTypeAnnualFiling, req.Entity, ""),
	})
}

func (rt *Router) compareFilings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req compareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	if len(req.Years) == 0 {
		writeError(w, http.StatusBadRequest, "years is required")
		return
	}
	strategy, err := parseRequestStrategy(req.Strategy)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	start := time.Now()
	byYear, err := rt.search.CompareAcross(r.Context(), req.Query, req.Years, domain.CompareOptions{
		Strategy: strategy,
		Filter:   domain.PassageFilter{Entity: req.Entity},
		K:        req.K,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	years := make(map[string][]domain.CitedResult, len(byYear))
	total := 0
	for year, results := range byYear {
		years[year] = domain.CiteResults(results, domain.SourceTypeAnnualFiling, req.Entity, year)
		total += len(results)
	}

	effective := rt.effectiveStrategy(strategy)
	rt.metrics.RecordRetrieval(serviceName, "compare", total, time.Since(start))
	rt.metrics.RecordRetrievalStrategy(serviceName, "compare", string(effective))

	writeJSON(w, http.StatusOK, compareResponse{Query: req.Query, Years: years})
}

func (rt *Router) refreshCorpus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	count, err := rt.search.RefreshCorpus(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"passages": count})
}

// parseRequestStrategy keeps an absent strategy absent so the configured
// default still applies downstream.
func parseRequestStrategy(raw string) (domain.Strategy, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	return domain.ParseStrategy(raw)
}
