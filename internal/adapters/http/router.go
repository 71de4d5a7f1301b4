package httpadapter

import (
	"encoding/json"
	"net/http"

	"github.com/kirillkom/filing-research/internal/config"
	"github.com/kirillkom/filing-research/internal/core/domain"
	"github.com/kirillkom/filing-research/internal/core/ports"
	"github.com/kirillkom/filing-research/internal/observability/metrics"
)

const serviceName = "api"

// searchPort is the retrieval side of the API: queries, cross-year
// comparisons and corpus snapshot refresh.
type searchPort interface {
	ports.SearchService
	ports.CorpusRefresher
}

type Router struct {
	cfg     config.Config
	ingest  ports.FilingIngestor
	search  searchPort
	filings ports.FilingReader
	metrics *metrics.HTTPServerMetrics
}

func NewRouter(
	cfg config.Config,
	ingest ports.FilingIngestor,
	search searchPort,
	filings ports.FilingReader,
) *Router {
	return &Router{
		cfg:     cfg,
		ingest:  ingest,
		search:  search,
		filings: filings,
		metrics: metrics.NewHTTPServerMetrics(serviceName),
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/filings", rt.uploadFiling)
	mux.HandleFunc("/v1/filings/", rt.getFilingByID)
	mux.HandleFunc("/v1/search", rt.searchFilings)
	mux.HandleFunc("/v1/compare", rt.compareFilings)
	mux.HandleFunc("/v1/corpus/refresh", rt.refreshCorpus)
	mux.HandleFunc("/openapi.yaml", rt.serveOpenAPIDocument)
	mux.Handle("/metrics", rt.metrics.Handler())

	handler := requestValidationMiddleware(mux)
	handler = rt.metrics.Middleware(serviceName, handler)
	handler = accessLogMiddleware(handler)
	if rt.cfg.APIRateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	}
	if rt.cfg.APIMaxInflight > 0 {
		handler = backpressureMiddleware(handler, rt.cfg.APIMaxInflight, backpressureWait)
	}
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) serveOpenAPIDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(openapiDocument)
}

// effectiveStrategy resolves what a retrieval pass will actually run: the
// requested strategy, else the configured default, else hybrid.
func (rt *Router) effectiveStrategy(requested domain.Strategy) domain.Strategy {
	if requested != "" {
		return requested
	}
	strategy, err := domain.ParseStrategy(rt.cfg.RetrievalStrategy)
	if err != nil {
		return domain.StrategyHybrid
	}
	return strategy
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
