package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kirillkom/filing-research/internal/config"
	"github.com/kirillkom/filing-research/internal/core/domain"
)

type searchFake struct {
	results     []domain.RetrievalResult
	refreshed   int
	retrieveErr error
	compareErr  error
	refreshErr  error
}

func (f searchFake) Retrieve(context.Context, string, domain.SearchOptions) ([]domain.RetrievalResult, error) {
	if f.retrieveErr != nil {
		return nil, f.retrieveErr
	}
	return f.results, nil
}

func (f searchFake) CompareAcross(_ context.Context, _ string, axisValues []string, _ domain.CompareOptions) (map[string][]domain.RetrievalResult, error) {
	if f.compareErr != nil {
		return nil, f.compareErr
	}
	out := make(map[string][]domain.RetrievalResult, len(axisValues))
	for _, value := range axisValues {
		out[value] = f.results
	}
	return out, nil
}

func (f searchFake) RefreshCorpus(context.Context) (int, error) {
	if f.refreshErr != nil {
		return 0, f.refreshErr
	}
	return f.refreshed, nil
}

type filingReaderFake struct {
	err error
}

func (f filingReaderFake) GetByID(_ context.Context, id string) (*domain.Filing, error) {
	if f.err != nil {
		return nil, f.err
	}
	now := time.Now().UTC()
	return &domain.Filing{
		ID:          id,
		Entity:      "ACME",
		Year:        "2023",
		Filename:    "acme-2023.pdf",
		MimeType:    "application/pdf",
		StoragePath: id + "_acme-2023.pdf",
		Status:      domain.FilingReady,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func postJSON(t *testing.T, handler http.Handler, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func TestSearchMapsDomainInvalidInputTo400(t *testing.T) {
	handler := NewRouter(
		config.Config{},
		nil,
		searchFake{retrieveErr: domain.WrapError(domain.ErrInvalidInput, "retrieve", errors.New("bad query"))},
		filingReaderFake{},
	).Handler()

	res := postJSON(t, handler, "/v1/search", map[string]any{"query": "revenue"})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestSearchMapsRetrievalUnavailableTo503(t *testing.T) {
	handler := NewRouter(
		config.Config{},
		nil,
		searchFake{retrieveErr: domain.WrapError(domain.ErrRetrievalUnavailable, "retrieve", errors.New("no index reachable"))},
		filingReaderFake{},
	).Handler()

	res := postJSON(t, handler, "/v1/search", map[string]any{"query": "revenue"})
	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", res.Code)
	}
}

func TestGetFilingByIDReturns404ForNotFound(t *testing.T) {
	handler := NewRouter(
		config.Config{},
		nil,
		searchFake{},
		filingReaderFake{err: domain.WrapError(domain.ErrFilingNotFound, "get", errors.New("id=missing"))},
	).Handler()

	req := httptest.NewRequest(http.MethodGet, "/v1/filings/missing", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestSearchRejectsUnknownStrategy(t *testing.T) {
	handler := NewRouter(config.Config{}, nil, searchFake{}, filingReaderFake{}).Handler()

	res := postJSON(t, handler, "/v1/search", map[string]any{"query": "revenue", "strategy": "semantic"})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}
