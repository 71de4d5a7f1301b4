package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/filing-research/internal/core/domain"
	"github.com/kirillkom/filing-research/internal/core/ports"
	"github.com/kirillkom/filing-research/internal/infrastructure/resilience"
)

// Client indexes passage vectors in a qdrant collection and answers
// similarity queries. Query text is embedded through the injected embedder,
// so callers never handle vectors directly.
type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client
	embedder   ports.Embedder
	executor   *resilience.Executor

	ensureMu          sync.Mutex
	ensuredCollection bool
	ensuredVectorSize int
}

type Options struct {
	Timeout            time.Duration
	ResilienceExecutor *resilience.Executor
}

func New(baseURL, collection string, embedder ports.Embedder) *Client {
	return NewWithOptions(baseURL, collection, embedder, Options{})
}

func NewWithOptions(baseURL, collection string, embedder ports.Embedder, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: timeout},
		embedder:   embedder,
		executor:   options.ResilienceExecutor,
	}
}

func (c *Client) IndexPassages(ctx context.Context, filingID string, passages []domain.Passage, vectors [][]float32) error {
	if len(passages) == 0 || len(vectors) == 0 {
		return nil
	}
	if len(passages) != len(vectors) {
		return fmt.Errorf("passages/vectors mismatch")
	}

	if err := c.ensureCollection(ctx, len(vectors[0])); err != nil {
		return err
	}

	type point struct {
		ID      string         `json:"id"`
		Vector  []float32      `json:"vector"`
		Payload map[string]any `json:"payload"`
	}

	points := make([]point, 0, len(passages))
	for i, p := range passages {
		points = append(points, point{
			ID:     uuid.NewString(),
			Vector: vectors[i],
			Payload: map[string]any{
				"filing_id":      filingID,
				"entity":         p.Metadata.Entity,
				"year":           p.Metadata.Year,
				"section":        p.Metadata.Section,
				"source_locator": p.Metadata.SourceLocator,
				"content":        p.Content,
			},
		})
	}

	body, err := json.Marshal(map[string]any{"points": points})
	if err != nil {
		return fmt.Errorf("marshal upsert body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points?wait=true", c.baseURL, c.collection)
	call := func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create upsert request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("qdrant upsert request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			return newHTTPStatusError("upsert", resp)
		}
		return nil
	}
	return c.execute(ctx, "upsert", call)
}

// DeleteFiling removes every point indexed for the filing. Reprocessing runs
// this before re-indexing so stale passages never survive an update.
func (c *Client) DeleteFiling(ctx context.Context, filingID string) error {
	reqBody := map[string]any{
		"filter": map[string]any{
			"must": []map[string]any{
				{
					"key": "filing_id",
					"match": map[string]any{
						"value": filingID,
					},
				},
			},
		},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal delete body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points/delete?wait=true", c.baseURL, c.collection)
	call := func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create delete request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("qdrant delete request: %w", err)
		}
		defer resp.Body.Close()

		// The collection appears on first index; nothing to delete before that.
		if resp.StatusCode == http.StatusNotFound {
			return nil
		}
		if resp.StatusCode >= 300 {
			return newHTTPStatusError("delete", resp)
		}
		return nil
	}
	return c.execute(ctx, "delete", call)
}

func (c *Client) SimilaritySearch(ctx context.Context, query string, k int, filter domain.PassageFilter) ([]domain.Passage, error) {
	vector, err := c.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	reqBody := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	if must := filterClauses(filter); len(must) > 0 {
		reqBody["filter"] = map[string]any{"must": must}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection)
	var out []domain.Passage
	call := func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create search request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("qdrant search request: %w", err)
		}
		defer resp.Body.Close()

		// The collection appears on first index; before that the corpus is
		// empty on the dense side.
		if resp.StatusCode == http.StatusNotFound {
			out = nil
			return nil
		}
		if resp.StatusCode >= 300 {
			return newHTTPStatusError("search", resp)
		}

		var searchResp struct {
			Result []struct {
				Payload map[string]any `json:"payload"`
			} `json:"result"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
			return fmt.Errorf("decode search response: %w", err)
		}

		out = make([]domain.Passage, 0, len(searchResp.Result))
		for _, r := range searchResp.Result {
			out = append(out, domain.Passage{
				Content: getStringPayload(r.Payload, "content"),
				Metadata: domain.PassageMetadata{
					Entity:        getStringPayload(r.Payload, "entity"),
					Year:          getStringPayload(r.Payload, "year"),
					Section:       getStringPayload(r.Payload, "section"),
					SourceLocator: getStringPayload(r.Payload, "source_locator"),
				},
			})
		}
		return nil
	}
	if err := c.execute(ctx, "search", call); err != nil {
		return nil, err
	}
	return out, nil
}

// Entities are stored uppercased, so the filter value is normalized the same
// way before it reaches the payload index.
func filterClauses(filter domain.PassageFilter) []map[string]any {
	var must []map[string]any
	if entity := strings.ToUpper(strings.TrimSpace(filter.Entity)); entity != "" {
		must = append(must, map[string]any{
			"key": "entity",
			"match": map[string]any{
				"value": entity,
			},
		})
	}
	if year := strings.TrimSpace(filter.Year); year != "" {
		must = append(must, map[string]any{
			"key": "year",
			"match": map[string]any{
				"value": year,
			},
		})
	}
	return must
}

func (c *Client) ensureCollection(ctx context.Context, vectorSize int) error {
	c.ensureMu.Lock()
	if c.ensuredCollection && c.ensuredVectorSize == vectorSize {
		c.ensureMu.Unlock()
		return nil
	}
	c.ensureMu.Unlock()

	reqBody := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal create collection body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection)
	call := func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create collection request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("qdrant ensure collection request: %w", err)
		}
		defer resp.Body.Close()

		// 200/201 for create, 409 if already exists (depends on version/config).
		if resp.StatusCode == http.StatusConflict {
			c.markCollectionEnsured(vectorSize)
			return nil
		}
		if resp.StatusCode >= 300 {
			return newHTTPStatusError("ensure collection", resp)
		}
		c.markCollectionEnsured(vectorSize)
		return nil
	}
	return c.execute(ctx, "ensure_collection", call)
}

func (c *Client) markCollectionEnsured(vectorSize int) {
	c.ensureMu.Lock()
	defer c.ensureMu.Unlock()
	c.ensuredCollection = true
	c.ensuredVectorSize = vectorSize
}

func (c *Client) execute(ctx context.Context, operation string, call func(context.Context) error) error {
	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "qdrant."+operation, call, classifyQdrantError)
	} else {
		err = call(ctx)
	}
	return wrapTemporaryIfNeeded(operation, err)
}

func newHTTPStatusError(operation string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return &HTTPStatusError{
		Operation:  operation,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       strings.TrimSpace(string(body)),
	}
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
