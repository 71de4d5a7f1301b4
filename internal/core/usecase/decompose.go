package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

const maxSubQueries = 5

const decompositionPrompt = `Split the following question about company regulatory filings into 2-3 focused sub-questions that can each be answered from filing text on its own.

Question: %s

Respond with ONLY a valid JSON array of strings, no explanations:
["sub-question 1", "sub-question 2"]`

// decompose turns a compound query into focused sub-queries. It never fails:
// generation errors, unparseable output and empty output all fall back to the
// original query as the single sub-query.
func (uc *SearchUseCase) decompose(ctx context.Context, query string) []string {
	if !uc.policy.Decompose || uc.generator == nil {
		return []string{query}
	}

	raw, err := uc.generator.GenerateJSON(ctx, fmt.Sprintf(decompositionPrompt, query))
	if err != nil {
		slog.Warn("query_decomposition_failed", "error", err)
		return []string{query}
	}

	subQueries, err := parseSubQueries(raw)
	if err != nil {
		slog.Warn("query_decomposition_unparseable", "error", err)
		return []string{query}
	}
	if len(subQueries) == 0 {
		return []string{query}
	}
	if len(subQueries) > maxSubQueries {
		subQueries = subQueries[:maxSubQueries]
	}
	return subQueries
}

func parseSubQueries(raw string) ([]string, error) {
	payload := extractJSONArray(raw)
	if payload == "" {
		return nil, errors.New("no JSON array in model response")
	}

	var items []string
	if err := json.Unmarshal([]byte(payload), &items); err != nil {
		return nil, fmt.Errorf("parse sub-query array: %w", err)
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out, nil
}

// extractJSONArray tolerates prose around the array by cutting from the
// first '[' to the last ']'.
func extractJSONArray(s string) string {
	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start == -1 || end == -1 || end <= start {
		return ""
	}
	return s[start : end+1]
}
