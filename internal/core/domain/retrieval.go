package domain

import (
	"fmt"
	"strings"
)

// SourceKind tags which index surfaced a result. Provenance only, never a
// ranking signal.
type SourceKind string

const (
	SourceDense  SourceKind = "dense"
	SourceSparse SourceKind = "sparse"
	SourceHybrid SourceKind = "hybrid"
)

// Strategy selects which indexes a retrieval pass consults.
type Strategy string

const (
	StrategyHybrid Strategy = "hybrid"
	StrategyDense  Strategy = "dense"
	StrategySparse Strategy = "sparse"
)

// ParseStrategy rejects unknown strategies up front instead of letting them
// fall through as a silent no-op at query time. Empty means the default.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return StrategyHybrid, nil
	case StrategyHybrid:
		return StrategyHybrid, nil
	case StrategyDense:
		return StrategyDense, nil
	case StrategySparse:
		return StrategySparse, nil
	default:
		return "", WrapError(ErrInvalidInput, "parse strategy", fmt.Errorf("unknown retrieval strategy %q", s))
	}
}

// RetrievalResult is produced fresh per query. Score semantics are
// stage-relative: retrieval-stage scores are not comparable across sparse and
// dense sources, re-rank scores are comparable across all candidates of one
// query. Never compare scores across queries or stages.
type RetrievalResult struct {
	Content  string          `json:"content"`
	Metadata PassageMetadata `json:"metadata"`
	Score    float64         `json:"score"`
	Source   SourceKind      `json:"source"`
}

func (r RetrievalResult) Passage() Passage {
	return Passage{Content: r.Content, Metadata: r.Metadata}
}

func (r RetrievalResult) IdentityKey() string {
	return r.Passage().IdentityKey()
}

// LexicalScore pairs a passage's corpus position with its lexical relevance.
type LexicalScore struct {
	PassageIndex int
	Relevance    float64
}

// SearchOptions tunes one Retrieve call. Zero fields fall back to configured
// defaults.
type SearchOptions struct {
	Strategy Strategy
	Filter   PassageFilter

	// KSub is the per-index candidate count for each sub-query pass,
	// KPerSub how many re-ranked results each sub-query keeps, KFinal the
	// global cap after pooling.
	KSub    int
	KPerSub int
	KFinal  int
}

// CompareOptions tunes one CompareAcross call.
type CompareOptions struct {
	Strategy Strategy
	Filter   PassageFilter

	// K caps both the per-index fetch and the per-axis result list.
	K int
}
