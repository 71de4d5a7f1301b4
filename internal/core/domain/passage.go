package domain

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// PassageMetadata carries the provenance every passage is stored with.
type PassageMetadata struct {
	Entity        string `json:"entity"`
	Year          string `json:"year"`
	Section       string `json:"section,omitempty"`
	SourceLocator string `json:"source_locator,omitempty"`
}

// Passage is the smallest retrievable unit of filing text. Immutable after
// ingestion; removed only by reprocessing its filing.
type Passage struct {
	Content  string          `json:"content"`
	Metadata PassageMetadata `json:"metadata"`
}

// IdentityKey identifies a passage by provenance plus content hash,
// independent of which index surfaced it.
func (p Passage) IdentityKey() string {
	sum := blake2b.Sum256([]byte(p.Content))
	return strings.Join([]string{
		p.Metadata.Entity,
		p.Metadata.Year,
		p.Metadata.Section,
		p.Metadata.SourceLocator,
		hex.EncodeToString(sum[:16]),
	}, "|")
}

// PassageDraft is what chunking produces before a filing's provenance is
// applied.
type PassageDraft struct {
	Content string
	Section string
}

// PassageFilter restricts retrieval to one entity and/or fiscal year.
// Zero value matches everything.
type PassageFilter struct {
	Entity string
	Year   string
}

func (f PassageFilter) IsZero() bool {
	return f.Entity == "" && f.Year == ""
}

func (f PassageFilter) Matches(m PassageMetadata) bool {
	if f.Entity != "" && !strings.EqualFold(f.Entity, m.Entity) {
		return false
	}
	if f.Year != "" && f.Year != m.Year {
		return false
	}
	return true
}
