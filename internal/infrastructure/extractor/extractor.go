// Package extractor routes a filing to the text extractor matching its file
// extension.
package extractor

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/kirillkom/filing-research/internal/core/domain"
	"github.com/kirillkom/filing-research/internal/core/ports"
)

type Registry struct {
	fallback ports.TextExtractor
	byExt    map[string]ports.TextExtractor
}

// NewRegistry builds a registry that falls back to the given extractor for
// unregistered extensions. Register before handing the registry out; the map
// is not guarded.
func NewRegistry(fallback ports.TextExtractor) *Registry {
	return &Registry{
		fallback: fallback,
		byExt:    make(map[string]ports.TextExtractor),
	}
}

func (r *Registry) Register(ext string, extractor ports.TextExtractor) {
	r.byExt[strings.ToLower(ext)] = extractor
}

func (r *Registry) Extract(ctx context.Context, filing *domain.Filing) (string, error) {
	ext := strings.ToLower(filepath.Ext(filing.Filename))
	if extractor, ok := r.byExt[ext]; ok {
		return extractor.Extract(ctx, filing)
	}
	return r.fallback.Extract(ctx, filing)
}
