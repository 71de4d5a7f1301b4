package plaintext

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/filing-research/internal/core/domain"
	"github.com/kirillkom/filing-research/internal/core/ports"
)

type Extractor struct {
	storage ports.ObjectStorage
}

func NewExtractor(storage ports.ObjectStorage) *Extractor {
	return &Extractor{storage: storage}
}

func (e *Extractor) Extract(ctx context.Context, filing *domain.Filing) (string, error) {
	reader, err := e.storage.Open(ctx, filing.StoragePath)
	if err != nil {
		return "", fmt.Errorf("open filing: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read filing: %w", err)
	}

	if !utf8.Valid(raw) {
		return "", fmt.Errorf("not plain text: %s", filing.Filename)
	}

	return strings.TrimSpace(string(raw)), nil
}
