package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/kirillkom/filing-research/internal/core/domain"
	"github.com/kirillkom/filing-research/internal/core/ports"
)

type Extractor struct {
	storage ports.ObjectStorage
}

func NewExtractor(storage ports.ObjectStorage) *Extractor {
	return &Extractor{storage: storage}
}

// Extract reads the whole file into memory first; the pdf reader needs
// random access and filings are single documents, not archives.
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

	doc, err := pdflib.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("parse pdf %s: %w", filing.Filename, err)
	}

	textReader, err := doc.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text %s: %w", filing.Filename, err)
	}

	var text strings.Builder
	if _, err := io.Copy(&text, textReader); err != nil {
		return "", fmt.Errorf("read pdf text %s: %w", filing.Filename, err)
	}
	return strings.TrimSpace(text.String()), nil
}
