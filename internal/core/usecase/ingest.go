package usecase

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/filing-research/internal/core/domain"
	"github.com/kirillkom/filing-research/internal/core/ports"
)

type IngestFilingUseCase struct {
	filings ports.FilingStore
	storage ports.ObjectStorage
	queue   ports.MessageQueue
}

func NewIngestFilingUseCase(
	filings ports.FilingStore,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
) *IngestFilingUseCase {
	return &IngestFilingUseCase{
		filings: filings,
		storage: storage,
		queue:   queue,
	}
}

// Upload stores the raw filing bytes, records the filing and hands it to the
// processing pipeline via the queue.
func (uc *IngestFilingUseCase) Upload(
	ctx context.Context,
	upload domain.FilingUpload,
) (*domain.Filing, error) {
	if err := validateUpload(upload); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(upload.Filename))
	now := time.Now().UTC()

	if err := uc.storage.Save(ctx, storageKey, upload.Body); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	filing := &domain.Filing{
		ID:          id,
		Entity:      strings.ToUpper(strings.TrimSpace(upload.Entity)),
		Year:        strings.TrimSpace(upload.Year),
		Filename:    upload.Filename,
		MimeType:    upload.MimeType,
		StoragePath: storageKey,
		SourceURL:   upload.SourceURL,
		Status:      domain.FilingUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := uc.filings.Create(ctx, filing); err != nil {
		return nil, fmt.Errorf("create filing record: %w", err)
	}

	if err := uc.queue.PublishFilingIngested(ctx, filing.ID); err != nil {
		return nil, fmt.Errorf("publish ingestion event: %w", err)
	}

	return filing, nil
}

func validateUpload(upload domain.FilingUpload) error {
	if strings.TrimSpace(upload.Entity) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "upload filing", errors.New("missing entity"))
	}
	if !isYear(strings.TrimSpace(upload.Year)) {
		return domain.WrapError(domain.ErrInvalidInput, "upload filing", fmt.Errorf("invalid year %q", upload.Year))
	}
	if upload.Body == nil {
		return domain.WrapError(domain.ErrInvalidInput, "upload filing", errors.New("missing file body"))
	}
	return nil
}

func isYear(s string) bool {
	if len(s) != 4 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "filing.bin"
	}
	return base
}
