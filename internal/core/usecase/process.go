package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/kirillkom/filing-research/internal/core/domain"
	"github.com/kirillkom/filing-research/internal/core/ports"
)

type ProcessFilingUseCase struct {
	filings   ports.FilingStore
	passages  ports.PassageStore
	extractor ports.TextExtractor
	chunker   ports.Chunker
	embedder  ports.Embedder
	dense     ports.DenseIndex
	queue     ports.MessageQueue
}

func NewProcessFilingUseCase(
	filings ports.FilingStore,
	passages ports.PassageStore,
	extractor ports.TextExtractor,
	chunker ports.Chunker,
	embedder ports.Embedder,
	dense ports.DenseIndex,
	queue ports.MessageQueue,
) *ProcessFilingUseCase {
	return &ProcessFilingUseCase{
		filings:   filings,
		passages:  passages,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		dense:     dense,
		queue:     queue,
	}
}

// ProcessByID turns a stored filing into indexed passages: extract, chunk,
// embed, replace the filing's dense index points and passage rows, then
// announce the corpus change. Reprocessing the same filing replaces its
// passages instead of appending.
func (uc *ProcessFilingUseCase) ProcessByID(ctx context.Context, filingID string) error {
	if err := uc.markStatus(ctx, filingID, domain.FilingProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	passageCount, err := uc.processPipeline(ctx, filingID)
	if err != nil {
		if failErr := uc.markFailed(ctx, filingID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.filings.MarkReady(ctx, filingID, passageCount); err != nil {
		return fmt.Errorf("set status=ready: %w", err)
	}

	if err := uc.queue.PublishCorpusUpdated(ctx, filingID); err != nil {
		return fmt.Errorf("publish corpus update: %w", err)
	}

	return nil
}

func (uc *ProcessFilingUseCase) processPipeline(ctx context.Context, filingID string) (int, error) {
	filing, err := uc.loadFiling(ctx, filingID)
	if err != nil {
		return 0, err
	}

	text, err := uc.extractText(ctx, filing)
	if err != nil {
		return 0, err
	}

	passages, err := uc.buildPassages(filing, text)
	if err != nil {
		return 0, err
	}

	vectors, err := uc.embed(ctx, passages)
	if err != nil {
		return 0, err
	}

	if err := uc.reindex(ctx, filing.ID, passages, vectors); err != nil {
		return 0, err
	}

	if err := uc.persistPassages(ctx, filing.ID, passages); err != nil {
		return 0, err
	}

	return len(passages), nil
}

func (uc *ProcessFilingUseCase) loadFiling(ctx context.Context, filingID string) (*domain.Filing, error) {
	filing, err := uc.filings.GetByID(ctx, filingID)
	if err != nil {
		return nil, fmt.Errorf("fetch filing by id: %w", err)
	}
	return filing, nil
}

func (uc *ProcessFilingUseCase) extractText(ctx context.Context, filing *domain.Filing) (string, error) {
	text, err := uc.extractor.Extract(ctx, filing)
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	if text == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract text", errors.New("empty extracted text"))
	}
	return text, nil
}

// buildPassages applies the filing's provenance to every chunk. The locator
// is the source URL (or filename) plus the passage sequence number.
func (uc *ProcessFilingUseCase) buildPassages(filing *domain.Filing, text string) ([]domain.Passage, error) {
	drafts := uc.chunker.Split(text)
	if len(drafts) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "chunk filing", errors.New("chunking produced zero passages"))
	}

	locatorBase := filing.SourceURL
	if locatorBase == "" {
		locatorBase = filing.Filename
	}

	passages := make([]domain.Passage, 0, len(drafts))
	for i, draft := range drafts {
		passages = append(passages, domain.Passage{
			Content: draft.Content,
			Metadata: domain.PassageMetadata{
				Entity:        filing.Entity,
				Year:          filing.Year,
				Section:       draft.Section,
				SourceLocator: fmt.Sprintf("%s#%d", locatorBase, i),
			},
		})
	}
	return passages, nil
}

func (uc *ProcessFilingUseCase) embed(ctx context.Context, passages []domain.Passage) ([][]float32, error) {
	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Content
	}

	vectors, err := uc.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed passages: %w", err)
	}
	if len(vectors) != len(passages) {
		return nil, domain.WrapError(
			domain.ErrInvalidInput,
			"embed passages",
			fmt.Errorf("vectors/passages mismatch: %d/%d", len(vectors), len(passages)),
		)
	}
	return vectors, nil
}

func (uc *ProcessFilingUseCase) reindex(ctx context.Context, filingID string, passages []domain.Passage, vectors [][]float32) error {
	if err := uc.dense.DeleteFiling(ctx, filingID); err != nil {
		return fmt.Errorf("delete stale vectors: %w", err)
	}
	if err := uc.dense.IndexPassages(ctx, filingID, passages, vectors); err != nil {
		return fmt.Errorf("index passages in vector db: %w", err)
	}
	return nil
}

func (uc *ProcessFilingUseCase) persistPassages(ctx context.Context, filingID string, passages []domain.Passage) error {
	if err := uc.passages.ReplaceForFiling(ctx, filingID, passages); err != nil {
		return fmt.Errorf("replace filing passages: %w", err)
	}
	return nil
}

func (uc *ProcessFilingUseCase) markStatus(ctx context.Context, filingID string, status domain.FilingStatus, errMessage string) error {
	return uc.filings.UpdateStatus(ctx, filingID, status, errMessage)
}

func (uc *ProcessFilingUseCase) markFailed(ctx context.Context, filingID string, processErr error) error {
	if processErr == nil {
		return nil
	}
	return uc.markStatus(ctx, filingID, domain.FilingFailed, processErr.Error())
}
