// Package bootstrap is the composition root: it opens every external
// dependency and wires the use cases both binaries share.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/kirillkom/filing-research/internal/config"
	"github.com/kirillkom/filing-research/internal/core/domain"
	"github.com/kirillkom/filing-research/internal/core/ports"
	"github.com/kirillkom/filing-research/internal/core/usecase"
	"github.com/kirillkom/filing-research/internal/infrastructure/chunking"
	"github.com/kirillkom/filing-research/internal/infrastructure/extractor"
	"github.com/kirillkom/filing-research/internal/infrastructure/extractor/excel"
	"github.com/kirillkom/filing-research/internal/infrastructure/extractor/pdf"
	"github.com/kirillkom/filing-research/internal/infrastructure/extractor/plaintext"
	"github.com/kirillkom/filing-research/internal/infrastructure/index/bm25"
	"github.com/kirillkom/filing-research/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/filing-research/internal/infrastructure/queue/nats"
	"github.com/kirillkom/filing-research/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/filing-research/internal/infrastructure/rerank/tei"
	"github.com/kirillkom/filing-research/internal/infrastructure/resilience"
	"github.com/kirillkom/filing-research/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/filing-research/internal/infrastructure/vector/qdrant"
)

type App struct {
	Config config.Config

	Queue   ports.MessageQueue
	Filings ports.FilingStore

	IngestUC  ports.FilingIngestor
	ProcessUC ports.FilingProcessor
	SearchUC  *usecase.SearchUseCase

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	strategy, err := domain.ParseStrategy(cfg.RetrievalStrategy)
	if err != nil {
		return nil, fmt.Errorf("retrieval strategy: %w", err)
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	filings := postgres.NewFilingRepository(db)
	if err := filings.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure filings schema: %w", err)
	}
	passages := postgres.NewPassageRepository(db)
	if err := passages.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure passages schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSIngestSubject, cfg.NATSCorpusSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	ollamaClient := ollama.NewWithOptions(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, ollama.Options{
		ResilienceExecutor: executor,
	})
	embedder := ollama.NewEmbedder(ollamaClient)
	generator := ollama.NewGenerator(ollamaClient)

	dense := qdrant.NewWithOptions(cfg.QdrantURL, cfg.QdrantCollection, embedder, qdrant.Options{
		ResilienceExecutor: executor,
	})
	scorer := tei.NewWithOptions(cfg.RerankURL, tei.Options{
		ResilienceExecutor: executor,
	})

	chunker := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)

	extractors := extractor.NewRegistry(plaintext.NewExtractor(storage))
	extractors.Register(".pdf", pdf.NewExtractor(storage))
	extractors.Register(".xlsx", excel.NewExtractor(storage))
	extractors.Register(".xlsm", excel.NewExtractor(storage))

	searchUC := usecase.NewSearchUseCase(dense, scorer, generator, passages, bm25.NewBuilder(), usecase.RetrievalPolicy{
		Strategy:    strategy,
		KSub:        cfg.RetrievalSubQueryCandidates,
		KPerSub:     cfg.RetrievalPerSubQuery,
		KFinal:      cfg.RetrievalFinalK,
		CompareK:    cfg.RetrievalCompareK,
		Parallelism: cfg.RetrievalParallelism,
		Decompose:   cfg.RetrievalDecompose,
	})
	ingestUC := usecase.NewIngestFilingUseCase(filings, storage, queue)
	processUC := usecase.NewProcessFilingUseCase(filings, passages, extractors, chunker, embedder, dense, queue)

	return &App{
		Config: cfg,

		Queue:   queue,
		Filings: filings,

		IngestUC:  ingestUC,
		ProcessUC: processUC,
		SearchUC:  searchUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
