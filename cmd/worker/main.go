package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/filing-research/internal/bootstrap"
	"github.com/kirillkom/filing-research/internal/config"
	"github.com/kirillkom/filing-research/internal/observability/logging"
	"github.com/kirillkom/filing-research/internal/observability/metrics"
)

const processTimeout = 5 * time.Minute

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("worker", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", workerMetrics.Handler())
	metricsServer := &http.Server{
		Addr:        ":" + cfg.WorkerMetricsPort,
		Handler:     metricsMux,
		ReadTimeout: 10 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("worker_metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	slog.Info("worker_subscribed", "subject", cfg.NATSIngestSubject)

	err = app.Queue.SubscribeFilingIngested(ctx, func(msgCtx context.Context, filingID string) error {
		processCtx, cancel := context.WithTimeout(msgCtx, processTimeout)
		defer cancel()

		// Lag is measured from upload to dequeue; the queue payload is just
		// the filing ID, so the upload timestamp comes from the record.
		if filing, err := app.Filings.GetByID(processCtx, filingID); err == nil {
			workerMetrics.ObserveQueueLag("worker", time.Since(filing.CreatedAt))
		}

		workerMetrics.StartFiling()
		start := time.Now()
		processErr := app.ProcessUC.ProcessByID(processCtx, filingID)
		workerMetrics.FinishFiling("worker", time.Since(start), processErr)
		return processErr
	})
	if err != nil {
		slog.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}

	<-ctx.Done()
	slog.Info("worker_shutting_down")
}
