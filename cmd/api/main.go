package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/net/netutil"

	httpadapter "github.com/kirillkom/filing-research/internal/adapters/http"
	mcpadapter "github.com/kirillkom/filing-research/internal/adapters/mcp"
	"github.com/kirillkom/filing-research/internal/bootstrap"
	"github.com/kirillkom/filing-research/internal/config"
	"github.com/kirillkom/filing-research/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("api", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	// Serve with whatever snapshot we can build; an empty corpus is not fatal.
	if count, err := app.SearchUC.RefreshCorpus(ctx); err != nil {
		slog.Warn("initial_corpus_refresh_failed", "error", err)
	} else {
		slog.Info("corpus_snapshot_ready", "passages", count)
	}

	go func() {
		err := app.Queue.SubscribeCorpusUpdated(ctx, func(msgCtx context.Context, filingID string) error {
			count, err := app.SearchUC.RefreshCorpus(msgCtx)
			if err != nil {
				return err
			}
			slog.Info("corpus_snapshot_refreshed", "filing_id", filingID, "passages", count)
			return nil
		})
		if err != nil {
			slog.Error("corpus_subscription_failed", "error", err)
		}
	}()

	router := httpadapter.NewRouter(cfg, app.IngestUC, app.SearchUC, app.Filings)
	mcpServer := mcpadapter.NewServer(cfg, app.SearchUC)

	mux := http.NewServeMux()
	mux.Handle("/mcp", mcpServer.Handler())
	mux.Handle("/", router.Handler())

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	listener, err := net.Listen("tcp", server.Addr)
	if err != nil {
		slog.Error("api_listen_failed", "addr", server.Addr, "error", err)
		os.Exit(1)
	}
	if cfg.APIMaxConns > 0 {
		listener = netutil.LimitListener(listener, cfg.APIMaxConns)
	}

	go func() {
		slog.Info("api_listening", "port", cfg.APIPort)
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("api_server_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("api_shutting_down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("api_shutdown_failed", "error", err)
	}
}
