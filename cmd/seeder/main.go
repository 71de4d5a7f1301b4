// Command seeder bulk-loads annual filings into a running API instance
// from a YAML manifest. It drives the same multipart ingestion endpoint
// the interactive upload uses, so seeded filings flow through the full
// extract-chunk-embed pipeline.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/kirillkom/filing-research/internal/observability/logging"
	"github.com/kirillkom/filing-research/internal/seed"
)

func main() {
	app := &cli.App{
		Name:  "seeder",
		Usage: "Load a corpus of annual filings into a running filing-research API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: func(c *cli.Context) error {
			slog.SetDefault(logging.NewJSONLogger("seeder", c.String("log-level")))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "load",
				Usage:  "Upload every filing listed in the manifest",
				Action: loadCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "manifest",
						Aliases:  []string{"m"},
						Usage:    "Path to the corpus manifest (YAML)",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "api",
						Usage: "Base URL of the filing-research API",
						Value: "http://localhost:8080",
					},
				},
			},
			{
				Name:   "validate",
				Usage:  "Check the manifest and referenced files without uploading",
				Action: validateCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "manifest",
						Aliases:  []string{"m"},
						Usage:    "Path to the corpus manifest (YAML)",
						Required: true,
					},
				},
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		slog.Error("seeder_failed", "error", err)
		os.Exit(1)
	}
}

func loadCommand(c *cli.Context) error {
	manifestPath := c.String("manifest")
	manifest, err := seed.LoadManifest(manifestPath)
	if err != nil {
		return err
	}

	uploader := seed.NewUploader(c.String("api"), filepath.Dir(manifestPath))
	slog.Info("corpus_seed_started", "manifest", manifestPath, "filings", len(manifest.Filings))

	ids, err := uploader.UploadAll(c.Context, manifest)
	for _, id := range ids {
		slog.Info("filing_uploaded", "filing_id", id)
	}
	if err != nil {
		return fmt.Errorf("seed aborted after %d of %d filings: %w", len(ids), len(manifest.Filings), err)
	}

	slog.Info("corpus_seed_finished", "filings", len(ids))
	return nil
}

func validateCommand(c *cli.Context) error {
	manifestPath := c.String("manifest")
	manifest, err := seed.LoadManifest(manifestPath)
	if err != nil {
		return err
	}

	baseDir := filepath.Dir(manifestPath)
	var missing []string
	for _, entry := range manifest.Filings {
		path := entry.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		if _, err := os.Stat(path); err != nil {
			missing = append(missing, path)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("manifest references %d missing files: %v", len(missing), missing)
	}

	slog.Info("manifest_valid", "manifest", manifestPath, "filings", len(manifest.Filings))
	return nil
}
