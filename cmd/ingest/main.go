// Command ingest processes one statement document from GCS or the local
// filesystem through the full pipeline, persisting any learned template.
package main

import (
	"context"
	"flag"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dvloznov/statement-pipeline/internal/aiextract"
	"github.com/dvloznov/statement-pipeline/internal/config"
	"github.com/dvloznov/statement-pipeline/internal/export"
	"github.com/dvloznov/statement-pipeline/internal/fields"
	"github.com/dvloznov/statement-pipeline/internal/gcsdocs"
	"github.com/dvloznov/statement-pipeline/internal/logger"
	"github.com/dvloznov/statement-pipeline/internal/pipeline"
	"github.com/dvloznov/statement-pipeline/internal/template"
	"github.com/dvloznov/statement-pipeline/internal/template/bqstore"
	"github.com/dvloznov/statement-pipeline/internal/template/memstore"
)

func main() {
	log := logger.New()

	src := flag.String("src", "", "statement source: gs://bucket/file.pdf or a local path (required)")
	out := flag.String("out", "", "optional xlsx output path")
	user := flag.String("user", "ingest", "user id recorded on learned templates")
	archive := flag.Bool("archive", false, "after ingesting a local file, upload it to the configured GCS bucket")
	flag.Parse()

	if *src == "" {
		log.Fatal().Msg("Error: -src is required")
	}

	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	// Template persistence: BigQuery when a project is configured, memory
	// otherwise.
	var store template.Store
	if cfg.ProjectID != "" {
		bq, err := bqstore.NewStore(ctx, cfg.ProjectID, cfg.DatasetID)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create template store")
		}
		defer bq.Close()
		store = bq
	} else {
		log.Warn().Msg("BQ_PROJECT_ID not set, learned templates will not persist")
		store = memstore.NewStore()
	}

	catalogue := template.NewCatalogue(ctx, store, logger.Component(log, "template"))
	ai := aiextract.NewGeminiClient(cfg.GeminiModel)
	processor := pipeline.NewProcessor(catalogue, ai, fields.NewCategorizer(), logger.Component(log, "pipeline"))

	log.Info().Str("src", *src).Str("file", gcsdocs.FilenameFromURI(*src)).Msg("Starting ingestion")

	state := &pipeline.State{
		Source: *src,
		Options: pipeline.Options{
			AICategorize: true,
			CallTimeout:  2 * time.Minute,
			UserID:       *user,
		},
		OutputPath: *out,
		Export:     export.ExportOptions{IncludeSummary: true},
	}
	if err := processor.Ingest(ctx, state); err != nil {
		log.Fatal().Err(err).Msg("Ingestion failed")
	}

	if *archive && !strings.HasPrefix(*src, "gs://") {
		if cfg.Bucket == "" {
			log.Warn().Msg("GCS_BUCKET not set, skipping archive upload")
		} else {
			object := "statements/" + filepath.Base(*src)
			if err := gcsdocs.Upload(ctx, cfg.Bucket, object, *src); err != nil {
				log.Error().Err(err).Msg("Archive upload failed")
			} else {
				log.Info().Str("bucket", cfg.Bucket).Str("object", object).Msg("Statement archived")
			}
		}
	}

	fmt.Printf("Ingested %d transactions from %s\n", len(state.Result.Statement.Transactions), *src)
}
