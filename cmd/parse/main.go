// Command parse converts a local bank statement PDF into a normalized xlsx
// workbook, optionally printing the parsed statement as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dvloznov/statement-pipeline/internal/aiextract"
	"github.com/dvloznov/statement-pipeline/internal/config"
	"github.com/dvloznov/statement-pipeline/internal/export"
	"github.com/dvloznov/statement-pipeline/internal/fields"
	"github.com/dvloznov/statement-pipeline/internal/logger"
	"github.com/dvloznov/statement-pipeline/internal/pipeline"
	"github.com/dvloznov/statement-pipeline/internal/template"
	"github.com/dvloznov/statement-pipeline/internal/template/memstore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		pdfPath    = flag.String("pdf", "", "path to the statement PDF (required)")
		outPath    = flag.String("out", "statement.xlsx", "output xlsx path, empty to skip export")
		bank       = flag.String("bank", "", "bank pattern set for local recognition (e.g. chase, barclays)")
		templateID = flag.String("template", "", "force a specific template id")
		noAI       = flag.Bool("no-ai", false, "local recognition only, never call the model")
		group      = flag.Bool("group", false, "group the transaction sheet by category")
		jsonOut    = flag.Bool("json", false, "print the parsed statement as JSON to stdout")
	)
	flag.Parse()

	if *pdfPath == "" {
		return fmt.Errorf("-pdf is required")
	}

	log := logger.New()
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	// 1. A single-run CLI keeps its templates in memory only.
	catalogue := template.NewCatalogue(ctx, memstore.NewStore(), logger.Component(log, "template"))

	// 2. The model client is only wired when AI is allowed.
	var ai aiextract.Client
	if !*noAI {
		ai = aiextract.NewGeminiClient(cfg.GeminiModel)
	}

	processor := pipeline.NewProcessor(catalogue, ai, fields.NewCategorizer(), logger.Component(log, "pipeline"))

	// 3. Run the full document pipeline: fetch, extract, process, export.
	state := &pipeline.State{
		Source: *pdfPath,
		Options: pipeline.Options{
			TemplateID:  *templateID,
			Bank:        *bank,
			DisableAI:   *noAI,
			CallTimeout: 2 * time.Minute,
			UserID:      "cli",
		},
		OutputPath: *outPath,
		Export: export.ExportOptions{
			GroupByCategory: *group,
			IncludeSummary:  true,
		},
	}
	if err := processor.Ingest(ctx, state); err != nil {
		return err
	}

	rec := state.Result.Statement
	log.Info().
		Str("bank", rec.BankName).
		Str("period", rec.StatementPeriod).
		Int("transactions", len(rec.Transactions)).
		Bool("new_template", state.Result.IsNewTemplate).
		Msg("Statement parsed")

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("encoding statement: %w", err)
		}
	}
	if *outPath != "" {
		fmt.Printf("Wrote %s\n", *outPath)
	}
	return nil
}
