// Command api serves the statement parsing HTTP API.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dvloznov/statement-pipeline/internal/aiextract"
	"github.com/dvloznov/statement-pipeline/internal/api/handlers"
	"github.com/dvloznov/statement-pipeline/internal/api/middleware"
	"github.com/dvloznov/statement-pipeline/internal/config"
	"github.com/dvloznov/statement-pipeline/internal/fields"
	"github.com/dvloznov/statement-pipeline/internal/logger"
	"github.com/dvloznov/statement-pipeline/internal/pipeline"
	"github.com/dvloznov/statement-pipeline/internal/template"
	"github.com/dvloznov/statement-pipeline/internal/template/bqstore"
	"github.com/dvloznov/statement-pipeline/internal/template/memstore"
)

func main() {
	log := logger.New()
	cfg := config.Load()
	ctx := context.Background()

	// 1. Template persistence: BigQuery when configured, memory otherwise.
	var store template.Store
	if cfg.ProjectID != "" {
		bq, err := bqstore.NewStore(ctx, cfg.ProjectID, cfg.DatasetID)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create template store")
		}
		defer bq.Close()
		store = bq
	} else {
		log.Warn().Msg("BQ_PROJECT_ID not set, templates will not persist across restarts")
		store = memstore.NewStore()
	}

	// 2. Core collaborators.
	catalogue := template.NewCatalogue(ctx, store, logger.Component(log, "template"))
	ai := aiextract.NewGeminiClient(cfg.GeminiModel)
	processor := pipeline.NewProcessor(catalogue, ai, fields.NewCategorizer(), logger.Component(log, "pipeline"))

	// 3. Handlers.
	statementsHandler := handlers.NewStatementsHandler(processor, logger.Component(log, "statements"))
	templatesHandler := handlers.NewTemplatesHandler(catalogue, logger.Component(log, "templates"))
	feedbackHandler := handlers.NewFeedbackHandler(ai, logger.Component(log, "feedback"))

	// 4. Router.
	mux := http.NewServeMux()

	mux.HandleFunc("/api/statements/parse", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			statementsHandler.ParseStatement(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/templates", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			templatesHandler.ListTemplates(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/templates/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			id := strings.TrimPrefix(r.URL.Path, "/api/templates/")
			if id == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Template ID is required")
				return
			}
			templatesHandler.GetTemplate(w, r, id)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/feedback/category", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			feedbackHandler.SubmitCategoryFeedback(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// 5. Middleware chain.
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(mux),
			),
		),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  120 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 6. Start and wait for shutdown.
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
}
