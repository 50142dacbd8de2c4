// Package handlers implements the HTTP endpoints of the statement API.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-pipeline/internal/aiextract"
	"github.com/dvloznov/statement-pipeline/internal/api/middleware"
	"github.com/dvloznov/statement-pipeline/internal/logger"
	"github.com/dvloznov/statement-pipeline/internal/model"
	"github.com/dvloznov/statement-pipeline/internal/pdftext"
	"github.com/dvloznov/statement-pipeline/internal/pipeline"
	"github.com/dvloznov/statement-pipeline/internal/template"
)

// maxUploadSize bounds statement uploads at 32 MiB.
const maxUploadSize = 32 << 20

// parseCallTimeout bounds each external call made while parsing one upload.
const parseCallTimeout = 90 * time.Second

// StatementsHandler handles statement parsing endpoints.
type StatementsHandler struct {
	processor *pipeline.Processor
	log       zerolog.Logger
}

// NewStatementsHandler creates a new statements handler.
func NewStatementsHandler(processor *pipeline.Processor, log zerolog.Logger) *StatementsHandler {
	return &StatementsHandler{processor: processor, log: log}
}

// ParseStatement handles POST /api/statements/parse. It accepts a multipart
// upload with the PDF in the "file" field and optional form values
// template_id, disable_ai and ai_categorize.
func (h *StatementsHandler) ParseStatement(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithContext(r.Context(), h.log)

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid multipart request")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "A PDF upload in the 'file' field is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Could not read upload")
		return
	}

	pages, err := pdftext.ExtractBytes(data)
	if err != nil {
		h.log.Warn().Err(err).Str("filename", header.Filename).Msg("Text extraction failed")
		middleware.WriteError(w, http.StatusUnprocessableEntity, "Could not extract text from the PDF")
		return
	}

	opts := pipeline.Options{
		TemplateID:   r.FormValue("template_id"),
		DisableAI:    r.FormValue("disable_ai") == "true",
		AICategorize: r.FormValue("ai_categorize") == "true",
		CallTimeout:  parseCallTimeout,
		UserID:       r.FormValue("user_id"),
	}

	result, err := h.processor.ProcessText(ctx, pdftext.Combined(pages), opts)
	if err != nil {
		h.log.Error().Err(err).Str("filename", header.Filename).Msg("Statement processing failed")
		if errors.Is(err, model.ErrAICall) {
			middleware.WriteError(w, http.StatusBadGateway, "Extraction service unavailable")
			return
		}
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to process statement")
		return
	}

	resp := map[string]interface{}{
		"statement":         result.Statement,
		"transaction_count": len(result.Statement.Transactions),
		"is_new_template":   result.IsNewTemplate,
	}
	if result.TemplateUsed != nil {
		resp["template_id"] = result.TemplateUsed.ID
	}
	middleware.WriteJSON(w, http.StatusOK, resp)
}

// TemplatesHandler handles template catalogue endpoints.
type TemplatesHandler struct {
	catalogue *template.Catalogue
	log       zerolog.Logger
}

// NewTemplatesHandler creates a new templates handler.
func NewTemplatesHandler(catalogue *template.Catalogue, log zerolog.Logger) *TemplatesHandler {
	return &TemplatesHandler{catalogue: catalogue, log: log}
}

// ListTemplates handles GET /api/templates
func (h *TemplatesHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates := h.catalogue.All()
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"templates": templates,
		"count":     len(templates),
	})
}

// GetTemplate handles GET /api/templates/{id}
func (h *TemplatesHandler) GetTemplate(w http.ResponseWriter, r *http.Request, id string) {
	tpl, ok := h.catalogue.Get(id)
	if !ok {
		middleware.WriteError(w, http.StatusNotFound, "Template not found")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, tpl)
}

// FeedbackHandler handles category feedback endpoints.
type FeedbackHandler struct {
	ai  aiextract.Client
	log zerolog.Logger
}

// NewFeedbackHandler creates a new feedback handler.
func NewFeedbackHandler(ai aiextract.Client, log zerolog.Logger) *FeedbackHandler {
	return &FeedbackHandler{ai: ai, log: log}
}

// SubmitCategoryFeedback handles POST /api/feedback/category. The corrected
// category is acknowledged and the model is asked for keywords that would
// route similar descriptions there in the future; keyword suggestion is best
// effort and an empty list is a valid answer.
func (h *FeedbackHandler) SubmitCategoryFeedback(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Description string `json:"description"`
		Category    string `json:"category"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Description == "" || req.Category == "" {
		middleware.WriteError(w, http.StatusBadRequest, "description and category are required")
		return
	}

	keywords := []string{}
	if h.ai != nil {
		keywords = aiextract.SuggestKeywords(r.Context(), h.ai, req.Description, req.Category, h.log)
	}

	h.log.Info().
		Str("description", req.Description).
		Str("category", req.Category).
		Int("keywords", len(keywords)).
		Msg("Category feedback recorded")

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":             "accepted",
		"suggested_keywords": keywords,
	})
}
