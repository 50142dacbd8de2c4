package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dvloznov/statement-pipeline/internal/fields"
	"github.com/dvloznov/statement-pipeline/internal/logger"
	"github.com/dvloznov/statement-pipeline/internal/model"
	"github.com/dvloznov/statement-pipeline/internal/pipeline"
	"github.com/dvloznov/statement-pipeline/internal/template"
	"github.com/dvloznov/statement-pipeline/internal/template/memstore"
)

type mockAI struct {
	fn func(prompt string) (string, error)
}

func (m *mockAI) Complete(_ context.Context, prompt string) (string, error) {
	return m.fn(prompt)
}

func testStatementsHandler(t *testing.T) *StatementsHandler {
	t.Helper()
	log := logger.NewWithWriter(io.Discard)
	catalogue := template.NewCatalogue(context.Background(), memstore.NewStore(), log)
	ai := &mockAI{fn: func(string) (string, error) { return "", fmt.Errorf("not expected") }}
	processor := pipeline.NewProcessor(catalogue, ai, fields.NewCategorizer(), log)
	return NewStatementsHandler(processor, log)
}

func TestParseStatement_MissingFile(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	mw.WriteField("disable_ai", "true")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/statements/parse", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()

	testStatementsHandler(t).ParseStatement(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestParseStatement_UnreadablePDF(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, _ := mw.CreateFormFile("file", "statement.pdf")
	fw.Write([]byte("this is not a pdf"))
	mw.WriteField("disable_ai", "true")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/statements/parse", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()

	testStatementsHandler(t).ParseStatement(rr, req)

	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rr.Code)
	}
}

func TestListTemplates(t *testing.T) {
	log := logger.NewWithWriter(io.Discard)
	store := memstore.NewStore()
	store.Save(context.Background(), &model.Template{ID: "t1", BankName: "Acme Bank"})
	catalogue := template.NewCatalogue(context.Background(), store, log)
	h := NewTemplatesHandler(catalogue, log)

	req := httptest.NewRequest(http.MethodGet, "/api/templates", nil)
	rr := httptest.NewRecorder()
	h.ListTemplates(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var resp struct {
		Templates []model.Template `json:"templates"`
		Count     int              `json:"count"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Count != 1 || len(resp.Templates) != 1 || resp.Templates[0].ID != "t1" {
		t.Errorf("response = %+v", resp)
	}
}

func TestGetTemplate_NotFound(t *testing.T) {
	log := logger.NewWithWriter(io.Discard)
	catalogue := template.NewCatalogue(context.Background(), memstore.NewStore(), log)
	h := NewTemplatesHandler(catalogue, log)

	rr := httptest.NewRecorder()
	h.GetTemplate(rr, httptest.NewRequest(http.MethodGet, "/api/templates/x", nil), "x")

	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}

func TestSubmitCategoryFeedback(t *testing.T) {
	log := logger.NewWithWriter(io.Discard)
	ai := &mockAI{fn: func(string) (string, error) { return `["coffee", "espresso"]`, nil }}
	h := NewFeedbackHandler(ai, log)

	body := strings.NewReader(`{"description": "STARBUCKS COFFEE", "category": "Food & Dining"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/feedback/category", body)
	rr := httptest.NewRecorder()
	h.SubmitCategoryFeedback(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var resp struct {
		Status   string   `json:"status"`
		Keywords []string `json:"suggested_keywords"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Status != "accepted" || len(resp.Keywords) != 2 {
		t.Errorf("response = %+v", resp)
	}
}

func TestSubmitCategoryFeedback_BadRequest(t *testing.T) {
	h := NewFeedbackHandler(nil, logger.NewWithWriter(io.Discard))

	rr := httptest.NewRecorder()
	h.SubmitCategoryFeedback(rr, httptest.NewRequest(http.MethodPost, "/api/feedback/category", strings.NewReader(`{}`)))

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}
