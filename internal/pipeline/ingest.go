package pipeline

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/dvloznov/statement-pipeline/internal/export"
	"github.com/dvloznov/statement-pipeline/internal/gcsdocs"
	"github.com/dvloznov/statement-pipeline/internal/pdftext"
)

// Step is a single stage of the ingest pipeline.
type Step interface {
	Execute(ctx context.Context, state *State) error
}

// State is the shared state threaded through the ingest steps.
type State struct {
	// Source is a gs:// URI or a local path.
	Source   string
	Options  Options
	PDFBytes []byte
	Text     string
	Result   *Result
	// OutputPath, when set, receives the xlsx export.
	OutputPath string
	Export     export.ExportOptions
}

// Ingest runs the full document pipeline: fetch, extract text, process,
// export. Steps run in order; the first failure aborts the run.
func (p *Processor) Ingest(ctx context.Context, state *State) error {
	steps := []Step{
		&FetchDocumentStep{},
		&ExtractTextStep{},
		&ProcessStep{processor: p},
		&ExportStep{},
	}
	for _, step := range steps {
		if err := step.Execute(ctx, state); err != nil {
			return err
		}
	}
	return nil
}

// FetchDocumentStep loads the PDF bytes from GCS or the local filesystem.
type FetchDocumentStep struct{}

func (s *FetchDocumentStep) Execute(ctx context.Context, state *State) error {
	if strings.HasPrefix(state.Source, "gs://") {
		data, err := gcsdocs.Fetch(ctx, state.Source)
		if err != nil {
			return fmt.Errorf("fetch document: %w", err)
		}
		state.PDFBytes = data
		return nil
	}
	data, err := os.ReadFile(state.Source)
	if err != nil {
		return fmt.Errorf("fetch document: %w", err)
	}
	state.PDFBytes = data
	return nil
}

// ExtractTextStep converts the PDF bytes into plain text.
type ExtractTextStep struct{}

func (s *ExtractTextStep) Execute(ctx context.Context, state *State) error {
	pages, err := pdftext.ExtractBytes(state.PDFBytes)
	if err != nil {
		return fmt.Errorf("extract text: %w", err)
	}
	state.Text = pdftext.Combined(pages)
	return nil
}

// ProcessStep runs the core pipeline over the extracted text.
type ProcessStep struct {
	processor *Processor
}

func (s *ProcessStep) Execute(ctx context.Context, state *State) error {
	result, err := s.processor.ProcessText(ctx, state.Text, state.Options)
	if err != nil {
		return fmt.Errorf("process statement: %w", err)
	}
	state.Result = result
	return nil
}

// ExportStep writes the xlsx workbook when an output path was requested.
type ExportStep struct{}

func (s *ExportStep) Execute(ctx context.Context, state *State) error {
	if state.OutputPath == "" {
		return nil
	}
	f, err := export.WriteXLSX(state.Result.Statement, state.Export)
	if err != nil {
		return fmt.Errorf("export statement: %w", err)
	}
	defer f.Close()
	if err := f.SaveAs(state.OutputPath); err != nil {
		return fmt.Errorf("export statement: saving %q: %w", state.OutputPath, err)
	}
	return nil
}
