// Package pipeline orchestrates one statement's journey from raw text to a
// normalized record: template selection, recognition or AI extraction,
// metadata assembly and the template learning loop.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-pipeline/internal/aiextract"
	"github.com/dvloznov/statement-pipeline/internal/fields"
	"github.com/dvloznov/statement-pipeline/internal/model"
	"github.com/dvloznov/statement-pipeline/internal/recognizer"
	"github.com/dvloznov/statement-pipeline/internal/template"
)

// Options tunes one processing run.
type Options struct {
	// TemplateID forces a specific template instead of scoring the catalogue.
	TemplateID string
	// Bank selects a built-in bank pattern set for local recognition.
	// Unknown names fall back to the generic set.
	Bank string
	// DisableAI keeps the run fully local: template or generic recognition
	// only, never a model call.
	DisableAI bool
	// AICategorize re-categorizes recognized transactions with the model.
	AICategorize bool
	// CallTimeout bounds every external call. Zero means no extra bound
	// beyond the caller's context.
	CallTimeout time.Duration
	// UserID is recorded as the creator of any template learned this run.
	UserID string
}

// Result is the outcome of one processing run.
type Result struct {
	Statement     *model.StatementRecord
	TemplateUsed  *model.Template
	IsNewTemplate bool
}

// Processor runs the extraction pipeline. All collaborators are injected;
// ai may be nil only when every run disables AI.
type Processor struct {
	catalogue   *template.Catalogue
	ai          aiextract.Client
	categorizer *fields.Categorizer
	log         zerolog.Logger
}

func NewProcessor(catalogue *template.Catalogue, ai aiextract.Client, categorizer *fields.Categorizer, log zerolog.Logger) *Processor {
	return &Processor{
		catalogue:   catalogue,
		ai:          ai,
		categorizer: categorizer,
		log:         log,
	}
}

// ProcessText converts extracted statement text into a normalized record.
//
// Strategy order: an explicitly selected template, then the best-scoring
// catalogue match, then AI extraction. A template that fails to parse the
// document is logged and abandoned in favor of AI; when AI was the last
// strategy left and it fails, that error is the run's error. With AI
// disabled the generic recognizer is the final fallback and an empty
// transaction list is a valid result.
func (p *Processor) ProcessText(ctx context.Context, text string, opts Options) (*Result, error) {
	// 1. Pick a template: explicit selection wins, otherwise score the
	// catalogue against the document.
	tpl, err := p.selectTemplate(text, opts)
	if err != nil {
		return nil, err
	}

	// 2. Try template-guided recognition.
	if tpl != nil {
		rec, ok := p.runTemplate(text, tpl)
		if ok {
			p.fillMetadata(rec, text, tpl.BankName)
			if opts.AICategorize && !opts.DisableAI {
				rec.Transactions = p.categorizeWithAI(ctx, rec.Transactions, opts)
			}
			// 3. Feed the observed accuracy back into the template.
			p.catalogue.UpdateMetrics(ctx, tpl.ID, observedAccuracy(rec))
			return &Result{Statement: rec, TemplateUsed: tpl}, nil
		}
		p.log.Info().Str("template_id", tpl.ID).Msg("template did not fit document, falling back")
		tpl = nil
	}

	// 4. No usable template. Local-only runs finish with the generic
	// recognizer; zero transactions is not an error.
	if opts.DisableAI {
		rec := p.recognize(text, recognizer.ForBank(opts.Bank))
		p.fillMetadata(rec, text, "")
		return &Result{Statement: rec}, nil
	}

	// 5. AI extraction is the last strategy; its failure is the run's
	// failure.
	rec, err := p.extractWithAI(ctx, text, opts)
	if err != nil {
		return nil, fmt.Errorf("ProcessText: %w", err)
	}
	p.fillMetadata(rec, text, "")
	if opts.AICategorize {
		rec.Transactions = p.categorizeWithAI(ctx, rec.Transactions, opts)
	}

	// 6. Learning loop: a successful AI parse with no template behind it
	// becomes a new template for this bank.
	res := &Result{Statement: rec}
	if len(rec.Transactions) > 0 {
		if learned, err := p.catalogue.CreateFromAI(ctx, rec, text, opts.UserID); err == nil {
			res.TemplateUsed = learned
			res.IsNewTemplate = true
			p.log.Info().Str("template_id", learned.ID).Str("bank", learned.BankName).Msg("learned new template")
		} else {
			p.log.Warn().Err(err).Msg("could not learn template from AI result")
		}
	}
	return res, nil
}

// selectTemplate resolves the template for this run. An explicit id that is
// not in the catalogue is a caller error; no match at all just means no
// template.
func (p *Processor) selectTemplate(text string, opts Options) (*model.Template, error) {
	if opts.TemplateID != "" {
		tpl, ok := p.catalogue.Get(opts.TemplateID)
		if !ok {
			return nil, fmt.Errorf("ProcessText: selected template %q not found", opts.TemplateID)
		}
		return tpl, nil
	}
	return p.catalogue.FindBestTemplate(text), nil
}

// runTemplate parses the document with a template's patterns. It reports
// ok=false when the template cannot be compiled or produces nothing, so the
// caller can fall back.
func (p *Processor) runTemplate(text string, tpl *model.Template) (*model.StatementRecord, bool) {
	set, err := recognizer.FromTemplate(tpl)
	if err != nil {
		p.log.Warn().Err(err).Str("template_id", tpl.ID).Msg("template patterns invalid")
		return nil, false
	}
	rec := p.recognize(text, set)
	if len(rec.Transactions) == 0 {
		return nil, false
	}
	return rec, true
}

func (p *Processor) recognize(text string, set *recognizer.PatternSet) *model.StatementRecord {
	rec := model.NewStatementRecord()
	// Transactions stays an empty slice, not nil, when nothing was found.
	if txs := recognizer.Recognize(text, set, p.categorizer.Categorize); len(txs) > 0 {
		rec.Transactions = txs
	}
	return rec
}

func (p *Processor) extractWithAI(ctx context.Context, text string, opts Options) (*model.StatementRecord, error) {
	ctx, cancel := p.callContext(ctx, opts)
	defer cancel()
	return aiextract.ExtractStatement(ctx, p.ai, text, p.categorizer.Categories())
}

func (p *Processor) categorizeWithAI(ctx context.Context, txs []model.Transaction, opts Options) []model.Transaction {
	ctx, cancel := p.callContext(ctx, opts)
	defer cancel()
	return aiextract.CategorizeAll(ctx, p.ai, txs, p.categorizer.Categories(), p.categorizer.Categorize, p.log)
}

func (p *Processor) callContext(ctx context.Context, opts Options) (context.Context, context.CancelFunc) {
	if opts.CallTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, opts.CallTimeout)
}

// fillMetadata completes the record's header fields from the document text.
// Values already established by a better source (the AI payload or the
// template's bank) are kept.
func (p *Processor) fillMetadata(rec *model.StatementRecord, text, templateBank string) {
	if rec.BankName == model.UnknownBank {
		if templateBank != "" && templateBank != model.UnknownBank {
			rec.BankName = templateBank
		} else {
			rec.BankName = fields.BankName(text)
		}
	}
	if rec.AccountNumber == model.UnknownAccount {
		rec.AccountNumber = fields.AccountNumber(text)
	}
	if rec.StatementPeriod == model.UnknownPeriod {
		rec.StatementPeriod = fields.StatementPeriod(text)
	}
	if rec.OpeningBalance == nil || rec.ClosingBalance == nil {
		// The extractors find each balance independently, so one side can
		// be backfilled from the text while the other keeps its value.
		opening, closing := fields.Balances(text)
		if rec.OpeningBalance == nil {
			rec.OpeningBalance = opening
		}
		if rec.ClosingBalance == nil {
			rec.ClosingBalance = closing
		}
	}
}

// observedAccuracy estimates how well a parse went from the shape of its
// output: the fraction of transactions that normalized cleanly. It feeds
// the template quality metrics, not any user-facing number.
func observedAccuracy(rec *model.StatementRecord) float64 {
	if len(rec.Transactions) == 0 {
		return 0
	}
	clean := 0
	for _, tx := range rec.Transactions {
		if fields.IsISODate(tx.Date) && tx.Type.Valid() && tx.Description != "" {
			clean++
		}
	}
	return float64(clean) / float64(len(rec.Transactions))
}
