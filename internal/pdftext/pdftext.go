// Package pdftext converts statement PDFs into per-page plain text. It is
// the document-extraction boundary of the pipeline: downstream components
// only ever see the text it produces.
package pdftext

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"

	"github.com/dvloznov/statement-pipeline/internal/model"
)

// Extract reads a PDF file and returns the text of each page in order.
// Corrupt, image-only or undecodable input yields an error wrapping
// model.ErrExtraction, which is fatal for that document.
func Extract(path string) ([]string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pdftext: open %q: %v: %w", path, err, model.ErrExtraction)
	}
	defer f.Close()

	return extract(r)
}

// ExtractBytes extracts per-page text from in-memory PDF bytes, e.g. an
// uploaded document.
func ExtractBytes(data []byte) ([]string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("pdftext: read document: %v: %w", err, model.ErrExtraction)
	}
	return extract(r)
}

// Combined joins per-page text with a separating blank line, preserving page
// order.
func Combined(pages []string) string {
	return strings.Join(pages, "\n\n")
}

func extract(r *pdf.Reader) (pages []string, err error) {
	// The underlying library panics on some malformed font tables.
	defer func() {
		if rec := recover(); rec != nil {
			pages = nil
			err = fmt.Errorf("pdftext: reader panic: %v: %w", rec, model.ErrExtraction)
		}
	}()

	numPages := r.NumPage()
	if numPages == 0 {
		return nil, fmt.Errorf("pdftext: document has no pages: %w", model.ErrExtraction)
	}

	pages = extractByRow(r, numPages)
	if Readable(pages) {
		return pages, nil
	}

	pages = extractByPlainText(r, numPages)
	if Readable(pages) {
		return pages, nil
	}

	if text := extractWholeDocument(r); Readable([]string{text}) {
		return []string{text}, nil
	}

	return nil, fmt.Errorf("pdftext: no readable text; the document may be scanned or use undecodable fonts: %w", model.ErrExtraction)
}

// extractByRow reconstructs each page line by line; it preserves the layout
// best and is tried first.
func extractByRow(r *pdf.Reader, numPages int) []string {
	var pages []string
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		var lines []string
		for _, row := range rows {
			var parts []string
			for _, word := range row.Content {
				parts = append(parts, word.S)
			}
			if line := strings.TrimSpace(strings.Join(parts, " ")); line != "" {
				lines = append(lines, line)
			}
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}
	return pages
}

func extractByPlainText(r *pdf.Reader, numPages int) []string {
	var pages []string
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		fonts := make(map[string]*pdf.Font)
		for _, name := range page.Fonts() {
			f := page.Font(name)
			fonts[name] = &f
		}
		text, err := page.GetPlainText(fonts)
		if err != nil {
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			pages = append(pages, text)
		}
	}
	return pages
}

func extractWholeDocument(r *pdf.Reader) string {
	reader, err := r.GetPlainText()
	if err != nil {
		return ""
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// statementWords are terms expected in virtually every bank statement; text
// containing none of them is treated as decoding garbage.
var statementWords = []string{
	"bank", "account", "balance", "date", "statement", "amount",
	"credit", "debit", "transaction", "payment", "total", "period",
	"opening", "closing", "transfer", "paid",
}

// Readable reports whether extracted pages look like decoded statement text:
// enough characters, a high ASCII-readable ratio, and at least one term a
// statement would contain.
func Readable(pages []string) bool {
	total := 0
	for _, p := range pages {
		total += len(strings.TrimSpace(p))
	}
	if total <= 50 {
		return false
	}
	if quality(pages) <= 0.6 {
		return false
	}
	combined := strings.ToLower(strings.Join(pages, " "))
	for _, w := range statementWords {
		if strings.Contains(combined, w) {
			return true
		}
	}
	return false
}

// quality is the ratio of plain readable characters to total characters.
// The check is deliberately ASCII-strict: identity-encoded fonts produce
// accented garbage that unicode.IsLetter would wrongly accept.
func quality(pages []string) float64 {
	total, readable := 0, 0
	for _, page := range pages {
		for _, r := range page {
			total++
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
				(r >= '0' && r <= '9') || unicode.IsSpace(r) ||
				strings.ContainsRune(`.,-/:;()'"%&@#!?+=*£$€`, r) {
				readable++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(readable) / float64(total)
}
