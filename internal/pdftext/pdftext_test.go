package pdftext

import (
	"errors"
	"strings"
	"testing"

	"github.com/dvloznov/statement-pipeline/internal/model"
)

func TestReadable(t *testing.T) {
	statement := "ACME BANK\nAccount Number: 12345678\nOpening Balance: $100.00\n" +
		"03/15/2024 STARBUCKS COFFEE -5.75\nClosing Balance: $94.25\n"

	tests := []struct {
		name  string
		pages []string
		want  bool
	}{
		{"real statement text", []string{statement}, true},
		{"too short", []string{"Account"}, false},
		{"binary garbage", []string{strings.Repeat("\xc3\xa0\xc3\xa1\xc3\xb8\xc3\xbf", 50)}, false},
		{"readable but not a statement", []string{strings.Repeat("lorem ipsum dolor sit amet ", 10)}, false},
		{"empty", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Readable(tt.pages); got != tt.want {
				t.Errorf("Readable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCombined(t *testing.T) {
	got := Combined([]string{"page one", "page two"})
	if got != "page one\n\npage two" {
		t.Errorf("Combined() = %q", got)
	}
}

func TestExtractBytes_InvalidInput(t *testing.T) {
	_, err := ExtractBytes([]byte("this is not a pdf"))
	if !errors.Is(err, model.ErrExtraction) {
		t.Errorf("error = %v, want ErrExtraction", err)
	}
}
