package services

import (
	"errors"
	"testing"
)

func TestExtractFromBytesCorruptInput(t *testing.T) {
	parser := NewPDFParserService()

	_, err := parser.ExtractFromBytes([]byte("this is not a pdf document"))
	if !errors.Is(err, ErrCorruptDocument) {
		t.Errorf("expected ErrCorruptDocument, got %v", err)
	}
}

func TestExtractFromBytesEmptyInput(t *testing.T) {
	parser := NewPDFParserService()

	_, err := parser.ExtractFromBytes(nil)
	if err == nil {
		t.Error("expected an error for empty input")
	}
}

func TestExtractTextMissingFile(t *testing.T) {
	parser := NewPDFParserService()

	_, err := parser.ExtractText("/nonexistent/resume.pdf")
	if err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestCleanText(t *testing.T) {
	input := "  first line  \n\n\n   second line\n\t\nthird line  "
	want := "first line\nsecond line\nthird line"

	if got := CleanText(input); got != want {
		t.Errorf("CleanText() = %q, want %q", got, want)
	}
}
