package parser

import (
	"strings"
	"testing"

	"github.com/dgallion1/ismsdoc/internal/doctree"
)

func parseText(t *testing.T, input, filename string) *doctree.Document {
	t.Helper()
	p := &TextParser{Options: DefaultOptions()}
	doc, err := p.Parse(strings.NewReader(input), filename)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return doc
}

func bodyTexts(doc *doctree.Document) []string {
	sec := doc.Section("body")
	if sec == nil {
		return nil
	}
	var out []string
	for _, b := range sec.Content {
		out = append(out, b.Text)
	}
	return out
}

func TestTextParser_BasicParagraphSplitting(t *testing.T) {
	input := "First paragraph line one.\nFirst paragraph line two.\n\nSecond paragraph.\n\nThird paragraph."
	doc := parseText(t, input, "notes.txt")

	if doc.Metadata.Title != "notes" {
		t.Errorf("expected title %q, got %q", "notes", doc.Metadata.Title)
	}
	got := bodyTexts(doc)
	want := []string{
		"First paragraph line one.\nFirst paragraph line two.",
		"Second paragraph.",
		"Third paragraph.",
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d paragraphs, got %d", len(want), len(got))
	}
	for i, w := range want {
		if got[i] != w {
			t.Errorf("paragraph[%d]: expected %q, got %q", i, w, got[i])
		}
	}
}

func TestTextParser_EmptyInput(t *testing.T) {
	doc := parseText(t, "", "empty.txt")
	if doc.Metadata.Title != "empty" {
		t.Errorf("expected title %q, got %q", "empty", doc.Metadata.Title)
	}
	if doc.Section("body") != nil {
		t.Errorf("expected no body section for empty input")
	}
	if doc.Metadata.DocID != DefaultDocID || doc.Metadata.Status != doctree.StatusDraft {
		t.Errorf("expected default metadata, got %+v", doc.Metadata)
	}
}

func TestTextParser_SingleLine(t *testing.T) {
	got := bodyTexts(parseText(t, "Hello world", "single.txt"))
	if len(got) != 1 || got[0] != "Hello world" {
		t.Fatalf("expected one paragraph %q, got %q", "Hello world", got)
	}
}

func TestTextParser_MultipleBlankLines(t *testing.T) {
	// Multiple consecutive blank lines should not produce empty paragraphs.
	got := bodyTexts(parseText(t, "Para one.\n\n\n\nPara two.", "gaps.txt"))
	if len(got) != 2 {
		t.Fatalf("expected 2 paragraphs, got %d", len(got))
	}
}

func TestTextParser_WhitespaceOnlyLines(t *testing.T) {
	// Lines with only whitespace should be treated as blank.
	got := bodyTexts(parseText(t, "Para one.\n   \nPara two.", "ws.txt"))
	if len(got) != 2 {
		t.Fatalf("expected 2 paragraphs, got %d", len(got))
	}
}
