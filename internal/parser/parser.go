// Package parser imports documents of several formats into the document
// model. The .docx importer reconstructs the full model; the others map
// headings, paragraphs, lists and tables onto sections.
package parser

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/ismsdoc/internal/body"
	"github.com/dgallion1/ismsdoc/internal/doctree"
)

// Parser converts raw document bytes into a validated document model.
type Parser interface {
	Parse(r io.Reader, filename string) (*doctree.Document, error)
}

// Options configure the parsers returned by ForFile.
type Options struct {
	Profile doctree.Profile
	Vocab   body.Vocabulary
	// DocType is used when the source does not name one.
	DocType           doctree.DocType
	FallbackPdftotext bool
	Log               *slog.Logger
}

// DefaultOptions uses the standard profile and vocabulary.
func DefaultOptions() Options {
	return Options{
		Profile: doctree.StandardProfile(),
		Vocab:   body.DefaultVocabulary(),
		DocType: doctree.DocTypeRecord,
	}
}

func (o Options) logger() *slog.Logger {
	if o.Log == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.Log
}

func (o Options) profile() doctree.Profile {
	if o.Profile.Name == "" {
		return doctree.StandardProfile()
	}
	return o.Profile
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, opts Options) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{Options: opts}, nil
	case ".md", ".markdown":
		return &MarkdownParser{Options: opts}, nil
	case ".csv":
		return &CSVParser{Options: opts}, nil
	case ".html", ".htm":
		return &HTMLParser{Options: opts}, nil
	case ".pdf":
		return &PDFParser{Options: opts}, nil
	case ".docx":
		return NewDOCXParser(opts), nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// ParseFile opens path and runs the matching parser on it.
func ParseFile(path string, opts Options) (*doctree.Document, error) {
	p, err := ForFile(path, opts)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return p.Parse(f, filepath.Base(path))
}

// stem strips directory and extension from a filename.
func stem(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
