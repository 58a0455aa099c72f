package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/ismsdoc/internal/doctree"
)

// TextParser handles plain text files. Blank lines separate paragraphs;
// everything lands in a single "Body" section.
type TextParser struct {
	Options
}

func (p *TextParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	paragraphs, err := splitParagraphs(r)
	if err != nil {
		return nil, err
	}

	profile := p.profile()
	b := newBuilder(profile)
	for _, para := range paragraphs {
		b.paragraph(para, nil)
	}
	return b.document(DefaultMetadata(stem(filename), p.DocType), profile)
}

func splitParagraphs(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var paragraphs []string
	var current strings.Builder

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			if current.Len() > 0 {
				paragraphs = append(paragraphs, current.String())
				current.Reset()
			}
		} else {
			if current.Len() > 0 {
				current.WriteString("\n")
			}
			current.WriteString(line)
		}
	}
	if current.Len() > 0 {
		paragraphs = append(paragraphs, current.String())
	}
	return paragraphs, scanner.Err()
}
