package parser

import (
	"bytes"
	"io"
	"strings"

	"github.com/dgallion1/ismsdoc/internal/doctree"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser handles Markdown files using goldmark with GFM tables.
type MarkdownParser struct {
	Options
}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	root := md.Parser().Parse(text.NewReader(src))

	profile := p.profile()
	b := newBuilder(profile)
	title := ""

	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			t := inlineText(node, src)
			if node.Level == 1 && title == "" {
				title = t
			}
			b.heading(t, node.Level, "")

		case *ast.List:
			kind := doctree.KindBulletList
			if node.IsOrdered() {
				kind = doctree.KindNumberedList
			}
			markdownList(b, node, kind, src)

		case *east.Table:
			b.table(markdownGrid(node, src))

		case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock:
			b.paragraph(blockLines(n, src), nil)

		case *ast.ThematicBreak:

		default:
			for _, para := range markdownParagraphs(n, src) {
				b.paragraph(runsText(para), para)
			}
		}
	}

	if title == "" {
		title = stem(filename)
	}
	return b.document(DefaultMetadata(title, p.DocType), profile)
}

// markdownList adds one item per list item, flattening nested lists into
// the same block.
func markdownList(b *builder, list *ast.List, kind doctree.BlockKind, src []byte) {
	for li := list.FirstChild(); li != nil; li = li.NextSibling() {
		for c := li.FirstChild(); c != nil; c = c.NextSibling() {
			if nested, ok := c.(*ast.List); ok {
				markdownList(b, nested, kind, src)
				continue
			}
			runs := markdownRuns(c, src, doctree.Run{})
			b.listItem(kind, runsText(runs), runs)
		}
	}
}

func markdownGrid(tbl *east.Table, src []byte) [][]string {
	var grid [][]string
	for row := tbl.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			if _, ok := cell.(*east.TableCell); ok {
				cells = append(cells, inlineText(cell, src))
			}
		}
		grid = append(grid, cells)
	}
	return grid
}

// markdownParagraphs returns the runs of every paragraph-like block under
// n; blockquotes contribute their inner paragraphs.
func markdownParagraphs(n ast.Node, src []byte) [][]doctree.Run {
	switch n.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		return [][]doctree.Run{markdownRuns(n, src, doctree.Run{})}
	}
	var out [][]doctree.Run
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		out = append(out, markdownParagraphs(c, src)...)
	}
	return out
}

// markdownRuns flattens inline nodes into runs, carrying emphasis and link
// state down from the enclosing node.
func markdownRuns(n ast.Node, src []byte, state doctree.Run) []doctree.Run {
	var out []doctree.Run
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *ast.Text:
			r := state
			r.Text = string(node.Value(src))
			if node.HardLineBreak() {
				r.Text += "\n"
			} else if node.SoftLineBreak() {
				r.Text += " "
			}
			out = append(out, r)
		case *ast.String:
			r := state
			r.Text = string(node.Value)
			out = append(out, r)
		case *ast.CodeSpan:
			r := state
			r.Text = inlineText(node, src)
			out = append(out, r)
		case *ast.Emphasis:
			s := state
			if node.Level >= 2 {
				s.Bold = true
			} else {
				s.Italic = true
			}
			out = append(out, markdownRuns(node, src, s)...)
		case *ast.Link:
			s := state
			s.Hyperlink = string(node.Destination)
			out = append(out, markdownRuns(node, src, s)...)
		case *ast.AutoLink:
			r := state
			r.Text = string(node.Label(src))
			r.Hyperlink = string(node.URL(src))
			out = append(out, r)
		default:
			out = append(out, markdownRuns(c, src, state)...)
		}
	}
	return out
}

func runsText(runs []doctree.Run) string {
	var sb strings.Builder
	for _, r := range runs {
		sb.WriteString(r.Text)
	}
	return strings.TrimSpace(sb.String())
}

// inlineText returns the plain text of a node's inline children.
func inlineText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *ast.Text:
			buf.Write(node.Value(src))
			if node.SoftLineBreak() || node.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(node.Value)
		default:
			buf.WriteString(inlineText(c, src))
		}
	}
	return strings.TrimSpace(buf.String())
}

// blockLines joins the raw lines of a code or HTML block.
func blockLines(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(src))
	}
	return strings.TrimSpace(buf.String())
}
