package body

import (
	"strings"

	"github.com/beevik/etree"
)

// Text returns the visible text of a paragraph, or of every cell of a table
// joined by newlines. Tabs and breaks come back as "\t" and "\n".
func (b *Body) Text(id NodeID) string {
	el := b.Elem(id)
	if el == nil {
		return ""
	}
	if b.nodes[id].kind == KindTable {
		var rows []string
		for _, row := range b.Grid(id) {
			rows = append(rows, strings.Join(row, "\t"))
		}
		return strings.Join(rows, "\n")
	}
	return ParagraphText(el)
}

// ParagraphText returns the visible text of a w:p element.
func ParagraphText(p *etree.Element) string {
	var sb strings.Builder
	collectText(p, &sb)
	return sb.String()
}

func collectText(e *etree.Element, sb *strings.Builder) {
	for _, c := range e.ChildElements() {
		switch c.Tag {
		case "t":
			sb.WriteString(c.Text())
		case "tab":
			if c.Parent() != nil && c.Parent().Tag == "r" {
				sb.WriteByte('\t')
			}
		case "br", "cr":
			sb.WriteByte('\n')
		case "del", "delText", "instrText", "pPr", "rPr":
			// not visible
		default:
			collectText(c, sb)
		}
	}
}

// Grid returns a table's cell texts row by row. Paragraphs inside a cell are
// joined with "\n".
func (b *Body) Grid(id NodeID) [][]string {
	el := b.Elem(id)
	if el == nil || b.nodes[id].kind != KindTable {
		return nil
	}
	var out [][]string
	for _, tr := range rowsOf(el) {
		var row []string
		for _, tc := range cellsOf(tr) {
			row = append(row, CellText(tc))
		}
		out = append(out, row)
	}
	return out
}

// CellText returns the text of a w:tc element.
func CellText(tc *etree.Element) string {
	var parts []string
	for _, p := range tc.SelectElements("w:p") {
		parts = append(parts, ParagraphText(p))
	}
	return strings.Join(parts, "\n")
}

func rowsOf(tbl *etree.Element) []*etree.Element {
	return tbl.SelectElements("w:tr")
}

func cellsOf(tr *etree.Element) []*etree.Element {
	return tr.SelectElements("w:tc")
}
