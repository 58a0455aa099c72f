package body

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/dgallion1/ismsdoc/internal/doctree"
	"github.com/dgallion1/ismsdoc/internal/ooxml"
)

// Text width of an A4 page with default margins, in twentieths of a point.
const tableWidth = 9026

// ParaSpec describes a paragraph to create.
type ParaSpec struct {
	// Styles are candidate style names; the first one defined wins.
	Styles []string
	Text   string
	// Runs replace Text when set.
	Runs []doctree.Run
	Bold bool
	// List attaches bullet or decimal numbering when the style does not
	// carry its own.
	List doctree.BlockKind
	Ilvl int
}

func (b *Body) buildParagraph(spec ParaSpec) *etree.Element {
	p := etree.NewElement("w:p")
	styleID := b.resolve(ooxml.StyleParagraph, spec.Styles)
	numID := ""
	if spec.List.IsList() {
		numID = b.listNumID(spec.List == doctree.KindNumberedList, styleID)
	}
	if styleID != "" || numID != "" {
		pPr := p.CreateElement("w:pPr")
		if styleID != "" {
			pPr.CreateElement("w:pStyle").CreateAttr("w:val", styleID)
		}
		if numID != "" {
			numPr := pPr.CreateElement("w:numPr")
			numPr.CreateElement("w:ilvl").CreateAttr("w:val", strconv.Itoa(spec.Ilvl))
			numPr.CreateElement("w:numId").CreateAttr("w:val", numID)
		}
	}
	runs := spec.Runs
	if len(runs) == 0 && spec.Text != "" {
		runs = []doctree.Run{{Text: spec.Text, Bold: spec.Bold}}
	}
	b.appendRuns(p, runs)
	return p
}

// listNumID returns the numId to attach for a list paragraph, or "" when the
// style already numbers the paragraph or the template has no suitable list.
func (b *Body) listNumID(numbered bool, styleID string) string {
	if st, ok := b.styles.ByID(styleID); ok && st.NumID != "" {
		if f, ok := b.numbering.Format(st.NumID, st.Ilvl); ok && (f != "bullet") == numbered {
			return ""
		}
	}
	if id, ok := b.listNums[numbered]; ok {
		return id
	}
	id, ok := b.numbering.FindNum(func(f string) bool {
		if numbered {
			return f != "bullet" && f != "none"
		}
		return f == "bullet"
	})
	if !ok {
		b.log.Debug("no list numbering in template", "numbered", numbered)
	}
	b.listNums[numbered] = id
	return id
}

func (b *Body) appendRuns(parent *etree.Element, runs []doctree.Run) {
	for _, r := range runs {
		if r.Hyperlink != "" {
			b.appendHyperlink(parent, r)
			continue
		}
		appendRun(parent, r)
	}
}

func appendRun(parent *etree.Element, r doctree.Run) *etree.Element {
	run := parent.CreateElement("w:r")
	if r.Bold || r.Italic || r.Underline {
		rPr := run.CreateElement("w:rPr")
		if r.Bold {
			rPr.CreateElement("w:b")
		}
		if r.Italic {
			rPr.CreateElement("w:i")
		}
		if r.Underline {
			rPr.CreateElement("w:u").CreateAttr("w:val", "single")
		}
	}
	addText(run, r.Text)
	return run
}

// appendHyperlink writes a w:hyperlink. "#name" targets a bookmark; anything
// else becomes an external relationship.
func (b *Body) appendHyperlink(parent *etree.Element, r doctree.Run) {
	h := etree.NewElement("w:hyperlink")
	if anchor, ok := strings.CutPrefix(r.Hyperlink, "#"); ok {
		h.CreateAttr("w:anchor", anchor)
	} else {
		rid, err := b.rels.Add(ooxml.RelHyperlink, r.Hyperlink, true)
		if err != nil {
			b.log.Warn("hyperlink dropped", "target", r.Hyperlink, "error", err)
			appendRun(parent, r)
			return
		}
		prefix := ooxml.EnsurePrefix(b.root.Parent(), ooxml.NSRel, "r")
		h.CreateAttr(ooxml.QName(prefix, "id"), rid)
	}
	h.CreateAttr("w:history", "1")
	parent.AddChild(h)

	run := appendRun(h, r)
	if cs := b.resolve(ooxml.StyleCharacter, []string{"Hyperlink"}); cs != "" {
		rPr := run.SelectElement("w:rPr")
		if rPr == nil {
			rPr = etree.NewElement("w:rPr")
			run.InsertChildAt(0, rPr)
		}
		st := etree.NewElement("w:rStyle")
		st.CreateAttr("w:val", cs)
		rPr.InsertChildAt(0, st)
	}
}

// addText writes text into a run, turning "\n" into w:br and "\t" into
// w:tab.
func addText(run *etree.Element, text string) {
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			run.CreateElement("w:br")
		}
		for j, seg := range strings.Split(line, "\t") {
			if j > 0 {
				run.CreateElement("w:tab")
			}
			if seg == "" {
				continue
			}
			t := run.CreateElement("w:t")
			if strings.TrimSpace(seg) != seg {
				t.CreateAttr("xml:space", "preserve")
			}
			t.SetText(seg)
		}
	}
}

func (b *Body) buildTable(rows, cols int, styles []string) *etree.Element {
	if cols < 1 {
		cols = 1
	}
	tbl := etree.NewElement("w:tbl")
	tblPr := tbl.CreateElement("w:tblPr")
	if id := b.resolve(ooxml.StyleTable, styles); id != "" {
		tblPr.CreateElement("w:tblStyle").CreateAttr("w:val", id)
	}
	w := tblPr.CreateElement("w:tblW")
	w.CreateAttr("w:w", "5000")
	w.CreateAttr("w:type", "pct")
	look := tblPr.CreateElement("w:tblLook")
	look.CreateAttr("w:val", "04A0")
	look.CreateAttr("w:firstRow", "1")
	look.CreateAttr("w:lastRow", "0")
	look.CreateAttr("w:firstColumn", "1")
	look.CreateAttr("w:lastColumn", "0")
	look.CreateAttr("w:noHBand", "0")
	look.CreateAttr("w:noVBand", "1")

	width := tableWidth / cols
	grid := tbl.CreateElement("w:tblGrid")
	for range cols {
		grid.CreateElement("w:gridCol").CreateAttr("w:w", strconv.Itoa(width))
	}
	for range rows {
		tbl.AddChild(newRow(cols, width))
	}
	return tbl
}

func newRow(cols, width int) *etree.Element {
	tr := etree.NewElement("w:tr")
	for range cols {
		tc := tr.CreateElement("w:tc")
		tcW := tc.CreateElement("w:tcPr").CreateElement("w:tcW")
		tcW.CreateAttr("w:w", strconv.Itoa(width))
		tcW.CreateAttr("w:type", "dxa")
		tc.CreateElement("w:p")
	}
	return tr
}
