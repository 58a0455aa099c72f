package body

import (
	"strconv"

	"github.com/beevik/etree"
	"github.com/dgallion1/ismsdoc/internal/ooxml"
)

func (b *Body) table(id NodeID) *etree.Element {
	if b.Kind(id) != KindTable {
		return nil
	}
	return b.nodes[id].elem
}

// ColumnCount returns the number of grid columns of a table. Tables without
// a w:tblGrid fall back to the span of their first row.
func (b *Body) ColumnCount(id NodeID) int {
	tbl := b.table(id)
	if tbl == nil {
		return 0
	}
	if grid := tbl.SelectElement("w:tblGrid"); grid != nil {
		if n := len(grid.SelectElements("w:gridCol")); n > 0 {
			return n
		}
	}
	rows := rowsOf(tbl)
	if len(rows) == 0 {
		return 0
	}
	n := 0
	for _, tc := range cellsOf(rows[0]) {
		n += gridSpan(tc)
	}
	return n
}

// RowCount returns the number of rows of a table.
func (b *Body) RowCount(id NodeID) int {
	tbl := b.table(id)
	if tbl == nil {
		return 0
	}
	return len(rowsOf(tbl))
}

func gridSpan(tc *etree.Element) int {
	if gs := tc.FindElement("./w:tcPr/w:gridSpan"); gs != nil {
		if n, err := strconv.Atoi(gs.SelectAttrValue("w:val", "1")); err == nil && n > 0 {
			return n
		}
	}
	return 1
}

// cellAt returns the cell covering grid column col, or nil.
func cellAt(tr *etree.Element, col int) *etree.Element {
	at := 0
	for _, tc := range cellsOf(tr) {
		span := gridSpan(tc)
		if col < at+span {
			return tc
		}
		at += span
	}
	return nil
}

// ResizeRows grows or shrinks a table to exactly n rows. New rows copy the
// structure of the last row with their text cleared.
func (b *Body) ResizeRows(id NodeID, n int) {
	tbl := b.table(id)
	if tbl == nil || n < 0 {
		return
	}
	rows := rowsOf(tbl)
	for i := len(rows) - 1; i >= n; i-- {
		tbl.RemoveChild(rows[i])
	}
	if len(rows) >= n {
		return
	}
	cols := b.ColumnCount(id)
	for i := len(rows); i < n; i++ {
		var tr *etree.Element
		if len(rows) > 0 {
			tr = rows[len(rows)-1].Copy()
			for _, tc := range cellsOf(tr) {
				setCellText(tc, "")
			}
		} else {
			tr = newRow(max(cols, 1), tableWidth/max(cols, 1))
		}
		tbl.AddChild(tr)
	}
}

// SetCellText writes text into the cell at row, col. The cell keeps its
// first paragraph's properties and first run's formatting.
func (b *Body) SetCellText(id NodeID, row, col int, text string) bool {
	tbl := b.table(id)
	if tbl == nil {
		return false
	}
	rows := rowsOf(tbl)
	if row < 0 || row >= len(rows) {
		return false
	}
	tc := cellAt(rows[row], col)
	if tc == nil {
		return false
	}
	setCellText(tc, text)
	return true
}

// SetCellBold marks every run in the cell bold.
func (b *Body) SetCellBold(id NodeID, row, col int) {
	tbl := b.table(id)
	if tbl == nil {
		return
	}
	rows := rowsOf(tbl)
	if row < 0 || row >= len(rows) {
		return
	}
	tc := cellAt(rows[row], col)
	if tc == nil {
		return
	}
	for _, r := range tc.FindElements(".//w:r") {
		rPr := r.SelectElement("w:rPr")
		if rPr == nil {
			rPr = etree.NewElement("w:rPr")
			r.InsertChildAt(0, rPr)
		}
		if rPr.SelectElement("w:b") == nil {
			rPr.CreateElement("w:b")
		}
	}
}

func setCellText(tc *etree.Element, text string) {
	var first *etree.Element
	for _, c := range tc.ChildElements() {
		switch {
		case c.Tag == "tcPr":
		case c.Tag == "p" && first == nil:
			first = c
		default:
			tc.RemoveChild(c)
		}
	}
	if first == nil {
		first = tc.CreateElement("w:p")
	}
	ReplaceText(first, text)
	if text == "" {
		for _, r := range first.SelectElements("w:r") {
			first.RemoveChild(r)
		}
	}
}

// SetTableStyle applies the first candidate table style the template
// defines. It reports false when none is available.
func (b *Body) SetTableStyle(id NodeID, candidates []string) bool {
	tbl := b.table(id)
	if tbl == nil {
		return false
	}
	styleID := b.resolve(ooxml.StyleTable, candidates)
	if styleID == "" {
		return false
	}
	tblPr := tbl.SelectElement("w:tblPr")
	if tblPr == nil {
		tblPr = etree.NewElement("w:tblPr")
		tbl.InsertChildAt(0, tblPr)
	}
	st := tblPr.SelectElement("w:tblStyle")
	if st == nil {
		st = etree.NewElement("w:tblStyle")
		tblPr.InsertChildAt(0, st)
	}
	st.CreateAttr("w:val", styleID)
	return true
}

// EnsureColumns widens every row of a table to at least n grid columns by
// appending empty cells.
func (b *Body) EnsureColumns(id NodeID, n int) {
	tbl := b.table(id)
	if tbl == nil || n < 1 {
		return
	}
	grid := tbl.SelectElement("w:tblGrid")
	if grid == nil {
		grid = etree.NewElement("w:tblGrid")
		at := 0
		if pr := tbl.SelectElement("w:tblPr"); pr != nil {
			at = pr.Index() + 1
		}
		tbl.InsertChildAt(at, grid)
	}
	width := tableWidth / n
	for have := len(grid.SelectElements("w:gridCol")); have < n; have++ {
		grid.CreateElement("w:gridCol").CreateAttr("w:w", strconv.Itoa(width))
	}
	for _, tr := range rowsOf(tbl) {
		span := 0
		for _, tc := range cellsOf(tr) {
			span += gridSpan(tc)
		}
		for ; span < n; span++ {
			tc := tr.CreateElement("w:tc")
			tcW := tc.CreateElement("w:tcPr").CreateElement("w:tcW")
			tcW.CreateAttr("w:w", strconv.Itoa(width))
			tcW.CreateAttr("w:type", "dxa")
			tc.CreateElement("w:p")
		}
	}
}
