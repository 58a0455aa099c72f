package body_test

import (
	"strings"
	"testing"

	"github.com/dgallion1/ismsdoc/internal/body"
	"github.com/dgallion1/ismsdoc/internal/doctree"
	"github.com/dgallion1/ismsdoc/internal/ooxml"
	"github.com/dgallion1/ismsdoc/internal/ooxml/ooxmltest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T, f ooxmltest.Fixture) (*body.Body, *ooxml.Package) {
	t.Helper()
	pkg, err := ooxml.OpenBytes(f.Bytes(t))
	require.NoError(t, err)
	b, err := body.Load(pkg, body.DefaultVocabulary(), nil)
	require.NoError(t, err)
	return b, pkg
}

// reload writes the package and walks the result.
func reload(t *testing.T, b *body.Body, pkg *ooxml.Package) *body.Body {
	t.Helper()
	require.NoError(t, b.Flush())
	data, err := pkg.Bytes()
	require.NoError(t, err)
	again, err := ooxml.OpenBytes(data)
	require.NoError(t, err)
	out, err := body.Load(again, body.DefaultVocabulary(), nil)
	require.NoError(t, err)
	return out
}

func texts(b *body.Body) []string {
	var out []string
	for _, id := range b.Paragraphs() {
		out = append(out, b.Text(id))
	}
	return out
}

func TestLoad_HandlesAreStable(t *testing.T) {
	b, _ := load(t, ooxmltest.Fixture{Body: ooxmltest.P("Heading1", "Purpose") +
		ooxmltest.Table([]string{"a", "b"}) + ooxmltest.P("", "body")})

	nodes := b.Nodes()
	require.Len(t, nodes, 3)
	assert.Equal(t, body.KindParagraph, b.Kind(nodes[0]))
	assert.Equal(t, body.KindTable, b.Kind(nodes[1]))
	assert.Equal(t, []body.NodeID{nodes[0], nodes[2]}, b.Paragraphs())
	assert.Equal(t, []body.NodeID{nodes[1]}, b.Tables())

	// Inserting in front of existing nodes does not change their handles.
	inserted := b.InsertParagraphAfter(nodes[0], body.ParaSpec{Text: "new"})
	assert.Equal(t, []body.NodeID{nodes[0], inserted, nodes[1], nodes[2]}, b.Nodes())
	id, ok := b.Lookup(b.Elem(nodes[2]))
	require.True(t, ok)
	assert.Equal(t, nodes[2], id)
}

func TestInsert_CursorKeepsOrder(t *testing.T) {
	b, pkg := load(t, ooxmltest.Fixture{Body: ooxmltest.P("Heading1", "Scope") + ooxmltest.P("Heading1", "Roles")})

	scope, ok := b.FindParagraph("scope")
	require.True(t, ok)

	cursor := scope
	for _, text := range []string{"one", "two", "three"} {
		cursor = b.InsertParagraphAfter(cursor, body.ParaSpec{Styles: []string{"Normal"}, Text: text})
	}
	tbl := b.InsertTableAfter(cursor, 2, 2, b.Vocabulary().Table)
	require.Equal(t, 2, b.RowCount(tbl))

	got := reload(t, b, pkg)
	assert.Equal(t, []string{"Scope", "one", "two", "three", "Roles"}, texts(got))
	nodes := got.Nodes()
	require.Len(t, nodes, 6)
	assert.Equal(t, body.KindTable, got.Kind(nodes[4]))
}

func TestAppend_StaysBeforeSectPr(t *testing.T) {
	b, pkg := load(t, ooxmltest.Fixture{Body: ooxmltest.P("", "first")})
	b.AppendParagraph(body.ParaSpec{Text: "last"})
	b.AppendTable(1, 3, nil)

	require.NoError(t, b.Flush())
	doc, err := pkg.Part(ooxml.PartDocument)
	require.NoError(t, err)
	kids := doc.Root().SelectElement("w:body").ChildElements()
	require.NotEmpty(t, kids)
	assert.Equal(t, "sectPr", kids[len(kids)-1].Tag)
	assert.Equal(t, "tbl", kids[len(kids)-2].Tag)
}

func TestEnsureHeading(t *testing.T) {
	b, pkg := load(t, ooxmltest.Fixture{Body: ooxmltest.P("Heading1", "Purpose")})

	id, created := b.EnsureHeading("PURPOSE", 1)
	assert.False(t, created)
	assert.Equal(t, "Purpose", b.Text(id))

	id, created = b.EnsureHeading("Scope", 2)
	assert.True(t, created)
	assert.Equal(t, "heading 2", b.StyleName(id))

	got := reload(t, b, pkg)
	assert.Equal(t, []string{"Purpose", "Scope"}, texts(got))
}

func TestFindTables(t *testing.T) {
	b, _ := load(t, ooxmltest.Fixture{Body: ooxmltest.Table([]string{"Document ID", "X"}) +
		ooxmltest.P("Heading1", "Revision History") +
		ooxmltest.P("", "intro") +
		ooxmltest.Table([]string{"Version", "Date"})})

	tbl, ok := b.FindTableAfterHeading("revision history")
	require.True(t, ok)
	assert.Equal(t, [][]string{{"Version", "Date"}}, b.Grid(tbl))

	_, ok = b.FindTableAfterHeading("Missing")
	assert.False(t, ok)

	ctl, ok := b.FindTableWithCell("document id")
	require.True(t, ok)
	assert.Equal(t, "X", b.Grid(ctl)[0][1])
}

func TestTable_ResizeAndFill(t *testing.T) {
	b, pkg := load(t, ooxmltest.Fixture{Body: ooxmltest.P("", "Register") +
		ooxmltest.Table([]string{"A", "B"}, []string{"old", "old"}, []string{"gone", "gone"}, []string{"gone", "gone"})})

	tbl := b.Tables()[0]
	assert.Equal(t, 2, b.ColumnCount(tbl))

	b.ResizeRows(tbl, 2)
	assert.Equal(t, 2, b.RowCount(tbl))
	b.ResizeRows(tbl, 4)
	assert.Equal(t, 4, b.RowCount(tbl))
	assert.Equal(t, []string{"", ""}, b.Grid(tbl)[3])

	for r, row := range [][]string{{"1", "2"}, {"3", "4"}, {"5", "6"}} {
		for c, v := range row {
			require.True(t, b.SetCellText(tbl, r+1, c, v))
		}
	}
	assert.False(t, b.SetCellText(tbl, 9, 0, "x"))

	got := reload(t, b, pkg)
	assert.Equal(t, [][]string{{"A", "B"}, {"1", "2"}, {"3", "4"}, {"5", "6"}}, got.Grid(got.Tables()[0]))
}

func TestRemove(t *testing.T) {
	b, pkg := load(t, ooxmltest.Fixture{Body: ooxmltest.P("", "keep") + ooxmltest.Table([]string{"x"}) + ooxmltest.P("", "tail")})
	tbl := b.Tables()[0]
	b.Remove(tbl)
	assert.Equal(t, body.KindOther, b.Kind(tbl))
	assert.Len(t, b.Nodes(), 2)

	got := reload(t, b, pkg)
	assert.Empty(t, got.Tables())
	assert.Equal(t, []string{"keep", "tail"}, texts(got))
}

func TestParagraph_RunsBreaksAndLinks(t *testing.T) {
	b, pkg := load(t, ooxmltest.Fixture{})
	id := b.AppendParagraph(body.ParaSpec{Runs: []doctree.Run{
		{Text: "see ", Bold: true},
		{Text: "policy", Hyperlink: "https://example.com/policy"},
		{Text: "\nnext\tcol"},
	}})
	assert.Equal(t, "see policy\nnext\tcol", b.Text(id))

	rels := b.Rels()
	var found bool
	for _, r := range rels.All() {
		if r.Type == ooxml.RelHyperlink && r.Target == "https://example.com/policy" {
			found = r.External()
		}
	}
	assert.True(t, found, "hyperlink relationship")

	p := b.Elem(id)
	require.NotNil(t, p.FindElement(".//w:hyperlink"))
	require.NotNil(t, p.FindElement("./w:r/w:rPr/w:b"))

	got := reload(t, b, pkg)
	assert.Equal(t, []string{"see policy\nnext\tcol"}, texts(got))
}

func TestStyleFallback(t *testing.T) {
	b, _ := load(t, ooxmltest.Fixture{})

	id := b.AppendParagraph(body.ParaSpec{Styles: b.Vocabulary().Heading(1), Text: "H"})
	assert.Equal(t, "heading 1", b.StyleName(id))

	id = b.AppendParagraph(body.ParaSpec{Styles: []string{"No Such Style"}, Text: "plain"})
	assert.Nil(t, b.Elem(id).SelectElement("w:pPr"))

	tbl := b.AppendTable(1, 1, []string{"TracWater table", "ISMS Table"})
	assert.Nil(t, b.Elem(tbl).FindElement("./w:tblPr/w:tblStyle"))
	assert.True(t, b.SetTableStyle(tbl, []string{"TracWater table", "Table Grid"}))
	assert.Equal(t, "Table Grid", b.StyleName(tbl))
}

func TestListParagraphs(t *testing.T) {
	b, _ := load(t, ooxmltest.Fixture{Numbering: ooxmltest.BulletDecimalNumbering})

	bullet := b.AppendParagraph(body.ParaSpec{Styles: b.Vocabulary().Bullet, Text: "a", List: doctree.KindBulletList})
	f, _, ok := b.ListInfo(bullet)
	require.True(t, ok)
	assert.Equal(t, "bullet", f)

	num := b.AppendParagraph(body.ParaSpec{Styles: b.Vocabulary().Numbered, Text: "b", List: doctree.KindNumberedList, Ilvl: 1})
	f, lvl, ok := b.ListInfo(num)
	require.True(t, ok)
	assert.Equal(t, "lowerLetter", f)
	assert.Equal(t, 1, lvl)
}

func TestBookmarks(t *testing.T) {
	b, pkg := load(t, ooxmltest.Fixture{Body: ooxmltest.P("Heading1", "Purpose")})
	id := b.Paragraphs()[0]
	b.AddBookmark(id, "_sec_purpose")
	b.AddBookmark(id, "_sec_purpose")
	assert.Equal(t, []string{"_sec_purpose"}, b.Bookmarks(id))
	assert.Equal(t, "Purpose", b.Text(id))

	got := reload(t, b, pkg)
	found, ok := got.FindBookmark("_sec_purpose")
	require.True(t, ok)
	assert.Equal(t, "Purpose", got.Text(found))
}

func TestAddSectionBookmark_LongKey(t *testing.T) {
	b, pkg := load(t, ooxmltest.Fixture{Body: ooxmltest.P("Heading1", "Supplier Relationship Security")})
	id := b.Paragraphs()[0]
	key := "supplier_relationship_information_security_requirements"

	name := b.AddSectionBookmark(id, key)
	assert.LessOrEqual(t, len(name), body.MaxBookmarkName)
	assert.True(t, strings.HasPrefix(name, body.SectionBookmarkPrefix+"supplier_"))
	assert.Equal(t, name, b.AddSectionBookmark(id, key), "a second call reuses the bookmark")
	assert.Len(t, b.Bookmarks(id), 1)

	got := reload(t, b, pkg)
	head, ok := got.FindBookmark(name)
	require.True(t, ok)
	k, ok := got.SectionKey(head)
	require.True(t, ok)
	assert.Equal(t, key, k)

	vars, err := ooxml.DocVars(pkg)
	require.NoError(t, err)
	assert.Equal(t, key, vars[name])
}

func TestAddSectionBookmark_RepeatedKey(t *testing.T) {
	b, pkg := load(t, ooxmltest.Fixture{Body: ooxmltest.P("Heading2", "Overview") + ooxmltest.P("Heading1", "Overview")})
	first, second := b.Paragraphs()[0], b.Paragraphs()[1]

	n1 := b.AddSectionBookmark(first, "overview")
	n2 := b.AddSectionBookmark(second, "overview")
	assert.Equal(t, "_sec_overview", n1)
	assert.NotEqual(t, n1, n2)
	assert.LessOrEqual(t, len(n2), body.MaxBookmarkName)

	got := reload(t, b, pkg)
	for _, id := range got.Paragraphs() {
		k, ok := got.SectionKey(id)
		require.True(t, ok)
		assert.Equal(t, "overview", k)
	}
}

func TestVocabulary_HeadingLevel(t *testing.T) {
	v := body.DefaultVocabulary()
	assert.Equal(t, 1, v.HeadingLevel("Heading 1"))
	assert.Equal(t, 3, v.HeadingLevel("ISMS Heading 3"))
	assert.Equal(t, 2, v.HeadingLevel("heading 2"))
	assert.Equal(t, 4, v.HeadingLevel("Custom Heading 4"))
	assert.Equal(t, 0, v.HeadingLevel("Normal"))
	assert.Equal(t, 0, v.HeadingLevel("Heading"))
	assert.True(t, v.IsCaption("caption"))

	w := v.WithTableStyle("House Table")
	assert.Equal(t, "House Table", w.Table[0])
	assert.Equal(t, "TracWater table", v.Table[0])
}
