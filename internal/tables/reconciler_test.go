package tables_test

import (
	"testing"

	"github.com/dgallion1/ismsdoc/internal/body"
	"github.com/dgallion1/ismsdoc/internal/doctree"
	"github.com/dgallion1/ismsdoc/internal/ooxml"
	"github.com/dgallion1/ismsdoc/internal/ooxml/ooxmltest"
	"github.com/dgallion1/ismsdoc/internal/tables"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T, bodyXML string) (*body.Body, *ooxml.Package) {
	t.Helper()
	pkg, err := ooxml.OpenBytes(ooxmltest.Fixture{Body: bodyXML}.Bytes(t))
	require.NoError(t, err)
	b, err := body.Load(pkg, body.DefaultVocabulary(), nil)
	require.NoError(t, err)
	return b, pkg
}

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

func equipmentSpec() doctree.DynamicTable {
	return doctree.DynamicTable{
		Name:            "equipment",
		AfterHeading:    "Equipment Register",
		CreateIfMissing: true,
		Columns:         []string{"Item", "Serial", "Notes"},
		Rows: []doctree.Row{
			doctree.ListRow("PS3 Meter", "SN-123"),
			doctree.MapRow(map[string]string{"Item": "H2S Sensor", "Notes": "baseline"}),
			doctree.ScalarRow("spare"),
		},
	}
}

func TestApply_ReplacesNarrowerTable(t *testing.T) {
	b, pkg := load(t, ooxmltest.P("Heading1", "Equipment Register")+
		ooxmltest.Table([]string{"Old A", "Old B"}, []string{"x", "y"})+
		ooxmltest.P("", "after"))

	res, err := tables.NewReconciler(nil).Apply(b, equipmentSpec())
	require.NoError(t, err)
	assert.True(t, res.Replaced)
	assert.False(t, res.Created)

	got := reload(t, b, pkg)
	require.Len(t, got.Tables(), 1)
	tbl := got.Tables()[0]
	assert.Equal(t, 3, got.ColumnCount(tbl))
	assert.Equal(t, [][]string{
		{"Item", "Serial", "Notes"},
		{"PS3 Meter", "SN-123", ""},
		{"H2S Sensor", "", "baseline"},
		{"spare", "", ""},
	}, got.Grid(tbl))

	// The table still sits between the heading and the following paragraph.
	var order []string
	for _, id := range got.Nodes() {
		order = append(order, got.Kind(id).String())
	}
	assert.Equal(t, []string{"paragraph", "table", "paragraph"}, order)
}

func TestApply_Idempotent(t *testing.T) {
	b, pkg := load(t, ooxmltest.P("Heading1", "Equipment Register"))
	r := tables.NewReconciler(nil)

	res, err := r.Apply(b, equipmentSpec())
	require.NoError(t, err)
	require.True(t, res.Created)
	first := b.Grid(res.Table)

	res, err = r.Apply(b, equipmentSpec())
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.False(t, res.Replaced)
	assert.Equal(t, first, b.Grid(res.Table))

	got := reload(t, b, pkg)
	assert.Len(t, got.Tables(), 1)
	assert.Equal(t, first, got.Grid(got.Tables()[0]))
}

func TestApply_LabelOnlyIdempotent(t *testing.T) {
	b, pkg := load(t, ooxmltest.P("", "intro"))
	r := tables.NewReconciler(nil)
	spec := doctree.DynamicTable{
		Name:            "assets",
		Label:           "Asset Register",
		CreateIfMissing: true,
		Columns:         []string{"Asset", "Owner"},
		Rows:            []doctree.Row{doctree.ListRow("Laptop", "IT")},
	}

	res, err := r.Apply(b, spec)
	require.NoError(t, err)
	require.True(t, res.Created)
	first := res.Table

	res, err = r.Apply(b, spec)
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.False(t, res.Replaced)
	assert.Equal(t, first, res.Table)
	assert.Len(t, b.Tables(), 1)

	got := reload(t, b, pkg)
	require.Len(t, got.Tables(), 1)
	assert.Equal(t, [][]string{{"Asset", "Owner"}, {"Laptop", "IT"}}, got.Grid(got.Tables()[0]))
	var headings int
	for _, id := range got.Paragraphs() {
		if got.Text(id) == "Asset Register" {
			headings++
		}
	}
	assert.Equal(t, 1, headings)
}

func TestApply_TrimsExtraRows(t *testing.T) {
	b, _ := load(t, ooxmltest.P("Heading1", "Register")+
		ooxmltest.Table([]string{"A"}, []string{"1"}, []string{"2"}, []string{"3"}))

	res, err := tables.NewReconciler(nil).Apply(b, doctree.DynamicTable{
		AfterHeading: "Register",
		Columns:      []string{"A"},
		Rows:         []doctree.Row{doctree.ListRow("only")},
	})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"A"}, {"only"}}, b.Grid(res.Table))
}

func TestApply_SkipsWhenMissing(t *testing.T) {
	b, _ := load(t, ooxmltest.P("", "nothing here"))
	spec := equipmentSpec()
	spec.CreateIfMissing = false

	res, err := tables.NewReconciler(nil).Apply(b, spec)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Empty(t, b.Tables())
}

func TestApply_CreatesHeadingAndCaption(t *testing.T) {
	b, pkg := load(t, ooxmltest.P("", "intro"))
	spec := equipmentSpec()
	spec.Heading = "Installed equipment"

	res, err := tables.NewReconciler(nil).Apply(b, spec)
	require.NoError(t, err)
	assert.True(t, res.Created)

	got := reload(t, b, pkg)
	var texts []string
	for _, id := range got.Paragraphs() {
		texts = append(texts, got.Text(id))
	}
	assert.Equal(t, []string{"intro", "Equipment Register", "Installed equipment"}, texts)
	assert.Equal(t, "heading 2", got.StyleName(got.Paragraphs()[1]))
	assert.Equal(t, "Table Grid", got.StyleName(got.Tables()[0]))
}

func TestApply_FallsBackToLabel(t *testing.T) {
	b, _ := load(t, ooxmltest.Table([]string{"Risk Register", ""}, []string{"r1", "low"}))

	res, err := tables.NewReconciler(nil).Apply(b, doctree.DynamicTable{
		Label:   "risk register",
		Columns: []string{"Risk", "Rating"},
		Rows:    []doctree.Row{doctree.ListRow("flood", "high")},
	})
	require.NoError(t, err)
	assert.False(t, res.Replaced)
	assert.Equal(t, [][]string{{"Risk", "Rating"}, {"flood", "high"}}, b.Grid(res.Table))
}

func TestApply_RequiresTarget(t *testing.T) {
	b, _ := load(t, "")
	_, err := tables.NewReconciler(nil).Apply(b, doctree.DynamicTable{Name: "x"})
	assert.Error(t, err)
}

func TestControlTable_UpsertsLabels(t *testing.T) {
	b, _ := load(t, ooxmltest.P("Heading1", "Document Control")+
		ooxmltest.Table([]string{"Document ID:", "old"}, []string{"Approver", ""}))

	meta := doctree.Metadata{
		DocID: "POL-001", Title: "Access Control", DocType: doctree.DocTypePolicy, Version: "1.0",
		Status: doctree.StatusApproved, Owner: "CISO", Approver: "Board", Confidentiality: "Internal",
	}
	res := tables.NewReconciler(nil).ControlTable(b, meta, nil)
	require.False(t, res.Skipped)

	grid := b.Grid(res.Table)
	assert.Equal(t, []string{"Document ID:", "POL-001"}, grid[0])
	assert.Equal(t, []string{"Approver", "Board"}, grid[1])
	assert.Len(t, grid, len(tables.DefaultControlLabels()))

	// A second pass adds nothing.
	tables.NewReconciler(nil).ControlTable(b, meta, nil)
	assert.Equal(t, grid, b.Grid(res.Table))
}

func TestControlTable_WidensSingleColumn(t *testing.T) {
	b, _ := load(t, ooxmltest.Table([]string{"Document Control"}))
	res := tables.NewReconciler(nil).ControlTable(b, doctree.Metadata{DocID: "REC-1"}, tables.ControlLabels{
		tables.DefaultControlLabels()[0],
	})
	require.False(t, res.Skipped)
	assert.Equal(t, 2, b.ColumnCount(res.Table))
	assert.Equal(t, [][]string{{"Document Control", ""}, {"Document ID", "REC-1"}}, b.Grid(res.Table))
}

func TestKeyValue(t *testing.T) {
	b, _ := load(t, ooxmltest.P("Heading2", "Retention Period")+
		ooxmltest.Table([]string{"Minimum Retention", "1 year"}))
	r := tables.NewReconciler(nil)

	res, err := r.KeyValue(b, "Retention Period", []tables.Pair{
		{Key: "Minimum Retention", Value: "7 years"},
		{Key: "System of Record", Value: "SharePoint"},
	}, false)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Minimum Retention", "7 years"}, {"System of Record", "SharePoint"}}, b.Grid(res.Table))

	res, err = r.KeyValue(b, "Handling Requirements", []tables.Pair{{Key: "Storage", Value: "Encrypted"}}, false)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
}
