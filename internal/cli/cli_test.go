package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/dgallion1/ismsdoc/internal/doctree"
	"github.com/dgallion1/ismsdoc/internal/ooxml/ooxmltest"
	"github.com/dgallion1/ismsdoc/internal/props"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// env isolates the command from the caller's environment and returns the
// output directory.
func env(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("OUTPUT_DIR", dir)
	t.Setenv("TEMPLATE_PATH", "")
	t.Setenv("PROFILE", "")
	t.Setenv("DEFAULT_TABLE_STYLE", "")
	t.Setenv("LAST_MODIFIED_BY", "")
	t.Setenv("REPLACE_BACKOFF", "1ms")
	return dir
}

func run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func initModel(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "model.json")
	_, _, err := run(t, "init", path, "--doc-id", "POL-ISMS-001", "--title", "Information Security Policy", "--owner", "CISO")
	require.NoError(t, err)
	return path
}

func generated(t *testing.T, dir string) string {
	t.Helper()
	model := initModel(t, dir)
	out := filepath.Join(dir, "policy.docx")
	stdout, _, err := run(t, "generate", model, "-o", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "wrote "+out)
	return out
}

func TestInitThenValidate(t *testing.T) {
	dir := env(t)
	model := initModel(t, dir)

	out, _, err := run(t, "validate", model)
	require.NoError(t, err)
	assert.Contains(t, out, "POL-ISMS-001: valid standard profile")

	_, _, err = run(t, "init", model, "--doc-id", "POL-ISMS-001")
	assert.Error(t, err, "init must not overwrite without --force")
	_, _, err = run(t, "init", model, "--doc-id", "POL-ISMS-002", "--force")
	assert.NoError(t, err)

	doc, err := loadModel(model)
	require.NoError(t, err)
	assert.Equal(t, "POL-ISMS-002", doc.Metadata.DocID)
	assert.Equal(t, doctree.StatusDraft, doc.Metadata.Status)
}

func TestValidate_ReportsMissingSections(t *testing.T) {
	dir := env(t)
	path := filepath.Join(dir, "bare.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"metadata": {"doc_id": "REC-001", "version": "1", "doc_type": "Record", "status": "Draft"},
		"sections": []
	}`), 0o644))

	out, _, err := run(t, "validate", path)
	require.Error(t, err)
	var se *doctree.ShapeError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, se.Missing, doctree.KeyPurpose)
	assert.Contains(t, out, "missing sections:")
}

func TestValidate_BadProfile(t *testing.T) {
	dir := env(t)
	model := initModel(t, dir)
	_, _, err := run(t, "validate", model, "--profile", "bogus")
	assert.Error(t, err)
}

func TestGenerate_DefaultOutputPath(t *testing.T) {
	dir := env(t)
	model := initModel(t, dir)

	_, _, err := run(t, "generate", model)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "POL-ISMS-001_v0.1.docx"))
}

func TestGenerate_ThenShowProps(t *testing.T) {
	dir := env(t)
	docx := generated(t, dir)

	out, _, err := run(t, "props", "show", docx, "--json")
	require.NoError(t, err)
	var p props.Properties
	require.NoError(t, json.Unmarshal([]byte(out), &p))

	title, ok := p.CoreValue(props.CoreTitle)
	require.True(t, ok)
	assert.Equal(t, "Information Security Policy", title)
	id, ok := p.CustomValue("DocID")
	require.True(t, ok)
	assert.Equal(t, "POL-ISMS-001", id)

	text, _, err := run(t, "props", "show", docx)
	require.NoError(t, err)
	assert.Contains(t, text, "SCOPE")
	assert.Contains(t, text, "POL-ISMS-001")
}

func TestGenerate_ImportRoundTrip(t *testing.T) {
	dir := env(t)
	docx := generated(t, dir)

	out, _, err := run(t, "import", docx)
	require.NoError(t, err)
	doc, err := doctree.Decode([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, "POL-ISMS-001", doc.Metadata.DocID)
	assert.Equal(t, "Information Security Policy", doc.Metadata.Title)
	assert.NotNil(t, doc.Section(doctree.KeyPurpose))

	modelPath := filepath.Join(dir, "imported.json")
	_, stderr, err := run(t, "import", docx, "-o", modelPath, "--validate")
	require.NoError(t, err)
	assert.Contains(t, stderr, "wrote "+modelPath)
	assert.FileExists(t, modelPath)
}

func TestImport_Unsupported(t *testing.T) {
	dir := env(t)
	path := filepath.Join(dir, "notes.xyz")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))
	_, _, err := run(t, "import", path)
	assert.Error(t, err)
}

func TestPropsSet(t *testing.T) {
	dir := env(t)
	docx := generated(t, dir)

	out, _, err := run(t, "props", "set", docx,
		"--core", "dc:title=Access Control Policy",
		"--custom", "Reviewer=Ops Team",
		"--filetime", "NextReviewDate=2027-01-31",
		"--touch")
	require.NoError(t, err)
	assert.Contains(t, out, "updated "+docx)

	p, err := props.Read(docx)
	require.NoError(t, err)
	title, _ := p.CoreValue(props.CoreTitle)
	assert.Equal(t, "Access Control Policy", title)
	reviewer, _ := p.CustomValue("Reviewer")
	assert.Equal(t, "Ops Team", reviewer)
	next, ok := p.CustomValue("NextReviewDate")
	require.True(t, ok)
	assert.Contains(t, next, "2027-01-31")
	id, _ := p.CustomValue("DocID")
	assert.Equal(t, "POL-ISMS-001", id, "untouched properties survive")
}

func TestPropsSet_Errors(t *testing.T) {
	dir := env(t)
	docx := generated(t, dir)

	_, _, err := run(t, "props", "set", docx)
	assert.ErrorContains(t, err, "nothing to set")
	_, _, err = run(t, "props", "set", docx, "--core", "colour=blue")
	assert.Error(t, err)
	_, _, err = run(t, "props", "set", docx, "--custom", "novalue")
	assert.Error(t, err)
	_, _, err = run(t, "props", "set", docx, "--filetime", "Due=soon")
	assert.Error(t, err)
}

func TestTablesApply(t *testing.T) {
	dir := env(t)
	docx := ooxmltest.Fixture{Body: ooxmltest.P("Heading1", "Equipment Register") +
		ooxmltest.Table([]string{"Old A", "Old B"}, []string{"x", "y"}) +
		ooxmltest.P("", "after")}.WriteFile(t, dir, "register.docx")

	specs := filepath.Join(dir, "specs.json")
	require.NoError(t, os.WriteFile(specs, []byte(`[
		{"name": "equipment", "after_heading": "Equipment Register",
		 "columns": ["Item", "Serial", "Notes"],
		 "rows": [["PS3 Meter", "SN-123"], {"Item": "H2S Sensor", "Notes": "baseline"}]}
	]`), 0o644))

	out, _, err := run(t, "tables", "apply", docx, specs)
	require.NoError(t, err)
	assert.Contains(t, out, "equipment: replaced")

	xml := string(ooxmltest.ReadPart(t, docx, "word/document.xml"))
	assert.Contains(t, xml, "PS3 Meter")
	assert.Contains(t, xml, "baseline")
	assert.NotContains(t, xml, "Old A")
}

func TestTablesApply_ModelWrapperAndOut(t *testing.T) {
	dir := env(t)
	docx := ooxmltest.Fixture{Body: ooxmltest.P("", "intro")}.WriteFile(t, dir, "blank.docx")
	specs := filepath.Join(dir, "model.json")
	require.NoError(t, os.WriteFile(specs, []byte(`{"dynamic_tables": [
		{"name": "contacts", "after_heading": "Contacts", "create_if_missing": true,
		 "columns": ["Name", "Phone"], "rows": [["Duty Officer", "555-0100"]]},
		{"name": "absent", "label": "Nowhere", "columns": ["A"], "rows": []}
	]}`), 0o644))

	dest := filepath.Join(dir, "filled.docx")
	out, _, err := run(t, "tables", "apply", docx, specs, "-o", dest)
	require.NoError(t, err)
	assert.Contains(t, out, "contacts: created")
	assert.Contains(t, out, "absent: skipped")

	assert.Contains(t, string(ooxmltest.ReadPart(t, dest, "word/document.xml")), "Duty Officer")
	assert.NotContains(t, string(ooxmltest.ReadPart(t, docx, "word/document.xml")), "Duty Officer")
}

func TestLoadTableSpecs_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, os.WriteFile(path, []byte(`[]`), 0o644))
	_, err := loadTableSpecs(path)
	assert.Error(t, err)
}
