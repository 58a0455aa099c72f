package props

import (
	"archive/zip"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/ismsdoc/internal/ooxml"
	"github.com/dgallion1/ismsdoc/internal/ooxml/ooxmltest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var modified = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

func sampleUpdate() Update {
	return Update{
		Core: map[CoreField]string{
			CoreTitle:          "Access Control Policy",
			CoreKeywords:       "POL-001;Policy",
			CoreLastModifiedBy: "ISMS Hybrid Generator",
		},
		Modified: modified,
		Custom: []Property{
			Text("DocID", "POL-001"),
			Text("Version", "1.0"),
			FileTime("NextReviewDate", time.Date(2027, 1, 31, 0, 0, 0, 0, time.UTC)),
		},
	}
}

func rawEntry(t *testing.T, path, name string) []byte {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()
	for _, f := range zr.File {
		if f.Name == name {
			rc, err := f.OpenRaw()
			require.NoError(t, err)
			b, err := io.ReadAll(rc)
			require.NoError(t, err)
			return b
		}
	}
	t.Fatalf("%s not in %s", name, path)
	return nil
}

func TestPatch_Idempotent(t *testing.T) {
	path := ooxmltest.Fixture{Body: ooxmltest.P("", "hello")}.WriteFile(t, t.TempDir(), "doc.docx")
	p := NewPatcher(1, time.Millisecond, nil)

	_, err := p.Patch(context.Background(), path, sampleUpdate())
	require.NoError(t, err)
	core1 := ooxmltest.ReadPart(t, path, ooxml.PartCore)
	custom1 := ooxmltest.ReadPart(t, path, ooxml.PartCustom)

	_, err = p.Patch(context.Background(), path, sampleUpdate())
	require.NoError(t, err)
	assert.Equal(t, string(core1), string(ooxmltest.ReadPart(t, path, ooxml.PartCore)))
	assert.Equal(t, string(custom1), string(ooxmltest.ReadPart(t, path, ooxml.PartCustom)))

	assert.Contains(t, string(core1), `<dc:title>Access Control Policy</dc:title>`)
	assert.Contains(t, string(core1), `xsi:type="dcterms:W3CDTF"`)
	assert.Contains(t, string(core1), `2026-03-01T09:30:00Z`)
	assert.Contains(t, string(custom1), `<vt:filetime>2027-01-31T00:00:00Z</vt:filetime>`)
	assert.Equal(t, 1, strings.Count(string(custom1), `name="DocID"`))
}

func TestPatch_KeepsFileMode(t *testing.T) {
	path := ooxmltest.Fixture{Body: ooxmltest.P("", "hello")}.WriteFile(t, t.TempDir(), "doc.docx")
	require.NoError(t, os.Chmod(path, 0o640))

	_, err := NewPatcher(1, time.Millisecond, nil).Patch(context.Background(), path, Update{Custom: []Property{Text("DocID", "POL-001")}})
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())
}

func TestPatch_OtherEntriesCopiedRaw(t *testing.T) {
	path := ooxmltest.Fixture{Body: ooxmltest.P("Heading1", "Scope")}.WriteFile(t, t.TempDir(), "doc.docx")
	before := map[string][]byte{}
	for _, name := range []string{ooxml.PartDocument, ooxml.PartStyles, ooxml.PartDocumentRels} {
		before[name] = rawEntry(t, path, name)
	}

	_, err := NewPatcher(1, time.Millisecond, nil).Patch(context.Background(), path, sampleUpdate())
	require.NoError(t, err)

	for name, raw := range before {
		assert.Equal(t, raw, rawEntry(t, path, name), name)
	}
}

func TestPatch_CreatesCustomPart(t *testing.T) {
	path := ooxmltest.Fixture{}.WriteFile(t, t.TempDir(), "doc.docx")

	_, err := NewPatcher(1, time.Millisecond, nil).Patch(context.Background(), path, Update{Custom: []Property{Text("Owner", "CISO")}})
	require.NoError(t, err)

	pkg, err := ooxml.Open(path)
	require.NoError(t, err)
	defer pkg.Close()
	assert.Equal(t, ooxml.CTCustomProps, pkg.ContentTypes().Lookup("/docProps/custom.xml"))
	rels, err := pkg.Rels(ooxml.PartPackageRels, false)
	require.NoError(t, err)
	rel, ok := rels.FirstOfType(ooxml.RelCustomProps)
	require.True(t, ok)
	assert.Equal(t, "docProps/custom.xml", rel.Target)

	got, err := ReadPackage(pkg)
	require.NoError(t, err)
	v, ok := got.CustomValue("owner")
	require.True(t, ok)
	assert.Equal(t, "CISO", v)

	// The core part was not asked for and keeps its fixture title.
	title, ok := got.CoreValue(CoreTitle)
	require.True(t, ok)
	assert.Equal(t, "Fixture", title)
}

func TestPatch_KeepsExistingPropertiesAndPIDs(t *testing.T) {
	path := ooxmltest.Fixture{Custom: `<property fmtid="` + FMTID + `" pid="5" name="Status"><vt:lpwstr>Draft</vt:lpwstr></property>` +
		`<property fmtid="` + FMTID + `" pid="2" name="Owner"><vt:lpwstr>IT</vt:lpwstr></property>`,
	}.WriteFile(t, t.TempDir(), "doc.docx")

	_, err := NewPatcher(1, time.Millisecond, nil).Patch(context.Background(), path, Update{Custom: []Property{
		Text("Status", "Approved"),
		Text("DocID", "REC-9"),
	}})
	require.NoError(t, err)

	custom := string(ooxmltest.ReadPart(t, path, ooxml.PartCustom))
	assert.Contains(t, custom, `pid="5" name="Status"><vt:lpwstr>Approved</vt:lpwstr>`)
	assert.Contains(t, custom, `pid="6" name="DocID"`)
	assert.Less(t, strings.Index(custom, `name="Status"`), strings.Index(custom, `name="Owner"`))
}

func TestPatch_LockedTargetFallsBack(t *testing.T) {
	dir := t.TempDir()
	path := ooxmltest.Fixture{}.WriteFile(t, dir, "report.docx")
	original, err := os.ReadFile(path)
	require.NoError(t, err)

	p := NewPatcher(3, time.Millisecond, nil)
	calls := 0
	p.rename = func(oldpath, newpath string) error {
		if newpath == path {
			calls++
			return &fs.PathError{Op: "rename", Path: newpath, Err: fs.ErrPermission}
		}
		return os.Rename(oldpath, newpath)
	}

	res, err := p.Patch(context.Background(), path, Update{Custom: []Property{Text("DocID", "X")}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrReplaceExhausted))
	var ae *ooxml.ArchiveError
	assert.True(t, errors.As(err, &ae))
	assert.Equal(t, 3, calls)

	assert.True(t, res.Fallback)
	assert.Equal(t, filepath.Join(dir, "report_props.docx"), res.Path)
	assert.Contains(t, string(ooxmltest.ReadPart(t, res.Path, ooxml.PartCustom)), "DocID")

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, after, "target must be untouched")

	leftovers, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestPatch_OtherRenameErrorsAreFatal(t *testing.T) {
	dir := t.TempDir()
	path := ooxmltest.Fixture{}.WriteFile(t, dir, "report.docx")

	p := NewPatcher(5, time.Millisecond, nil)
	p.rename = func(string, string) error { return errors.New("disk on fire") }

	res, err := p.Patch(context.Background(), path, Update{Custom: []Property{Text("DocID", "X")}})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrReplaceExhausted))
	assert.False(t, res.Fallback)
	_, statErr := os.Stat(FallbackPath(path, ""))
	assert.True(t, os.IsNotExist(statErr))
}

func TestPatch_ContextCancelStopsRetry(t *testing.T) {
	path := ooxmltest.Fixture{}.WriteFile(t, t.TempDir(), "report.docx")
	p := NewPatcher(10, time.Hour, nil)
	p.rename = func(string, string) error { return fs.ErrPermission }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Patch(ctx, path, Update{Custom: []Property{Text("DocID", "X")}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseFileTime(t *testing.T) {
	p, err := ParseFileTime("NextReviewDate", "2027-01-31")
	require.NoError(t, err)
	assert.Equal(t, "2027-01-31T00:00:00Z", p.vtText())

	p, err = ParseFileTime("Modified", "2027-01-31T10:00:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, "2027-01-31T08:00:00Z", p.vtText())

	_, err = ParseFileTime("Bad", "next tuesday")
	assert.Error(t, err)
}

func TestParseCoreField(t *testing.T) {
	f, err := ParseCoreField("dc:title")
	require.NoError(t, err)
	assert.Equal(t, CoreTitle, f)
	f, err = ParseCoreField("lastmodifiedby")
	require.NoError(t, err)
	assert.Equal(t, CoreLastModifiedBy, f)
	_, err = ParseCoreField("colour")
	assert.Error(t, err)
}

func TestFallbackPath(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "report_props.docx"), FallbackPath(filepath.Join("out", "report.docx"), ""))
	assert.Equal(t, "a_x.docx", FallbackPath("a.docx", "_x"))
}
