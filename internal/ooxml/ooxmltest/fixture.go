// Package ooxmltest builds small .docx packages in memory for tests.
package ooxmltest

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const nsDecl = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" ` +
	`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"`

// Rel is a document relationship to include in word/_rels/document.xml.rels.
type Rel struct {
	ID       string
	Type     string
	Target   string
	External bool
}

// HyperlinkRel is an external hyperlink relationship.
func HyperlinkRel(id, url string) Rel {
	return Rel{ID: id, Type: "http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink", Target: url, External: true}
}

// Fixture describes a package. Empty fields get sensible defaults; Numbering
// and Custom parts are only written when set.
type Fixture struct {
	Body      string // children of w:body
	Styles    string // children of w:styles; DefaultStyles when empty
	Numbering string // children of w:numbering
	Rels      []Rel
	Core      string // children of cp:coreProperties
	Custom    string // children of the custom Properties root
	Extra     map[string]string
}

// DefaultStyles declares the paragraph, list, caption and table styles the
// importer and renderer look for.
func DefaultStyles() string {
	var b strings.Builder
	b.WriteString(`<w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/></w:style>`)
	b.WriteString(`<w:style w:type="paragraph" w:styleId="Title"><w:name w:val="Title"/></w:style>`)
	for i := 1; i <= 5; i++ {
		fmt.Fprintf(&b, `<w:style w:type="paragraph" w:styleId="Heading%d"><w:name w:val="heading %d"/></w:style>`, i, i)
	}
	b.WriteString(`<w:style w:type="paragraph" w:styleId="ListParagraph"><w:name w:val="List Paragraph"/></w:style>`)
	b.WriteString(`<w:style w:type="paragraph" w:styleId="ListBullet"><w:name w:val="List Bullet"/></w:style>`)
	b.WriteString(`<w:style w:type="paragraph" w:styleId="ListNumber"><w:name w:val="List Number"/></w:style>`)
	b.WriteString(`<w:style w:type="paragraph" w:styleId="Caption"><w:name w:val="caption"/></w:style>`)
	b.WriteString(`<w:style w:type="table" w:styleId="TableGrid"><w:name w:val="Table Grid"/></w:style>`)
	return b.String()
}

// BulletDecimalNumbering defines numId 1 as bullets and numId 2 as decimal.
const BulletDecimalNumbering = `<w:abstractNum w:abstractNumId="10"><w:lvl w:ilvl="0"><w:numFmt w:val="bullet"/></w:lvl></w:abstractNum>` +
	`<w:abstractNum w:abstractNumId="11"><w:lvl w:ilvl="0"><w:numFmt w:val="decimal"/></w:lvl><w:lvl w:ilvl="1"><w:numFmt w:val="lowerLetter"/></w:lvl></w:abstractNum>` +
	`<w:num w:numId="1"><w:abstractNumId w:val="10"/></w:num>` +
	`<w:num w:numId="2"><w:abstractNumId w:val="11"/></w:num>`

// P builds a paragraph with an optional style id and one plain run.
func P(styleID, text string) string {
	ppr := ""
	if styleID != "" {
		ppr = fmt.Sprintf(`<w:pPr><w:pStyle w:val="%s"/></w:pPr>`, styleID)
	}
	return fmt.Sprintf(`<w:p>%s%s</w:p>`, ppr, R(text))
}

// ListP builds a paragraph carrying w:numPr.
func ListP(styleID string, numID, ilvl int, text string) string {
	style := ""
	if styleID != "" {
		style = fmt.Sprintf(`<w:pStyle w:val="%s"/>`, styleID)
	}
	return fmt.Sprintf(`<w:p><w:pPr>%s<w:numPr><w:ilvl w:val="%d"/><w:numId w:val="%d"/></w:numPr></w:pPr>%s</w:p>`,
		style, ilvl, numID, R(text))
}

// R builds a plain run.
func R(text string) string {
	if text == "" {
		return ""
	}
	return fmt.Sprintf(`<w:r><w:t xml:space="preserve">%s</w:t></w:r>`, html.EscapeString(text))
}

// Table builds a w:tbl with one paragraph per cell.
func Table(rows ...[]string) string {
	var b strings.Builder
	b.WriteString(`<w:tbl><w:tblPr><w:tblStyle w:val="TableGrid"/></w:tblPr><w:tblGrid>`)
	width := 0
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}
	for i := 0; i < width; i++ {
		b.WriteString(`<w:gridCol w:w="2000"/>`)
	}
	b.WriteString(`</w:tblGrid>`)
	for _, r := range rows {
		b.WriteString(`<w:tr>`)
		for _, c := range r {
			fmt.Fprintf(&b, `<w:tc><w:tcPr><w:tcW w:w="2000" w:type="dxa"/></w:tcPr><w:p>%s</w:p></w:tc>`, R(c))
		}
		b.WriteString(`</w:tr>`)
	}
	b.WriteString(`</w:tbl>`)
	return b.String()
}

// Bytes renders the fixture as a zip.
func (f Fixture) Bytes(t testing.TB) []byte {
	t.Helper()
	parts := map[string]string{}
	order := []string{"[Content_Types].xml", "_rels/.rels", "word/document.xml", "word/_rels/document.xml.rels", "word/styles.xml", "docProps/core.xml"}

	overrides := []string{
		`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>`,
		`<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>`,
		`<Override PartName="/docProps/core.xml" ContentType="application/vnd.openxmlformats-package.core-properties+xml"/>`,
	}
	pkgRels := []string{
		`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>`,
		`<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties" Target="docProps/core.xml"/>`,
	}
	docRels := []string{
		`<Relationship Id="rIdStyles" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>`,
	}

	if f.Numbering != "" {
		parts["word/numbering.xml"] = fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?><w:numbering %s>%s</w:numbering>`, nsDecl, f.Numbering)
		order = append(order, "word/numbering.xml")
		overrides = append(overrides, `<Override PartName="/word/numbering.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.numbering+xml"/>`)
		docRels = append(docRels, `<Relationship Id="rIdNumbering" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/numbering" Target="numbering.xml"/>`)
	}
	if f.Custom != "" {
		parts["docProps/custom.xml"] = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<Properties xmlns="http://schemas.openxmlformats.org/officeDocument/2006/custom-properties" ` +
			`xmlns:vt="http://schemas.openxmlformats.org/officeDocument/2006/docPropsVTypes">` + f.Custom + `</Properties>`
		order = append(order, "docProps/custom.xml")
		overrides = append(overrides, `<Override PartName="/docProps/custom.xml" ContentType="application/vnd.openxmlformats-officedocument.custom-properties+xml"/>`)
		pkgRels = append(pkgRels, `<Relationship Id="rId3" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/custom-properties" Target="docProps/custom.xml"/>`)
	}
	for _, r := range f.Rels {
		mode := ""
		if r.External {
			mode = ` TargetMode="External"`
		}
		docRels = append(docRels, fmt.Sprintf(`<Relationship Id="%s" Type="%s" Target="%s"%s/>`,
			r.ID, r.Type, html.EscapeString(r.Target), mode))
	}

	parts["[Content_Types].xml"] = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
		`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
		`<Default Extension="xml" ContentType="application/xml"/>` +
		strings.Join(overrides, "") + `</Types>`
	parts["_rels/.rels"] = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
		strings.Join(pkgRels, "") + `</Relationships>`
	parts["word/_rels/document.xml.rels"] = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
		strings.Join(docRels, "") + `</Relationships>`
	parts["word/document.xml"] = fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`+
		`<w:document %s><w:body>%s<w:sectPr><w:pgSz w:w="11906" w:h="16838"/></w:sectPr></w:body></w:document>`, nsDecl, f.Body)

	styles := f.Styles
	if styles == "" {
		styles = DefaultStyles()
	}
	parts["word/styles.xml"] = fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?><w:styles %s>%s</w:styles>`, nsDecl, styles)

	core := f.Core
	if core == "" {
		core = `<dc:title>Fixture</dc:title>`
	}
	parts["docProps/core.xml"] = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" ` +
		`xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/" ` +
		`xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">` + core + `</cp:coreProperties>`

	for name, body := range f.Extra {
		parts[name] = body
		order = append(order, name)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range order {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(parts[name])); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

// WriteFile writes the fixture into dir and returns its path.
func (f Fixture) WriteFile(t testing.TB, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, f.Bytes(t), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

// ReadPart returns the uncompressed bytes of one entry of a zip on disk.
func ReadPart(t testing.TB, path, part string) []byte {
	t.Helper()
	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer zr.Close()
	for _, f := range zr.File {
		if f.Name != part {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", part, err)
		}
		defer rc.Close()
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(rc); err != nil {
			t.Fatalf("read %s: %v", part, err)
		}
		return buf.Bytes()
	}
	t.Fatalf("%s not found in %s", part, path)
	return nil
}
