package parser

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/ismsdoc/internal/body"
	"github.com/dgallion1/ismsdoc/internal/doctree"
	"github.com/dgallion1/ismsdoc/internal/ooxml/ooxmltest"
	"github.com/dgallion1/ismsdoc/internal/props"
	"github.com/dgallion1/ismsdoc/internal/render"
)

func importFixture(t *testing.T, f ooxmltest.Fixture) *doctree.Document {
	t.Helper()
	doc, err := NewDOCXParser(DefaultOptions()).Parse(bytes.NewReader(f.Bytes(t)), "fixture.docx")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	return doc
}

func keys(secs []*doctree.Section) []string {
	out := make([]string, len(secs))
	for i, s := range secs {
		out[i] = s.Key
	}
	return out
}

func TestDOCXParser_BulletNumberingWinsOverStyleName(t *testing.T) {
	doc := importFixture(t, ooxmltest.Fixture{
		Numbering: ooxmltest.BulletDecimalNumbering,
		Body: ooxmltest.P("Heading1", "Purpose") +
			ooxmltest.ListP("ListNumber", 1, 0, "styled as numbered, numbered as bullet") +
			ooxmltest.ListP("", 1, 0, "second bullet") +
			ooxmltest.P("", "interruption") +
			ooxmltest.ListP("", 2, 0, "decimal") +
			ooxmltest.ListP("ListBullet", 0, 0, "numbering switched off"),
	})

	blocks := doc.Section("purpose").Content
	if len(blocks) != 4 {
		t.Fatalf("expected 4 blocks, got %d: %+v", len(blocks), blocks)
	}
	if blocks[0].Kind != doctree.KindBulletList {
		t.Fatalf("expected bullet_list, got %s", blocks[0].Kind)
	}
	if len(blocks[0].Items) != 2 {
		t.Errorf("consecutive bullets should merge, got %v", blocks[0].Items)
	}
	if blocks[1].Kind != doctree.KindParagraph || blocks[1].Text != "interruption" {
		t.Errorf("unexpected block: %+v", blocks[1])
	}
	if blocks[2].Kind != doctree.KindNumberedList {
		t.Errorf("expected numbered_list, got %s", blocks[2].Kind)
	}
	if blocks[3].Kind != doctree.KindParagraph {
		t.Errorf("numId 0 should not be a list, got %s", blocks[3].Kind)
	}
}

func TestDOCXParser_ListStyleHeuristic(t *testing.T) {
	doc := importFixture(t, ooxmltest.Fixture{
		Body: ooxmltest.P("Heading1", "Scope") +
			ooxmltest.P("ListBullet", "one") +
			ooxmltest.P("ListBullet", "two") +
			ooxmltest.P("ListNumber", "first"),
	})
	blocks := doc.Section("scope").Content
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %+v", blocks)
	}
	if blocks[0].Kind != doctree.KindBulletList || strings.Join(blocks[0].Items, ",") != "one,two" {
		t.Errorf("unexpected bullets: %+v", blocks[0])
	}
	if blocks[1].Kind != doctree.KindNumberedList {
		t.Errorf("unexpected numbered: %+v", blocks[1])
	}
}

func TestDOCXParser_HeadingStack(t *testing.T) {
	bookmarked := `<w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr>` +
		`<w:bookmarkStart w:id="0" w:name="_sec_scope"/>` + ooxmltest.R("Scope of Things") +
		`<w:bookmarkEnd w:id="0"/></w:p>`
	doc := importFixture(t, ooxmltest.Fixture{
		Styles: ooxmltest.DefaultStyles() +
			`<w:style w:type="paragraph" w:styleId="IsmsH2"><w:name w:val="ISMS Heading 2"/></w:style>`,
		Body: ooxmltest.P("", "Preamble") +
			ooxmltest.P("Heading1", "Purpose") +
			ooxmltest.P("Heading3", "Deep") +
			ooxmltest.P("Heading2", "Child") +
			ooxmltest.P("Heading2", "Child") +
			ooxmltest.P("Heading5", "Too Deep") +
			bookmarked +
			ooxmltest.P("IsmsH2", "Named"),
	})

	mandatory := doctree.StandardProfile().MandatoryKeys
	want := append(append([]string{}, mandatory...), "body")
	if got := keys(doc.Sections); !reflect.DeepEqual(got, want) {
		t.Fatalf("top-level keys:\n got %v\nwant %v", got, want)
	}

	if got := doc.Section("body").Content[0].Text; got != "Preamble" {
		t.Errorf("content before the first heading belongs to Body, got %q", got)
	}

	purpose := doc.Section("purpose")
	if got := keys(purpose.Children); !reflect.DeepEqual(got, []string{"deep", "child", "child_2"}) {
		t.Fatalf("purpose children: %v", got)
	}
	for _, c := range purpose.Children {
		if c.Level != 2 {
			t.Errorf("%s: expected level 2, got %d", c.Key, c.Level)
		}
	}
	demoted := purpose.Children[2].Content
	if len(demoted) != 1 || demoted[0].Text != "Too Deep" {
		t.Errorf("heading beyond max level should become a paragraph, got %+v", demoted)
	}

	scope := doc.Section("scope")
	if scope.Title != "Scope of Things" {
		t.Errorf("bookmark key should keep the heading title, got %q", scope.Title)
	}
	if len(scope.Children) != 1 || scope.Children[0].Title != "Named" || scope.Children[0].Level != 2 {
		t.Errorf("vocabulary heading style not recognised: %+v", scope.Children)
	}
	if len(scope.Content) != 0 {
		t.Errorf("backfill must not add text to an imported scope: %+v", scope.Content)
	}
}

func TestDOCXParser_Tables(t *testing.T) {
	doc := importFixture(t, ooxmltest.Fixture{
		Body: ooxmltest.P("Heading1", "Roles and Responsibilities") +
			ooxmltest.Table([]string{"", ""}, []string{"Name", "Role", ""}, []string{"", "", ""}, []string{" Ann ", "Lead"}) +
			ooxmltest.P("Caption", "Table 1: Team") +
			ooxmltest.Table([]string{"Only", "Row"}) +
			ooxmltest.Table([]string{"", ""}) +
			ooxmltest.P("Caption", "orphan"),
	})

	blocks := doc.Section("roles_and_responsibilities").Content
	if len(blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d: %+v", len(blocks), blocks)
	}
	team := blocks[0]
	if !reflect.DeepEqual(team.Header, []string{"Name", "Role"}) || !reflect.DeepEqual(team.Rows, [][]string{{"Ann", "Lead"}}) {
		t.Errorf("unexpected team table: %+v", team)
	}
	if team.Caption != "Table 1: Team" {
		t.Errorf("caption: got %q", team.Caption)
	}
	only := blocks[1]
	if only.Header != nil || !reflect.DeepEqual(only.Rows, [][]string{{"Only", "Row"}}) {
		t.Errorf("header-only table should move its row into the body: %+v", only)
	}
	if blocks[2].Kind != doctree.KindParagraph || blocks[2].Text != "orphan" {
		t.Errorf("caption after an ignored table is a paragraph: %+v", blocks[2])
	}
}

func TestDOCXParser_Hyperlinks(t *testing.T) {
	sep := ooxmltest.R(" | ")
	para := `<w:p>` +
		`<w:hyperlink r:id="rId9">` + ooxmltest.R("site") + `</w:hyperlink>` + sep +
		`<w:hyperlink w:anchor="purpose">` + ooxmltest.R("jump") + `</w:hyperlink>` + sep +
		`<w:fldSimple w:instr=" HYPERLINK &quot;https://f.example&quot; ">` + ooxmltest.R("field") + `</w:fldSimple>` + sep +
		`<w:r><w:fldChar w:fldCharType="begin"/></w:r>` +
		`<w:r><w:instrText xml:space="preserve"> HYPERLINK "https://c.example" \l "top" </w:instrText></w:r>` +
		`<w:r><w:fldChar w:fldCharType="separate"/></w:r>` + ooxmltest.R("complex") +
		`<w:r><w:fldChar w:fldCharType="end"/></w:r>` + sep +
		`<w:r><w:fldChar w:fldCharType="begin"/></w:r>` +
		`<w:r><w:instrText> HYPERLINK "https://loser.example" </w:instrText></w:r>` +
		`<w:r><w:fldChar w:fldCharType="separate"/></w:r>` +
		`<w:hyperlink r:id="rId9">` + ooxmltest.R("tie") + `</w:hyperlink>` +
		`<w:r><w:fldChar w:fldCharType="end"/></w:r>` + sep +
		`<w:r><w:rPr><w:b/></w:rPr><w:t>bold</w:t></w:r>` +
		`<w:r><w:rPr><w:b w:val="0"/><w:i/></w:rPr><w:t>italic</w:t></w:r>` +
		`</w:p>`
	doc := importFixture(t, ooxmltest.Fixture{
		Rels: []ooxmltest.Rel{ooxmltest.HyperlinkRel("rId9", "https://example.com")},
		Body: ooxmltest.P("Heading1", "Links") + para,
	})

	blk := doc.Section("links").Content[0]
	if blk.Text != "site | jump | field | complex | tie | bolditalic" {
		t.Fatalf("unexpected text %q", blk.Text)
	}
	got := map[string]doctree.Run{}
	for _, r := range blk.Runs {
		got[strings.TrimSpace(r.Text)] = r
	}
	want := map[string]string{
		"site":    "https://example.com",
		"jump":    "#purpose",
		"field":   "https://f.example",
		"complex": "https://c.example#top",
		"tie":     "https://example.com",
	}
	for text, link := range want {
		if got[text].Hyperlink != link {
			t.Errorf("%s: expected link %q, got %q", text, link, got[text].Hyperlink)
		}
	}
	if !got["bold"].Bold || got["bold"].Italic {
		t.Errorf("bold run: %+v", got["bold"])
	}
	if got["italic"].Bold || !got["italic"].Italic {
		t.Errorf("italic run: %+v", got["italic"])
	}
}

func TestHyperlinkTarget(t *testing.T) {
	tests := []struct {
		instr string
		want  string
	}{
		{` HYPERLINK "https://a.example" `, "https://a.example"},
		{`HYPERLINK \l "bm"`, "#bm"},
		{`HYPERLINK "https://a.example" \o "tip" \l "x"`, "https://a.example#x"},
		{`hyperlink https://bare.example`, "https://bare.example"},
		{`PAGEREF _Toc1 \h`, ""},
		{``, ""},
	}
	for _, tt := range tests {
		if got := hyperlinkTarget(tt.instr); got != tt.want {
			t.Errorf("hyperlinkTarget(%q) = %q, want %q", tt.instr, got, tt.want)
		}
	}
}

func TestDOCXParser_Metadata(t *testing.T) {
	prop := func(pid int, name, value string) string {
		return `<property fmtid="` + props.FMTID + `" pid="` + strconv.Itoa(pid) + `" name="` + name + `"><vt:lpwstr>` + value + `</vt:lpwstr></property>`
	}
	doc := importFixture(t, ooxmltest.Fixture{
		Core: `<dc:title>Imported Title</dc:title>`,
		Custom: prop(2, "DocID", "PRO-OPS-004") +
			prop(3, "Version", "2.1") +
			prop(4, "Status", "bogus") +
			prop(5, "DocumentType", "procedure") +
			prop(6, "Date completed", "2026-03-01") +
			prop(7, "NextReviewDate", "2026-13-45") +
			prop(8, "RelatedDocuments", "POL-1; POL-2;"),
		Body: ooxmltest.P("Heading1", "Purpose"),
	})

	m := doc.Metadata
	want := doctree.Metadata{
		DocID:            "PRO-OPS-004",
		Title:            "Imported Title",
		DocType:          doctree.DocTypeProcedure,
		Version:          "2.1",
		Status:           doctree.StatusDraft,
		Owner:            DefaultOwner,
		Confidentiality:  DefaultConfidentiality,
		DateCompleted:    "2026-03-01",
		RelatedDocuments: []string{"POL-1", "POL-2"},
	}
	if !reflect.DeepEqual(m, want) {
		t.Errorf("metadata:\n got %+v\nwant %+v", m, want)
	}
}

func TestDOCXParser_TitleFallbacks(t *testing.T) {
	noTitle := `<dc:creator>someone</dc:creator>`
	tests := []struct {
		name string
		body string
		want string
	}{
		{"title style", ooxmltest.P("", "First text") + ooxmltest.P("Title", "The Title"), "The Title"},
		{"heading 1", ooxmltest.P("", "First text") + ooxmltest.P("Heading1", "Top Heading"), "Top Heading"},
		{"first paragraph", ooxmltest.P("", "") + ooxmltest.P("", "First text"), "First text"},
		{"file name", "", "fixture"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := importFixture(t, ooxmltest.Fixture{Core: noTitle, Body: tt.body})
			if doc.Metadata.Title != tt.want {
				t.Errorf("expected title %q, got %q", tt.want, doc.Metadata.Title)
			}
		})
	}
}

func TestDOCXParser_BackfillsClassificationChildren(t *testing.T) {
	doc := importFixture(t, ooxmltest.Fixture{
		Body: ooxmltest.P("Heading1", "Document Classification") +
			ooxmltest.P("Heading2", "Retention Period") +
			ooxmltest.P("", "Seven years."),
	})
	cls := doc.Section(doctree.KeyDocumentClassification)
	if got := keys(cls.Children); !reflect.DeepEqual(got, []string{"retention_period", "distribution_list", "handling_requirements"}) {
		t.Fatalf("classification children: %v", got)
	}
	if got := cls.Children[1].Content[0].Text; !strings.Contains(got, "Distribution List has not been explicitly captured and should") {
		t.Errorf("placeholder: %q", got)
	}
}

func TestDOCXParser_NotAPackage(t *testing.T) {
	_, err := NewDOCXParser(DefaultOptions()).Parse(strings.NewReader("plain text"), "bad.docx")
	if err == nil {
		t.Fatal("expected an error")
	}
}

func TestDOCXParser_RoundTrip(t *testing.T) {
	m := doctree.NewSkeleton(doctree.Metadata{
		DocID:            "POL-ISMS-001",
		Title:            "Information Security Policy",
		DocType:          doctree.DocTypePolicy,
		Version:          "1.2",
		Status:           doctree.StatusApproved,
		Owner:            "CISO",
		Approver:         "Board",
		Confidentiality:  "Internal",
		NextReviewDate:   "2027-01-31",
		RelatedDocuments: []string{"PRO-ISMS-002", "REC-ISMS-003"},
	}, doctree.StandardProfile())
	m.Section(doctree.KeyPurpose).Content = []doctree.ContentBlock{
		doctree.NewParagraph("Protect information assets."),
		doctree.NewBulletList("confidentiality", "integrity"),
		doctree.NewNumberedList("identify", "protect"),
	}
	tbl, err := doctree.NewTable([]string{"Role", "Duty"}, [][]string{{"CISO", "Own policy"}})
	if err != nil {
		t.Fatal(err)
	}
	tbl.Caption = "Table 1: Roles"
	m.Section(doctree.KeyScope).Children = []*doctree.Section{{
		Key: "in_scope", Title: "In Scope", Level: 2,
		Content: []doctree.ContentBlock{tbl},
		Children: []*doctree.Section{{
			Key: "systems", Title: "Systems", Level: 3,
			Content: []doctree.ContentBlock{doctree.NewParagraph("All production systems.")},
		}},
	}}

	out := filepath.Join(t.TempDir(), "policy.docx")
	gen := render.NewGenerator(doctree.StandardProfile(),
		render.NewRenderer(body.DefaultVocabulary(), nil),
		props.NewPatcher(1, time.Millisecond, nil), nil)
	if _, err := gen.Generate(context.Background(), m, "", out); err != nil {
		t.Fatalf("generate: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	got, err := NewDOCXParser(DefaultOptions()).Parse(bytes.NewReader(data), "policy.docx")
	if err != nil {
		var se *doctree.ShapeError
		if errors.As(err, &se) {
			t.Fatalf("import produced an invalid model: %v", se)
		}
		t.Fatalf("import: %v", err)
	}

	if !reflect.DeepEqual(got.Metadata, m.Metadata) {
		t.Errorf("metadata:\n got %+v\nwant %+v", got.Metadata, m.Metadata)
	}
	if !reflect.DeepEqual(got.Sections, m.Sections) {
		for i := range m.Sections {
			if i < len(got.Sections) && !reflect.DeepEqual(got.Sections[i], m.Sections[i]) {
				t.Errorf("section %s differs:\n got %+v\nwant %+v", m.Sections[i].Key, got.Sections[i], m.Sections[i])
			}
		}
		t.Fatalf("sections differ: got keys %v", keys(got.Sections))
	}
}

func TestDOCXParser_RoundTripRepeatedTitles(t *testing.T) {
	m := doctree.NewSkeleton(doctree.Metadata{
		DocID:   "POL-ISMS-004",
		Title:   "Supplier Policy",
		DocType: doctree.DocTypePolicy,
		Version: "1.0",
		Status:  doctree.StatusDraft,
	}, doctree.StandardProfile())
	m.Section(doctree.KeyPurpose).Children = []*doctree.Section{{
		Key: "overview", Title: "Overview", Level: 2,
		Content: []doctree.ContentBlock{doctree.NewParagraph("child text")},
	}}
	longKey := "supplier_relationship_information_security_requirements"
	m.Sections = append(m.Sections,
		&doctree.Section{
			Key: "overview", Title: "Overview", Level: 1,
			Content: []doctree.ContentBlock{doctree.NewParagraph("top text")},
		},
		&doctree.Section{
			Key: longKey, Title: "Supplier Requirements", Level: 1,
			Content: []doctree.ContentBlock{doctree.NewParagraph("Suppliers sign the NDA.")},
		})

	out := filepath.Join(t.TempDir(), "policy.docx")
	gen := render.NewGenerator(doctree.StandardProfile(),
		render.NewRenderer(body.DefaultVocabulary(), nil),
		props.NewPatcher(1, time.Millisecond, nil), nil)
	if _, err := gen.Generate(context.Background(), m, "", out); err != nil {
		t.Fatalf("generate: %v", err)
	}
	got, err := ParseFile(out, DefaultOptions())
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	top := got.Section("overview")
	if top == nil || top.Level != 1 {
		t.Fatalf("top-level overview lost: keys %v", keys(got.Sections))
	}
	if len(top.Content) != 1 || top.Content[0].Text != "top text" {
		t.Errorf("top-level overview content = %+v", top.Content)
	}
	purpose := got.Section(doctree.KeyPurpose)
	if len(purpose.Children) != 1 || purpose.Children[0].Key != "overview" {
		t.Fatalf("purpose children = %v", keys(purpose.Children))
	}
	if c := purpose.Children[0].Content; len(c) != 1 || c[0].Text != "child text" {
		t.Errorf("purpose/overview content = %+v", c)
	}
	if got.Section(longKey) == nil {
		t.Errorf("long key not restored: keys %v", keys(got.Sections))
	}
}
