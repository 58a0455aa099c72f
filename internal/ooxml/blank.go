package ooxml

import (
	"bytes"
	"fmt"

	"github.com/beevik/etree"
	"github.com/fumiama/go-docx"
)

const blankNumbering = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:numbering xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:abstractNum w:abstractNumId="0"><w:multiLevelType w:val="hybridMultilevel"/>
<w:lvl w:ilvl="0"><w:start w:val="1"/><w:numFmt w:val="bullet"/><w:lvlText w:val="&#8226;"/><w:lvlJc w:val="left"/><w:pPr><w:ind w:left="720" w:hanging="360"/></w:pPr></w:lvl>
</w:abstractNum>
<w:abstractNum w:abstractNumId="1"><w:multiLevelType w:val="hybridMultilevel"/>
<w:lvl w:ilvl="0"><w:start w:val="1"/><w:numFmt w:val="decimal"/><w:lvlText w:val="%1."/><w:lvlJc w:val="left"/><w:pPr><w:ind w:left="720" w:hanging="360"/></w:pPr></w:lvl>
</w:abstractNum>
<w:num w:numId="1"><w:abstractNumId w:val="0"/></w:num>
<w:num w:numId="2"><w:abstractNumId w:val="1"/></w:num>
</w:numbering>`

type baseStyle struct {
	id, name string
	pPr, rPr string
}

var baseStyles = []baseStyle{
	{"Title", "Title", `<w:spacing w:after="240"/>`, `<w:b/><w:sz w:val="56"/>`},
	{"Heading1", "heading 1", `<w:keepNext/><w:spacing w:before="360" w:after="120"/><w:outlineLvl w:val="0"/>`, `<w:b/><w:sz w:val="32"/>`},
	{"Heading2", "heading 2", `<w:keepNext/><w:spacing w:before="240" w:after="120"/><w:outlineLvl w:val="1"/>`, `<w:b/><w:sz w:val="28"/>`},
	{"Heading3", "heading 3", `<w:keepNext/><w:spacing w:before="200" w:after="80"/><w:outlineLvl w:val="2"/>`, `<w:b/><w:sz w:val="26"/>`},
	{"Heading4", "heading 4", `<w:keepNext/><w:spacing w:before="200" w:after="80"/><w:outlineLvl w:val="3"/>`, `<w:b/><w:i/><w:sz w:val="24"/>`},
	{"Heading5", "heading 5", `<w:keepNext/><w:spacing w:before="160" w:after="80"/><w:outlineLvl w:val="4"/>`, `<w:i/><w:sz w:val="22"/>`},
	{"ListBullet", "List Bullet", `<w:numPr><w:ilvl w:val="0"/><w:numId w:val="1"/></w:numPr>`, ``},
	{"ListNumber", "List Number", `<w:numPr><w:ilvl w:val="0"/><w:numId w:val="2"/></w:numPr>`, ``},
	{"Caption", "caption", `<w:spacing w:after="200"/>`, `<w:i/><w:sz w:val="18"/>`},
}

// NewBlank builds an empty package from the go-docx default template and
// adds the heading, list and caption styles plus bullet and decimal
// numbering, so generated content can be imported back.
func NewBlank() (*Package, error) {
	var buf bytes.Buffer
	if _, err := docx.New().WithDefaultTheme().WriteTo(&buf); err != nil {
		return nil, &ArchiveError{Op: "create", Err: err}
	}
	p, err := OpenBytes(buf.Bytes())
	if err != nil {
		return nil, err
	}
	if err := ensureNumbering(p); err != nil {
		return nil, err
	}
	if err := ensureBaseStyles(p); err != nil {
		return nil, err
	}
	return p, nil
}

func ensureNumbering(p *Package) error {
	if p.Has(PartNumbering) {
		return nil
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromString(blankNumbering); err != nil {
		return &ArchiveError{Op: "create", Part: PartNumbering, Err: err}
	}
	if err := p.SetPart(PartNumbering, doc, CTNumbering); err != nil {
		return err
	}
	rels, err := p.Rels(PartDocumentRels, true)
	if err != nil {
		return err
	}
	_, err = rels.Add(RelNumbering, "numbering.xml", false)
	return err
}

func ensureBaseStyles(p *Package) error {
	styles, err := LoadStyles(p)
	if err != nil {
		return err
	}
	doc, err := p.EditPart(PartStyles)
	if err != nil {
		return err
	}
	normal := ""
	for _, st := range styles.order {
		if st.Type == StyleParagraph && st.Default {
			normal = st.ID
			break
		}
	}

	root := doc.Root()
	for _, bs := range baseStyles {
		if _, ok := styles.Lookup(bs.name, StyleParagraph); ok {
			continue
		}
		basedOn := ""
		if normal != "" {
			basedOn = fmt.Sprintf(`<w:basedOn w:val="%s"/><w:next w:val="%s"/>`, normal, normal)
		}
		frag := fmt.Sprintf(`<w:style xmlns:w="%s" w:type="paragraph" w:styleId="%s"><w:name w:val="%s"/>%s<w:qFormat/><w:pPr>%s</w:pPr><w:rPr>%s</w:rPr></w:style>`,
			NSMain, bs.id, bs.name, basedOn, bs.pPr, bs.rPr)
		el, err := parseFragment(frag)
		if err != nil {
			return &ArchiveError{Op: "create", Part: PartStyles, Err: err}
		}
		el.RemoveAttr("xmlns:w")
		root.AddChild(el)
	}
	return nil
}

// parseFragment parses a single-element XML snippet.
func parseFragment(s string) (*etree.Element, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(s); err != nil {
		return nil, err
	}
	root := doc.Root()
	doc.RemoveChild(root)
	return root, nil
}
