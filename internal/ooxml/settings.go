package ooxml

import (
	"errors"

	"github.com/beevik/etree"
)

// settingsTail is the schema order of the w:settings children from
// w:updateFields on. Earlier children are not written by this package.
var settingsTail = []string{
	"updateFields", "hdrShapeDefaults", "footnotePr", "endnotePr", "compat",
	"docVars", "rsids", "mathPr", "attachedSchema", "themeFontLang",
	"clrSchemeMapping", "doNotIncludeSubdocsInStats", "doNotAutoCompressPictures",
	"forceUpgrade", "captions", "readModeInkLockDown", "smartTagType",
	"schemaLibrary", "shapeDefaults", "doNotEmbedSmartTags", "decimalSymbol",
	"listSeparator",
}

const blankSettings = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:settings xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"/>`

// DocVars returns the document variables of word/settings.xml. A package
// without settings has none.
func DocVars(p *Package) (map[string]string, error) {
	vars := map[string]string{}
	doc, err := p.Part(PartSettings)
	if err != nil {
		if errors.Is(err, ErrPartMissing) {
			return vars, nil
		}
		return nil, err
	}
	for _, v := range Children(Child(doc.Root(), NSMain, "docVars"), NSMain, "docVar") {
		vars[AttrNS(v, NSMain, "name")] = AttrNS(v, NSMain, "val")
	}
	return vars, nil
}

// SetDocVar writes a document variable, creating word/settings.xml when the
// package has none.
func SetDocVar(p *Package, name, value string) error {
	doc, err := p.EditPart(PartSettings)
	if errors.Is(err, ErrPartMissing) {
		doc, err = newSettings(p)
	}
	if err != nil {
		return err
	}
	pre := EnsurePrefix(doc.Root(), NSMain, "w")
	vars := SettingsChild(doc.Root(), "docVars")
	for _, v := range Children(vars, NSMain, "docVar") {
		if AttrNS(v, NSMain, "name") == name {
			v.CreateAttr(QName(pre, "val"), value)
			return nil
		}
	}
	v := vars.CreateElement(QName(pre, "docVar"))
	v.CreateAttr(QName(pre, "name"), name)
	v.CreateAttr(QName(pre, "val"), value)
	return nil
}

func newSettings(p *Package) (*etree.Document, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(blankSettings); err != nil {
		return nil, &ArchiveError{Op: "create", Path: p.path, Part: PartSettings, Err: err}
	}
	if err := p.SetPart(PartSettings, doc, CTSettings); err != nil {
		return nil, err
	}
	rels, err := p.Rels(PartDocumentRels, true)
	if err != nil {
		return nil, err
	}
	if _, err := rels.Add(RelSettings, "settings.xml", false); err != nil {
		return nil, err
	}
	return doc, nil
}

// SettingsChild returns the w:settings child named local, inserting it at
// its schema position when missing. local must be one of the children from
// w:updateFields on.
func SettingsChild(root *etree.Element, local string) *etree.Element {
	if c := Child(root, NSMain, local); c != nil {
		return c
	}
	rank := settingsRank(local)
	el := etree.NewElement(QName(EnsurePrefix(root, NSMain, "w"), local))
	for _, c := range root.ChildElements() {
		if c.NamespaceURI() == NSMain && settingsRank(c.Tag) > rank {
			root.InsertChildAt(c.Index(), el)
			return el
		}
	}
	root.AddChild(el)
	return el
}

func settingsRank(local string) int {
	for i, name := range settingsTail {
		if name == local {
			return i
		}
	}
	return -1
}
