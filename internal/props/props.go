// Package props reads and patches the core and custom document properties
// of a .docx package.
package props

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/dgallion1/ismsdoc/internal/ooxml"
)

// FMTID is the property set id Word uses for user-defined properties.
const FMTID = "{D5CDD505-2E9C-101B-9397-08002B2CF9AE}"

// fileTimeLayout is the vt:filetime text form.
const fileTimeLayout = "2006-01-02T15:04:05Z"

// CoreField names a core property element.
type CoreField string

const (
	CoreTitle          CoreField = "title"
	CoreSubject        CoreField = "subject"
	CoreCreator        CoreField = "creator"
	CoreCategory       CoreField = "category"
	CoreKeywords       CoreField = "keywords"
	CoreLastModifiedBy CoreField = "lastModifiedBy"
	CoreModified       CoreField = "modified"
)

// coreNS maps a core field to its namespace and preferred prefix.
var coreNS = map[CoreField][2]string{
	CoreTitle:          {ooxml.NSDC, "dc"},
	CoreSubject:        {ooxml.NSDC, "dc"},
	CoreCreator:        {ooxml.NSDC, "dc"},
	CoreCategory:       {ooxml.NSCoreProps, "cp"},
	CoreKeywords:       {ooxml.NSCoreProps, "cp"},
	CoreLastModifiedBy: {ooxml.NSCoreProps, "cp"},
	CoreModified:       {ooxml.NSDCTerms, "dcterms"},
}

// ParseCoreField accepts a field name with or without its prefix, e.g.
// "title" or "dc:title".
func ParseCoreField(s string) (CoreField, error) {
	if i := strings.IndexByte(s, ':'); i >= 0 {
		s = s[i+1:]
	}
	for f := range coreNS {
		if strings.EqualFold(string(f), s) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown core property %q", s)
}

// ValueKind is the vt: type of a custom property.
type ValueKind int

const (
	KindText ValueKind = iota
	KindFileTime
)

// Property is one custom property value.
type Property struct {
	Name string
	Kind ValueKind
	Text string
	Time time.Time
}

// Text builds a vt:lpwstr property.
func Text(name, value string) Property { return Property{Name: name, Kind: KindText, Text: value} }

// FileTime builds a vt:filetime property.
func FileTime(name string, t time.Time) Property {
	return Property{Name: name, Kind: KindFileTime, Time: t}
}

// ParseFileTime builds a vt:filetime property from "2006-01-02" or RFC 3339
// text.
func ParseFileTime(name, value string) (Property, error) {
	v := strings.TrimSpace(value)
	if t, err := time.Parse(time.DateOnly, v); err == nil {
		return FileTime(name, t), nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return Property{}, fmt.Errorf("property %s: %q is not a date", name, value)
	}
	return FileTime(name, t), nil
}

func (p Property) vtTag() string {
	if p.Kind == KindFileTime {
		return "filetime"
	}
	return "lpwstr"
}

func (p Property) vtText() string {
	if p.Kind == KindFileTime {
		return p.Time.UTC().Format(fileTimeLayout)
	}
	return p.Text
}

// Update is the set of changes Patch applies. Only fields present are
// touched; a zero Modified leaves dcterms:modified alone.
type Update struct {
	Core     map[CoreField]string
	Modified time.Time
	Custom   []Property
}

func (u Update) touchesCore() bool { return len(u.Core) > 0 || !u.Modified.IsZero() }

// Field is one property read back from a package.
type Field struct {
	Name  string
	Type  string
	Value string
}

// Properties are the core and custom properties of a package, in part
// order.
type Properties struct {
	Core   []Field
	Custom []Field
}

// CoreValue returns the text of a core field.
func (p Properties) CoreValue(f CoreField) (string, bool) {
	for _, c := range p.Core {
		if c.Name == string(f) {
			return c.Value, true
		}
	}
	return "", false
}

// CustomValue returns the value of a custom property; names compare
// case-insensitively.
func (p Properties) CustomValue(name string) (string, bool) {
	for _, c := range p.Custom {
		if strings.EqualFold(c.Name, name) {
			return c.Value, true
		}
	}
	return "", false
}

// partNames finds the core and custom parts through the package
// relationships, falling back to the conventional names.
func partNames(pkg *ooxml.Package) (core, custom string, err error) {
	core, custom = ooxml.PartCore, ooxml.PartCustom
	rels, err := pkg.Rels(ooxml.PartPackageRels, false)
	if err != nil {
		return "", "", err
	}
	if r, ok := rels.FirstOfType(ooxml.RelCoreProps); ok {
		core = ooxml.ResolveTarget("", r.Target)
	}
	if r, ok := rels.FirstOfType(ooxml.RelCustomProps); ok {
		custom = ooxml.ResolveTarget("", r.Target)
	}
	return core, custom, nil
}

func newCoreDoc() *etree.Document {
	doc := ooxml.NewXMLDocument()
	root := doc.CreateElement("cp:coreProperties")
	root.CreateAttr("xmlns:cp", ooxml.NSCoreProps)
	root.CreateAttr("xmlns:dc", ooxml.NSDC)
	root.CreateAttr("xmlns:dcterms", ooxml.NSDCTerms)
	root.CreateAttr("xmlns:dcmitype", "http://purl.org/dc/dcmitype/")
	root.CreateAttr("xmlns:xsi", ooxml.NSXSI)
	return doc
}

func newCustomDoc() *etree.Document {
	doc := ooxml.NewXMLDocument()
	root := doc.CreateElement("Properties")
	root.CreateAttr("xmlns", ooxml.NSCustomProps)
	root.CreateAttr("xmlns:vt", ooxml.NSDocPropsTypes)
	return doc
}

// editPart opens part for editing, creating it with its content-type
// override and package relationship when it is missing.
func editPart(pkg *ooxml.Package, part, contentType, relType string, create func() *etree.Document) (*etree.Document, error) {
	if pkg.Has(part) {
		return pkg.EditPart(part)
	}
	doc := create()
	if err := pkg.SetPart(part, doc, contentType); err != nil {
		return nil, err
	}
	rels, err := pkg.Rels(ooxml.PartPackageRels, true)
	if err != nil {
		return nil, err
	}
	if _, err := rels.Add(relType, part, false); err != nil {
		return nil, err
	}
	return doc, nil
}

func setCore(root *etree.Element, f CoreField, value string) {
	ns := coreNS[f]
	el := ooxml.Child(root, ns[0], string(f))
	if el == nil {
		prefix := ooxml.EnsurePrefix(root, ns[0], ns[1])
		el = root.CreateElement(ooxml.QName(prefix, string(f)))
	}
	el.SetText(value)
}

func setModified(root *etree.Element, t time.Time) {
	setCore(root, CoreModified, t.UTC().Format(fileTimeLayout))
	el := ooxml.Child(root, ooxml.NSDCTerms, string(CoreModified))
	xsi := ooxml.EnsurePrefix(root, ooxml.NSXSI, "xsi")
	dcterms := ooxml.EnsurePrefix(root, ooxml.NSDCTerms, "dcterms")
	el.CreateAttr(ooxml.QName(xsi, "type"), ooxml.QName(dcterms, "W3CDTF"))
}

func setCustom(root *etree.Element, p Property) {
	vt := ooxml.EnsurePrefix(root, ooxml.NSDocPropsTypes, "vt")
	props := ooxml.Children(root, ooxml.NSCustomProps, "property")

	var el *etree.Element
	maxPID := 1
	for _, e := range props {
		if pid, err := strconv.Atoi(e.SelectAttrValue("pid", "")); err == nil && pid > maxPID {
			maxPID = pid
		}
		if el == nil && e.SelectAttrValue("name", "") == p.Name {
			el = e
		}
	}
	if el == nil {
		prefix, _ := ooxml.Prefix(root, ooxml.NSCustomProps)
		el = root.CreateElement(ooxml.QName(prefix, "property"))
		el.CreateAttr("fmtid", FMTID)
		el.CreateAttr("pid", strconv.Itoa(maxPID+1))
		el.CreateAttr("name", p.Name)
	}
	for _, c := range el.ChildElements() {
		el.RemoveChild(c)
	}
	el.CreateElement(ooxml.QName(vt, p.vtTag())).SetText(p.vtText())
}
