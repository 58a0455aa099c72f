package ooxml

import "github.com/beevik/etree"

// XML namespaces used across the package parts.
const (
	NSMain          = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	NSRel           = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	NSPackageRels   = "http://schemas.openxmlformats.org/package/2006/relationships"
	NSContentTypes  = "http://schemas.openxmlformats.org/package/2006/content-types"
	NSCoreProps     = "http://schemas.openxmlformats.org/package/2006/metadata/core-properties"
	NSCustomProps   = "http://schemas.openxmlformats.org/officeDocument/2006/custom-properties"
	NSDocPropsTypes = "http://schemas.openxmlformats.org/officeDocument/2006/docPropsVTypes"
	NSDC            = "http://purl.org/dc/elements/1.1/"
	NSDCTerms       = "http://purl.org/dc/terms/"
	NSXSI           = "http://www.w3.org/2001/XMLSchema-instance"
)

// Relationship types.
const (
	RelHyperlink      = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink"
	RelOfficeDocument = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"
	RelCoreProps      = "http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties"
	RelCustomProps    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/custom-properties"
	RelNumbering      = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/numbering"
	RelStyles         = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles"
	RelSettings       = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/settings"
)

// Content types.
const (
	CTCoreProps   = "application/vnd.openxmlformats-package.core-properties+xml"
	CTCustomProps = "application/vnd.openxmlformats-officedocument.custom-properties+xml"
	CTNumbering   = "application/vnd.openxmlformats-officedocument.wordprocessingml.numbering+xml"
	CTSettings    = "application/vnd.openxmlformats-officedocument.wordprocessingml.settings+xml"
	CTRels        = "application/vnd.openxmlformats-package.relationships+xml"
)

// Well-known part names.
const (
	PartContentTypes = "[Content_Types].xml"
	PartPackageRels  = "_rels/.rels"
	PartDocument     = "word/document.xml"
	PartDocumentRels = "word/_rels/document.xml.rels"
	PartStyles       = "word/styles.xml"
	PartNumbering    = "word/numbering.xml"
	PartSettings     = "word/settings.xml"
	PartCore         = "docProps/core.xml"
	PartCustom       = "docProps/custom.xml"
)

// Is reports whether e is the element local in namespace ns.
func Is(e *etree.Element, ns, local string) bool {
	return e != nil && e.Tag == local && e.NamespaceURI() == ns
}

// Child returns the first child element of e named local in namespace ns.
func Child(e *etree.Element, ns, local string) *etree.Element {
	if e == nil {
		return nil
	}
	for _, c := range e.ChildElements() {
		if Is(c, ns, local) {
			return c
		}
	}
	return nil
}

// Children returns every child element of e named local in namespace ns.
func Children(e *etree.Element, ns, local string) []*etree.Element {
	if e == nil {
		return nil
	}
	var out []*etree.Element
	for _, c := range e.ChildElements() {
		if Is(c, ns, local) {
			out = append(out, c)
		}
	}
	return out
}

// AttrNS returns the value of the attribute local in namespace ns, or "".
func AttrNS(e *etree.Element, ns, local string) string {
	if e == nil {
		return ""
	}
	for i := range e.Attr {
		a := &e.Attr[i]
		if a.Key == local && a.NamespaceURI() == ns {
			return a.Value
		}
	}
	return ""
}

// Prefix returns the prefix bound to ns in scope at e. The second result is
// false when ns is not declared; a default namespace yields "".
func Prefix(e *etree.Element, ns string) (string, bool) {
	for cur := e; cur != nil; cur = cur.Parent() {
		for _, a := range cur.Attr {
			if a.Space == "xmlns" && a.Value == ns {
				return a.Key, true
			}
			if a.Space == "" && a.Key == "xmlns" && a.Value == ns {
				return "", true
			}
		}
	}
	return "", false
}

// EnsurePrefix returns the prefix for ns at root, declaring it under
// preferred when it is missing.
func EnsurePrefix(root *etree.Element, ns, preferred string) string {
	if p, ok := Prefix(root, ns); ok {
		return p
	}
	root.CreateAttr("xmlns:"+preferred, ns)
	return preferred
}

// QName joins a prefix and a local name.
func QName(prefix, local string) string {
	if prefix == "" {
		return local
	}
	return prefix + ":" + local
}
