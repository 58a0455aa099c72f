package ooxml

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// Relationship is one entry of a .rels part.
type Relationship struct {
	ID         string
	Type       string
	Target     string
	TargetMode string
}

// External reports whether the target lives outside the package.
func (r Relationship) External() bool {
	return strings.EqualFold(r.TargetMode, "External")
}

// Relationships wraps a .rels part.
type Relationships struct {
	p    *Package
	part string
	root *etree.Element
}

// RelsPartFor returns the .rels part name that belongs to part, e.g.
// word/_rels/document.xml.rels for word/document.xml.
func RelsPartFor(part string) string {
	dir, file := path.Split(part)
	return dir + "_rels/" + file + ".rels"
}

// Rels opens the relationships part relsPart. With create set, a missing part
// is created empty; otherwise a missing part yields an empty, read-only set.
func (p *Package) Rels(relsPart string, create bool) (*Relationships, error) {
	if !p.Has(relsPart) {
		if !create {
			return &Relationships{p: p, part: relsPart}, nil
		}
		doc := NewXMLDocument()
		root := doc.CreateElement("Relationships")
		root.CreateAttr("xmlns", NSPackageRels)
		if err := p.SetPart(relsPart, doc, ""); err != nil {
			return nil, err
		}
		return &Relationships{p: p, part: relsPart, root: root}, nil
	}
	doc, err := p.Part(relsPart)
	if err != nil {
		return nil, err
	}
	return &Relationships{p: p, part: relsPart, root: doc.Root()}, nil
}

// All lists the relationships in part order.
func (r *Relationships) All() []Relationship {
	if r.root == nil {
		return nil
	}
	var out []Relationship
	for _, e := range r.root.ChildElements() {
		if e.Tag != "Relationship" {
			continue
		}
		out = append(out, Relationship{
			ID:         e.SelectAttrValue("Id", ""),
			Type:       e.SelectAttrValue("Type", ""),
			Target:     e.SelectAttrValue("Target", ""),
			TargetMode: e.SelectAttrValue("TargetMode", ""),
		})
	}
	return out
}

// Get returns the relationship with the given id.
func (r *Relationships) Get(id string) (Relationship, bool) {
	for _, rel := range r.All() {
		if rel.ID == id {
			return rel, true
		}
	}
	return Relationship{}, false
}

// FirstOfType returns the first relationship of type typ.
func (r *Relationships) FirstOfType(typ string) (Relationship, bool) {
	for _, rel := range r.All() {
		if rel.Type == typ {
			return rel, true
		}
	}
	return Relationship{}, false
}

// Add returns the id of a relationship of type typ to target, creating it
// when no identical relationship exists.
func (r *Relationships) Add(typ, target string, external bool) (string, error) {
	if r.root == nil {
		return "", &ArchiveError{Op: "edit", Path: r.p.path, Part: r.part, Err: ErrPartMissing}
	}
	mode := ""
	if external {
		mode = "External"
	}
	maxID := 0
	for _, rel := range r.All() {
		if rel.Type == typ && rel.Target == target && strings.EqualFold(rel.TargetMode, mode) {
			return rel.ID, nil
		}
		if n, err := strconv.Atoi(strings.TrimPrefix(rel.ID, "rId")); err == nil && n > maxID {
			maxID = n
		}
	}
	id := fmt.Sprintf("rId%d", maxID+1)
	e := r.root.CreateElement("Relationship")
	e.CreateAttr("Id", id)
	e.CreateAttr("Type", typ)
	e.CreateAttr("Target", target)
	if external {
		e.CreateAttr("TargetMode", "External")
	}
	r.p.touch(r.part)
	return id, nil
}

// ResolveTarget turns a relationship target into a part name, relative to
// the part that owns the relationships.
func ResolveTarget(ownerPart, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Clean(path.Join(path.Dir(ownerPart), target))
}

func (p *Package) touch(name string) {
	if e, ok := p.index[name]; ok && e.doc != nil {
		e.dirty = true
	}
}

// ContentTypes edits [Content_Types].xml.
type ContentTypes struct {
	p *Package
}

// ContentTypes returns an editor for the content-types part.
func (p *Package) ContentTypes() *ContentTypes {
	return &ContentTypes{p: p}
}

// Override registers contentType for partName ("/docProps/custom.xml").
// An existing override for the same part is updated in place.
func (c *ContentTypes) Override(partName, contentType string) error {
	doc, err := c.p.EditPart(PartContentTypes)
	if err != nil {
		return err
	}
	root := doc.Root()
	for _, e := range root.ChildElements() {
		if e.Tag == "Override" && strings.EqualFold(e.SelectAttrValue("PartName", ""), partName) {
			e.CreateAttr("ContentType", contentType)
			return nil
		}
	}
	e := root.CreateElement("Override")
	e.CreateAttr("PartName", partName)
	e.CreateAttr("ContentType", contentType)
	return nil
}

// Lookup returns the content type registered for partName, falling back to
// the extension default.
func (c *ContentTypes) Lookup(partName string) string {
	doc, err := c.p.Part(PartContentTypes)
	if err != nil {
		return ""
	}
	ext := strings.TrimPrefix(path.Ext(partName), ".")
	def := ""
	for _, e := range doc.Root().ChildElements() {
		switch e.Tag {
		case "Override":
			if strings.EqualFold(e.SelectAttrValue("PartName", ""), partName) {
				return e.SelectAttrValue("ContentType", "")
			}
		case "Default":
			if strings.EqualFold(e.SelectAttrValue("Extension", ""), ext) {
				def = e.SelectAttrValue("ContentType", "")
			}
		}
	}
	return def
}
