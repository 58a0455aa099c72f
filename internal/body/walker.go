// Package body walks and edits the body of word/document.xml.
//
// Every top-level child of w:body is held in an arena and addressed by a
// NodeID that never changes, however many nodes are inserted before it.
// The arena keeps its own prev/next links in step with the XML tree.
package body

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/beevik/etree"
	"github.com/dgallion1/ismsdoc/internal/ooxml"
)

// Kind classifies a body node.
type Kind int

const (
	KindOther Kind = iota
	KindParagraph
	KindTable
)

func (k Kind) String() string {
	switch k {
	case KindParagraph:
		return "paragraph"
	case KindTable:
		return "table"
	}
	return "other"
}

// NodeID is a stable handle to a body node. The zero value is no node.
type NodeID int

// None is the zero NodeID.
const None NodeID = 0

type node struct {
	kind       Kind
	elem       *etree.Element
	prev, next NodeID
	live       bool
}

// Body is the arena over one document body.
type Body struct {
	pkg       *ooxml.Package
	root      *etree.Element
	nodes     []node
	head      NodeID
	tail      NodeID
	sectPr    NodeID
	byElem    map[*etree.Element]NodeID
	styles    *ooxml.Styles
	numbering *ooxml.Numbering
	rels      *ooxml.Relationships
	vocab     Vocabulary
	log       *slog.Logger

	listNums     map[bool]string
	nextBookmark int
	// sectionKeys maps shortened section bookmark names to their keys.
	sectionKeys map[string]string
	pendingKeys []string
}

// Load builds the arena for pkg's main document part.
func Load(pkg *ooxml.Package, vocab Vocabulary, log *slog.Logger) (*Body, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	doc, err := pkg.Part(ooxml.PartDocument)
	if err != nil {
		return nil, err
	}
	root := doc.Root().SelectElement("w:body")
	if root == nil {
		return nil, &ooxml.ArchiveError{Op: "parse", Path: pkg.Path(), Part: ooxml.PartDocument, Err: fmt.Errorf("%w: w:body", ooxml.ErrPartMissing)}
	}
	styles, err := ooxml.LoadStyles(pkg)
	if err != nil {
		return nil, err
	}
	numbering, err := ooxml.LoadNumbering(pkg)
	if err != nil {
		return nil, err
	}
	rels, err := pkg.Rels(ooxml.PartDocumentRels, true)
	if err != nil {
		return nil, err
	}

	b := &Body{
		pkg:       pkg,
		root:      root,
		nodes:     make([]node, 1, len(root.Child)+1),
		byElem:    make(map[*etree.Element]NodeID),
		styles:    styles,
		numbering: numbering,
		rels:      rels,
		vocab:     vocab,
		log:       log,
		listNums:  map[bool]string{},
	}
	for _, el := range root.ChildElements() {
		id := b.register(el)
		b.linkAfter(b.tail, id)
		if el.Tag == "sectPr" {
			b.sectPr = id
		}
	}
	b.nextBookmark = maxBookmarkID(doc.Root()) + 1
	if b.sectionKeys, err = loadSectionKeys(pkg); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Body) register(el *etree.Element) NodeID {
	kind := KindOther
	switch el.Tag {
	case "p":
		kind = KindParagraph
	case "tbl":
		kind = KindTable
	}
	b.nodes = append(b.nodes, node{kind: kind, elem: el, live: true})
	id := NodeID(len(b.nodes) - 1)
	b.byElem[el] = id
	return id
}

// linkAfter links id after prev in the arena list; prev None means head.
func (b *Body) linkAfter(prev, id NodeID) {
	n := &b.nodes[id]
	n.prev = prev
	if prev == None {
		n.next = b.head
		b.head = id
	} else {
		n.next = b.nodes[prev].next
		b.nodes[prev].next = id
	}
	if n.next == None {
		b.tail = id
	} else {
		b.nodes[n.next].prev = id
	}
}

func (b *Body) unlink(id NodeID) {
	n := &b.nodes[id]
	if n.prev == None {
		b.head = n.next
	} else {
		b.nodes[n.prev].next = n.next
	}
	if n.next == None {
		b.tail = n.prev
	} else {
		b.nodes[n.next].prev = n.prev
	}
	n.prev, n.next = None, None
}

func (b *Body) valid(id NodeID) bool {
	return id > None && int(id) < len(b.nodes) && b.nodes[id].live
}

// Kind returns the kind of node id.
func (b *Body) Kind(id NodeID) Kind {
	if !b.valid(id) {
		return KindOther
	}
	return b.nodes[id].kind
}

// Elem returns the XML element behind id, or nil.
func (b *Body) Elem(id NodeID) *etree.Element {
	if !b.valid(id) {
		return nil
	}
	return b.nodes[id].elem
}

// Lookup returns the handle of a top-level body element.
func (b *Body) Lookup(el *etree.Element) (NodeID, bool) {
	id, ok := b.byElem[el]
	return id, ok && b.valid(id)
}

// Next returns the node after id in document order, skipping nothing.
func (b *Body) Next(id NodeID) NodeID {
	if !b.valid(id) {
		return None
	}
	return b.nodes[id].next
}

// Nodes returns paragraph and table handles in document order.
func (b *Body) Nodes() []NodeID {
	var out []NodeID
	for id := b.head; id != None; id = b.nodes[id].next {
		if k := b.nodes[id].kind; k == KindParagraph || k == KindTable {
			out = append(out, id)
		}
	}
	return out
}

// Paragraphs returns paragraph handles in document order.
func (b *Body) Paragraphs() []NodeID { return b.ofKind(KindParagraph) }

// Tables returns table handles in document order.
func (b *Body) Tables() []NodeID { return b.ofKind(KindTable) }

func (b *Body) ofKind(k Kind) []NodeID {
	var out []NodeID
	for id := b.head; id != None; id = b.nodes[id].next {
		if b.nodes[id].kind == k {
			out = append(out, id)
		}
	}
	return out
}

// Styles is the package style catalog.
func (b *Body) Styles() *ooxml.Styles { return b.styles }

// Numbering is the package numbering table.
func (b *Body) Numbering() *ooxml.Numbering { return b.numbering }

// Rels are the main document relationships.
func (b *Body) Rels() *ooxml.Relationships { return b.rels }

// Vocabulary is the style vocabulary the body was loaded with.
func (b *Body) Vocabulary() Vocabulary { return b.vocab }

// Package returns the package the body belongs to.
func (b *Body) Package() *ooxml.Package { return b.pkg }

// Flush marks the document part as edited so the package writes it back.
func (b *Body) Flush() error {
	if _, err := b.pkg.EditPart(ooxml.PartDocument); err != nil {
		return err
	}
	for _, name := range b.pendingKeys {
		if err := ooxml.SetDocVar(b.pkg, name, b.sectionKeys[name]); err != nil {
			return err
		}
	}
	b.pendingKeys = nil
	return nil
}

// FindParagraph returns the first paragraph whose trimmed text equals text,
// ignoring case.
func (b *Body) FindParagraph(text string) (NodeID, bool) {
	return b.FindParagraphWhere(text, nil)
}

// FindParagraphWhere is FindParagraph restricted to paragraphs accepted by
// keep. A nil keep accepts every paragraph.
func (b *Body) FindParagraphWhere(text string, keep func(NodeID) bool) (NodeID, bool) {
	want := strings.TrimSpace(text)
	for _, id := range b.Paragraphs() {
		if keep != nil && !keep(id) {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(b.Text(id)), want) {
			return id, true
		}
	}
	return None, false
}

// FindTableAfterHeading returns the first table following the first
// paragraph whose text matches heading.
func (b *Body) FindTableAfterHeading(heading string) (NodeID, bool) {
	want := strings.TrimSpace(heading)
	seenHeading := false
	for _, id := range b.Nodes() {
		switch b.nodes[id].kind {
		case KindParagraph:
			if !seenHeading && strings.EqualFold(strings.TrimSpace(b.Text(id)), want) {
				seenHeading = true
			}
		case KindTable:
			if seenHeading {
				return id, true
			}
		}
	}
	return None, false
}

// FindTableWithCell returns the first table with a cell whose text contains
// label, ignoring case and surrounding space.
func (b *Body) FindTableWithCell(label string) (NodeID, bool) {
	want := strings.ToLower(strings.TrimSpace(label))
	if want == "" {
		return None, false
	}
	for _, id := range b.Tables() {
		for _, row := range b.Grid(id) {
			for _, cell := range row {
				if strings.Contains(strings.ToLower(cell), want) {
					return id, true
				}
			}
		}
	}
	return None, false
}
