package body

import (
	"github.com/beevik/etree"
)

// New nodes are created at the structural end (before the final w:sectPr)
// and then relocated, so the arena and the XML tree change in one place.

func (b *Body) appendElem(el *etree.Element) NodeID {
	id := b.register(el)
	if b.valid(b.sectPr) {
		sect := b.nodes[b.sectPr].elem
		b.root.InsertChildAt(sect.Index(), el)
		b.linkAfter(b.nodes[b.sectPr].prev, id)
		return id
	}
	b.root.AddChild(el)
	b.linkAfter(b.tail, id)
	return id
}

// MoveAfter relocates id to directly follow anchor. Moving a node after
// itself is a no-op.
func (b *Body) MoveAfter(anchor, id NodeID) {
	if anchor == id || !b.valid(anchor) || !b.valid(id) {
		return
	}
	b.unlink(id)
	b.linkAfter(anchor, id)
	a := b.nodes[anchor].elem
	a.Parent().InsertChildAt(a.Index()+1, b.nodes[id].elem)
}

// Remove detaches id from the body. The handle stays invalid afterwards.
func (b *Body) Remove(id NodeID) {
	if !b.valid(id) {
		return
	}
	b.unlink(id)
	n := &b.nodes[id]
	b.root.RemoveChild(n.elem)
	delete(b.byElem, n.elem)
	n.live = false
	if id == b.sectPr {
		b.sectPr = None
	}
}

// AppendParagraph creates a paragraph at the structural end.
func (b *Body) AppendParagraph(spec ParaSpec) NodeID {
	return b.appendElem(b.buildParagraph(spec))
}

// InsertParagraphAfter creates a paragraph directly after anchor, or at the
// structural end when anchor is None.
func (b *Body) InsertParagraphAfter(anchor NodeID, spec ParaSpec) NodeID {
	id := b.AppendParagraph(spec)
	b.MoveAfter(anchor, id)
	return id
}

// AppendTable creates an empty rows x cols table at the structural end.
func (b *Body) AppendTable(rows, cols int, styles []string) NodeID {
	return b.appendElem(b.buildTable(rows, cols, styles))
}

// InsertTableAfter creates an empty table directly after anchor.
func (b *Body) InsertTableAfter(anchor NodeID, rows, cols int, styles []string) NodeID {
	id := b.AppendTable(rows, cols, styles)
	b.MoveAfter(anchor, id)
	return id
}

// EnsureHeading returns the paragraph whose text equals text, creating a
// heading of the given level at the structural end when none exists.
func (b *Body) EnsureHeading(text string, level int) (NodeID, bool) {
	if id, ok := b.FindParagraph(text); ok {
		return id, false
	}
	return b.AppendParagraph(ParaSpec{Styles: b.vocab.Heading(level), Text: text}), true
}

// SetParagraphText replaces every run of a paragraph with a single run
// carrying text. The paragraph properties and the first run's formatting
// are kept.
func (b *Body) SetParagraphText(id NodeID, text string) {
	el := b.Elem(id)
	if el == nil || b.nodes[id].kind != KindParagraph {
		return
	}
	ReplaceText(el, text)
}

// ReplaceText replaces the runs of a w:p element anywhere in a part with one
// run carrying text.
func ReplaceText(p *etree.Element, text string) {
	var rPr *etree.Element
	if r := p.FindElement(".//w:r/w:rPr"); r != nil {
		rPr = r.Copy()
	}
	for _, c := range p.ChildElements() {
		switch c.Tag {
		case "pPr", "bookmarkStart", "bookmarkEnd":
		default:
			p.RemoveChild(c)
		}
	}
	run := etree.NewElement("w:r")
	if rPr != nil {
		run.AddChild(rPr)
	}
	addText(run, text)
	if end := p.SelectElement("w:bookmarkEnd"); end != nil {
		p.InsertChildAt(end.Index(), run)
		return
	}
	p.AddChild(run)
}
