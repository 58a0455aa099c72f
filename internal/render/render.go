// Package render materializes a document model into a .docx package.
package render

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgallion1/ismsdoc/internal/body"
	"github.com/dgallion1/ismsdoc/internal/doctree"
	"github.com/dgallion1/ismsdoc/internal/ooxml"
	"github.com/dgallion1/ismsdoc/internal/tables"
)

// Reserved sections are laid out by the template and never rendered as
// headings.
var Reserved = map[string]bool{
	doctree.KeyTitlePage:       true,
	doctree.KeyDocumentControl: true,
	doctree.KeyTableOfContents: true,
}

// Report summarizes one render.
type Report struct {
	Placeholders int
	ControlTable bool
	Sections     int
	Tables       []tables.Result
}

// Renderer writes a model into an open package.
type Renderer struct {
	Vocab         body.Vocabulary
	ControlLabels tables.ControlLabels
	log           *slog.Logger
	tables        *tables.Reconciler
}

// NewRenderer returns a renderer using vocab. A nil logger discards output.
func NewRenderer(vocab body.Vocabulary, log *slog.Logger) *Renderer {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Renderer{
		Vocab:         vocab,
		ControlLabels: tables.DefaultControlLabels(),
		log:           log,
		tables:        tables.NewReconciler(log),
	}
}

// Render fills pkg from doc: placeholders, the document-control table, the
// section tree, then dynamic tables. The model must already be valid.
func (r *Renderer) Render(doc *doctree.Document, pkg *ooxml.Package) (Report, error) {
	var rep Report

	n, err := replacePlaceholders(pkg, Placeholders(doc.Metadata))
	if err != nil {
		return rep, fmt.Errorf("placeholders: %w", err)
	}
	rep.Placeholders = n

	b, err := body.Load(pkg, r.Vocab, r.log)
	if err != nil {
		return rep, err
	}

	// Only headings that came with the template are reused; anything this
	// run writes is never matched again, so repeated titles stay distinct.
	tmpl := make(map[body.NodeID]bool)
	for _, id := range b.Paragraphs() {
		tmpl[id] = true
	}

	ctl := r.tables.ControlTable(b, doc.Metadata, r.ControlLabels)
	rep.ControlTable = !ctl.Skipped

	for _, sec := range doc.Sections {
		if Reserved[sec.Key] {
			continue
		}
		head, ok := b.FindParagraphWhere(sec.Title, func(id body.NodeID) bool { return tmpl[id] })
		if ok {
			delete(tmpl, head)
			r.log.Debug("reusing template heading", "section", sec.Key)
		} else {
			head = b.AppendParagraph(body.ParaSpec{Styles: r.Vocab.Heading(sec.Level), Text: sec.Title})
		}
		r.renderSection(b, sec, head, &rep)
	}

	res, err := r.tables.ApplyAll(b, doc.DynamicTables)
	rep.Tables = res
	if err != nil {
		return rep, err
	}

	if err := b.Flush(); err != nil {
		return rep, err
	}
	if err := enableUpdateFields(pkg); err != nil {
		return rep, err
	}
	return rep, nil
}

// renderSection bookmarks head, writes the section's blocks after it and
// recurses into children. It returns the last node written.
func (r *Renderer) renderSection(b *body.Body, sec *doctree.Section, head body.NodeID, rep *Report) body.NodeID {
	rep.Sections++
	b.AddSectionBookmark(head, sec.Key)

	cursor := head
	for _, blk := range sec.Content {
		cursor = r.insertBlock(b, cursor, blk)
	}
	for _, child := range sec.Children {
		h := b.InsertParagraphAfter(cursor, body.ParaSpec{Styles: r.Vocab.Heading(child.Level), Text: child.Title})
		cursor = r.renderSection(b, child, h, rep)
	}
	return cursor
}

func (r *Renderer) insertBlock(b *body.Body, cursor body.NodeID, blk doctree.ContentBlock) body.NodeID {
	switch blk.Kind {
	case doctree.KindParagraph:
		return b.InsertParagraphAfter(cursor, body.ParaSpec{Styles: r.Vocab.Body, Text: blk.Text, Runs: blk.Runs})

	case doctree.KindBulletList, doctree.KindNumberedList:
		styles := r.Vocab.Bullet
		if blk.Kind == doctree.KindNumberedList {
			styles = r.Vocab.Numbered
		}
		for i, item := range blk.Items {
			spec := body.ParaSpec{Styles: styles, Text: item, List: blk.Kind}
			if i < len(blk.ItemRuns) {
				spec.Runs = blk.ItemRuns[i]
			}
			cursor = b.InsertParagraphAfter(cursor, spec)
		}
		return cursor

	case doctree.KindTable:
		width := len(blk.Header)
		for _, row := range blk.Rows {
			width = max(width, len(row))
		}
		width = max(width, 1)
		first := 0
		if len(blk.Header) > 0 {
			first = 1
		}
		tbl := b.InsertTableAfter(cursor, first+len(blk.Rows), width, r.Vocab.Table)
		for c, v := range blk.Header {
			b.SetCellText(tbl, 0, c, v)
			b.SetCellBold(tbl, 0, c)
		}
		for i, row := range blk.Rows {
			for c, v := range row {
				b.SetCellText(tbl, first+i, c, v)
			}
		}
		cursor = tbl
		if blk.Caption != "" {
			cursor = b.InsertParagraphAfter(cursor, body.ParaSpec{Styles: r.Vocab.Caption, Text: blk.Caption})
		}
		return cursor
	}
	r.log.Warn("skipping unknown block kind", "kind", string(blk.Kind))
	return cursor
}

// enableUpdateFields asks Word to refresh fields such as the table of
// contents when the document is opened.
func enableUpdateFields(pkg *ooxml.Package) error {
	if !pkg.Has(ooxml.PartSettings) {
		return nil
	}
	doc, err := pkg.EditPart(ooxml.PartSettings)
	if err != nil {
		if errors.Is(err, ooxml.ErrPartMissing) {
			return nil
		}
		return err
	}
	ooxml.SettingsChild(doc.Root(), "updateFields").CreateAttr("w:val", "true")
	return nil
}
