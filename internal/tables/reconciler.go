// Package tables finds, creates and fills the declarative tables of a
// generated document.
package tables

import (
	"fmt"
	"log/slog"

	"github.com/dgallion1/ismsdoc/internal/body"
	"github.com/dgallion1/ismsdoc/internal/doctree"
)

// HeadingLevel is the level of a heading created for a table whose anchor
// heading does not exist yet.
const HeadingLevel = 2

// Result reports what Apply did. Skipped means no target was found and the
// spec did not ask for one to be created.
type Result struct {
	Table    body.NodeID
	Skipped  bool
	Created  bool
	Replaced bool
}

// Reconciler fills dynamic tables.
type Reconciler struct {
	log *slog.Logger
}

// NewReconciler creates a reconciler. A nil logger discards output.
func NewReconciler(log *slog.Logger) *Reconciler {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Reconciler{log: log}
}

// Apply locates the table spec describes, creating or replacing it as
// needed, and writes the header and rows. Applying the same spec twice
// leaves the same table.
func (r *Reconciler) Apply(b *body.Body, spec doctree.DynamicTable) (Result, error) {
	if spec.AfterHeading == "" && spec.Label == "" {
		return Result{}, fmt.Errorf("dynamic table %q: after_heading or label is required", spec.Name)
	}

	var (
		anchor body.NodeID
		target body.NodeID
		found  bool
	)
	if spec.AfterHeading != "" {
		anchor, _ = b.FindParagraph(spec.AfterHeading)
		target, found = b.FindTableAfterHeading(spec.AfterHeading)
	}
	if !found && spec.Label != "" {
		target, found = b.FindTableWithCell(spec.Label)
		if found && anchor == body.None {
			anchor = target
		}
	}
	if !found && spec.AfterHeading == "" {
		// A label-only table created by an earlier run sits under a heading
		// named after the label.
		if head, ok := b.FindParagraph(spec.Label); ok {
			anchor = head
			target, found = b.FindTableAfterHeading(spec.Label)
		}
	}

	width := spec.Width()
	rows := 1 + len(spec.Rows)
	styles := b.Vocabulary().WithTableStyle(spec.TableStyle).Table
	res := Result{}

	switch {
	case !found && !spec.CreateIfMissing:
		r.log.Info("dynamic table target not found", "table", spec.Name, "after_heading", spec.AfterHeading, "label", spec.Label)
		return Result{Skipped: true}, nil

	case !found:
		if anchor == body.None {
			text := spec.AfterHeading
			if text == "" {
				text = spec.Label
			}
			anchor, _ = b.EnsureHeading(text, HeadingLevel)
		}
		if spec.Heading != "" {
			anchor = b.InsertParagraphAfter(anchor, body.ParaSpec{Text: spec.Heading, Bold: true})
		}
		target = b.InsertTableAfter(anchor, rows, width, styles)
		res.Created = true

	case b.ColumnCount(target) != width:
		stale := target
		if anchor == stale {
			target = b.InsertTableAfter(stale, rows, width, styles)
		} else {
			target = b.InsertTableAfter(anchor, rows, width, styles)
		}
		b.Remove(stale)
		res.Replaced = true
		r.log.Debug("dynamic table replaced", "table", spec.Name, "width", width)
	}

	b.ResizeRows(target, rows)
	b.SetTableStyle(target, styles)

	for c := range width {
		b.SetCellText(target, 0, c, spec.ColumnName(c))
	}
	for i, row := range spec.Rows {
		for c, v := range spec.Cells(row, width) {
			b.SetCellText(target, i+1, c, v)
		}
	}
	res.Table = target
	return res, nil
}

// ApplyAll applies every spec in order and returns one result per spec.
func (r *Reconciler) ApplyAll(b *body.Body, specs []doctree.DynamicTable) ([]Result, error) {
	out := make([]Result, 0, len(specs))
	for _, spec := range specs {
		res, err := r.Apply(b, spec)
		if err != nil {
			return out, err
		}
		out = append(out, res)
	}
	return out, nil
}
