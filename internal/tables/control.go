package tables

import (
	"strings"

	"github.com/dgallion1/ismsdoc/internal/body"
	"github.com/dgallion1/ismsdoc/internal/doctree"
)

// ControlHeading is the heading (or cell text) that identifies the
// document-control table.
const ControlHeading = "Document Control"

// ControlLabel maps one metadata field to the labels a template may use for
// it. The first label is written when the row has to be created.
type ControlLabel struct {
	Labels []string
	Value  func(doctree.Metadata) string
}

// ControlLabels are the rows of the document-control table, in order.
type ControlLabels []ControlLabel

// DefaultControlLabels covers every metadata field shown in the
// document-control table.
func DefaultControlLabels() ControlLabels {
	return ControlLabels{
		{Labels: []string{"Document ID", "Doc ID", "Doc ID #", "Document ID #", "Doc ID No", "Document ID No"}, Value: func(m doctree.Metadata) string { return m.DocID }},
		{Labels: []string{"Title", "Document Title"}, Value: func(m doctree.Metadata) string { return m.Title }},
		{Labels: []string{"Version", "Rev", "Revision"}, Value: func(m doctree.Metadata) string { return m.Version }},
		{Labels: []string{"Owner", "Document Owner", "Doc Owner", "Document Owner Name"}, Value: func(m doctree.Metadata) string { return m.Owner }},
		{Labels: []string{"Approved By", "Approver"}, Value: func(m doctree.Metadata) string { return m.Approver }},
		{Labels: []string{"Confidentiality", "Classification"}, Value: func(m doctree.Metadata) string { return m.Confidentiality }},
		{Labels: []string{"Status", "Document Status", "Doc Status", "Approval Status"}, Value: func(m doctree.Metadata) string { return string(m.Status) }},
		{Labels: []string{"Date Completed", "Completed"}, Value: func(m doctree.Metadata) string { return m.DateCompleted }},
		{Labels: []string{"Next Review Date", "Next Review", "Review Date"}, Value: func(m doctree.Metadata) string { return m.NextReviewDate }},
		{Labels: []string{"Document Type", "Type"}, Value: func(m doctree.Metadata) string { return string(m.DocType) }},
	}
}

// normalizeLabel lower-cases a label and strips spaces and colons.
func normalizeLabel(s string) string {
	return strings.NewReplacer(" ", "", ":", "", "\t", "", "\n", "").Replace(strings.ToLower(strings.TrimSpace(s)))
}

// Pair is one key/value row.
type Pair struct {
	Key     string
	Aliases []string
	Value   string
}

// ControlTable fills the document-control table from meta. The table is the
// first one after a "Document Control" paragraph, or the first containing a
// "Document Control" cell. Skipped is set when neither exists.
func (r *Reconciler) ControlTable(b *body.Body, meta doctree.Metadata, labels ControlLabels) Result {
	if labels == nil {
		labels = DefaultControlLabels()
	}
	tbl, ok := b.FindTableAfterHeading(ControlHeading)
	if !ok {
		tbl, ok = b.FindTableWithCell(ControlHeading)
	}
	if !ok {
		r.log.Info("document control table not found")
		return Result{Skipped: true}
	}
	pairs := make([]Pair, 0, len(labels))
	for _, l := range labels {
		if len(l.Labels) == 0 {
			continue
		}
		pairs = append(pairs, Pair{Key: l.Labels[0], Aliases: l.Labels[1:], Value: l.Value(meta)})
	}
	upsertPairs(b, tbl, pairs)
	return Result{Table: tbl}
}

// KeyValue fills the two-column table after heading with pairs. Existing
// rows are matched by their first cell; unmatched keys become new rows.
// When the table is missing and create is set, a two-column table is
// created under the heading.
func (r *Reconciler) KeyValue(b *body.Body, heading string, pairs []Pair, create bool) (Result, error) {
	tbl, ok := b.FindTableAfterHeading(heading)
	if !ok {
		if !create {
			return Result{Skipped: true}, nil
		}
		rows := make([]doctree.Row, len(pairs))
		for i, p := range pairs {
			rows[i] = doctree.ListRow(p.Key, p.Value)
		}
		return r.Apply(b, doctree.DynamicTable{
			Name:            heading,
			AfterHeading:    heading,
			CreateIfMissing: true,
			Columns:         []string{"Item", "Value"},
			Rows:            rows,
		})
	}
	upsertPairs(b, tbl, pairs)
	return Result{Table: tbl}, nil
}

func upsertPairs(b *body.Body, tbl body.NodeID, pairs []Pair) {
	b.EnsureColumns(tbl, 2)
	existing := map[string]int{}
	for i, row := range b.Grid(tbl) {
		if len(row) == 0 {
			continue
		}
		if key := normalizeLabel(row[0]); key != "" {
			if _, dup := existing[key]; !dup {
				existing[key] = i
			}
		}
	}
	for _, p := range pairs {
		idx, found := -1, false
		for _, k := range append([]string{p.Key}, p.Aliases...) {
			if idx, found = existing[normalizeLabel(k)]; found {
				break
			}
		}
		if !found {
			idx = b.RowCount(tbl)
			b.ResizeRows(tbl, idx+1)
			b.SetCellText(tbl, idx, 0, p.Key)
			existing[normalizeLabel(p.Key)] = idx
		}
		b.SetCellText(tbl, idx, 1, p.Value)
	}
}
