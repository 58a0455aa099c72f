package parser

import (
	"fmt"
	"strings"

	"github.com/dgallion1/ismsdoc/internal/doctree"
)

// Default metadata for imported documents that carry none.
const (
	DefaultDocID           = "REC-UNKNOWN-000"
	DefaultVersion         = "0.1"
	DefaultOwner           = "TBD"
	DefaultConfidentiality = "Internal"
)

// builder grows a section tree from a flat stream of headings and blocks.
// Every importer feeds one.
type builder struct {
	maxLevel int
	roots    []*doctree.Section
	stack    []*doctree.Section

	// openList is set while consecutive list items may still merge into
	// the last block of the current section.
	openList doctree.BlockKind
	// afterTable is set while the last thing added was a table.
	afterTable bool
}

func newBuilder(p doctree.Profile) *builder {
	return &builder{maxLevel: p.MaxLevel}
}

// heading opens a section. The level is normalized to one below the
// enclosing section; a heading deeper than the profile allows is kept as a
// paragraph instead. key may be empty, in which case the title is slugged.
func (b *builder) heading(title string, level int, key string) {
	title = strings.TrimSpace(title)
	if title == "" {
		return
	}
	if b.maxLevel > 0 && level > b.maxLevel {
		b.paragraph(title, nil)
		return
	}
	for len(b.stack) > 0 && b.stack[len(b.stack)-1].Level >= level {
		b.stack = b.stack[:len(b.stack)-1]
	}

	parentLevel := 0
	siblings := &b.roots
	if len(b.stack) > 0 {
		parent := b.stack[len(b.stack)-1]
		parentLevel = parent.Level
		siblings = &parent.Children
	}
	if key == "" || !doctree.ValidKey(key) {
		key = doctree.Slugify(title)
	}
	sec := &doctree.Section{
		Key:   uniqueKey(*siblings, key),
		Title: title,
		Level: parentLevel + 1,
	}
	*siblings = append(*siblings, sec)
	b.stack = append(b.stack, sec)
	b.reset()
}

// uniqueKey suffixes key with _2, _3... until no sibling uses it.
func uniqueKey(siblings []*doctree.Section, key string) string {
	taken := make(map[string]bool, len(siblings))
	for _, s := range siblings {
		taken[s.Key] = true
	}
	if !taken[key] {
		return key
	}
	for n := 2; ; n++ {
		k := fmt.Sprintf("%s_%d", key, n)
		if !taken[k] {
			return k
		}
	}
}

// current returns the open section, synthesizing a level-1 "Body" section
// when content arrives before any heading.
func (b *builder) current() *doctree.Section {
	if len(b.stack) == 0 {
		sec := &doctree.Section{Key: uniqueKey(b.roots, "body"), Title: "Body", Level: 1}
		b.roots = append(b.roots, sec)
		b.stack = append(b.stack, sec)
	}
	return b.stack[len(b.stack)-1]
}

func (b *builder) reset() {
	b.openList = ""
	b.afterTable = false
}

func (b *builder) add(blk doctree.ContentBlock) {
	sec := b.current()
	sec.Content = append(sec.Content, blk)
	b.reset()
	b.afterTable = blk.Kind == doctree.KindTable
}

// paragraph adds a paragraph block. Runs are kept only when they carry
// formatting or a link.
func (b *builder) paragraph(text string, runs []doctree.Run) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	b.add(doctree.NewParagraph(text, significant(runs)...))
}

// listItem appends an item, merging it into the previous block when that
// block is a list of the same kind that nothing has interrupted.
func (b *builder) listItem(kind doctree.BlockKind, text string, runs []doctree.Run) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	runs = significant(runs)
	sec := b.current()
	if b.openList == kind && len(sec.Content) > 0 {
		last := &sec.Content[len(sec.Content)-1]
		if last.Kind == kind {
			last.Items = append(last.Items, text)
			if len(last.ItemRuns) > 0 || len(runs) > 0 {
				for len(last.ItemRuns) < len(last.Items)-1 {
					last.ItemRuns = append(last.ItemRuns, nil)
				}
				last.ItemRuns = append(last.ItemRuns, runs)
			}
			return
		}
	}
	blk := doctree.ContentBlock{Kind: kind, Items: []string{text}}
	if len(runs) > 0 {
		blk.ItemRuns = [][]doctree.Run{runs}
	}
	b.add(blk)
	b.openList = kind
}

// table adds a table block from a raw grid. The first non-empty row is the
// header; a table with nothing else keeps that row as its only body row.
// Fully empty tables are ignored.
func (b *builder) table(grid [][]string) bool {
	var rows [][]string
	for _, raw := range grid {
		row := make([]string, len(raw))
		for i, c := range raw {
			row[i] = strings.TrimSpace(c)
		}
		for len(row) > 0 && row[len(row)-1] == "" {
			row = row[:len(row)-1]
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}
	if len(rows) == 0 {
		b.reset()
		return false
	}
	blk := doctree.ContentBlock{Kind: doctree.KindTable, Header: rows[0], Rows: rows[1:]}
	if len(blk.Rows) == 0 {
		blk.Header, blk.Rows = nil, rows
	}
	b.add(blk)
	return true
}

// caption attaches text to the table added last. It reports false when the
// previous block is not a table.
func (b *builder) caption(text string) bool {
	if !b.afterTable || len(b.stack) == 0 {
		return false
	}
	sec := b.stack[len(b.stack)-1]
	last := &sec.Content[len(sec.Content)-1]
	last.Caption = strings.TrimSpace(text)
	b.afterTable = false
	return true
}

// significant drops runs when all of them are plain text and merges
// neighbours that share formatting.
func significant(runs []doctree.Run) []doctree.Run {
	formatted := false
	for _, r := range runs {
		if !r.Plain() {
			formatted = true
			break
		}
	}
	if !formatted {
		return nil
	}
	return coalesce(runs)
}

func coalesce(runs []doctree.Run) []doctree.Run {
	var out []doctree.Run
	for _, r := range runs {
		if r.Text == "" {
			continue
		}
		if n := len(out); n > 0 && out[n-1].SameFormat(r) {
			out[n-1].Text += r.Text
			continue
		}
		out = append(out, r)
	}
	if n := len(out); n > 0 {
		out[0].Text = strings.TrimLeft(out[0].Text, " \t\n")
		out[n-1].Text = strings.TrimRight(out[n-1].Text, " \t\n")
	}
	return out
}

// document finishes the tree: mandatory sections are backfilled and the
// result is validated against the profile.
func (b *builder) document(meta doctree.Metadata, p doctree.Profile) (*doctree.Document, error) {
	doc := &doctree.Document{Metadata: meta, Sections: b.roots}
	Backfill(doc, p)
	if err := doc.Validate(p); err != nil {
		return nil, fmt.Errorf("imported document is invalid: %w", err)
	}
	return doc, nil
}

// DefaultMetadata is the metadata of an import that found none.
func DefaultMetadata(title string, docType doctree.DocType) doctree.Metadata {
	if docType == "" {
		docType = doctree.DocTypeRecord
	}
	return doctree.Metadata{
		DocID:           DefaultDocID,
		Title:           title,
		DocType:         docType,
		Version:         DefaultVersion,
		Status:          doctree.StatusDraft,
		Owner:           DefaultOwner,
		Confidentiality: DefaultConfidentiality,
	}
}

func placeholder(title string, topLevel bool) string {
	where := ""
	if topLevel {
		where = " as a top-level section"
	}
	return fmt.Sprintf("(Imported from existing business document. %s has not been explicitly captured%s and should be reviewed and completed.)", title, where)
}

// Backfill makes doc carry every mandatory section of p. Mandatory
// top-level sections move to the front in profile order; other sections
// keep their relative order after them. Missing purpose and scope sections,
// and missing classification children, get placeholder text.
func Backfill(doc *doctree.Document, p doctree.Profile) {
	mandatory := make(map[string]bool, len(p.MandatoryKeys))
	for _, k := range p.MandatoryKeys {
		mandatory[k] = true
	}

	found := map[string]*doctree.Section{}
	var rest []*doctree.Section
	for _, s := range doc.Sections {
		if mandatory[s.Key] && found[s.Key] == nil {
			found[s.Key] = s
			continue
		}
		rest = append(rest, s)
	}

	ordered := make([]*doctree.Section, 0, len(p.MandatoryKeys)+len(rest))
	for _, key := range p.MandatoryKeys {
		if s := found[key]; s != nil {
			ordered = append(ordered, s)
			continue
		}
		title := doctree.TitleFor(key)
		sec := &doctree.Section{Key: key, Title: title, Level: 1}
		if key == doctree.KeyPurpose || key == doctree.KeyScope {
			sec.Content = []doctree.ContentBlock{doctree.NewParagraph(placeholder(title, true))}
		}
		ordered = append(ordered, sec)
	}
	doc.Sections = append(ordered, rest...)

	if p.ClassificationKey == "" {
		return
	}
	cls := doc.Section(p.ClassificationKey)
	if cls == nil {
		return
	}
	for _, key := range p.ClassificationChildren {
		if cls.Find(key) != nil {
			continue
		}
		title := doctree.TitleFor(key)
		cls.Children = append(cls.Children, &doctree.Section{
			Key:     key,
			Title:   title,
			Level:   cls.Level + 1,
			Content: []doctree.ContentBlock{doctree.NewParagraph(placeholder(title, false))},
		})
	}
}
