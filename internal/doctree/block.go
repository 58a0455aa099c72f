package doctree

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// BlockKind tags the variant held by a ContentBlock.
type BlockKind string

const (
	KindParagraph    BlockKind = "paragraph"
	KindBulletList   BlockKind = "bullet_list"
	KindNumberedList BlockKind = "numbered_list"
	KindTable        BlockKind = "table"
)

// IsList reports whether k is one of the list kinds.
func (k BlockKind) IsList() bool {
	return k == KindBulletList || k == KindNumberedList
}

// ErrEmptyTable is returned when a table block is built without body rows.
var ErrEmptyTable = errors.New("table block requires at least one row")

// Run is a span of text sharing one formatting state.
type Run struct {
	Text      string `json:"text"`
	Bold      bool   `json:"bold,omitempty"`
	Italic    bool   `json:"italic,omitempty"`
	Underline bool   `json:"underline,omitempty"`
	Hyperlink string `json:"hyperlink,omitempty"`
}

// Plain reports whether the run carries no formatting and no link.
func (r Run) Plain() bool {
	return !r.Bold && !r.Italic && !r.Underline && r.Hyperlink == ""
}

// SameFormat reports whether two runs could be merged into one.
func (r Run) SameFormat(o Run) bool {
	return r.Bold == o.Bold && r.Italic == o.Italic && r.Underline == o.Underline && r.Hyperlink == o.Hyperlink
}

// ContentBlock is a closed variant over paragraph, bullet list, numbered
// list and table. Only the fields of its Kind are meaningful.
type ContentBlock struct {
	Kind BlockKind

	// paragraph
	Text string
	Runs []Run

	// bullet_list, numbered_list
	Items    []string
	ItemRuns [][]Run

	// table
	Header  []string
	Rows    [][]string
	Caption string
}

// NewParagraph builds a paragraph block. Runs are optional; when given their
// concatenated text should equal text.
func NewParagraph(text string, runs ...Run) ContentBlock {
	return ContentBlock{Kind: KindParagraph, Text: text, Runs: runs}
}

// NewBulletList builds a bullet list block.
func NewBulletList(items ...string) ContentBlock {
	return ContentBlock{Kind: KindBulletList, Items: items}
}

// NewNumberedList builds a numbered list block.
func NewNumberedList(items ...string) ContentBlock {
	return ContentBlock{Kind: KindNumberedList, Items: items}
}

// NewTable builds a table block. Header may be nil; rows may not be empty.
func NewTable(header []string, rows [][]string) (ContentBlock, error) {
	if len(rows) == 0 {
		return ContentBlock{}, ErrEmptyTable
	}
	return ContentBlock{Kind: KindTable, Header: header, Rows: rows}, nil
}

// PlainText returns the block text as a single string. List items and
// table rows are joined with newlines.
func (b ContentBlock) PlainText() string {
	switch b.Kind {
	case KindParagraph:
		return b.Text
	case KindBulletList, KindNumberedList:
		return strings.Join(b.Items, "\n")
	case KindTable:
		var lines []string
		if len(b.Header) > 0 {
			lines = append(lines, strings.Join(b.Header, "\t"))
		}
		for _, r := range b.Rows {
			lines = append(lines, strings.Join(r, "\t"))
		}
		return strings.Join(lines, "\n")
	}
	return ""
}

type blockJSON struct {
	Kind    BlockKind       `json:"kind"`
	Text    json.RawMessage `json:"text,omitempty"`
	Items   []string        `json:"items,omitempty"`
	Runs    json.RawMessage `json:"runs,omitempty"`
	Header  []string        `json:"header,omitempty"`
	Rows    [][]string      `json:"rows,omitempty"`
	Caption string          `json:"caption,omitempty"`
}

// UnmarshalJSON decides the variant from "kind". Paragraph text may be a
// string or a list of lines; list text may be a list or a single string.
func (b *ContentBlock) UnmarshalJSON(data []byte) error {
	var raw blockJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var strs []string
	var str string
	isList := false
	if len(raw.Text) > 0 {
		if err := json.Unmarshal(raw.Text, &str); err != nil {
			if err := json.Unmarshal(raw.Text, &strs); err != nil {
				return fmt.Errorf("content block text must be a string or list of strings")
			}
			isList = true
		}
	}

	switch raw.Kind {
	case KindParagraph:
		*b = ContentBlock{Kind: KindParagraph, Text: str}
		if isList {
			b.Text = strings.Join(strs, "\n")
		}
		if len(raw.Runs) > 0 {
			if err := json.Unmarshal(raw.Runs, &b.Runs); err != nil {
				return fmt.Errorf("paragraph runs: %w", err)
			}
		}
	case KindBulletList, KindNumberedList:
		*b = ContentBlock{Kind: raw.Kind}
		switch {
		case len(raw.Items) > 0:
			b.Items = raw.Items
		case isList:
			b.Items = strs
		case str != "":
			b.Items = []string{str}
		}
		if len(raw.Runs) > 0 {
			if err := json.Unmarshal(raw.Runs, &b.ItemRuns); err != nil {
				return fmt.Errorf("list runs: %w", err)
			}
		}
	case KindTable:
		blk, err := NewTable(raw.Header, raw.Rows)
		if err != nil {
			return err
		}
		blk.Caption = raw.Caption
		*b = blk
	case "":
		return fmt.Errorf("content block missing kind")
	default:
		return fmt.Errorf("unknown content block kind %q", raw.Kind)
	}
	return nil
}

func (b ContentBlock) MarshalJSON() ([]byte, error) {
	out := blockJSON{Kind: b.Kind}
	var err error
	switch b.Kind {
	case KindParagraph:
		if out.Text, err = json.Marshal(b.Text); err != nil {
			return nil, err
		}
		if len(b.Runs) > 0 {
			if out.Runs, err = json.Marshal(b.Runs); err != nil {
				return nil, err
			}
		}
	case KindBulletList, KindNumberedList:
		items := b.Items
		if items == nil {
			items = []string{}
		}
		if out.Text, err = json.Marshal(items); err != nil {
			return nil, err
		}
		if len(b.ItemRuns) > 0 {
			if out.Runs, err = json.Marshal(b.ItemRuns); err != nil {
				return nil, err
			}
		}
	case KindTable:
		out.Header = b.Header
		out.Rows = b.Rows
		out.Caption = b.Caption
	}
	return json.Marshal(out)
}
