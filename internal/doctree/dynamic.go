package doctree

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// RowKind tags the variant held by a Row.
type RowKind int

const (
	RowScalar RowKind = iota
	RowList
	RowMap
)

// Row is one data row of a dynamic table. List rows map cells by column
// index, mapping rows by column name, and scalar rows land in the first cell.
type Row struct {
	Kind   RowKind
	Cells  []string
	Fields map[string]string
	Value  string
}

// ListRow builds a row whose cells map by column index.
func ListRow(cells ...string) Row { return Row{Kind: RowList, Cells: cells} }

// MapRow builds a row whose cells map by column name.
func MapRow(fields map[string]string) Row { return Row{Kind: RowMap, Fields: fields} }

// ScalarRow builds a row that fills only the first cell.
func ScalarRow(v string) Row { return Row{Kind: RowScalar, Value: v} }

// UnmarshalJSON picks the variant from the JSON shape.
func (r *Row) UnmarshalJSON(b []byte) error {
	var anyv any
	if err := json.Unmarshal(b, &anyv); err != nil {
		return err
	}
	switch v := anyv.(type) {
	case []any:
		cells := make([]string, len(v))
		for i, c := range v {
			cells[i] = stringify(c)
		}
		*r = ListRow(cells...)
	case map[string]any:
		fields := make(map[string]string, len(v))
		for k, c := range v {
			fields[k] = stringify(c)
		}
		*r = MapRow(fields)
	default:
		*r = ScalarRow(stringify(v))
	}
	return nil
}

func (r Row) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case RowList:
		return json.Marshal(r.Cells)
	case RowMap:
		return json.Marshal(r.Fields)
	}
	return json.Marshal(r.Value)
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

// DynamicTable declares a table that generation finds or creates and then
// fills. The target is the first table after AfterHeading, or failing that
// any table with a cell containing Label.
type DynamicTable struct {
	Name            string   `json:"name"`
	AfterHeading    string   `json:"after_heading,omitempty"`
	Label           string   `json:"label,omitempty"`
	CreateIfMissing bool     `json:"create_if_missing"`
	Heading         string   `json:"heading,omitempty"`
	Columns         []string `json:"columns"`
	Rows            []Row    `json:"rows"`
	TableStyle      string   `json:"table_style,omitempty"`
}

// Width is the grid width the table needs: the declared column count or the
// widest list row, and never less than one.
func (t DynamicTable) Width() int {
	w := len(t.Columns)
	for _, r := range t.Rows {
		if r.Kind == RowList && len(r.Cells) > w {
			w = len(r.Cells)
		}
	}
	if w < 1 {
		w = 1
	}
	return w
}

// ColumnName returns the header label for column i, defaulting to Col<i+1>.
func (t DynamicTable) ColumnName(i int) string {
	if i < len(t.Columns) && t.Columns[i] != "" {
		return t.Columns[i]
	}
	return fmt.Sprintf("Col%d", i+1)
}

// Cells lays one row out across width columns.
func (t DynamicTable) Cells(r Row, width int) []string {
	out := make([]string, width)
	switch r.Kind {
	case RowList:
		copy(out, r.Cells)
	case RowMap:
		for i := range out {
			out[i] = r.Fields[t.ColumnName(i)]
		}
	default:
		if width > 0 {
			out[0] = r.Value
		}
	}
	return out
}
