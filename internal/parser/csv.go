package parser

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/dgallion1/ismsdoc/internal/doctree"
)

// csvBatchSize caps the rows per section so large registers stay readable.
const csvBatchSize = 20

// CSVParser handles CSV files. The first record is the header; data rows
// are grouped into "Rows a-b" sections, each holding one table.
type CSVParser struct {
	Options
}

func (p *CSVParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	profile := p.profile()
	b := newBuilder(profile)

	if len(records) > 0 {
		headers := records[0]
		dataRows := records[1:]
		for i := 0; i < len(dataRows); i += csvBatchSize {
			end := min(i+csvBatchSize, len(dataRows))
			// 1-indexed, skip header
			b.heading(fmt.Sprintf("Rows %d-%d", i+2, end+1), 1, "")
			grid := append([][]string{headers}, dataRows[i:end]...)
			b.table(grid)
		}
	}
	return b.document(DefaultMetadata(stem(filename), p.DocType), profile)
}
