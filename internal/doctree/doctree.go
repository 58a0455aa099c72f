package doctree

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DocType is the kind of controlled document.
type DocType string

const (
	DocTypePolicy    DocType = "Policy"
	DocTypeProcedure DocType = "Procedure"
	DocTypeRecord    DocType = "Record"
)

// ParseDocType accepts any casing of a known document type.
func ParseDocType(s string) (DocType, error) {
	for _, t := range []DocType{DocTypePolicy, DocTypeProcedure, DocTypeRecord} {
		if strings.EqualFold(strings.TrimSpace(s), string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown document type %q", s)
}

func (t *DocType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseDocType(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Status is the approval state of a document.
type Status string

const (
	StatusDraft      Status = "Draft"
	StatusForReview  Status = "For Review"
	StatusApproved   Status = "Approved"
	StatusSuperseded Status = "Superseded"
	StatusObsolete   Status = "Obsolete"
)

// ParseStatus accepts "For Review", "for_review" and "for-review" alike.
func ParseStatus(s string) (Status, error) {
	norm := func(v string) string {
		v = strings.ToLower(strings.TrimSpace(v))
		return strings.NewReplacer("_", " ", "-", " ").Replace(v)
	}
	want := norm(s)
	for _, st := range []Status{StatusDraft, StatusForReview, StatusApproved, StatusSuperseded, StatusObsolete} {
		if norm(string(st)) == want {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", s)
}

func (s *Status) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	v, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Metadata describes a document. It is built once per run and treated as a
// value afterwards.
type Metadata struct {
	DocID            string   `json:"doc_id"`
	Title            string   `json:"title"`
	DocType          DocType  `json:"doc_type"`
	Version          string   `json:"version"`
	Status           Status   `json:"status"`
	Owner            string   `json:"owner"`
	Approver         string   `json:"approver,omitempty"`
	Confidentiality  string   `json:"confidentiality"`
	DateCompleted    string   `json:"date_completed,omitempty"`
	NextReviewDate   string   `json:"next_review_date,omitempty"`
	RelatedDocuments []string `json:"related_documents,omitempty"`
}

// Section is one node of the section tree. Children are exactly one level
// deeper than their parent.
type Section struct {
	Key      string         `json:"key"`
	Title    string         `json:"title"`
	Level    int            `json:"level"`
	Content  []ContentBlock `json:"content,omitempty"`
	Children []*Section     `json:"children,omitempty"`
}

// Find returns the direct child with the given key.
func (s *Section) Find(key string) *Section {
	for _, c := range s.Children {
		if c.Key == key {
			return c
		}
	}
	return nil
}

// Document is the full model: metadata, the section tree and any dynamic
// table specs to reconcile during generation.
type Document struct {
	Metadata      Metadata       `json:"metadata"`
	Sections      []*Section     `json:"sections"`
	DynamicTables []DynamicTable `json:"dynamic_tables,omitempty"`
}

// Section returns the top-level section with the given key.
func (d *Document) Section(key string) *Section {
	for _, s := range d.Sections {
		if s.Key == key {
			return s
		}
	}
	return nil
}

// Walk visits every section depth-first in document order. Returning false
// from fn stops descent into that section's children.
func (d *Document) Walk(fn func(s *Section) bool) {
	var walk func([]*Section)
	walk = func(secs []*Section) {
		for _, s := range secs {
			if fn(s) {
				walk(s.Children)
			}
		}
	}
	walk(d.Sections)
}

// Decode reads a JSON document model. The result is not validated.
func Decode(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return &doc, nil
}
