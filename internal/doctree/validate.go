package doctree

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// ShapeError reports a violated model invariant. Section names the offending
// section title when there is one; Missing lists absent mandatory keys.
type ShapeError struct {
	Section string
	Missing []string
	Msg     string
}

func (e *ShapeError) Error() string {
	return "invalid document: " + e.Msg
}

func shapeErr(section, format string, args ...any) *ShapeError {
	return &ShapeError{Section: section, Msg: fmt.Sprintf(format, args...)}
}

// Validate checks the document against profile and returns the first
// violation found as a *ShapeError.
func (d *Document) Validate(p Profile) error {
	if err := d.Metadata.validate(); err != nil {
		return err
	}

	if missing := missingKeys(d.Sections, p.MandatoryKeys); len(missing) > 0 {
		return &ShapeError{
			Missing: missing,
			Msg:     "missing mandatory sections: " + strings.Join(missing, ", "),
		}
	}

	if p.ClassificationKey != "" {
		cls := d.Section(p.ClassificationKey)
		if cls != nil {
			if missing := missingKeys(cls.Children, p.ClassificationChildren); len(missing) > 0 {
				return &ShapeError{
					Section: cls.Title,
					Missing: missing,
					Msg:     fmt.Sprintf("section %q missing mandatory subsections: %s", cls.Title, strings.Join(missing, ", ")),
				}
			}
		}
	}

	if err := validateSiblings(d.Sections, 1, p); err != nil {
		return err
	}

	for i, t := range d.DynamicTables {
		if t.AfterHeading == "" && t.Label == "" {
			return shapeErr("", "dynamic table %d (%s) needs after_heading or label", i, t.Name)
		}
	}
	return nil
}

func (m Metadata) validate() error {
	if strings.TrimSpace(m.DocID) == "" {
		return shapeErr("", "doc_id must not be blank")
	}
	if strings.TrimSpace(m.Version) == "" {
		return shapeErr("", "version must not be blank")
	}
	if _, err := ParseDocType(string(m.DocType)); err != nil {
		return shapeErr("", "%v", err)
	}
	if _, err := ParseStatus(string(m.Status)); err != nil {
		return shapeErr("", "%v", err)
	}
	dates := []struct{ name, value string }{
		{"date_completed", m.DateCompleted},
		{"next_review_date", m.NextReviewDate},
	}
	for _, d := range dates {
		if d.value == "" {
			continue
		}
		if _, err := ParseDate(d.value); err != nil {
			return shapeErr("", "%s: %v", d.name, err)
		}
	}
	return nil
}

// ParseDate accepts a calendar date or an RFC 3339 timestamp.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is not an ISO-8601 date", s)
	}
	return t, nil
}

func validateSiblings(secs []*Section, level int, p Profile) error {
	seen := make(map[string]bool, len(secs))
	for _, s := range secs {
		if s == nil {
			return shapeErr("", "nil section at level %d", level)
		}
		if s.Level != level {
			if level == 1 {
				return shapeErr(s.Title, "Section %q must have level 1, got %d", s.Title, s.Level)
			}
			return shapeErr(s.Title, "Subsection %q must have level %d, got %d", s.Title, level, s.Level)
		}
		if p.MaxLevel > 0 && s.Level > p.MaxLevel {
			return shapeErr(s.Title, "Section %q exceeds maximum level %d", s.Title, p.MaxLevel)
		}
		if !ValidKey(s.Key) {
			return shapeErr(s.Title, "Section %q has invalid key %q", s.Title, s.Key)
		}
		if seen[s.Key] {
			return shapeErr(s.Title, "Section %q duplicates sibling key %q", s.Title, s.Key)
		}
		seen[s.Key] = true
		if strings.TrimSpace(s.Title) == "" {
			return shapeErr("", "section %q has a blank title", s.Key)
		}
		for i, b := range s.Content {
			if err := b.validate(); err != nil {
				return shapeErr(s.Title, "Section %q block %d: %v", s.Title, i, err)
			}
		}
		if err := validateSiblings(s.Children, level+1, p); err != nil {
			return err
		}
	}
	return nil
}

func (b ContentBlock) validate() error {
	switch b.Kind {
	case KindParagraph:
		if strings.TrimSpace(b.Text) == "" && len(b.Runs) == 0 {
			return fmt.Errorf("paragraph text is required")
		}
	case KindBulletList, KindNumberedList:
		if len(b.Items) == 0 {
			return fmt.Errorf("%s needs at least one item", b.Kind)
		}
		if len(b.ItemRuns) > 0 && len(b.ItemRuns) != len(b.Items) {
			return fmt.Errorf("%s has %d items but %d run lists", b.Kind, len(b.Items), len(b.ItemRuns))
		}
		for i, item := range b.Items {
			if strings.TrimSpace(item) == "" && (i >= len(b.ItemRuns) || len(b.ItemRuns[i]) == 0) {
				return fmt.Errorf("%s item %d has no text", b.Kind, i+1)
			}
		}
	case KindTable:
		if len(b.Rows) == 0 {
			return ErrEmptyTable
		}
	default:
		return fmt.Errorf("unknown block kind %q", b.Kind)
	}
	return nil
}

func missingKeys(secs []*Section, required []string) []string {
	have := make(map[string]bool, len(secs))
	for _, s := range secs {
		if s != nil {
			have[s.Key] = true
		}
	}
	var missing []string
	for _, k := range required {
		if !have[k] {
			missing = append(missing, k)
		}
	}
	sort.Strings(missing)
	return missing
}
