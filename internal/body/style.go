package body

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dgallion1/ismsdoc/internal/ooxml"
)

// Vocabulary lists candidate style names per role. The first candidate the
// template defines wins.
type Vocabulary struct {
	Headings map[int][]string
	Title    []string
	Body     []string
	Bullet   []string
	Numbered []string
	Table    []string
	Caption  []string
}

// DefaultVocabulary prefers the ISMS house styles and falls back to Word's
// built-in names.
func DefaultVocabulary() Vocabulary {
	v := Vocabulary{
		Headings: map[int][]string{},
		Title:    []string{"Title"},
		Body:     []string{"ISMS Body", "Normal"},
		Bullet:   []string{"ISMS List Bullet", "List Bullet", "List Paragraph", "Normal"},
		Numbered: []string{"ISMS List Numbered", "List Number", "List Paragraph", "Normal"},
		Table:    []string{"TracWater table", "ISMS Table", "Table Grid"},
		Caption:  []string{"Caption"},
	}
	for lvl := 1; lvl <= 9; lvl++ {
		v.Headings[lvl] = []string{fmt.Sprintf("ISMS Heading %d", lvl), fmt.Sprintf("Heading %d", lvl)}
	}
	return v
}

// WithTableStyle returns a copy whose table candidates start with name.
func (v Vocabulary) WithTableStyle(name string) Vocabulary {
	if name == "" {
		return v
	}
	out := v
	out.Table = append([]string{name}, v.Table...)
	return out
}

// Heading returns the candidates for a heading level.
func (v Vocabulary) Heading(level int) []string {
	if c, ok := v.Headings[level]; ok {
		return c
	}
	return []string{fmt.Sprintf("Heading %d", level)}
}

var headingName = regexp.MustCompile(`(?i)^(?:.*\s)?heading\s*([1-9])$`)

// HeadingLevel reports the heading level a style name stands for, or 0.
// Names listed in the vocabulary win; otherwise any name ending in
// "heading N" counts.
func (v Vocabulary) HeadingLevel(styleName string) int {
	name := strings.TrimSpace(styleName)
	if name == "" {
		return 0
	}
	for lvl, cands := range v.Headings {
		if containsFold(cands, name) {
			return lvl
		}
	}
	if m := headingName.FindStringSubmatch(name); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n
	}
	return 0
}

// IsTitle reports whether styleName is one of the title styles.
func (v Vocabulary) IsTitle(styleName string) bool { return containsFold(v.Title, styleName) }

// IsCaption reports whether styleName is one of the caption styles.
func (v Vocabulary) IsCaption(styleName string) bool { return containsFold(v.Caption, styleName) }

func containsFold(list []string, s string) bool {
	s = strings.TrimSpace(s)
	for _, c := range list {
		if strings.EqualFold(c, s) {
			return true
		}
	}
	return false
}

// resolve picks the first candidate style of type typ the template defines.
// A miss is not an error; the caller leaves the element unstyled.
func (b *Body) resolve(typ ooxml.StyleType, candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}
	id, ok := b.styles.Resolve(typ, candidates...)
	if !ok {
		b.log.Debug("style not available", "type", string(typ), "candidates", candidates)
		return ""
	}
	return id
}

// StyleName returns the display name of a paragraph's style, or "".
func (b *Body) StyleName(id NodeID) string {
	el := b.Elem(id)
	if el == nil {
		return ""
	}
	ps := el.FindElement("./w:pPr/w:pStyle")
	if ps == nil {
		ps = el.FindElement("./w:tblPr/w:tblStyle")
	}
	if ps == nil {
		return ""
	}
	return b.styles.DisplayName(ps.SelectAttrValue("w:val", ""))
}

// ListInfo reports the numbering of a paragraph: direct numPr first, then
// numbering inherited from its style.
func (b *Body) ListInfo(id NodeID) (format string, ilvl int, ok bool) {
	el := b.Elem(id)
	if el == nil {
		return "", 0, false
	}
	if numPr := el.FindElement("./w:pPr/w:numPr"); numPr != nil {
		numID, lvl := ooxml.ReadNumPr(numPr)
		if f, found := b.numbering.Format(numID, lvl); found {
			return f, lvl, true
		}
		if numID == "0" {
			return "", 0, false
		}
	}
	if ps := el.FindElement("./w:pPr/w:pStyle"); ps != nil {
		if st, found := b.styles.ByID(ps.SelectAttrValue("w:val", "")); found && st.NumID != "" {
			if f, found := b.numbering.Format(st.NumID, st.Ilvl); found {
				return f, st.Ilvl, true
			}
		}
	}
	return "", 0, false
}
