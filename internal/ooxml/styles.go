package ooxml

import (
	"errors"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// StyleType is the w:type of a style definition.
type StyleType string

const (
	StyleParagraph StyleType = "paragraph"
	StyleCharacter StyleType = "character"
	StyleTable     StyleType = "table"
	StyleNumbering StyleType = "numbering"
)

// Style is one w:style entry of styles.xml.
type Style struct {
	ID      string
	Name    string
	Type    StyleType
	BasedOn string
	Default bool

	// Numbering attached to a paragraph style (w:pPr/w:numPr).
	NumID string
	Ilvl  int
}

// Styles is the style catalog of a package.
type Styles struct {
	order  []Style
	byID   map[string]int
	byName map[string]int
}

// LoadStyles reads word/styles.xml. A package without one yields an empty
// catalog.
func LoadStyles(p *Package) (*Styles, error) {
	s := &Styles{byID: map[string]int{}, byName: map[string]int{}}
	doc, err := p.Part(PartStyles)
	if err != nil {
		if errors.Is(err, ErrPartMissing) {
			return s, nil
		}
		return nil, err
	}
	for _, e := range doc.Root().SelectElements("w:style") {
		st := Style{
			ID:      e.SelectAttrValue("w:styleId", ""),
			Type:    StyleType(e.SelectAttrValue("w:type", "paragraph")),
			Default: onOff(e.SelectAttrValue("w:default", "")),
		}
		if n := e.SelectElement("w:name"); n != nil {
			st.Name = n.SelectAttrValue("w:val", "")
		}
		if b := e.SelectElement("w:basedOn"); b != nil {
			st.BasedOn = b.SelectAttrValue("w:val", "")
		}
		if numPr := e.FindElement("w:pPr/w:numPr"); numPr != nil {
			st.NumID, st.Ilvl = ReadNumPr(numPr)
		}
		s.add(st)
	}
	return s, nil
}

func (s *Styles) add(st Style) {
	i := len(s.order)
	s.order = append(s.order, st)
	if st.ID != "" {
		if _, ok := s.byID[st.ID]; !ok {
			s.byID[st.ID] = i
		}
	}
	if st.Name != "" {
		key := strings.ToLower(st.Name)
		if _, ok := s.byName[key]; !ok {
			s.byName[key] = i
		}
	}
}

// ByID returns the style with the given id.
func (s *Styles) ByID(id string) (Style, bool) {
	i, ok := s.byID[id]
	if !ok {
		return Style{}, false
	}
	return s.order[i], true
}

// Lookup finds a style of type typ by display name (case-insensitive) or by
// id. An empty typ matches any type.
func (s *Styles) Lookup(nameOrID string, typ StyleType) (Style, bool) {
	if i, ok := s.byName[strings.ToLower(nameOrID)]; ok {
		if st := s.order[i]; typ == "" || st.Type == typ {
			return st, true
		}
	}
	if i, ok := s.byID[nameOrID]; ok {
		if st := s.order[i]; typ == "" || st.Type == typ {
			return st, true
		}
	}
	return Style{}, false
}

// Resolve returns the id of the first candidate present in the catalog. The
// second result is false when none is, meaning "leave the default style".
func (s *Styles) Resolve(typ StyleType, candidates ...string) (string, bool) {
	for _, c := range candidates {
		if st, ok := s.Lookup(c, typ); ok {
			return st.ID, true
		}
	}
	return "", false
}

// DisplayName maps a style id to its name, or returns the id when the
// catalog has no such style.
func (s *Styles) DisplayName(id string) string {
	if st, ok := s.ByID(id); ok && st.Name != "" {
		return st.Name
	}
	return id
}

// Len is the number of styles in the catalog.
func (s *Styles) Len() int { return len(s.order) }

// ReadNumPr reads numId and ilvl from a w:numPr element.
func ReadNumPr(numPr *etree.Element) (numID string, ilvl int) {
	if n := numPr.SelectElement("w:numId"); n != nil {
		numID = n.SelectAttrValue("w:val", "")
	}
	if l := numPr.SelectElement("w:ilvl"); l != nil {
		ilvl, _ = strconv.Atoi(l.SelectAttrValue("w:val", "0"))
	}
	return numID, ilvl
}

func onOff(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "on":
		return true
	}
	return false
}
