package ooxml

import (
	"errors"
	"sort"
	"strconv"
)

// Numbering resolves list formats from word/numbering.xml.
type Numbering struct {
	abstractOf map[string]string         // numId -> abstractNumId
	formats    map[string]map[int]string // abstractNumId -> ilvl -> numFmt
	numOrder   []string
}

// LoadNumbering reads word/numbering.xml. A package without one yields an
// empty table where every lookup misses.
func LoadNumbering(p *Package) (*Numbering, error) {
	n := &Numbering{abstractOf: map[string]string{}, formats: map[string]map[int]string{}}
	doc, err := p.Part(PartNumbering)
	if err != nil {
		if errors.Is(err, ErrPartMissing) {
			return n, nil
		}
		return nil, err
	}
	root := doc.Root()
	for _, abs := range root.SelectElements("w:abstractNum") {
		id := abs.SelectAttrValue("w:abstractNumId", "")
		levels := map[int]string{}
		for _, lvl := range abs.SelectElements("w:lvl") {
			ilvl, err := strconv.Atoi(lvl.SelectAttrValue("w:ilvl", "0"))
			if err != nil {
				continue
			}
			if f := lvl.SelectElement("w:numFmt"); f != nil {
				levels[ilvl] = f.SelectAttrValue("w:val", "")
			}
		}
		n.formats[id] = levels
	}
	for _, num := range root.SelectElements("w:num") {
		id := num.SelectAttrValue("w:numId", "")
		if a := num.SelectElement("w:abstractNumId"); a != nil {
			n.abstractOf[id] = a.SelectAttrValue("w:val", "")
			n.numOrder = append(n.numOrder, id)
		}
	}
	return n, nil
}

// Format returns the numFmt ("bullet", "decimal", ...) for numID at ilvl.
// When the level is not defined the lowest defined level is used.
// numId "0" means "no numbering" and always misses.
func (n *Numbering) Format(numID string, ilvl int) (string, bool) {
	if numID == "" || numID == "0" {
		return "", false
	}
	levels, ok := n.formats[n.abstractOf[numID]]
	if !ok || len(levels) == 0 {
		return "", false
	}
	if f, ok := levels[ilvl]; ok {
		return f, true
	}
	keys := make([]int, 0, len(levels))
	for k := range levels {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return levels[keys[0]], true
}

// FindNum returns the first numId whose level 0 format satisfies match.
func (n *Numbering) FindNum(match func(format string) bool) (string, bool) {
	for _, id := range n.numOrder {
		if f, ok := n.Format(id, 0); ok && match(f) {
			return id, true
		}
	}
	return "", false
}
