package parser

import (
	"strings"

	"github.com/beevik/etree"
	"github.com/dgallion1/ismsdoc/internal/body"
	"github.com/dgallion1/ismsdoc/internal/doctree"
	"github.com/dgallion1/ismsdoc/internal/ooxml"
)

// hyperlinks maps each run inside a link to its target. Field codes are
// read first; w:hyperlink elements are read second and win where both
// apply.
func hyperlinks(b *body.Body) map[*etree.Element]string {
	links := map[*etree.Element]string{}
	var roots []*etree.Element
	for _, id := range b.Nodes() {
		if el := b.Elem(id); el != nil {
			roots = append(roots, el)
		}
	}
	fieldLinks(roots, links)
	relationshipLinks(roots, b.Rels(), links)
	return links
}

type field struct {
	instr  strings.Builder
	result bool
	target string
}

// fieldLinks handles w:fldSimple and complex fields built from w:fldChar
// begin/separate/end with a HYPERLINK instruction. Complex fields may span
// paragraphs, so state carries across roots.
func fieldLinks(roots []*etree.Element, links map[*etree.Element]string) {
	var stack []*field
	for _, root := range roots {
		for _, fs := range root.FindElements(".//w:fldSimple") {
			target := hyperlinkTarget(fs.SelectAttrValue("w:instr", ""))
			if target == "" {
				continue
			}
			for _, r := range fs.FindElements(".//w:r") {
				links[r] = target
			}
		}

		for _, r := range root.FindElements(".//w:r") {
			for _, c := range r.ChildElements() {
				switch c.Tag {
				case "fldChar":
					switch c.SelectAttrValue("w:fldCharType", "") {
					case "begin":
						stack = append(stack, &field{})
					case "separate":
						if n := len(stack); n > 0 {
							f := stack[n-1]
							f.result = true
							f.target = hyperlinkTarget(f.instr.String())
						}
					case "end":
						if n := len(stack); n > 0 {
							stack = stack[:n-1]
						}
					}
				case "instrText":
					if n := len(stack); n > 0 && !stack[n-1].result {
						stack[n-1].instr.WriteString(c.Text())
					}
				}
			}
			for i := len(stack) - 1; i >= 0; i-- {
				if stack[i].result && stack[i].target != "" {
					links[r] = stack[i].target
					break
				}
			}
		}
	}
}

// relationshipLinks handles w:hyperlink with r:id, w:anchor or both.
func relationshipLinks(roots []*etree.Element, rels *ooxml.Relationships, links map[*etree.Element]string) {
	for _, root := range roots {
		for _, h := range root.FindElements(".//w:hyperlink") {
			target := ""
			if rid := ooxml.AttrNS(h, ooxml.NSRel, "id"); rid != "" && rels != nil {
				if rel, ok := rels.Get(rid); ok {
					target = rel.Target
				}
			}
			if anchor := h.SelectAttrValue("w:anchor", ""); anchor != "" {
				target += "#" + anchor
			}
			if target == "" {
				continue
			}
			for _, r := range h.FindElements(".//w:r") {
				links[r] = target
			}
		}
	}
}

// hyperlinkTarget parses a HYPERLINK field instruction such as
//
//	HYPERLINK "https://example.com" \l "section" \o "tip"
//
// and returns the URL with any \l anchor appended as a fragment.
func hyperlinkTarget(instr string) string {
	toks := fieldTokens(instr)
	if len(toks) == 0 || !strings.EqualFold(toks[0], "HYPERLINK") {
		return ""
	}
	var url, anchor string
	for i := 1; i < len(toks); i++ {
		t := toks[i]
		switch strings.ToLower(t) {
		case `\l`:
			if i+1 < len(toks) {
				anchor = toks[i+1]
				i++
			}
		case `\o`, `\t`:
			i++
		case `\m`, `\n`:
		default:
			if url == "" && !strings.HasPrefix(t, `\`) {
				url = t
			}
		}
	}
	if anchor != "" {
		return url + "#" + anchor
	}
	return url
}

// fieldTokens splits a field instruction on spaces, keeping quoted strings
// together.
func fieldTokens(s string) []string {
	var (
		toks   []string
		cur    strings.Builder
		quoted bool
		inTok  bool
	)
	flush := func() {
		if inTok {
			toks = append(toks, cur.String())
		}
		cur.Reset()
		inTok = false
	}
	for _, r := range s {
		switch {
		case r == '"':
			if quoted {
				quoted = false
				flush()
			} else {
				flush()
				quoted = true
				inTok = true
			}
		case !quoted && (r == ' ' || r == '\t'):
			flush()
		default:
			cur.WriteRune(r)
			inTok = true
		}
	}
	flush()
	return toks
}

// paragraphRuns lists the visible runs of a paragraph with their formatting
// and link target.
func paragraphRuns(p *etree.Element, links map[*etree.Element]string) []doctree.Run {
	var out []doctree.Run
	var walk func(e *etree.Element)
	walk = func(e *etree.Element) {
		for _, c := range e.ChildElements() {
			switch c.Tag {
			case "r":
				text := body.ParagraphText(c)
				if text == "" {
					continue
				}
				run := doctree.Run{Text: text, Hyperlink: links[c]}
				if rPr := c.SelectElement("w:rPr"); rPr != nil {
					run.Bold = toggle(rPr, "b")
					run.Italic = toggle(rPr, "i")
					if u := rPr.SelectElement("w:u"); u != nil {
						run.Underline = u.SelectAttrValue("w:val", "single") != "none"
					}
				}
				out = append(out, run)
			case "pPr", "del", "moveFrom":
			default:
				walk(c)
			}
		}
	}
	walk(p)
	return out
}

// toggle reads an on/off run property such as w:b.
func toggle(rPr *etree.Element, tag string) bool {
	e := rPr.SelectElement("w:" + tag)
	if e == nil {
		return false
	}
	switch strings.ToLower(e.SelectAttrValue("w:val", "true")) {
	case "0", "false", "off":
		return false
	}
	return true
}
