package body

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/beevik/etree"
	"github.com/dgallion1/ismsdoc/internal/ooxml"
)

// SectionBookmarkPrefix marks the bookmark that carries a section key on
// its heading paragraph.
const SectionBookmarkPrefix = "_sec_"

// MaxBookmarkName is the longest bookmark name Word accepts.
const MaxBookmarkName = 40

// hashLen is the number of hex digits appended to a shortened name.
const hashLen = 8

// AddBookmark wraps a paragraph's content in a bookmark called name. It is a
// no-op when the paragraph already carries that bookmark.
func (b *Body) AddBookmark(id NodeID, name string) {
	p := b.Elem(id)
	if p == nil || b.nodes[id].kind != KindParagraph || name == "" {
		return
	}
	for _, have := range b.Bookmarks(id) {
		if have == name {
			return
		}
	}
	bid := strconv.Itoa(b.nextBookmark)
	b.nextBookmark++

	start := etree.NewElement("w:bookmarkStart")
	start.CreateAttr("w:id", bid)
	start.CreateAttr("w:name", name)
	at := 0
	if pPr := p.SelectElement("w:pPr"); pPr != nil {
		at = pPr.Index() + 1
	}
	p.InsertChildAt(at, start)
	p.CreateElement("w:bookmarkEnd").CreateAttr("w:id", bid)
}

// Bookmarks returns the names of the bookmarks starting in a paragraph.
func (b *Body) Bookmarks(id NodeID) []string {
	p := b.Elem(id)
	if p == nil {
		return nil
	}
	var names []string
	for _, bm := range p.FindElements(".//w:bookmarkStart") {
		if n := bm.SelectAttrValue("w:name", ""); n != "" {
			names = append(names, n)
		}
	}
	return names
}

// FindBookmark returns the paragraph where the named bookmark starts.
func (b *Body) FindBookmark(name string) (NodeID, bool) {
	for _, id := range b.Paragraphs() {
		for _, have := range b.Bookmarks(id) {
			if have == name {
				return id, true
			}
		}
	}
	return None, false
}

func maxBookmarkID(root *etree.Element) int {
	hi := -1
	for _, bm := range root.FindElements("//w:bookmarkStart") {
		if n, err := strconv.Atoi(bm.SelectAttrValue("w:id", "")); err == nil && n > hi {
			hi = n
		}
	}
	return hi
}

// SectionKey returns the section key carried by a heading's _sec_ bookmark.
// Shortened names resolve through the document variables.
func (b *Body) SectionKey(id NodeID) (string, bool) {
	for _, name := range b.Bookmarks(id) {
		if key, ok := b.sectionKeys[name]; ok && key != "" {
			return key, true
		}
		if key, ok := strings.CutPrefix(name, SectionBookmarkPrefix); ok && key != "" {
			return key, true
		}
	}
	return "", false
}

// AddSectionBookmark marks a heading with the section key and returns the
// bookmark name used. The name is _sec_<key> when that fits and is free;
// otherwise the key is cut short, a hash suffix keeps the name unique and
// the full key is kept in a document variable named after the bookmark.
func (b *Body) AddSectionBookmark(id NodeID, key string) string {
	if b.Elem(id) == nil || b.nodes[id].kind != KindParagraph || key == "" {
		return ""
	}
	for _, name := range b.Bookmarks(id) {
		if k, ok := b.sectionKeyOf(name); ok && k == key {
			return name
		}
	}
	name := SectionBookmarkPrefix + key
	if utf8.RuneCountInString(name) > MaxBookmarkName || b.bookmarkUsed(name) {
		name = b.shortSectionName(key)
		b.sectionKeys[name] = key
		b.pendingKeys = append(b.pendingKeys, name)
		b.log.Debug("shortened section bookmark", "key", key, "bookmark", name)
	}
	b.AddBookmark(id, name)
	return name
}

func (b *Body) sectionKeyOf(name string) (string, bool) {
	if key, ok := b.sectionKeys[name]; ok {
		return key, true
	}
	return strings.CutPrefix(name, SectionBookmarkPrefix)
}

func (b *Body) shortSectionName(key string) string {
	room := MaxBookmarkName - utf8.RuneCountInString(SectionBookmarkPrefix) - 1 - hashLen
	stem := key
	if utf8.RuneCountInString(stem) > room {
		stem = string([]rune(stem)[:room])
	}
	for n := 0; ; n++ {
		sum := sha256.Sum256([]byte(fmt.Sprintf("%s\x00%d", key, n)))
		name := SectionBookmarkPrefix + stem + "_" + hex.EncodeToString(sum[:])[:hashLen]
		if !b.bookmarkUsed(name) {
			return name
		}
	}
}

// bookmarkUsed reports whether any bookmark in the document body, or any
// recorded section variable, already has name.
func (b *Body) bookmarkUsed(name string) bool {
	if _, ok := b.sectionKeys[name]; ok {
		return true
	}
	for _, bm := range b.root.FindElements(".//w:bookmarkStart") {
		if bm.SelectAttrValue("w:name", "") == name {
			return true
		}
	}
	return false
}

func loadSectionKeys(pkg *ooxml.Package) (map[string]string, error) {
	vars, err := ooxml.DocVars(pkg)
	if err != nil {
		return nil, err
	}
	keys := map[string]string{}
	for name, key := range vars {
		if strings.HasPrefix(name, SectionBookmarkPrefix) {
			keys[name] = key
		}
	}
	return keys, nil
}
