package render

import (
	"strings"

	"github.com/beevik/etree"
	"github.com/dgallion1/ismsdoc/internal/body"
	"github.com/dgallion1/ismsdoc/internal/doctree"
	"github.com/dgallion1/ismsdoc/internal/ooxml"
)

// Placeholders maps [[TOKEN]] text in a template to metadata values.
func Placeholders(m doctree.Metadata) map[string]string {
	return map[string]string{
		"[[DOC_ID]]":               m.DocID,
		"[[DOC_TITLE]]":            m.Title,
		"[[DOC_VERSION]]":          m.Version,
		"[[DOC_STATUS]]":           string(m.Status),
		"[[DOC_OWNER]]":            m.Owner,
		"[[DOC_APPROVER]]":         m.Approver,
		"[[DOC_TYPE]]":             string(m.DocType),
		"[[DOC_CLASSIFICATION]]":   m.Confidentiality,
		"[[DOC_CONFIDENTIALITY]]":  m.Confidentiality,
		"[[DOC_DATE_COMPLETED]]":   m.DateCompleted,
		"[[DOC_NEXT_REVIEW_DATE]]": m.NextReviewDate,
	}
}

// isHeaderFooter reports whether a part is a header or footer of the main
// document.
func isHeaderFooter(name string) bool {
	if !strings.HasPrefix(name, "word/") || !strings.HasSuffix(name, ".xml") {
		return false
	}
	base := strings.TrimPrefix(name, "word/")
	return strings.HasPrefix(base, "header") || strings.HasPrefix(base, "footer")
}

// replacePlaceholders substitutes tokens in every paragraph of the main
// document, its tables, headers and footers. A paragraph whose text changes
// is rewritten as a single run. It returns the number of paragraphs changed.
func replacePlaceholders(pkg *ooxml.Package, values map[string]string) (int, error) {
	pairs := make([]string, 0, 2*len(values))
	for k, v := range values {
		pairs = append(pairs, k, v)
	}
	repl := strings.NewReplacer(pairs...)

	parts := []string{ooxml.PartDocument}
	for _, name := range pkg.Names() {
		if isHeaderFooter(name) {
			parts = append(parts, name)
		}
	}

	changed := 0
	for _, name := range parts {
		doc, err := pkg.Part(name)
		if err != nil {
			return changed, err
		}
		n := replaceIn(doc.Root(), repl)
		if n > 0 {
			if _, err := pkg.EditPart(name); err != nil {
				return changed, err
			}
		}
		changed += n
	}
	return changed, nil
}

func replaceIn(root *etree.Element, repl *strings.Replacer) int {
	n := 0
	for _, p := range root.FindElements(".//w:p") {
		text := body.ParagraphText(p)
		if !strings.Contains(text, "[[") {
			continue
		}
		if out := repl.Replace(text); out != text {
			body.ReplaceText(p, out)
			n++
		}
	}
	return n
}
