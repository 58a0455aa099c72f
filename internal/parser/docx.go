package parser

import (
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/dgallion1/ismsdoc/internal/body"
	"github.com/dgallion1/ismsdoc/internal/doctree"
	"github.com/dgallion1/ismsdoc/internal/ooxml"
	"github.com/dgallion1/ismsdoc/internal/props"
)

// DOCXParser reconstructs a document model from a .docx package using
// heading styles, list numbering, hyperlink relationships and table grids.
type DOCXParser struct {
	Profile doctree.Profile
	Vocab   body.Vocabulary
	DocType doctree.DocType
	Log     *slog.Logger
}

// NewDOCXParser returns a parser configured from opts.
func NewDOCXParser(opts Options) *DOCXParser {
	vocab := opts.Vocab
	if len(vocab.Headings) == 0 {
		vocab = body.DefaultVocabulary()
	}
	return &DOCXParser{
		Profile: opts.profile(),
		Vocab:   vocab,
		DocType: opts.DocType,
		Log:     opts.logger(),
	}
}

func (p *DOCXParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read docx: %w", err)
	}
	pkg, err := ooxml.OpenBytes(data)
	if err != nil {
		return nil, err
	}
	defer pkg.Close()
	return p.Import(pkg, filename)
}

// Import reads an open package.
func (p *DOCXParser) Import(pkg *ooxml.Package, filename string) (*doctree.Document, error) {
	log := p.Log
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	profile := p.Profile
	if profile.Name == "" {
		profile = doctree.StandardProfile()
	}

	b, err := body.Load(pkg, p.Vocab, log)
	if err != nil {
		return nil, err
	}
	links := hyperlinks(b)

	im := &docxImport{
		b:       b,
		vocab:   p.Vocab,
		links:   links,
		build:   newBuilder(profile),
		profile: profile,
	}
	for _, id := range b.Nodes() {
		switch b.Kind(id) {
		case body.KindParagraph:
			im.paragraph(id)
		case body.KindTable:
			im.build.table(b.Grid(id))
		}
	}

	pr, err := props.ReadPackage(pkg)
	if err != nil {
		return nil, err
	}
	meta := metadataFrom(pr, p.DocType, log)
	if meta.Title == "" {
		meta.Title = im.guessTitle(filename)
	}

	doc, err := im.build.document(meta, profile)
	if err != nil {
		return nil, err
	}
	log.Info("docx imported",
		"filename", filename,
		"doc_id", meta.DocID,
		"sections", len(doc.Sections),
	)
	return doc, nil
}

type docxImport struct {
	b       *body.Body
	vocab   body.Vocabulary
	links   map[*etree.Element]string
	build   *builder
	profile doctree.Profile

	titleGuess string
	firstText  string
}

var headingStyleID = regexp.MustCompile(`(?i)^heading([1-9])$`)

// headingLevel classifies a paragraph by style name, then by style id.
func (im *docxImport) headingLevel(id body.NodeID, styleName string) int {
	if lvl := im.vocab.HeadingLevel(styleName); lvl > 0 {
		return lvl
	}
	ps := im.b.Elem(id).FindElement("./w:pPr/w:pStyle")
	if ps == nil {
		return 0
	}
	if m := headingStyleID.FindStringSubmatch(ps.SelectAttrValue("w:val", "")); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n
	}
	return 0
}

func (im *docxImport) paragraph(id body.NodeID) {
	text := strings.TrimSpace(im.b.Text(id))
	if text == "" {
		return
	}
	if im.firstText == "" {
		im.firstText = text
	}
	style := im.b.StyleName(id)

	if im.vocab.IsTitle(style) {
		if im.titleGuess == "" {
			im.titleGuess = text
		}
		return
	}
	if level := im.headingLevel(id, style); level > 0 {
		if level == 1 && im.titleGuess == "" {
			im.titleGuess = text
		}
		key, _ := im.b.SectionKey(id)
		im.build.heading(text, level, key)
		return
	}
	if im.vocab.IsCaption(style) && im.build.caption(text) {
		return
	}

	runs := paragraphRuns(im.b.Elem(id), im.links)
	if kind := im.listKind(id, style); kind != "" {
		im.build.listItem(kind, text, runs)
		return
	}
	im.build.paragraph(text, runs)
}

// listKind classifies a paragraph through its numbering definition, then
// through list-like style names. An explicit numId of 0 switches
// numbering off.
func (im *docxImport) listKind(id body.NodeID, styleName string) doctree.BlockKind {
	if format, _, ok := im.b.ListInfo(id); ok {
		if format == "bullet" {
			return doctree.KindBulletList
		}
		return doctree.KindNumberedList
	}
	if n := im.b.Elem(id).FindElement("./w:pPr/w:numPr/w:numId"); n != nil && n.SelectAttrValue("w:val", "") == "0" {
		return ""
	}
	name := strings.ToLower(styleName)
	switch {
	case strings.Contains(name, "bullet"):
		return doctree.KindBulletList
	case strings.Contains(name, "number"):
		return doctree.KindNumberedList
	}
	return ""
}

// guessTitle picks the first Title or level-1 heading, then the first
// non-empty paragraph, then the file name.
func (im *docxImport) guessTitle(filename string) string {
	switch {
	case im.titleGuess != "":
		return im.titleGuess
	case im.firstText != "":
		return im.firstText
	}
	return stem(filename)
}

// metadataFrom maps custom and core properties onto metadata. Missing or
// unusable values fall back to the import defaults.
func metadataFrom(pr props.Properties, docType doctree.DocType, log *slog.Logger) doctree.Metadata {
	m := DefaultMetadata("", docType)
	custom := func(names ...string) string {
		for _, n := range names {
			if v, ok := pr.CustomValue(n); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
		return ""
	}

	if v, ok := pr.CoreValue(props.CoreTitle); ok {
		m.Title = strings.TrimSpace(v)
	}
	if v := custom("DocID"); v != "" {
		m.DocID = v
	}
	if v := custom("Version"); v != "" {
		m.Version = v
	}
	if v := custom("Owner"); v != "" {
		m.Owner = v
	}
	m.Approver = custom("ApprovedBy")
	if v := custom("Confidentiality"); v != "" {
		m.Confidentiality = v
	}
	if v := custom("Status"); v != "" {
		if st, err := doctree.ParseStatus(v); err == nil {
			m.Status = st
		} else {
			log.Warn("ignoring status property", "value", v, "error", err)
		}
	}
	if v := custom("DocumentType"); v != "" {
		if t, err := doctree.ParseDocType(v); err == nil {
			m.DocType = t
		} else {
			log.Warn("ignoring document type property", "value", v, "error", err)
		}
	}
	dates := []struct {
		dst   *string
		names []string
	}{
		{&m.DateCompleted, []string{"DateCompleted", "Date completed"}},
		{&m.NextReviewDate, []string{"NextReviewDate"}},
	}
	for _, d := range dates {
		v := custom(d.names...)
		if v == "" {
			continue
		}
		if _, err := doctree.ParseDate(v); err != nil {
			log.Warn("ignoring date property", "name", d.names[0], "value", v, "error", err)
			continue
		}
		*d.dst = v
	}
	if v := custom("RelatedDocuments"); v != "" {
		for _, ref := range strings.Split(v, ";") {
			if ref = strings.TrimSpace(ref); ref != "" {
				m.RelatedDocuments = append(m.RelatedDocuments, ref)
			}
		}
	}
	return m
}
