package render

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgallion1/ismsdoc/internal/doctree"
	"github.com/dgallion1/ismsdoc/internal/ooxml"
	"github.com/dgallion1/ismsdoc/internal/props"
)

// DefaultLastModifiedBy is written to cp:lastModifiedBy.
const DefaultLastModifiedBy = "ISMS Hybrid Generator"

// Result describes a generated file. Fallback is set when the property
// patch could not replace Path and wrote a sibling copy instead.
type Result struct {
	Path     string
	Fallback bool
	Report   Report
}

// Generator runs the whole generation: validate, render, save, patch
// properties.
type Generator struct {
	Profile        doctree.Profile
	Renderer       *Renderer
	Patcher        *props.Patcher
	LastModifiedBy string

	log *slog.Logger
	now func() time.Time
}

// NewGenerator wires a generator. A nil logger discards output.
func NewGenerator(profile doctree.Profile, renderer *Renderer, patcher *props.Patcher, log *slog.Logger) *Generator {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Generator{
		Profile:        profile,
		Renderer:       renderer,
		Patcher:        patcher,
		LastModifiedBy: DefaultLastModifiedBy,
		log:            log,
		now:            time.Now,
	}
}

// Generate renders doc into a copy of templatePath written to outPath. An
// empty templatePath starts from a blank package. Validation errors are
// returned before any file is touched.
//
// When the property patch falls back to a sibling file, the result points
// at that file and the returned error wraps props.ErrReplaceExhausted.
func (g *Generator) Generate(ctx context.Context, doc *doctree.Document, templatePath, outPath string) (Result, error) {
	if err := doc.Validate(g.Profile); err != nil {
		return Result{}, err
	}

	var (
		pkg *ooxml.Package
		err error
	)
	if templatePath == "" {
		pkg, err = ooxml.NewBlank()
	} else {
		pkg, err = ooxml.Open(templatePath)
	}
	if err != nil {
		return Result{}, err
	}
	defer pkg.Close()

	rep, err := g.Renderer.Render(doc, pkg)
	if err != nil {
		return Result{Report: rep}, fmt.Errorf("render %s: %w", doc.Metadata.DocID, err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return Result{Report: rep}, fmt.Errorf("create output dir: %w", err)
	}
	if err := pkg.SaveAs(outPath); err != nil {
		return Result{Report: rep}, err
	}
	pkg.Close()

	res, err := g.Patcher.Patch(ctx, outPath, PropsUpdate(doc.Metadata, g.LastModifiedBy, g.now()))
	out := Result{Path: outPath, Report: rep}
	if res.Path != "" {
		out.Path, out.Fallback = res.Path, res.Fallback
	}
	if err != nil {
		return out, err
	}
	g.log.Info("document generated",
		"doc_id", doc.Metadata.DocID,
		"path", out.Path,
		"sections", rep.Sections,
		"dynamic_tables", len(rep.Tables),
	)
	return out, nil
}

// PropsUpdate maps metadata to core and custom properties.
func PropsUpdate(m doctree.Metadata, lastModifiedBy string, now time.Time) props.Update {
	if lastModifiedBy == "" {
		lastModifiedBy = DefaultLastModifiedBy
	}
	u := props.Update{
		Core: map[props.CoreField]string{
			props.CoreTitle:          m.Title,
			props.CoreSubject:        string(m.DocType),
			props.CoreCreator:        m.Owner,
			props.CoreCategory:       string(m.Status),
			props.CoreKeywords:       m.DocID + ";" + string(m.DocType),
			props.CoreLastModifiedBy: lastModifiedBy,
		},
		Modified: now,
		Custom: []props.Property{
			props.Text("DocID", m.DocID),
			props.Text("Version", m.Version),
			props.Text("Owner", m.Owner),
			props.Text("Status", string(m.Status)),
			props.Text("DocumentType", string(m.DocType)),
			props.Text("Confidentiality", m.Confidentiality),
		},
	}
	optional := []struct{ name, value string }{
		{"ApprovedBy", m.Approver},
		{"DateCompleted", m.DateCompleted},
		{"Date completed", m.DateCompleted},
		{"NextReviewDate", m.NextReviewDate},
		{"RelatedDocuments", strings.Join(m.RelatedDocuments, "; ")},
	}
	for _, o := range optional {
		if o.value != "" {
			u.Custom = append(u.Custom, props.Text(o.name, o.value))
		}
	}
	return u
}
