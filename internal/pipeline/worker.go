package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgallion1/ismsdoc/internal/doctree"
	"github.com/dgallion1/ismsdoc/internal/parser"
	"github.com/dgallion1/ismsdoc/internal/props"
	"github.com/dgallion1/ismsdoc/internal/render"
)

const (
	ContentTypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	ContentTypeJSON = "application/json"
)

// WorkerConfig is what every worker shares.
type WorkerConfig struct {
	Generator    *render.Generator
	Parse        parser.Options
	TemplatePath string
	OutputDir    string
	RetryBackoff time.Duration
	Stats        *Stats
}

// Worker processes one job at a time, start to finish.
type Worker struct {
	cfg WorkerConfig
	log *slog.Logger
}

func NewWorker(cfg WorkerConfig, log *slog.Logger) *Worker {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Worker{cfg: cfg, log: log}
}

// Process runs a job and records its latency.
func (w *Worker) Process(ctx context.Context, job *Job) {
	start := time.Now()
	log := w.log.With("job_id", job.ID, "kind", string(job.Kind), "filename", job.Filename)

	switch job.Kind {
	case KindGenerate:
		w.generate(ctx, job, log)
	case KindImport:
		w.importFile(job, log)
	default:
		job.AddError(fmt.Sprintf("unknown job kind %q", job.Kind))
		job.SetStatus(StatusFailed, "dispatch")
	}

	snap := job.Snapshot()
	if w.cfg.Stats != nil {
		w.cfg.Stats.Record(job.Kind, time.Since(start), snap.Status != StatusFailed)
	}
	log.Info("job finished", "status", string(snap.Status), "duration_ms", time.Since(start).Milliseconds())
}

// jobDir is where a job writes its output.
func (w *Worker) jobDir(job *Job) string {
	return filepath.Join(w.cfg.OutputDir, job.ID)
}

func (w *Worker) generate(ctx context.Context, job *Job, log *slog.Logger) {
	job.SetStatus(StatusValidating, "validating")
	doc := job.Model()
	if doc == nil {
		job.AddError("no model")
		job.SetStatus(StatusFailed, "validating")
		return
	}
	if err := doc.Validate(w.cfg.Generator.Profile); err != nil {
		log.Error("invalid model", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "validating")
		return
	}

	dir := w.jobDir(job)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		job.AddError(fmt.Sprintf("output dir: %s", err))
		job.SetStatus(StatusFailed, "rendering")
		return
	}
	templatePath := w.cfg.TemplatePath
	if tpl := job.Template(); len(tpl) > 0 {
		templatePath = filepath.Join(dir, "template.docx")
		if err := os.WriteFile(templatePath, tpl, 0o644); err != nil {
			job.AddError(fmt.Sprintf("template: %s", err))
			job.SetStatus(StatusFailed, "rendering")
			return
		}
	}
	outPath := filepath.Join(dir, OutputName(doc.Metadata)+".docx")

	job.SetStatus(StatusRendering, "rendering")
	var (
		res render.Result
		err error
	)
	for attempt := range MaxRetries {
		job.IncrAttempts()
		res, err = w.cfg.Generator.Generate(ctx, doc, templatePath, outPath)
		if err == nil || !IsRetryable(err) {
			break
		}
		log.Warn("output locked, retrying", "attempt", attempt, "error", err)
		select {
		case <-time.After(Backoff(w.cfg.RetryBackoff, attempt)):
		case <-ctx.Done():
			err = ctx.Err()
		}
		if ctx.Err() != nil {
			break
		}
	}

	switch {
	case err == nil:
		job.RecordRender(res.Report, false)
		job.SetResult(Result{Path: res.Path, ContentType: ContentTypeDOCX})
		job.SetStatus(StatusCompleted, "done")
	case errors.Is(err, props.ErrReplaceExhausted):
		log.Warn("properties written to fallback copy", "path", res.Path, "error", err)
		job.RecordRender(res.Report, true)
		job.AddError(err.Error())
		job.SetResult(Result{Path: res.Path, ContentType: ContentTypeDOCX})
		job.SetStatus(StatusPartial, "done")
	default:
		log.Error("generate failed", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "rendering")
	}
}

func (w *Worker) importFile(job *Job, log *slog.Logger) {
	job.SetStatus(StatusParsing, "parsing")
	p, err := parser.ForFile(job.Filename, w.cfg.Parse)
	if err != nil {
		log.Error("unsupported format", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "parsing")
		return
	}

	data := job.FileData()
	doc, err := p.Parse(bytes.NewReader(data), job.Filename)
	if err != nil {
		log.Error("parse failed", "error", err)
		job.AddError(fmt.Sprintf("parse: %s", err))
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	job.RecordImport(doc, ContentHashHex(data))

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		job.AddError(fmt.Sprintf("encode model: %s", err))
		job.SetStatus(StatusFailed, "encoding")
		return
	}
	dir := w.jobDir(job)
	path := filepath.Join(dir, OutputName(doc.Metadata)+".json")
	err = os.MkdirAll(dir, 0o755)
	if err == nil {
		err = os.WriteFile(path, out, 0o644)
	}
	if err != nil {
		log.Error("write model failed", "error", err)
		job.AddError(fmt.Sprintf("write model: %s", err))
		job.SetStatus(StatusFailed, "encoding")
		return
	}

	job.SetResult(Result{Path: path, ContentType: ContentTypeJSON})
	job.SetStatus(StatusCompleted, "done")
	log.Info("import complete", "doc_id", doc.Metadata.DocID, "path", path)
}

// OutputName derives a file stem from a document id and version, e.g.
// POL-ISMS-001_v1.2. Characters unsafe in file names are replaced.
func OutputName(m doctree.Metadata) string {
	name := m.DocID
	if m.Version != "" {
		name += "_v" + m.Version
	}
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	if name == "" {
		name = "document"
	}
	return name
}
