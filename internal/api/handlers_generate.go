package api

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dgallion1/ismsdoc/internal/doctree"
	"github.com/dgallion1/ismsdoc/internal/pipeline"
)

// handleGenerate queues a generate job. The model is either the JSON body
// or, in a multipart form, the "model" field or file; a multipart form may
// also carry a "template" .docx.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 2*s.cfg.MaxUploadBytes+1024*1024)

	var (
		modelJSON []byte
		template  []byte
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
			return
		}
		defer r.MultipartForm.RemoveAll()

		if v := r.FormValue("model"); v != "" {
			modelJSON = []byte(v)
		} else if f, _, err := r.FormFile("model"); err == nil {
			data, code, err := s.readUpload(f)
			f.Close()
			if err != nil {
				jsonError(w, err.Error(), code)
				return
			}
			modelJSON = data
		}

		if f, header, err := r.FormFile("template"); err == nil {
			if !strings.EqualFold(filepath.Ext(header.Filename), ".docx") {
				f.Close()
				jsonError(w, "template must be a .docx file", http.StatusBadRequest)
				return
			}
			data, code, err := s.readUpload(f)
			f.Close()
			if err != nil {
				jsonError(w, err.Error(), code)
				return
			}
			template = data
		}
	} else {
		data, err := io.ReadAll(io.LimitReader(r.Body, s.cfg.MaxUploadBytes+1))
		if err != nil {
			jsonError(w, "failed to read body", http.StatusBadRequest)
			return
		}
		modelJSON = data
	}
	if len(modelJSON) == 0 {
		jsonError(w, "model is required", http.StatusBadRequest)
		return
	}

	doc, ok := s.decodeValid(w, modelJSON)
	if !ok {
		return
	}

	job := pipeline.NewJob(pipeline.KindGenerate, pipeline.OutputName(doc.Metadata)+".docx")
	job.SetModel(doc)
	if template != nil {
		job.SetTemplate(template)
	}
	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeAccepted(w, job)
}

// handleValidate checks a JSON model without generating anything.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read body", http.StatusBadRequest)
		return
	}
	doc, ok := s.decodeValid(w, data)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"valid":  true,
		"doc_id": doc.Metadata.DocID,
	})
}

// decodeValid decodes and validates a model, answering the request itself
// when that fails.
func (s *Server) decodeValid(w http.ResponseWriter, data []byte) (*doctree.Document, bool) {
	doc, err := doctree.Decode(data)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	profile := s.orchestrator.Generator().Profile
	if err := doc.Validate(profile); err != nil {
		body := map[string]any{"valid": false, "error": err.Error(), "profile": profile.Name}
		var se *doctree.ShapeError
		if errors.As(err, &se) {
			if se.Section != "" {
				body["section"] = se.Section
			}
			if len(se.Missing) > 0 {
				body["missing"] = se.Missing
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(body)
		return nil, false
	}
	return doc, true
}
