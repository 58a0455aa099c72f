package api

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/dgallion1/ismsdoc/internal/pipeline"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	snap := job.Snapshot()
	body := map[string]any{
		"job_id":   snap.ID,
		"kind":     snap.Kind,
		"doc_id":   snap.DocID,
		"title":    snap.Title,
		"status":   snap.Status,
		"phase":    snap.Phase,
		"progress": snap.Progress,
	}
	if snap.Status == pipeline.StatusCompleted || snap.Status == pipeline.StatusPartial {
		body["result_url"] = "/api/jobs/" + snap.ID + "/result"
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(body)
}

// handleJobResult streams the generated .docx or the imported JSON model.
func (s *Server) handleJobResult(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	snap := job.Snapshot()
	switch {
	case snap.Status == pipeline.StatusFailed:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]any{"error": "job failed", "errors": snap.Progress.Errors})
		return
	case !snap.Status.Done():
		jsonError(w, "job has not finished: "+string(snap.Status), http.StatusConflict)
		return
	}

	res := job.Result()
	f, err := os.Open(res.Path)
	if err != nil {
		s.log.Error("open job result", "job_id", jobID, "path", res.Path, "error", err)
		jsonError(w, "result is no longer available", http.StatusGone)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		jsonError(w, "result is no longer available", http.StatusGone)
		return
	}

	name := filepath.Base(res.Path)
	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	if snap.Progress.Fallback {
		w.Header().Set("X-Ismsdoc-Fallback", "true")
	}
	http.ServeContent(w, r, name, info.ModTime(), f)
}

// handleDeleteJob forgets a finished job and deletes its files.
func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	found, err := s.orchestrator.DeleteJob(jobID)
	switch {
	case !found:
		jsonError(w, "job not found", http.StatusNotFound)
	case errors.Is(err, pipeline.ErrJobRunning):
		jsonError(w, err.Error(), http.StatusConflict)
	case err != nil:
		s.log.Error("delete job output", "job_id", jobID, "error", err)
		jsonError(w, "could not remove job output", http.StatusInternalServerError)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}
