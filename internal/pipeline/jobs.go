package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/dgallion1/ismsdoc/internal/doctree"
	"github.com/dgallion1/ismsdoc/internal/render"
)

// JobKind says what a job produces.
type JobKind string

const (
	KindGenerate JobKind = "generate"
	KindImport   JobKind = "import"
)

// JobStatus represents the state of a generate or import job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusValidating JobStatus = "validating"
	StatusRendering  JobStatus = "rendering"
	StatusParsing    JobStatus = "parsing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	// StatusPartial means the document was written to a fallback path
	// because the target stayed locked.
	StatusPartial JobStatus = "partial"
)

// Done reports whether the job has stopped moving.
func (s JobStatus) Done() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusPartial
}

// Job tracks the state of a single generate or import run.
type Job struct {
	mu sync.Mutex

	ID    string  `json:"job_id"`
	Kind  JobKind `json:"kind"`
	DocID string  `json:"doc_id"`

	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Filename string    `json:"filename"`
	Title    string    `json:"title"`

	Progress Progress `json:"progress"`

	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	fileData []byte
	template []byte
	model    *doctree.Document
	result   Result
	errors   []string
}

// Result locates the file a finished job produced.
type Result struct {
	Path        string
	ContentType string
}

// Progress reports what a run did.
type Progress struct {
	Sections      int      `json:"sections"`
	DynamicTables int      `json:"dynamic_tables"`
	Placeholders  int      `json:"placeholders"`
	ControlTable  bool     `json:"control_table"`
	Fallback      bool     `json:"fallback"`
	Attempts      int      `json:"attempts"`
	Errors        []string `json:"errors"`
}

// NewJob returns a queued job with a fresh id.
func NewJob(kind JobKind, filename string) *Job {
	now := time.Now()
	return &Job{
		ID:        NewJobID(),
		Kind:      kind,
		Status:    StatusQueued,
		Phase:     "queued",
		Filename:  filename,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Delete removes a job and reports whether it existed.
func (s *JobStore) Delete(id string) (*Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	delete(s.jobs, id)
	return job, ok
}

// Cleanup removes expired jobs and returns them so their output can be
// deleted.
func (s *JobStore) Cleanup() []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	var expired []*Job
	for id, job := range s.jobs {
		job.mu.Lock()
		updated := job.UpdatedAt
		job.mu.Unlock()
		if now.Sub(updated) > s.ttl {
			delete(s.jobs, id)
			expired = append(expired, job)
		}
	}
	return expired
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// RecordRender copies a render report into the progress.
func (j *Job) RecordRender(rep render.Report, fallback bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Sections = rep.Sections
	j.Progress.DynamicTables = len(rep.Tables)
	j.Progress.Placeholders = rep.Placeholders
	j.Progress.ControlTable = rep.ControlTable
	j.Progress.Fallback = fallback
	j.UpdatedAt = time.Now()
}

// RecordImport stores the imported model and its identity.
func (j *Job) RecordImport(doc *doctree.Document, contentHash string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.model = doc
	j.DocID = doc.Metadata.DocID
	j.Title = doc.Metadata.Title
	j.ContentHash = contentHash
	n := 0
	doc.Walk(func(*doctree.Section) bool { n++; return true })
	j.Progress.Sections = n
	j.UpdatedAt = time.Now()
}

// IncrAttempts counts one generate attempt.
func (j *Job) IncrAttempts() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Attempts++
	j.UpdatedAt = time.Now()
}

// SetFileData sets the raw file bytes for processing.
func (j *Job) SetFileData(data []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fileData = data
}

// FileData returns the raw file bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// SetTemplate sets an uploaded template for a generate job.
func (j *Job) SetTemplate(data []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.template = data
}

// Template returns the uploaded template, or nil.
func (j *Job) Template() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.template
}

// SetModel sets the model a generate job renders.
func (j *Job) SetModel(doc *doctree.Document) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.model = doc
	j.DocID = doc.Metadata.DocID
	j.Title = doc.Metadata.Title
}

// Model returns the job's model: the input of a generate job or the output
// of an import job.
func (j *Job) Model() *doctree.Document {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.model
}

// SetResult records the produced file.
func (j *Job) SetResult(r Result) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.result = r
	j.UpdatedAt = time.Now()
}

// Result returns the produced file, if any.
func (j *Job) Result() Result {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string    `json:"job_id"`
	Kind        JobKind   `json:"kind"`
	DocID       string    `json:"doc_id"`
	Status      JobStatus `json:"status"`
	Phase       string    `json:"phase"`
	Filename    string    `json:"filename"`
	Title       string    `json:"title"`
	ContentHash string    `json:"content_hash,omitempty"`
	Progress    Progress  `json:"progress"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	prog := j.Progress
	prog.Errors = append([]string{}, j.Progress.Errors...)
	return JobSnapshot{
		ID:          j.ID,
		Kind:        j.Kind,
		DocID:       j.DocID,
		Status:      j.Status,
		Phase:       j.Phase,
		Filename:    j.Filename,
		Title:       j.Title,
		ContentHash: j.ContentHash,
		Progress:    prog,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
