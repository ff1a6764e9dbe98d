package pipeline

import (
	"sync"
	"time"
)

// JobStatus represents the state of a background analysis job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusAnalyzing  JobStatus = "analyzing"
	StatusResolving  JobStatus = "resolving"
	StatusStoring    JobStatus = "storing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusSuperseded JobStatus = "superseded"
)

// Progress tracks analysis progress.
type Progress struct {
	TermsRecognized int      `json:"terms_recognized"`
	SpansResolved   int      `json:"spans_resolved"`
	UnknownTerms    []string `json:"unknown_terms"`
	Errors          []string `json:"errors"`
}

// Job tracks the state of a single document analysis run. The content
// and version are captured at submission time; if the document is
// edited while the job is in flight the result is discarded and the
// job finishes as superseded.
type Job struct {
	mu sync.Mutex

	ID    string `json:"job_id"`
	DocID string `json:"doc_id"`

	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`

	DocVersion int64 `json:"doc_version"`

	Progress Progress `json:"progress"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized.
	content string
}

// NewJob creates a queued analysis job for a document snapshot.
func NewJob(docID, content string, version int64) *Job {
	now := time.Now()
	return &Job{
		ID:         NewID(),
		DocID:      docID,
		Status:     StatusQueued,
		Phase:      "queued",
		DocVersion: version,
		CreatedAt:  now,
		UpdatedAt:  now,
		content:    content,
	}
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
	j.Progress.Errors = append(j.Progress.Errors, err)
	j.UpdatedAt = time.Now()
}

// SetAnalysis records the recognized-term count and unknown terms.
func (j *Job) SetAnalysis(recognized int, unknown []string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.TermsRecognized = recognized
	j.Progress.UnknownTerms = unknown
	j.UpdatedAt = time.Now()
}

// SetSpansResolved records the resolved span count.
func (j *Job) SetSpansResolved(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.SpansResolved = n
	j.UpdatedAt = time.Now()
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID         string    `json:"job_id"`
	DocID      string    `json:"doc_id"`
	Status     JobStatus `json:"status"`
	Phase      string    `json:"phase"`
	DocVersion int64     `json:"doc_version"`
	Progress   Progress  `json:"progress"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := j.Progress.Errors
	if errs == nil {
		errs = []string{}
	}
	unknown := j.Progress.UnknownTerms
	if unknown == nil {
		unknown = []string{}
	}
	return JobSnapshot{
		ID:         j.ID,
		DocID:      j.DocID,
		Status:     j.Status,
		Phase:      j.Phase,
		DocVersion: j.DocVersion,
		Progress: Progress{
			TermsRecognized: j.Progress.TermsRecognized,
			SpansResolved:   j.Progress.SpansResolved,
			UnknownTerms:    unknown,
			Errors:          errs,
		},
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

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		updated := job.UpdatedAt
		job.mu.Unlock()
		if now.Sub(updated) > s.ttl {
			delete(s.jobs, id)
		}
	}
}
