// Package pipeline runs background document analysis: a worker pool
// pulls jobs off a bounded queue, recognizes doctrinal terms with the
// model, resolves highlight spans locally, and caches the spans on the
// stored document. Rapid edits to the same document are debounced so
// only the settled content is analyzed.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/opmark/internal/config"
	"github.com/dgallion1/opmark/internal/docstore"
)

// Orchestrator manages the analysis worker pool and job registry.
type Orchestrator struct {
	jobs     *JobStore
	queue    chan *Job
	analyzer DocAnalyzer
	docs     docstore.Store
	log      *slog.Logger
	cfg      config.Config
	debounce *debouncer

	mu      sync.Mutex
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewOrchestrator creates the pipeline. Call Start to launch workers.
func NewOrchestrator(cfg config.Config, analyzer DocAnalyzer, docs docstore.Store, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:     NewJobStore(cfg.JobTTL),
		queue:    make(chan *Job, cfg.MaxQueueSize),
		analyzer: analyzer,
		docs:     docs,
		log:      log,
		cfg:      cfg,
		debounce: newDebouncer(cfg.AnalysisDebounce),
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.cfg.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := NewWorker(o.analyzer, o.docs, o.log)
			for {
				select {
				case <-workerCtx.Done():
					return
				case job := <-o.queue:
					w.Process(workerCtx, job)
				}
			}
		}()
	}

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop gracefully shuts down the pipeline. The queue is never closed:
// workers drain via context cancellation, and late submitters (a
// debounce callback already past CancelAll, an in-flight handler) get
// an error from Submit instead of a send on a closed channel.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return
	}
	o.stopped = true
	o.mu.Unlock()

	o.debounce.CancelAll()
	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
}

// Submit queues a new job for processing.
func (o *Orchestrator) Submit(job *Job) error {
	o.mu.Lock()
	stopped := o.stopped
	o.mu.Unlock()
	if stopped {
		job.SetStatus(StatusFailed, "shutdown")
		return fmt.Errorf("pipeline is stopped")
	}
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		job.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("job queue is full (%d)", o.cfg.MaxQueueSize)
	}
}

// SubmitDocument snapshots a stored document and queues it for
// analysis immediately, cancelling any pending debounced trigger.
func (o *Orchestrator) SubmitDocument(doc *docstore.Document) (*Job, error) {
	o.debounce.Cancel(doc.ID)
	job := NewJob(doc.ID, doc.Content, doc.Version)
	if err := o.Submit(job); err != nil {
		return nil, err
	}
	return job, nil
}

// ScheduleReanalysis arms a debounced analysis for a document. Bursts
// of edits collapse into one job submitted after the quiet window,
// against whatever content the document holds at that point.
func (o *Orchestrator) ScheduleReanalysis(docID string) {
	o.debounce.Schedule(docID, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		doc, err := o.docs.Load(ctx, docID)
		if err != nil {
			o.log.Warn("debounced analysis load failed", "doc_id", docID, "error", err)
			return
		}
		job := NewJob(doc.ID, doc.Content, doc.Version)
		if err := o.Submit(job); err != nil {
			o.log.Warn("debounced analysis submit failed", "doc_id", docID, "error", err)
		}
	})
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}
