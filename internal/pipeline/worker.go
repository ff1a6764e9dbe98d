package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/opmark/internal/analyze"
	"github.com/dgallion1/opmark/internal/docstore"
	"github.com/dgallion1/opmark/internal/highlight"
)

// DocAnalyzer is the slice of the term analyzer the worker needs.
type DocAnalyzer interface {
	AnalyzeText(ctx context.Context, text string) (*analyze.Result, error)
}

// Worker processes a single document analysis job.
type Worker struct {
	analyzer DocAnalyzer
	docs     docstore.Store
	log      *slog.Logger
}

func NewWorker(analyzer DocAnalyzer, docs docstore.Store, log *slog.Logger) *Worker {
	return &Worker{
		analyzer: analyzer,
		docs:     docs,
		log:      log,
	}
}

// Process runs the full analysis pipeline for a job: recognize
// doctrinal terms, resolve highlight spans against the snapshotted
// content, and cache the spans on the stored document. Results for a
// document edited since submission are discarded, not stored.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "doc_id", job.DocID)

	// Phase 1: Recognize terms, retrying transient model failures.
	job.SetStatus(StatusAnalyzing, "analyzing")
	var result *analyze.Result
	var lastErr error
	for attempt := range MaxRetries {
		result, lastErr = w.analyzer.AnalyzeText(ctx, job.content)
		if lastErr == nil || !IsRetryable(lastErr) {
			break
		}
		log.Warn("retryable analysis error", "attempt", attempt, "error", lastErr)
		select {
		case <-time.After(Backoff(attempt)):
		case <-ctx.Done():
			job.AddError(ctx.Err().Error())
			job.SetStatus(StatusFailed, "analyzing")
			return
		}
	}
	if lastErr != nil {
		log.Error("analysis failed", "error", lastErr)
		job.AddError(fmt.Sprintf("analyze: %s", lastErr))
		job.SetStatus(StatusFailed, "analyzing")
		return
	}
	job.SetAnalysis(len(result.Recognized), result.Unknown)

	// Phase 2: Resolve spans locally. Model offsets are advisory; the
	// resolver recomputes every occurrence from the catalog terms.
	job.SetStatus(StatusResolving, "resolving")
	spans := highlight.Resolve(job.content, result.Recognized)
	job.SetSpansResolved(len(spans))
	log.Info("spans resolved", "terms", len(result.Recognized), "spans", len(spans))

	// Phase 3: Cache spans on the document, unless it moved on. The
	// store does the version check: the worker never rewrites content,
	// so a user edit landing mid-analysis is never clobbered.
	job.SetStatus(StatusStoring, "storing")
	if err := w.docs.SaveSpans(ctx, job.DocID, spans, job.DocVersion); err != nil {
		if errors.Is(err, docstore.ErrVersionConflict) {
			log.Info("document edited since submission, discarding spans",
				"job_version", job.DocVersion)
			job.SetStatus(StatusSuperseded, "done")
			return
		}
		log.Error("span store failed", "error", err)
		job.AddError(fmt.Sprintf("store: %s", err))
		job.SetStatus(StatusFailed, "storing")
		return
	}

	job.SetStatus(StatusCompleted, "done")
}
