package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dgallion1/opmark/internal/analyze"
	"github.com/dgallion1/opmark/internal/docstore"
	"github.com/dgallion1/opmark/internal/genai"
	"github.com/dgallion1/opmark/internal/highlight"
)

type fakeAnalyzer struct {
	mu        sync.Mutex
	details   map[string]highlight.TaskDetail
	errs      []error // consumed one per call; nil entries succeed
	calls     int
	onAnalyze func() // runs inside each call, before returning
}

func (f *fakeAnalyzer) AnalyzeText(_ context.Context, text string) (*analyze.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.onAnalyze != nil {
		f.onAnalyze()
	}
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &analyze.Result{Recognized: f.details}, nil
}

func (f *fakeAnalyzer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type memDocs struct {
	mu   sync.Mutex
	docs map[string]*docstore.Document
}

func newMemDocs() *memDocs {
	return &memDocs{docs: make(map[string]*docstore.Document)}
}

func (m *memDocs) Load(_ context.Context, id string) (*docstore.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, docstore.ErrNotFound
	}
	cp := *doc
	return &cp, nil
}

func (m *memDocs) Save(_ context.Context, doc *docstore.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *doc
	m.docs[doc.ID] = &cp
	return nil
}

func (m *memDocs) SaveSpans(_ context.Context, id string, spans []highlight.TaskMatch, version int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return docstore.ErrNotFound
	}
	if doc.Version != version {
		return docstore.ErrVersionConflict
	}
	doc.Spans = spans
	doc.SpanVersion = version
	return nil
}

func (m *memDocs) List(_ context.Context) ([]*docstore.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*docstore.Document, 0, len(m.docs))
	for _, doc := range m.docs {
		cp := *doc
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memDocs) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return docstore.ErrNotFound
	}
	delete(m.docs, id)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestWorker_ProcessStoresSpans(t *testing.T) {
	docs := newMemDocs()
	docs.Save(context.Background(), &docstore.Document{
		ID:      "doc-1",
		Content: "1st Battalion will seize OBJ LION at dawn.",
		Version: 2,
	})

	an := &fakeAnalyzer{details: map[string]highlight.TaskDetail{
		"Seize": {Name: "Seize", Definition: "Clear and gain control of a designated area."},
	}}
	w := NewWorker(an, docs, testLogger())

	job := NewJob("doc-1", "1st Battalion will seize OBJ LION at dawn.", 2)
	w.Process(context.Background(), job)

	if job.Status != StatusCompleted {
		t.Fatalf("expected status %q, got %q (%v)", StatusCompleted, job.Status, job.Snapshot().Progress.Errors)
	}

	stored, err := docs.Load(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(stored.Spans) != 1 {
		t.Fatalf("expected 1 cached span, got %d", len(stored.Spans))
	}
	if stored.Spans[0].MatchedText != "seize" {
		t.Errorf("expected matched text %q, got %q", "seize", stored.Spans[0].MatchedText)
	}
	if stored.SpanVersion != 2 {
		t.Errorf("expected span version 2, got %d", stored.SpanVersion)
	}
}

func TestWorker_ProcessSupersededByEdit(t *testing.T) {
	docs := newMemDocs()
	docs.Save(context.Background(), &docstore.Document{
		ID:      "doc-1",
		Content: "edited content",
		Version: 5, // already ahead of the job's snapshot
	})

	an := &fakeAnalyzer{details: map[string]highlight.TaskDetail{
		"Seize": {Name: "Seize", Definition: "def"},
	}}
	w := NewWorker(an, docs, testLogger())

	job := NewJob("doc-1", "old content with seize in it", 4)
	w.Process(context.Background(), job)

	if job.Status != StatusSuperseded {
		t.Fatalf("expected status %q, got %q", StatusSuperseded, job.Status)
	}
	stored, _ := docs.Load(context.Background(), "doc-1")
	if len(stored.Spans) != 0 {
		t.Error("stale spans must not be stored")
	}
}

func TestWorker_ProcessPreservesConcurrentEdit(t *testing.T) {
	docs := newMemDocs()
	docs.Save(context.Background(), &docstore.Document{
		ID:      "doc-1",
		Content: "seize the bridge",
		Version: 1,
	})

	an := &fakeAnalyzer{details: map[string]highlight.TaskDetail{
		"Seize": {Name: "Seize", Definition: "def"},
	}}
	// A user edit lands while the worker is mid-analysis: the document
	// moves to version 2 with new content before the span write.
	an.onAnalyze = func() {
		docs.Save(context.Background(), &docstore.Document{
			ID:      "doc-1",
			Content: "defend the crossing",
			Version: 2,
		})
	}
	w := NewWorker(an, docs, testLogger())

	job := NewJob("doc-1", "seize the bridge", 1)
	w.Process(context.Background(), job)

	if job.Status != StatusSuperseded {
		t.Fatalf("expected status %q, got %q", StatusSuperseded, job.Status)
	}
	stored, err := docs.Load(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if stored.Content != "defend the crossing" || stored.Version != 2 {
		t.Fatalf("user edit lost: content=%q version=%d", stored.Content, stored.Version)
	}
	if len(stored.Spans) != 0 || stored.SpanVersion != 0 {
		t.Error("stale spans must not be attached to the edited document")
	}
}

func TestWorker_ProcessRetriesTransientErrors(t *testing.T) {
	docs := newMemDocs()
	docs.Save(context.Background(), &docstore.Document{ID: "doc-1", Content: "seize it", Version: 1})

	an := &fakeAnalyzer{
		details: map[string]highlight.TaskDetail{"Seize": {Name: "Seize", Definition: "def"}},
		errs:    []error{&genai.RetryableError{StatusCode: 503, Message: "overloaded"}, nil},
	}
	w := NewWorker(an, docs, testLogger())

	job := NewJob("doc-1", "seize it", 1)
	w.Process(context.Background(), job)

	if job.Status != StatusCompleted {
		t.Fatalf("expected status %q after retry, got %q", StatusCompleted, job.Status)
	}
	if an.callCount() != 2 {
		t.Errorf("expected 2 analyzer calls, got %d", an.callCount())
	}
}

func TestWorker_ProcessPermanentFailure(t *testing.T) {
	docs := newMemDocs()
	docs.Save(context.Background(), &docstore.Document{ID: "doc-1", Content: "seize it", Version: 1})

	an := &fakeAnalyzer{errs: []error{errors.New("malformed model response")}}
	w := NewWorker(an, docs, testLogger())

	job := NewJob("doc-1", "seize it", 1)
	w.Process(context.Background(), job)

	if job.Status != StatusFailed {
		t.Fatalf("expected status %q, got %q", StatusFailed, job.Status)
	}
	if an.callCount() != 1 {
		t.Errorf("non-retryable errors must not be retried, got %d calls", an.callCount())
	}
	snap := job.Snapshot()
	if len(snap.Progress.Errors) == 0 {
		t.Error("expected error recorded on job")
	}
}

func TestWorker_ProcessMissingDocument(t *testing.T) {
	an := &fakeAnalyzer{details: map[string]highlight.TaskDetail{}}
	w := NewWorker(an, newMemDocs(), testLogger())

	job := NewJob("ghost", "content", 1)
	w.Process(context.Background(), job)

	if job.Status != StatusFailed {
		t.Fatalf("expected status %q, got %q", StatusFailed, job.Status)
	}
}

func TestDebouncer_Coalesces(t *testing.T) {
	d := newDebouncer(30 * time.Millisecond)
	var mu sync.Mutex
	fired := 0

	for i := 0; i < 5; i++ {
		d.Schedule("doc-1", func() {
			mu.Lock()
			fired++
			mu.Unlock()
		})
		time.Sleep(2 * time.Millisecond)
	}

	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if fired != 1 {
		t.Errorf("expected 1 firing after burst, got %d", fired)
	}
}

func TestDebouncer_Cancel(t *testing.T) {
	d := newDebouncer(20 * time.Millisecond)
	fired := make(chan struct{}, 1)
	d.Schedule("doc-1", func() { fired <- struct{}{} })
	d.Cancel("doc-1")

	select {
	case <-fired:
		t.Error("cancelled trigger must not fire")
	case <-time.After(60 * time.Millisecond):
	}
}

func TestDebouncer_IndependentKeys(t *testing.T) {
	d := newDebouncer(20 * time.Millisecond)
	var wg sync.WaitGroup
	wg.Add(2)
	d.Schedule("doc-1", wg.Done)
	d.Schedule("doc-2", wg.Done)

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("both keys should fire independently")
	}
}
