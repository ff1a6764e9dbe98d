package docstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/dgallion1/opmark/internal/highlight"
)

func setupTestStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := NewRedisStore("redis://" + mr.Addr())
	if err != nil {
		t.Fatalf("failed to create redis store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRedisStore_SaveLoadRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	doc := &Document{
		ID:      "01ABCDEF",
		Title:   "OPORD 25-03",
		Content: "Forces will occupy and secure the objective.",
		Version: 1,
		Spans: []highlight.TaskMatch{
			{TaskName: "OCCUPY", MatchedText: "occupy", Start: 12, End: 18,
				Detail: highlight.TaskDetail{Name: "OCCUPY", Definition: "d", PageNumber: "B-38"}},
		},
		SpanVersion: 1,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	if err := store.Save(ctx, doc); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Load(ctx, "01ABCDEF")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Title != doc.Title || got.Content != doc.Content || got.Version != 1 {
		t.Errorf("loaded document mismatch: %+v", got)
	}
	if len(got.Spans) != 1 || got.Spans[0].Start != 12 || got.Spans[0].Detail.PageNumber != "B-38" {
		t.Errorf("spans not round-tripped: %+v", got.Spans)
	}
}

func TestRedisStore_LoadMissing(t *testing.T) {
	store := setupTestStore(t)
	if _, err := store.Load(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRedisStore_SaveRequiresID(t *testing.T) {
	store := setupTestStore(t)
	if err := store.Save(context.Background(), &Document{Title: "untitled"}); err == nil {
		t.Fatal("expected error for empty ID")
	}
}

func TestRedisStore_SaveReplacesWholeDocument(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	doc := &Document{ID: "d1", Content: "first", Version: 1, Spans: []highlight.TaskMatch{{TaskName: "X", Start: 0, End: 5}}, SpanVersion: 1}
	if err := store.Save(ctx, doc); err != nil {
		t.Fatalf("save: %v", err)
	}

	// A later save with cleared spans must not leave the old ones behind.
	doc2 := &Document{ID: "d1", Content: "second", Version: 2}
	if err := store.Save(ctx, doc2); err != nil {
		t.Fatalf("save 2: %v", err)
	}

	got, err := store.Load(ctx, "d1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Content != "second" || got.Version != 2 {
		t.Errorf("document not replaced: %+v", got)
	}
	if len(got.Spans) != 0 || got.SpanVersion != 0 {
		t.Errorf("stale spans survived the save: %+v", got)
	}
}

func TestRedisStore_SaveSpansAttachesWithoutTouchingContent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	doc := &Document{ID: "d1", Title: "OPORD 25-03", Content: "seize the bridge", Version: 3}
	if err := store.Save(ctx, doc); err != nil {
		t.Fatalf("save: %v", err)
	}

	spans := []highlight.TaskMatch{{TaskName: "SEIZE", MatchedText: "seize", Start: 0, End: 5}}
	if err := store.SaveSpans(ctx, "d1", spans, 3); err != nil {
		t.Fatalf("save spans: %v", err)
	}

	got, err := store.Load(ctx, "d1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Content != "seize the bridge" || got.Version != 3 || got.Title != "OPORD 25-03" {
		t.Errorf("span attach modified the document: %+v", got)
	}
	if len(got.Spans) != 1 || got.SpanVersion != 3 {
		t.Errorf("spans not attached: %+v", got)
	}
}

func TestRedisStore_SaveSpansVersionConflict(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, &Document{ID: "d1", Content: "seize the bridge", Version: 1}); err != nil {
		t.Fatalf("save: %v", err)
	}
	// A user edit lands after the analysis snapshot was taken.
	if err := store.Save(ctx, &Document{ID: "d1", Content: "defend the crossing", Version: 2}); err != nil {
		t.Fatalf("save edit: %v", err)
	}

	spans := []highlight.TaskMatch{{TaskName: "SEIZE", MatchedText: "seize", Start: 0, End: 5}}
	err := store.SaveSpans(ctx, "d1", spans, 1)
	if !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}

	got, _ := store.Load(ctx, "d1")
	if got.Content != "defend the crossing" || got.Version != 2 {
		t.Errorf("user edit lost: %+v", got)
	}
	if len(got.Spans) != 0 || got.SpanVersion != 0 {
		t.Errorf("stale spans stored despite conflict: %+v", got)
	}
}

func TestRedisStore_SaveSpansMissingDocument(t *testing.T) {
	store := setupTestStore(t)
	err := store.SaveSpans(context.Background(), "ghost", nil, 1)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRedisStore_ListAndDelete(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := store.Save(ctx, &Document{ID: id, Content: id, Version: 1}); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}

	docs, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("expected 3 documents, got %d", len(docs))
	}

	if err := store.Delete(ctx, "b"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, "b"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on double delete, got %v", err)
	}

	docs, err = store.List(ctx)
	if err != nil {
		t.Fatalf("list after delete: %v", err)
	}
	if len(docs) != 2 {
		t.Errorf("expected 2 documents, got %d", len(docs))
	}
}
