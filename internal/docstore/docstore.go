// Package docstore persists OPORD documents. Saves are atomic whole-
// document writes; the only partial update is the version-guarded span
// attachment in SaveSpans.
package docstore

import (
	"context"
	"errors"
	"time"

	"github.com/dgallion1/opmark/internal/highlight"
)

// ErrNotFound is returned when a document ID does not exist.
var ErrNotFound = errors.New("docstore: document not found")

// ErrVersionConflict is returned by SaveSpans when the stored document
// has moved past the version the spans were resolved against.
var ErrVersionConflict = errors.New("docstore: document version conflict")

// Document is a stored OPORD. Version increments on every content
// replacement and detects stale enhancement applies. Spans cache the last
// background analysis, resolved against the content version recorded in
// SpanVersion; a mismatch means the cache is stale and must not be
// rendered as-is.
type Document struct {
	ID          string                `json:"id"`
	Title       string                `json:"title"`
	Content     string                `json:"content"`
	Version     int64                 `json:"version"`
	Spans       []highlight.TaskMatch `json:"spans,omitempty"`
	SpanVersion int64                 `json:"span_version,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// Store is the document persistence interface. SaveSpans attaches
// analysis spans to a document without touching its content: the write
// happens only if the stored version still equals version, otherwise it
// returns ErrVersionConflict. Concurrent user edits are never clobbered
// by a slow analysis.
type Store interface {
	Load(ctx context.Context, id string) (*Document, error)
	Save(ctx context.Context, doc *Document) error
	SaveSpans(ctx context.Context, id string, spans []highlight.TaskMatch, version int64) error
	List(ctx context.Context) ([]*Document, error)
	Delete(ctx context.Context, id string) error
}
