// Package catalog stores the tactical task reference data (FM 3-90 terms
// with definitions and page references) that analysis validates NER output
// against and the resolver attaches to highlight spans.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dgallion1/opmark/internal/highlight"
)

// ErrNotFound is returned when a task name is not in the catalog.
var ErrNotFound = errors.New("catalog: task not found")

// Store is the task catalog persistence interface.
type Store interface {
	// Put creates or replaces a task entry.
	Put(ctx context.Context, detail highlight.TaskDetail) error
	// Get looks up a task by name (case-insensitive).
	Get(ctx context.Context, name string) (highlight.TaskDetail, error)
	// List returns all task entries.
	List(ctx context.Context) ([]highlight.TaskDetail, error)
	// Delete removes a task. Returns ErrNotFound if absent.
	Delete(ctx context.Context, name string) error
}

// CanonicalName normalizes a task name for lookup. Doctrine terms are
// upper-case in the manual; NER output arrives in mixed case.
func CanonicalName(name string) string {
	return strings.ToUpper(strings.Join(strings.Fields(name), " "))
}

// Validate checks a task entry before storage.
func Validate(d highlight.TaskDetail) error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("catalog: task name is required")
	}
	if strings.TrimSpace(d.Definition) == "" {
		return fmt.Errorf("catalog: definition is required for %q", d.Name)
	}
	return nil
}

// DetailsByName loads the full catalog keyed by display name, the shape
// highlight.Resolve consumes.
func DetailsByName(ctx context.Context, s Store) (map[string]highlight.TaskDetail, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	details := make(map[string]highlight.TaskDetail, len(all))
	for _, d := range all {
		details[d.Name] = d
	}
	return details, nil
}
