// Package analyze is the NER analysis collaborator: it sends document text
// to the generative model, validates proposed task names against the
// catalog, and returns the recognized task set. Offsets reported by the
// model are advisory only — they go stale the instant content changes, so
// authoritative spans are always recomputed locally by highlight.Resolve.
package analyze

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgallion1/opmark/internal/catalog"
	"github.com/dgallion1/opmark/internal/genai"
	"github.com/dgallion1/opmark/internal/highlight"
)

// TextGenerator is the slice of the genai client this package needs.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Entity is one raw NER mention as reported by the model. StartIndex and
// EndIndex are the model's claimed character offsets; diagnostics only.
type Entity struct {
	TaskName   string `json:"task_name"`
	StartIndex int    `json:"start_index"`
	EndIndex   int    `json:"end_index"`
}

// Result is the outcome of one analysis call.
type Result struct {
	// Recognized holds catalog details for every proposed task name the
	// catalog knows, keyed by display name — the resolver's input shape.
	Recognized map[string]highlight.TaskDetail `json:"recognized"`
	// Entities are the raw model mentions, advisory offsets included.
	Entities []Entity `json:"entities"`
	// Unknown lists proposed names not present in the catalog.
	Unknown []string `json:"unknown,omitempty"`
}

// Analyzer runs NER analysis against the catalog.
type Analyzer struct {
	gen   TextGenerator
	tasks catalog.Store
	log   *slog.Logger
}

func New(gen TextGenerator, tasks catalog.Store, log *slog.Logger) *Analyzer {
	if log == nil {
		log = slog.Default()
	}
	return &Analyzer{gen: gen, tasks: tasks, log: log}
}

// AnalyzeText identifies tactical tasks in text and retrieves their
// catalog details. Unknown names are reported, not treated as errors.
func (a *Analyzer) AnalyzeText(ctx context.Context, text string) (*Result, error) {
	result := &Result{Recognized: map[string]highlight.TaskDetail{}}
	if strings.TrimSpace(text) == "" {
		return result, nil
	}

	raw, err := a.gen.GenerateText(ctx, BuildNERPrompt(text))
	if err != nil {
		return nil, fmt.Errorf("ner call: %w", err)
	}
	cleaned := genai.StripCodeFence(raw)

	var entities []Entity
	if err := json.Unmarshal([]byte(cleaned), &entities); err != nil {
		return nil, fmt.Errorf("parse ner json: %w", err)
	}

	seenUnknown := map[string]bool{}
	for _, e := range entities {
		if strings.TrimSpace(e.TaskName) == "" {
			a.log.Warn("ner entity without task name dropped", "entity", e)
			continue
		}
		result.Entities = append(result.Entities, e)

		detail, err := a.tasks.Get(ctx, e.TaskName)
		if errors.Is(err, catalog.ErrNotFound) {
			canon := catalog.CanonicalName(e.TaskName)
			if !seenUnknown[canon] {
				seenUnknown[canon] = true
				result.Unknown = append(result.Unknown, e.TaskName)
			}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("catalog lookup %q: %w", e.TaskName, err)
		}
		result.Recognized[detail.Name] = detail
	}
	return result, nil
}

// Analyze implements editor.Analyzer: just the recognized task set.
func (a *Analyzer) Analyze(ctx context.Context, text string) (map[string]highlight.TaskDetail, error) {
	result, err := a.AnalyzeText(ctx, text)
	if err != nil {
		return nil, err
	}
	return result.Recognized, nil
}
