package highlight

import "sort"

// TaskDetail is the catalog entry for a recognized tactical task.
// PageNumber is a string to handle formats like "B-10".
type TaskDetail struct {
	Name            string   `json:"name"`
	Definition      string   `json:"definition"`
	PageNumber      string   `json:"page_number"`
	ImagePath       string   `json:"image_path,omitempty"`
	SourceReference string   `json:"source_reference,omitempty"`
	RelatedFigures  []string `json:"related_figures,omitempty"`
}

// TaskMatch is one accepted highlight span with its task detail attached.
// Start/End are half-open byte offsets into the content snapshot the span
// was resolved against; content[Start:End] equals MatchedText.
type TaskMatch struct {
	TaskName    string     `json:"task_name"`
	MatchedText string     `json:"matched_text"`
	Start       int        `json:"start"`
	End         int        `json:"end"`
	Detail      TaskDetail `json:"detail"`
}

type candidate struct {
	start    int
	end      int
	taskName string
	matched  string
}

// Resolve finds all occurrences of every task in details and merges them
// into an ordered, non-overlapping span list. Candidates are sorted by
// start ascending with longer spans winning ties at the same start, then a
// left-to-right sweep drops anything overlapping an accepted span. The
// result is deterministic regardless of map iteration order.
func Resolve(content string, details map[string]TaskDetail) []TaskMatch {
	if content == "" || len(details) == 0 {
		return nil
	}

	// Flat candidate list across all tasks, deduped by exact range.
	// Distinct catalog names can collide on a range (e.g. "Seize" and
	// "SEIZE"); the lexicographically smaller task name wins so output
	// never depends on iteration order.
	type span struct{ start, end int }
	byRange := make(map[span]candidate)
	for name := range details {
		for _, occ := range FindOccurrences(content, name) {
			key := span{occ.Start, occ.End}
			prev, ok := byRange[key]
			if !ok || name < prev.taskName {
				byRange[key] = candidate{
					start:    occ.Start,
					end:      occ.End,
					taskName: name,
					matched:  occ.MatchedText,
				}
			}
		}
	}
	if len(byRange) == 0 {
		return nil
	}

	cands := make([]candidate, 0, len(byRange))
	for _, c := range byRange {
		cands = append(cands, c)
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].start != cands[j].start {
			return cands[i].start < cands[j].start
		}
		// Longer span first: a more specific term is not shadowed by a
		// shorter one starting at the same offset.
		if cands[i].end != cands[j].end {
			return cands[i].end > cands[j].end
		}
		return cands[i].taskName < cands[j].taskName
	})

	var spans []TaskMatch
	lastAcceptedEnd := -1
	for _, c := range cands {
		if c.start <= lastAcceptedEnd {
			continue
		}
		spans = append(spans, TaskMatch{
			TaskName:    c.taskName,
			MatchedText: c.matched,
			Start:       c.start,
			End:         c.end,
			Detail:      details[c.taskName],
		})
		lastAcceptedEnd = c.end
	}
	return spans
}
