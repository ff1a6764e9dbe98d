package highlight

import (
	"errors"
	"fmt"
)

// SegmentKind distinguishes plain-text gaps from highlighted spans.
type SegmentKind string

const (
	SegmentText      SegmentKind = "text"
	SegmentHighlight SegmentKind = "highlight"
)

// Segment is one rendering unit. Concatenating the Text of all segments in
// order reproduces the content string exactly.
type Segment struct {
	Kind  SegmentKind `json:"kind"`
	Text  string      `json:"text"`
	Match *TaskMatch  `json:"match,omitempty"`
}

// ErrInvalidSpans indicates a span list that violates the resolver's
// contract (out of range, unsorted, or overlapping). This is a programming
// error upstream; Project refuses to clamp or repair it.
var ErrInvalidSpans = errors.New("highlight: invalid span list")

// Project converts content plus a resolved span list into an ordered
// segment sequence: a text segment for each gap, a highlight segment for
// each span, and a trailing text segment for any remainder.
func Project(content string, spans []TaskMatch) ([]Segment, error) {
	if err := validateSpans(content, spans); err != nil {
		return nil, err
	}

	var segs []Segment
	cursor := 0
	for i := range spans {
		sp := &spans[i]
		if sp.Start > cursor {
			segs = append(segs, Segment{Kind: SegmentText, Text: content[cursor:sp.Start]})
		}
		segs = append(segs, Segment{
			Kind:  SegmentHighlight,
			Text:  content[sp.Start:sp.End],
			Match: sp,
		})
		cursor = sp.End
	}
	if cursor < len(content) {
		segs = append(segs, Segment{Kind: SegmentText, Text: content[cursor:]})
	}
	return segs, nil
}

func validateSpans(content string, spans []TaskMatch) error {
	prevEnd := 0
	for i, sp := range spans {
		if sp.Start < 0 || sp.End <= sp.Start || sp.End > len(content) {
			return fmt.Errorf("%w: span %d [%d,%d) out of range for %d bytes",
				ErrInvalidSpans, i, sp.Start, sp.End, len(content))
		}
		if sp.Start < prevEnd {
			return fmt.Errorf("%w: span %d [%d,%d) overlaps or precedes previous end %d",
				ErrInvalidSpans, i, sp.Start, sp.End, prevEnd)
		}
		prevEnd = sp.End
	}
	return nil
}
