package editor

import (
	"fmt"

	"github.com/dgallion1/opmark/internal/highlight"
)

// ViewPosition addresses a point in the rendered view: a segment index and
// a byte offset inside that segment's text. Views render the content as
// multiple nodes (plain runs and highlights), so caret events arrive in
// this form rather than as linear offsets.
type ViewPosition struct {
	Segment int `json:"segment"`
	Offset  int `json:"offset"`
}

// OffsetForViewPosition translates a view position into a linear content
// offset by summing the lengths of all preceding segments. It must be
// re-derived after every re-render; segment boundaries shift when
// highlights are added or removed.
func OffsetForViewPosition(segs []highlight.Segment, pos ViewPosition) (int, error) {
	if pos.Segment < 0 || pos.Offset < 0 {
		return 0, fmt.Errorf("editor: negative view position %+v", pos)
	}
	// An empty view has exactly one addressable point.
	if len(segs) == 0 {
		if pos.Segment == 0 && pos.Offset == 0 {
			return 0, nil
		}
		return 0, fmt.Errorf("editor: view position %+v in empty view", pos)
	}
	if pos.Segment >= len(segs) {
		return 0, fmt.Errorf("editor: segment %d out of range (%d segments)", pos.Segment, len(segs))
	}
	if pos.Offset > len(segs[pos.Segment].Text) {
		return 0, fmt.Errorf("editor: offset %d exceeds segment length %d", pos.Offset, len(segs[pos.Segment].Text))
	}
	linear := 0
	for i := 0; i < pos.Segment; i++ {
		linear += len(segs[i].Text)
	}
	return linear + pos.Offset, nil
}

// ViewPositionForOffset maps a linear offset back to a view position.
// The mapping is best-effort: an offset beyond the rendered text clamps to
// the end of the last segment and returns ok=false so the caller knows the
// caret fell back to end-of-content.
func ViewPositionForOffset(segs []highlight.Segment, offset int) (ViewPosition, bool) {
	if len(segs) == 0 {
		return ViewPosition{}, offset <= 0
	}
	if offset < 0 {
		return ViewPosition{}, false
	}
	remaining := offset
	for i, seg := range segs {
		if remaining <= len(seg.Text) {
			// A boundary offset lands at the end of the earlier segment.
			return ViewPosition{Segment: i, Offset: remaining}, true
		}
		remaining -= len(seg.Text)
	}
	last := len(segs) - 1
	return ViewPosition{Segment: last, Offset: len(segs[last].Text)}, false
}
