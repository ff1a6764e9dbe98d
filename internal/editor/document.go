// Package editor implements the offset-tracking editable surface: an
// authoritative plain-text content model with a monotonic version counter,
// selection and caret bookkeeping expressed as content-string offsets, and
// the enhancement suggestion state machine. It is UI-agnostic; a view layer
// supplies positions in terms of rendered segments and gets linear offsets
// back.
package editor

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrInvalidSelection is returned for selections with start > end or
// offsets outside the current content.
var ErrInvalidSelection = errors.New("editor: invalid selection")

// ErrStaleSelection is returned when a suggestion is applied against a
// content version newer than the one its selection was captured on.
var ErrStaleSelection = errors.New("editor: selection no longer valid")

// Selection is a half-open offset range into a specific content snapshot.
type Selection struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Validate checks the selection against a content length.
func (sel Selection) Validate(contentLen int) error {
	if sel.Start > sel.End {
		return fmt.Errorf("%w: start %d > end %d", ErrInvalidSelection, sel.Start, sel.End)
	}
	if sel.Start < 0 || sel.End > contentLen {
		return fmt.Errorf("%w: [%d,%d) out of range for %d bytes", ErrInvalidSelection, sel.Start, sel.End, contentLen)
	}
	return nil
}

// IsEmpty reports whether the selection covers no text.
func (sel Selection) IsEmpty() bool { return sel.Start == sel.End }

// spliceText builds new content by replacing content[start:end] with text.
// Every edit funnels through here; content values are never mutated.
func spliceText(content string, start, end int, text string) string {
	var sb strings.Builder
	sb.Grow(len(content) - (end - start) + len(text))
	sb.WriteString(content[:start])
	sb.WriteString(text)
	sb.WriteString(content[end:])
	return sb.String()
}

// prevRuneStart returns the offset of the rune preceding offset, so a
// backspace never splits a multi-byte rune.
func prevRuneStart(content string, offset int) int {
	if offset <= 0 {
		return 0
	}
	_, size := utf8.DecodeLastRuneInString(content[:offset])
	return offset - size
}

// nextRuneEnd returns the offset just past the rune at offset.
func nextRuneEnd(content string, offset int) int {
	if offset >= len(content) {
		return len(content)
	}
	_, size := utf8.DecodeRuneInString(content[offset:])
	return offset + size
}

// clampCaret restores a caret best-effort: a target that no longer maps
// into the content falls back to end-of-content.
func clampCaret(content string, caret int) int {
	if caret < 0 {
		return 0
	}
	if caret > len(content) {
		return len(content)
	}
	return caret
}
