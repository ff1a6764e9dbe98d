package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dgallion1/opmark/internal/highlight"
)

// State is the enhancement-flow state of a session.
type State string

const (
	StateIdle                State = "idle"
	StateSelecting           State = "selecting"
	StateAwaitingEnhancement State = "awaiting_enhancement"
	StateSuggestionReady     State = "suggestion_ready"
)

// SuggestionStatus tracks the lifecycle of an enhancement suggestion.
type SuggestionStatus string

const (
	SuggestionPending  SuggestionStatus = "pending"
	SuggestionAccepted SuggestionStatus = "accepted"
	SuggestionRejected SuggestionStatus = "rejected"
)

// Suggestion is an enhancement response tied to the selection and content
// version captured when the request was made.
type Suggestion struct {
	OriginalText   string           `json:"original_text"`
	EnhancedText   string           `json:"enhanced_text"`
	Status         SuggestionStatus `json:"status"`
	Selection      Selection        `json:"selection"`
	ContentVersion int64            `json:"content_version"`
}

// ErrNoSuggestion is returned by Accept/Reject when no suggestion is ready.
var ErrNoSuggestion = errors.New("editor: no suggestion ready")

// Analyzer is the external NER collaborator. It returns the recognized
// task set with metadata; offsets are recomputed locally against current
// content, never trusted from the collaborator.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (map[string]highlight.TaskDetail, error)
}

// Enhancer is the external text-enhancement collaborator.
type Enhancer interface {
	Enhance(ctx context.Context, text, mode string) (string, error)
}

// Config controls session timing.
type Config struct {
	Quiescence     time.Duration // edit-free window before re-analysis (default 1s)
	RequestTimeout time.Duration // per collaborator call (default 30s)
}

// Session holds the editing state for one document: content with a
// monotonic version counter, caret, selection, resolved highlight spans,
// and the enhancement state machine. All methods are safe for concurrent
// use; collaborator calls run off the lock and re-validate version and
// state on completion so stale responses are discarded, never applied.
type Session struct {
	mu       sync.Mutex
	log      *slog.Logger
	analyzer Analyzer
	enhancer Enhancer
	sched    *analysisScheduler

	ctx    context.Context
	cancel context.CancelFunc

	content string
	version int64
	caret   int

	details map[string]highlight.TaskDetail
	spans   []highlight.TaskMatch

	state      State
	selection  Selection
	suggestion *Suggestion
	enhanceSeq uint64

	lastErr    error
	reqTimeout time.Duration
}

// NewSession creates a session over an initial content snapshot.
// analyzer and enhancer may be nil; the corresponding flows are then
// disabled (useful for pure editing and in tests).
func NewSession(content string, analyzer Analyzer, enhancer Enhancer, log *slog.Logger, cfg Config) *Session {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Quiescence <= 0 {
		cfg.Quiescence = time.Second
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		log:        log,
		analyzer:   analyzer,
		enhancer:   enhancer,
		sched:      newAnalysisScheduler(cfg.Quiescence),
		ctx:        ctx,
		cancel:     cancel,
		content:    content,
		version:    1,
		state:      StateIdle,
		reqTimeout: cfg.RequestTimeout,
	}
}

// Close cancels pending analysis and in-flight collaborator calls.
func (s *Session) Close() {
	s.sched.Cancel()
	s.cancel()
}

// Content returns the current content snapshot.
func (s *Session) Content() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.content
}

// Version returns the current content version.
func (s *Session) Version() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Caret returns the tracked caret offset.
func (s *Session) Caret() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.caret
}

// State returns the enhancement-flow state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CurrentSelection returns the active selection, if any.
func (s *Session) CurrentSelection() (Selection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection, s.state == StateSelecting
}

// Spans returns a copy of the current resolved span list.
func (s *Session) Spans() []highlight.TaskMatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]highlight.TaskMatch, len(s.spans))
	copy(out, s.spans)
	return out
}

// Segments projects the current content and spans into rendering segments.
func (s *Session) Segments() ([]highlight.Segment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return highlight.Project(s.content, s.spans)
}

// LastError returns the most recent collaborator failure surfaced to the
// UI, or nil. Later successful calls do not clear it; the next failure
// overwrites it.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// SetCaret moves the caret, clamping into the current content. An active
// selection collapses back to Idle.
func (s *Session) SetCaret(offset int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.caret = clampCaret(s.content, offset)
	if s.state == StateSelecting {
		s.selection = Selection{}
		s.state = StateIdle
	}
}

// SetCaretFromView translates a view position (segment index + in-segment
// offset) into a linear offset and moves the caret there. Unmappable
// positions fall back to end-of-content.
func (s *Session) SetCaretFromView(pos ViewPosition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	segs, err := highlight.Project(s.content, s.spans)
	if err != nil {
		// Spans violating the projector contract are a programming error;
		// surface loudly rather than guessing a caret.
		panic(err)
	}
	offset, err := OffsetForViewPosition(segs, pos)
	if err != nil {
		offset = len(s.content)
	}
	s.caret = offset
	if s.state == StateSelecting {
		s.selection = Selection{}
		s.state = StateIdle
	}
}

// CaretViewPosition maps the tracked caret back into the rendered view.
// ok is false when the caret could only be restored at end-of-content.
func (s *Session) CaretViewPosition() (ViewPosition, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	segs, err := highlight.Project(s.content, s.spans)
	if err != nil {
		panic(err)
	}
	return ViewPositionForOffset(segs, s.caret)
}

// Select activates a selection. Empty or whitespace-only selections clear
// back to Idle. Selecting new text while a suggestion is in flight or
// ready discards that suggestion.
func (s *Session) Select(start, end int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sel := Selection{Start: start, End: end}
	if err := sel.Validate(len(s.content)); err != nil {
		return err
	}
	if s.suggestion != nil && s.suggestion.Status == SuggestionPending {
		s.log.Debug("discarding pending suggestion on new selection")
	}
	s.suggestion = nil
	s.enhanceSeq++

	if sel.IsEmpty() || strings.TrimSpace(s.content[sel.Start:sel.End]) == "" {
		s.selection = Selection{}
		s.state = StateIdle
		return nil
	}
	s.selection = sel
	s.caret = sel.End
	s.state = StateSelecting
	return nil
}

// ClearSelection is the focus-lost transition.
func (s *Session) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateSelecting {
		s.selection = Selection{}
		s.state = StateIdle
	}
}

// Insert splices text at the caret, or over the active selection.
func (s *Session) Insert(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start, end := s.caret, s.caret
	if s.state == StateSelecting && !s.selection.IsEmpty() {
		start, end = s.selection.Start, s.selection.End
	}
	s.applyEditLocked(spliceText(s.content, start, end, text), start+len(text))
}

// Backspace deletes the active selection, or the rune before the caret.
func (s *Session) Backspace() {
	s.mu.Lock()
	defer s.mu.Unlock()

	start, end := s.caret, s.caret
	if s.state == StateSelecting && !s.selection.IsEmpty() {
		start, end = s.selection.Start, s.selection.End
	} else {
		start = prevRuneStart(s.content, s.caret)
	}
	if start == end {
		return
	}
	s.applyEditLocked(spliceText(s.content, start, end, ""), start)
}

// Delete removes the active selection, or the rune at the caret.
func (s *Session) Delete() {
	s.mu.Lock()
	defer s.mu.Unlock()

	start, end := s.caret, s.caret
	if s.state == StateSelecting && !s.selection.IsEmpty() {
		start, end = s.selection.Start, s.selection.End
	} else {
		end = nextRuneEnd(s.content, s.caret)
	}
	if start == end {
		return
	}
	s.applyEditLocked(spliceText(s.content, start, end, ""), start)
}

// Replace splices text over an arbitrary range (paste into a range).
func (s *Session) Replace(sel Selection, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := sel.Validate(len(s.content)); err != nil {
		return err
	}
	s.applyEditLocked(spliceText(s.content, sel.Start, sel.End, text), sel.Start+len(text))
	return nil
}

// applyEditLocked installs a new content value: version bump, caret
// restore, selection and pending-suggestion invalidation, synchronous span
// recompute against the cached task set, and a debounced re-analysis.
func (s *Session) applyEditLocked(newContent string, newCaret int) {
	s.content = newContent
	s.version++
	s.caret = clampCaret(newContent, newCaret)
	s.selection = Selection{}
	s.suggestion = nil
	s.enhanceSeq++
	s.state = StateIdle
	s.spans = highlight.Resolve(s.content, s.details)
	s.scheduleReanalysisLocked()
}

func (s *Session) scheduleReanalysisLocked() {
	if s.analyzer == nil {
		return
	}
	version, content := s.version, s.content
	s.sched.Schedule(func() { s.runAnalysis(version, content) })
}

// RefreshAnalysis runs the analyzer immediately (e.g. on session open) and
// installs the recognized task set unless the content moved on meanwhile.
func (s *Session) RefreshAnalysis(ctx context.Context) error {
	if s.analyzer == nil {
		return nil
	}
	s.mu.Lock()
	version, content := s.version, s.content
	s.mu.Unlock()

	details, err := s.analyzer.Analyze(ctx, content)
	return s.installAnalysis(version, details, err)
}

func (s *Session) runAnalysis(version int64, content string) {
	ctx, cancel := context.WithTimeout(s.ctx, s.reqTimeout)
	defer cancel()
	details, err := s.analyzer.Analyze(ctx, content)
	if err := s.installAnalysis(version, details, err); err != nil {
		s.log.Warn("analysis failed", "version", version, "error", err)
	}
}

func (s *Session) installAnalysis(version int64, details map[string]highlight.TaskDetail, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if version != s.version {
		// Content changed while the call was in flight; a re-analysis for
		// the newer version is already scheduled.
		return nil
	}
	if err != nil {
		s.lastErr = err
		return err
	}
	s.details = details
	s.spans = highlight.Resolve(s.content, details)
	return nil
}

// RequestEnhancement sends the selected text to the enhancer. The
// selection and content version are captured now; the async completion is
// discarded if an edit or a newer request supersedes it.
func (s *Session) RequestEnhancement(mode string) error {
	s.mu.Lock()
	if s.enhancer == nil {
		s.mu.Unlock()
		return errors.New("editor: no enhancer configured")
	}
	if s.state != StateSelecting {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("editor: cannot request enhancement in state %q", state)
	}
	sel := s.selection
	version := s.version
	original := s.content[sel.Start:sel.End]
	s.state = StateAwaitingEnhancement
	s.enhanceSeq++
	seq := s.enhanceSeq
	s.mu.Unlock()

	go s.completeEnhancement(seq, version, sel, original, mode)
	return nil
}

func (s *Session) completeEnhancement(seq uint64, version int64, sel Selection, original, mode string) {
	ctx, cancel := context.WithTimeout(s.ctx, s.reqTimeout)
	defer cancel()
	enhanced, err := s.enhancer.Enhance(ctx, original, mode)

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.enhanceSeq || s.state != StateAwaitingEnhancement {
		// Superseded by an edit, a new selection, or a newer request.
		return
	}
	if version != s.version {
		s.state = StateIdle
		return
	}
	if err != nil {
		s.lastErr = err
		s.log.Warn("enhancement failed", "mode", mode, "error", err)
		// The selection is still valid; let the user retry.
		s.selection = sel
		s.state = StateSelecting
		return
	}
	s.suggestion = &Suggestion{
		OriginalText:   original,
		EnhancedText:   enhanced,
		Status:         SuggestionPending,
		Selection:      sel,
		ContentVersion: version,
	}
	s.state = StateSuggestionReady
}

// CurrentSuggestion returns the ready suggestion, if any.
func (s *Session) CurrentSuggestion() (Suggestion, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.suggestion == nil {
		return Suggestion{}, false
	}
	return *s.suggestion, true
}

// AcceptSuggestion applies the ready suggestion. The captured content
// version must still be current; otherwise the suggestion is discarded and
// ErrStaleSelection returned without touching content.
func (s *Session) AcceptSuggestion() (Substitution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateSuggestionReady || s.suggestion == nil {
		return Substitution{}, ErrNoSuggestion
	}
	sug := s.suggestion
	if sug.ContentVersion != s.version {
		s.suggestion = nil
		s.selection = Selection{}
		s.state = StateIdle
		return Substitution{}, ErrStaleSelection
	}
	sub, err := Substitute(s.content, sug.Selection, sug.EnhancedText)
	if err != nil {
		return Substitution{}, err
	}
	sug.Status = SuggestionAccepted
	s.content = sub.NewContent
	s.version++
	s.caret = sub.NewCaret
	s.selection = Selection{}
	s.suggestion = nil
	s.state = StateIdle
	s.spans = highlight.Resolve(s.content, s.details)
	s.scheduleReanalysisLocked()
	return sub, nil
}

// RejectSuggestion discards the ready suggestion and clears the selection.
func (s *Session) RejectSuggestion() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateSuggestionReady || s.suggestion == nil {
		return ErrNoSuggestion
	}
	s.suggestion.Status = SuggestionRejected
	s.suggestion = nil
	s.selection = Selection{}
	s.state = StateIdle
	return nil
}
