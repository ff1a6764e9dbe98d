package editor

import (
	"sync"
	"time"
)

// analysisScheduler coalesces content-change notifications into a single
// deferred run after a quiescence window. Each Schedule cancels the
// previously scheduled run, so only the newest content version triggers
// analysis.
type analysisScheduler struct {
	mu         sync.Mutex
	window     time.Duration
	timer      *time.Timer
	generation uint64
}

func newAnalysisScheduler(window time.Duration) *analysisScheduler {
	if window <= 0 {
		window = time.Second
	}
	return &analysisScheduler{window: window}
}

// Schedule arranges for run to execute after the quiescence window,
// replacing any pending run.
func (s *analysisScheduler) Schedule(run func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	gen := s.generation
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.window, func() {
		s.mu.Lock()
		stale := gen != s.generation
		s.mu.Unlock()
		if stale {
			// A newer schedule or cancel superseded this run between the
			// timer firing and the lock being taken.
			return
		}
		run()
	})
}

// Cancel drops any pending run.
func (s *analysisScheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
