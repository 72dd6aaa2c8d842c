// Package timer runs a callback when a survey reaches its end time.
package timer

import (
	"sync"
	"time"

	"github.com/mbolis/survey-wolf/log"
)

type Scheduler struct {
	mu      sync.Mutex
	timers  map[int64]*time.Timer
	now     func() time.Time
	stopped bool
}

func New() *Scheduler {
	return &Scheduler{
		timers: map[int64]*time.Timer{},
		now:    time.Now,
	}
}

// Arm runs fn at the given time, replacing the timer already armed for id.
// A time in the past fires right away.
func (s *Scheduler) Arm(id int64, at time.Time, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if old, ok := s.timers[id]; ok {
		old.Stop()
	}

	var t *time.Timer
	t = time.AfterFunc(at.Sub(s.now()), func() {
		s.mu.Lock()
		// a newer Arm or a Cancel got here first
		if s.timers[id] != t {
			s.mu.Unlock()
			return
		}
		delete(s.timers, id)
		s.mu.Unlock()

		log.Debugf("timer.fire: survey %d", id)
		fn()
	})
	s.timers[id] = t
}

// Cancel stops the timer of id, if any.
func (s *Scheduler) Cancel(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
}

func (s *Scheduler) Armed(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[id]
	return ok
}

func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop cancels every timer. Later calls to Arm do nothing.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	s.stopped = true
}
