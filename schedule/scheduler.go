// Package schedule implements tag-keyed delayed callbacks: scheduling a
// non-empty tag cancels and replaces any prior task under that tag.
package schedule

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Scheduler holds at most one pending task per non-empty tag.
type Scheduler struct {
	mu    sync.Mutex
	tasks map[string]*time.Timer
	log   *zap.SugaredLogger
}

// New returns an empty Scheduler.
func New(log *zap.SugaredLogger) *Scheduler {
	return &Scheduler{tasks: make(map[string]*time.Timer), log: log}
}

// Schedule runs cb after d. If tag is non-empty, any prior task under the
// same tag is canceled first, so only the most recently scheduled callback
// for that tag ever runs. An empty tag schedules an untracked, uncancelable
// one-off.
func (s *Scheduler) Schedule(tag string, d time.Duration, cb func()) {
	run := func() {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Errorw("scheduled task panicked", "tag", tag, "panic", rec)
			}
		}()
		cb()
	}

	if tag == "" {
		time.AfterFunc(d, run)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if prior, ok := s.tasks[tag]; ok {
		prior.Stop()
	}
	var self *time.Timer
	self = time.AfterFunc(d, func() {
		run()
		s.mu.Lock()
		if cur, ok := s.tasks[tag]; ok && cur == self {
			delete(s.tasks, tag)
		}
		s.mu.Unlock()
	})
	s.tasks[tag] = self
}

// Cancel removes and stops the task under tag, if any.
func (s *Scheduler) Cancel(tag string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tasks[tag]; ok {
		t.Stop()
		delete(s.tasks, tag)
	}
}

// CancelAll stops and drains every pending tagged task.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for tag, t := range s.tasks {
		t.Stop()
		delete(s.tasks, tag)
	}
}
