package room

import (
	"sort"
	"sync"
	"time"
)

// Scheduler runs fn once after delay. Scheduling a key that is already
// pending cancels the earlier call, which gives debounce semantics.
type Scheduler interface {
	After(key string, delay time.Duration, fn func())
	Cancel(key string)
	Stop()
}

// TimerScheduler schedules on wall-clock timers.
type TimerScheduler struct {
	mu      sync.Mutex
	timers  map[string]*time.Timer
	gen     map[string]uint64
	stopped bool
}

func NewTimerScheduler() *TimerScheduler {
	return &TimerScheduler{
		timers: make(map[string]*time.Timer),
		gen:    make(map[string]uint64),
	}
}

func (s *TimerScheduler) After(key string, delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	if t, ok := s.timers[key]; ok {
		t.Stop()
	}

	s.gen[key]++
	gen := s.gen[key]
	s.timers[key] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		// a timer that already fired when it was reset must not run
		if s.stopped || s.gen[key] != gen {
			s.mu.Unlock()
			return
		}
		delete(s.timers, key)
		s.mu.Unlock()

		fn()
	})
}

func (s *TimerScheduler) Cancel(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[key]; ok {
		t.Stop()
		delete(s.timers, key)
	}
	s.gen[key]++
}

func (s *TimerScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	for key, t := range s.timers {
		t.Stop()
		delete(s.timers, key)
	}
}

type manualTask struct {
	key string
	at  time.Time
	seq uint64
	fn  func()
}

// ManualScheduler is driven by Advance instead of a clock. Tasks run on the
// goroutine calling Advance, ordered by due time and then by scheduling order.
type ManualScheduler struct {
	mu    sync.Mutex
	now   time.Time
	seq   uint64
	tasks map[string]*manualTask
}

func NewManualScheduler(start time.Time) *ManualScheduler {
	return &ManualScheduler{now: start, tasks: make(map[string]*manualTask)}
}

// Now is the scheduler's virtual clock.
func (s *ManualScheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (s *ManualScheduler) After(key string, delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	s.tasks[key] = &manualTask{key: key, at: s.now.Add(delay), seq: s.seq, fn: fn}
}

func (s *ManualScheduler) Cancel(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tasks, key)
}

func (s *ManualScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = make(map[string]*manualTask)
}

// Pending reports whether key is scheduled and not yet run.
func (s *ManualScheduler) Pending(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[key]
	return ok
}

// Advance moves the clock forward by d and runs every task that falls due,
// including tasks scheduled by the ones it runs.
func (s *ManualScheduler) Advance(d time.Duration) int {
	s.mu.Lock()
	target := s.now.Add(d)
	s.mu.Unlock()

	ran := 0
	for {
		task := s.nextDue(target)
		if task == nil {
			break
		}
		task.fn()
		ran++
	}

	s.mu.Lock()
	if target.After(s.now) {
		s.now = target
	}
	s.mu.Unlock()
	return ran
}

// RunPending runs everything scheduled without moving past the latest due
// time.
func (s *ManualScheduler) RunPending() int {
	ran := 0
	for {
		s.mu.Lock()
		if len(s.tasks) == 0 {
			s.mu.Unlock()
			return ran
		}
		latest := s.now
		for _, t := range s.tasks {
			if t.at.After(latest) {
				latest = t.at
			}
		}
		d := latest.Sub(s.now)
		s.mu.Unlock()

		ran += s.Advance(d)
	}
}

func (s *ManualScheduler) nextDue(target time.Time) *manualTask {
	s.mu.Lock()
	defer s.mu.Unlock()

	due := make([]*manualTask, 0, len(s.tasks))
	for _, t := range s.tasks {
		if !t.at.After(target) {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return nil
	}

	sort.Slice(due, func(i, j int) bool {
		if !due[i].at.Equal(due[j].at) {
			return due[i].at.Before(due[j].at)
		}
		return due[i].seq < due[j].seq
	})

	task := due[0]
	delete(s.tasks, task.key)
	if task.at.After(s.now) {
		s.now = task.at
	}
	return task
}
