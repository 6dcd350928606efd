package playback

import (
	"time"
)

// Scheduler runs deferred one-shot callbacks on the render goroutine.
// Callbacks never run on their own: Poll fires the ones that are due and is
// called once per tick.
//
// Every callback remembers the epoch it was scheduled in. Invalidate bumps
// the epoch, and callbacks from an older epoch are discarded when they come
// due instead of touching channels that were torn down by a reload.
type Scheduler struct {
	now     func() time.Time
	epoch   uint64
	pending []deferred
}

type deferred struct {
	due   time.Time
	epoch uint64
	fn    func()
}

// NewScheduler uses now as its clock; nil means time.Now.
func NewScheduler(now func() time.Time) *Scheduler {
	if now == nil {
		now = time.Now
	}
	return &Scheduler{now: now}
}

// AfterFunc schedules fn to run on the first Poll at least d from now.
func (s *Scheduler) AfterFunc(d time.Duration, fn func()) {
	s.pending = append(s.pending, deferred{
		due:   s.now().Add(d),
		epoch: s.epoch,
		fn:    fn,
	})
}

// Invalidate makes every callback scheduled so far stale.
func (s *Scheduler) Invalidate() {
	s.epoch++
}

// Poll runs every due callback of the current epoch in scheduling order and
// returns how many ran. Callbacks scheduled from within a callback are
// considered on the next Poll.
func (s *Scheduler) Poll() int {
	if len(s.pending) == 0 {
		return 0
	}
	now := s.now()
	var due []deferred
	keep := s.pending[:0]
	for _, d := range s.pending {
		if now.Before(d.due) {
			keep = append(keep, d)
			continue
		}
		due = append(due, d)
	}
	clear(s.pending[len(keep):])
	s.pending = keep

	ran := 0
	for _, d := range due {
		// A callback that runs earlier in this batch may reload.
		if d.epoch != s.epoch {
			continue
		}
		d.fn()
		ran++
	}
	return ran
}
