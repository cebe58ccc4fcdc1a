// Package scheduler runs cooperative, cancellable timers for the simulation.
//
// Nothing here blocks or spawns goroutines: the owning loop calls Advance
// once per tick with the elapsed scaled and real time, and due callbacks run
// inline on that goroutine. Each timer is bound to one time domain, so a
// timer in the Real domain keeps running while the scaled clock is frozen.
package scheduler

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Domain selects which clock a timer follows.
type Domain uint8

const (
	// Scaled time stops while the simulation is paused.
	Scaled Domain = iota
	// Real time keeps running regardless of the time scale.
	Real
)

// ErrUnknownDomain is returned by ParseDomain for unrecognised names.
var ErrUnknownDomain = errors.New("scheduler: unknown time domain")

func (d Domain) String() string {
	switch d {
	case Scaled:
		return "scaled"
	case Real:
		return "real"
	default:
		return "unknown"
	}
}

// ParseDomain maps "scaled" or "real" (case-insensitive) to a Domain.
func ParseDomain(s string) (Domain, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "scaled", "":
		return Scaled, nil
	case "real", "unscaled", "realtime":
		return Real, nil
	}
	return Scaled, fmt.Errorf("%w: %q", ErrUnknownDomain, s)
}

// Timer is a pending one-shot callback. Cancel, Pending and Remaining are
// safe on a nil *Timer.
type Timer struct {
	domain    Domain
	due       float64
	seq       uint64
	fn        func()
	cancelled bool
	fired     bool
	s         *Scheduler
}

// Cancel stops the timer if it has not fired yet. It reports whether the
// call prevented the callback from running.
func (t *Timer) Cancel() bool {
	if t == nil || t.fired || t.cancelled {
		return false
	}
	t.cancelled = true
	t.s.pending--
	return true
}

// Pending reports whether the timer is still waiting to fire.
func (t *Timer) Pending() bool {
	return t != nil && !t.fired && !t.cancelled
}

// Domain returns the clock the timer follows.
func (t *Timer) Domain() Domain { return t.domain }

// Remaining returns the time left before the timer fires, or 0 once it has
// fired or been cancelled.
func (t *Timer) Remaining() float64 {
	if !t.Pending() {
		return 0
	}
	r := t.due - t.s.clocks[t.domain]
	if r < 0 {
		return 0
	}
	return r
}

// Scheduler owns the two clocks and the timers keyed to them. It is not safe
// for concurrent use; the simulation loop is its only caller.
type Scheduler struct {
	clocks  [2]float64
	timers  []*Timer
	due     []*Timer
	seq     uint64
	pending int
}

// New creates a scheduler with both clocks at zero.
func New() *Scheduler {
	return &Scheduler{
		timers: make([]*Timer, 0, 64),
		due:    make([]*Timer, 0, 16),
	}
}

// Now returns the current reading of a domain's clock.
func (s *Scheduler) Now(d Domain) float64 {
	return s.clocks[d]
}

// After schedules fn to run once delay seconds have elapsed on the given
// domain's clock. A non-positive delay fires on the next Advance.
func (s *Scheduler) After(d Domain, delay float64, fn func()) *Timer {
	if delay < 0 {
		delay = 0
	}
	s.seq++
	t := &Timer{
		domain: d,
		due:    s.clocks[d] + delay,
		seq:    s.seq,
		fn:     fn,
		s:      s,
	}
	s.timers = append(s.timers, t)
	s.pending++
	return t
}

// Advance moves both clocks forward and runs every timer that has come due,
// most overdue first. Callbacks may schedule or cancel timers; timers
// scheduled during Advance wait for the next call. It returns the number of
// callbacks run.
func (s *Scheduler) Advance(scaledDt, realDt float64) int {
	if scaledDt > 0 {
		s.clocks[Scaled] += scaledDt
	}
	if realDt > 0 {
		s.clocks[Real] += realDt
	}

	// collect due timers and compact the rest in place
	s.due = s.due[:0]
	kept := s.timers[:0]
	for _, t := range s.timers {
		switch {
		case t.cancelled:
		case t.due <= s.clocks[t.domain]:
			s.due = append(s.due, t)
		default:
			kept = append(kept, t)
		}
	}
	for i := len(kept); i < len(s.timers); i++ {
		s.timers[i] = nil
	}
	s.timers = kept

	sort.SliceStable(s.due, func(i, j int) bool {
		oi := s.clocks[s.due[i].domain] - s.due[i].due
		oj := s.clocks[s.due[j].domain] - s.due[j].due
		if oi != oj {
			return oi > oj
		}
		return s.due[i].seq < s.due[j].seq
	})

	fired := 0
	for _, t := range s.due {
		// an earlier callback in this batch may have cancelled it
		if t.cancelled {
			continue
		}
		t.fired = true
		s.pending--
		fired++
		if t.fn != nil {
			t.fn()
		}
	}
	return fired
}

// CancelAll cancels every pending timer.
func (s *Scheduler) CancelAll() {
	for _, t := range s.timers {
		t.Cancel()
	}
	for _, t := range s.due {
		t.Cancel()
	}
	s.timers = s.timers[:0]
}

// Len returns the number of pending timers.
func (s *Scheduler) Len() int {
	return s.pending
}
