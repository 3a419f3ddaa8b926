package clock

import (
	"sort"
	"sync"
	"time"
)

// Fake is a manually-advanced Clock for deterministic tests.
//
// Timers scheduled via AfterFunc fire synchronously inside Advance, in due
// order, on the goroutine that called Advance. Callbacks may schedule further
// timers; those fire too if they fall within the advanced window.
type Fake struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
	nextID int
}

// NewFake returns a Fake clock whose current time is start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

// Now returns the fake current time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// AfterFunc schedules fn to fire when the fake clock has been advanced by at
// least d. A non-positive d fires on the next Advance call, even Advance(0).
func (f *Fake) AfterFunc(d time.Duration, fn func()) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	t := &fakeTimer{
		clock: f,
		id:    f.nextID,
		due:   f.now.Add(d),
		fn:    fn,
	}
	f.timers = append(f.timers, t)
	return t
}

// Advance moves the fake time forward by d and fires every due timer in due
// order. Ties fire in scheduling order.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()

	for {
		t := f.popDue()
		if t == nil {
			return
		}
		t.fn()
	}
}

// Pending returns the number of timers that have not fired or been stopped.
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.timers)
}

// popDue removes and returns the earliest due timer, or nil when none is due.
func (f *Fake) popDue() *fakeTimer {
	f.mu.Lock()
	defer f.mu.Unlock()

	sort.SliceStable(f.timers, func(i, j int) bool {
		if f.timers[i].due.Equal(f.timers[j].due) {
			return f.timers[i].id < f.timers[j].id
		}
		return f.timers[i].due.Before(f.timers[j].due)
	})

	if len(f.timers) == 0 || f.timers[0].due.After(f.now) {
		return nil
	}
	t := f.timers[0]
	f.timers = f.timers[1:]
	return t
}

func (f *Fake) remove(id int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, t := range f.timers {
		if t.id == id {
			f.timers = append(f.timers[:i], f.timers[i+1:]...)
			return true
		}
	}
	return false
}

type fakeTimer struct {
	clock *Fake
	id    int
	due   time.Time
	fn    func()
}

func (t *fakeTimer) Stop() bool { return t.clock.remove(t.id) }
