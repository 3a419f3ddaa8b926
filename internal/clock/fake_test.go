package clock_test

import (
	"testing"
	"time"

	"github.com/voxtask/voxtask/internal/clock"
)

func TestFake_FiresInDueOrder(t *testing.T) {
	fake := clock.NewFake(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))

	var order []string
	fake.AfterFunc(2*time.Second, func() { order = append(order, "b") })
	fake.AfterFunc(1*time.Second, func() { order = append(order, "a") })
	fake.AfterFunc(3*time.Second, func() { order = append(order, "c") })

	fake.Advance(2 * time.Second)
	if got, want := len(order), 2; got != want {
		t.Fatalf("fired %d timers, want %d", got, want)
	}
	if order[0] != "a" || order[1] != "b" {
		t.Errorf("fire order = %v, want [a b]", order)
	}

	fake.Advance(time.Second)
	if len(order) != 3 || order[2] != "c" {
		t.Errorf("after full advance order = %v, want [a b c]", order)
	}
}

func TestFake_StopPreventsFire(t *testing.T) {
	fake := clock.NewFake(time.Unix(0, 0))

	fired := false
	timer := fake.AfterFunc(time.Second, func() { fired = true })

	if !timer.Stop() {
		t.Error("Stop() = false, want true for a pending timer")
	}
	if timer.Stop() {
		t.Error("second Stop() = true, want false")
	}

	fake.Advance(2 * time.Second)
	if fired {
		t.Error("stopped timer fired")
	}
}

func TestFake_NonPositiveDelayFiresOnNextAdvance(t *testing.T) {
	fake := clock.NewFake(time.Unix(0, 0))

	fired := 0
	fake.AfterFunc(0, func() { fired++ })
	fake.AfterFunc(-time.Minute, func() { fired++ })

	fake.Advance(0)
	if fired != 2 {
		t.Errorf("fired = %d, want 2", fired)
	}
}

func TestFake_CallbackMaySchedule(t *testing.T) {
	fake := clock.NewFake(time.Unix(0, 0))

	var order []string
	fake.AfterFunc(time.Second, func() {
		order = append(order, "outer")
		fake.AfterFunc(time.Second, func() { order = append(order, "inner") })
	})

	fake.Advance(2 * time.Second)
	if len(order) != 2 || order[1] != "inner" {
		t.Errorf("order = %v, want [outer inner]", order)
	}
	if fake.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", fake.Pending())
	}
}
