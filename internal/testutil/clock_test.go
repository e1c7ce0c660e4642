// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"testing"
	"time"
)

func TestFakeClock_Now(t *testing.T) {
	t.Parallel()

	initial := time.Date(2023, 6, 15, 12, 0, 0, 0, time.UTC)
	clock := NewFakeClock(initial)

	if got := clock.Now(); !got.Equal(initial) {
		t.Errorf("FakeClock.Now() = %v, want %v", got, initial)
	}
}

func TestFakeClock_Now_DefaultTime(t *testing.T) {
	t.Parallel()

	clock := NewFakeClock(time.Time{})
	expected := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	if got := clock.Now(); !got.Equal(expected) {
		t.Errorf("FakeClock.Now() with zero time = %v, want %v", got, expected)
	}
}

func TestFakeClock_AdvanceAndSet(t *testing.T) {
	t.Parallel()

	initial := time.Date(2023, 6, 15, 12, 0, 0, 0, time.UTC)
	clock := NewFakeClock(initial)

	clock.Advance(time.Hour)
	if got := clock.Now(); !got.Equal(initial.Add(time.Hour)) {
		t.Errorf("after Advance, Now() = %v", got)
	}

	clock.Set(initial)
	if got := clock.Now(); !got.Equal(initial) {
		t.Errorf("after Set, Now() = %v", got)
	}
}

func TestFakeClock_Tick(t *testing.T) {
	t.Parallel()

	initial := time.Date(2023, 6, 15, 12, 0, 0, 0, time.UTC)
	clock := NewFakeClock(initial).Tick(time.Second)

	first := clock.Now()
	second := clock.Now()
	if got := second.Sub(first); got != time.Second {
		t.Errorf("tick = %v, want 1s", got)
	}
}
