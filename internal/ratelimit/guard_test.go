package ratelimit

import (
	"testing"
	"time"
)

var t0 = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

func TestGuard_HourCeiling(t *testing.T) {
	g := NewGuard(Config{MaxPerHour: 3, MaxPerDay: 100})

	for i := 0; i < 3; i++ {
		if !g.Allow(t0.Add(time.Duration(i) * time.Minute)) {
			t.Fatalf("grant %d should be allowed", i)
		}
	}

	// Fourth within the hour is denied — and must NOT be recorded.
	if g.Allow(t0.Add(3 * time.Minute)) {
		t.Fatal("fourth grant within the hour should be denied")
	}
	if got := g.HourCount(t0.Add(3 * time.Minute)); got != 3 {
		t.Fatalf("denied attempt must not count: hour count = %d, want 3", got)
	}
}

func TestGuard_WindowSlides(t *testing.T) {
	g := NewGuard(Config{MaxPerHour: 2})

	g.Allow(t0)
	g.Allow(t0.Add(30 * time.Minute))
	if g.Allow(t0.Add(40 * time.Minute)) {
		t.Fatal("third grant at +40m should be denied")
	}

	// At +61m the t0 grant has aged out of the hour window, freeing one slot.
	if !g.Allow(t0.Add(61 * time.Minute)) {
		t.Fatal("grant at +61m should be allowed after eviction")
	}
	if g.Allow(t0.Add(62 * time.Minute)) {
		t.Fatal("hour window should be full again at +62m")
	}
}

func TestGuard_DayCeiling(t *testing.T) {
	g := NewGuard(Config{MaxPerHour: 100, MaxPerDay: 2})

	g.Allow(t0)
	g.Allow(t0.Add(2 * time.Hour))

	// Hour window is clear but the day ceiling blocks.
	if g.Allow(t0.Add(4 * time.Hour)) {
		t.Fatal("third grant within the day should be denied")
	}

	// 24h after the first grant, a slot frees.
	if !g.Allow(t0.Add(24*time.Hour + time.Minute)) {
		t.Fatal("grant should be allowed after day eviction")
	}
}

func TestGuard_ZeroCeilingDisables(t *testing.T) {
	g := NewGuard(Config{})
	for i := 0; i < 1000; i++ {
		if !g.Allow(t0.Add(time.Duration(i) * time.Second)) {
			t.Fatalf("unlimited guard denied grant %d", i)
		}
	}
}

func TestGuard_GrantCountsAgainstBothWindows(t *testing.T) {
	g := NewGuard(Config{MaxPerHour: 10, MaxPerDay: 10})
	g.Allow(t0)

	if got := g.HourCount(t0); got != 1 {
		t.Errorf("hour count = %d, want 1", got)
	}
	if got := g.DayCount(t0); got != 1 {
		t.Errorf("day count = %d, want 1", got)
	}

	// Past the hour but inside the day.
	later := t0.Add(2 * time.Hour)
	if got := g.HourCount(later); got != 0 {
		t.Errorf("hour count after 2h = %d, want 0", got)
	}
	if got := g.DayCount(later); got != 1 {
		t.Errorf("day count after 2h = %d, want 1", got)
	}
}

func TestCooldownOver(t *testing.T) {
	cases := []struct {
		name    string
		last    time.Time
		minutes int
		now     time.Time
		want    bool
	}{
		{"never triggered", time.Time{}, 5, t0, true},
		{"inside cooldown", t0, 5, t0.Add(2 * time.Minute), false},
		{"exactly at boundary", t0, 5, t0.Add(5 * time.Minute), true},
		{"past cooldown", t0, 5, t0.Add(6 * time.Minute), true},
		{"zero cooldown", t0, 0, t0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CooldownOver(tc.last, tc.minutes, tc.now); got != tc.want {
				t.Errorf("CooldownOver = %v, want %v", got, tc.want)
			}
		})
	}
}
