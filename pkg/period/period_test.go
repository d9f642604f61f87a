package period

import (
	"errors"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAt(t *testing.T) {
	tests := []struct {
		name string
		g    Granularity
		in   time.Time
		want time.Time
	}{
		{"day keeps the date", Day, date(2026, 8, 25), date(2026, 8, 25)},
		{"day drops the clock", Day, time.Date(2026, 8, 25, 17, 30, 0, 0, time.UTC), date(2026, 8, 25)},
		{"week starts on Monday", Week, date(2026, 8, 25), date(2026, 8, 24)},
		{"week of a Monday is that Monday", Week, date(2026, 8, 24), date(2026, 8, 24)},
		{"week of a Sunday reaches back", Week, date(2026, 8, 30), date(2026, 8, 24)},
		{"week can start in the previous year", Week, date(2026, 1, 1), date(2025, 12, 29)},
		{"month starts on the first", Month, date(2026, 8, 25), date(2026, 8, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := At(tt.g, tt.in)
			if !p.Start.Equal(tt.want) {
				t.Fatalf("At(%v, %v).Start = %v, want %v", tt.g, tt.in, p.Start, tt.want)
			}
			if !p.ContainsDate(tt.in) {
				t.Fatalf("At(%v, %v) does not contain its own input", tt.g, tt.in)
			}
		})
	}
}

func TestPeriodEnd(t *testing.T) {
	tests := []struct {
		name string
		p    Period
		want time.Time
	}{
		{"day ends the same day", At(Day, date(2026, 8, 25)), date(2026, 8, 25)},
		{"week ends on Sunday", At(Week, date(2026, 8, 25)), date(2026, 8, 30)},
		{"month end honours length", At(Month, date(2026, 2, 10)), date(2026, 2, 28)},
		{"leap February", At(Month, date(2028, 2, 10)), date(2028, 2, 29)},
		{"december ends on the 31st", At(Month, date(2026, 12, 1)), date(2026, 12, 31)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.End(); !got.Equal(tt.want) {
				t.Fatalf("End() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBounds(t *testing.T) {
	p := At(Week, date(2026, 8, 27))
	start, end := p.Bounds()
	if !start.Equal(date(2026, 8, 24)) {
		t.Fatalf("Bounds() start = %v, want Monday the 24th", start)
	}
	if !end.Equal(date(2026, 8, 30)) {
		t.Fatalf("Bounds() end = %v, want Sunday the 30th", end)
	}
}

func TestNextIsAdjacent(t *testing.T) {
	starts := []Period{
		At(Day, date(2026, 12, 31)),
		At(Week, date(2026, 12, 28)),
		At(Month, date(2026, 12, 5)),
		At(Week, date(2026, 2, 25)),
	}

	for _, p := range starts {
		t.Run(p.String(), func(t *testing.T) {
			next := p.Next()
			if want := p.End().AddDate(0, 0, 1); !next.Start.Equal(want) {
				t.Fatalf("Next().Start = %v, want %v", next.Start, want)
			}
			if back := next.Prev(); !back.Start.Equal(p.Start) {
				t.Fatalf("Prev() of next = %v, want %v", back.Start, p.Start)
			}
		})
	}
}

func TestBetween(t *testing.T) {
	t.Run("covers every day exactly once", func(t *testing.T) {
		from, to := date(2026, 2, 28), date(2026, 3, 2)
		periods := Between(Week, from, to)
		if len(periods) != 2 {
			t.Fatalf("expected 2 weeks, got %d", len(periods))
		}
		if !periods[0].ContainsDate(from) {
			t.Errorf("first period %s does not contain %v", periods[0], from)
		}
		if !periods[len(periods)-1].ContainsDate(to) {
			t.Errorf("last period %s does not contain %v", periods[len(periods)-1], to)
		}
		for i := 1; i < len(periods); i++ {
			if want := periods[i-1].End().AddDate(0, 0, 1); !periods[i].Start.Equal(want) {
				t.Errorf("period %s does not start right after %s", periods[i], periods[i-1])
			}
		}
	})

	t.Run("months across a year boundary", func(t *testing.T) {
		periods := Between(Month, date(2026, 11, 15), date(2027, 2, 3))
		if len(periods) != 4 {
			t.Fatalf("expected 4 months, got %d", len(periods))
		}
		if got := periods[2].String(); got != "2027-01" {
			t.Errorf("third period = %s, want 2027-01", got)
		}
	})

	t.Run("from equal to yields one period", func(t *testing.T) {
		periods := Between(Day, date(2026, 8, 25), date(2026, 8, 25))
		if len(periods) != 1 {
			t.Fatalf("expected 1 day, got %d", len(periods))
		}
	})

	t.Run("from after to yields nothing", func(t *testing.T) {
		if periods := Between(Week, date(2026, 9, 1), date(2026, 8, 1)); periods != nil {
			t.Fatalf("expected nil, got %v", periods)
		}
	})
}

func TestStringParseRoundTrip(t *testing.T) {
	tests := []string{"2026-08-25", "2026-W35", "2026-W01", "2026-W53", "2026-08", "2027-01"}

	for _, s := range tests {
		t.Run(s, func(t *testing.T) {
			p, err := Parse(s)
			if err != nil {
				t.Fatalf("Parse(%q) failed: %v", s, err)
			}
			if got := p.String(); got != s {
				t.Fatalf("round trip of %q produced %q", s, got)
			}
		})
	}

	t.Run("week 35 starts on the right Monday", func(t *testing.T) {
		p, err := Parse("2026-W35")
		if err != nil {
			t.Fatal(err)
		}
		if !p.Start.Equal(date(2026, 8, 24)) {
			t.Fatalf("2026-W35 starts %v, want 2026-08-24", p.Start)
		}
	})
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []string{"", "banana", "2026-13-40", "2026-W54", "2026-W00", "2025-W53", "08-2026", "2026-8-5-1"}

	for _, s := range tests {
		t.Run(s, func(t *testing.T) {
			if _, err := Parse(s); !errors.Is(err, ErrInvalidPeriod) {
				t.Fatalf("Parse(%q) = %v, want ErrInvalidPeriod", s, err)
			}
		})
	}
}

func TestDaysWithin(t *testing.T) {
	week := At(Week, date(2026, 8, 25))

	t.Run("clips to the range", func(t *testing.T) {
		days := week.DaysWithin(date(2026, 8, 26), date(2026, 9, 10))
		if len(days) != 5 {
			t.Fatalf("expected 5 days, got %d", len(days))
		}
		if !days[0].Equal(date(2026, 8, 26)) || !days[4].Equal(date(2026, 8, 30)) {
			t.Fatalf("unexpected clip bounds: %v .. %v", days[0], days[4])
		}
	})

	t.Run("range containing the period returns all days", func(t *testing.T) {
		days := week.DaysWithin(date(2026, 8, 1), date(2026, 8, 31))
		if len(days) != 7 {
			t.Fatalf("expected 7 days, got %d", len(days))
		}
	})
}

func TestWorkdays(t *testing.T) {
	tests := []struct {
		name     string
		from, to time.Time
		want     int
	}{
		{"full week has five", date(2026, 8, 24), date(2026, 8, 30), 5},
		{"single Tuesday", date(2026, 8, 25), date(2026, 8, 25), 1},
		{"weekend only", date(2026, 8, 29), date(2026, 8, 30), 0},
		{"august 2026", date(2026, 8, 1), date(2026, 8, 31), 21},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Workdays(tt.from, tt.to); got != tt.want {
				t.Fatalf("Workdays(%v, %v) = %d, want %d", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestParseGranularity(t *testing.T) {
	if g, err := ParseGranularity("week"); err != nil || g != Week {
		t.Fatalf("ParseGranularity(week) = %v, %v", g, err)
	}
	if _, err := ParseGranularity("fortnight"); !errors.Is(err, ErrInvalidPeriod) {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
}
