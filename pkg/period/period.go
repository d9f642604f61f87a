package period

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Granularity selects how the calendar is bucketed into periods.
type Granularity string

const (
	Day   Granularity = "day"
	Week  Granularity = "week"
	Month Granularity = "month"
)

var ErrInvalidPeriod = errors.New("invalid period")

// ParseGranularity converts a request parameter into a Granularity.
func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(s) {
	case Day, Week, Month:
		return Granularity(s), nil
	default:
		return "", fmt.Errorf("%w: unknown granularity %q", ErrInvalidPeriod, s)
	}
}

// Period is one bucket of the planning calendar: a single day, an ISO week
// (Monday through Sunday) or a calendar month. Start is always the UTC
// midnight of the period's first day, so Period values compare with ==.
type Period struct {
	Granularity Granularity
	Start       time.Time
}

// Date truncates t to a UTC midnight date.
func Date(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date into a UTC midnight time.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is not a date", ErrInvalidPeriod, s)
	}
	return t.UTC(), nil
}

// FormatDate renders a date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(time.DateOnly)
}

// At returns the period of granularity g that contains t.
func At(g Granularity, t time.Time) Period {
	d := Date(t)
	switch g {
	case Week:
		delta := (int(d.Weekday()) - int(time.Monday) + 7) % 7
		return Period{Granularity: Week, Start: d.AddDate(0, 0, -delta)}
	case Month:
		return Period{Granularity: Month, Start: time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)}
	default:
		return Period{Granularity: Day, Start: d}
	}
}

// Bounds returns the period's first and last day, both inclusive.
func (p Period) Bounds() (time.Time, time.Time) {
	return p.Start, p.End()
}

// End returns the period's last day (inclusive).
func (p Period) End() time.Time {
	switch p.Granularity {
	case Week:
		return p.Start.AddDate(0, 0, 6)
	case Month:
		return p.Start.AddDate(0, 1, -1)
	default:
		return p.Start
	}
}

// Next returns the period immediately after p.
func (p Period) Next() Period {
	return At(p.Granularity, p.End().AddDate(0, 0, 1))
}

// Prev returns the period immediately before p.
func (p Period) Prev() Period {
	return At(p.Granularity, p.Start.AddDate(0, 0, -1))
}

// ContainsDate reports whether the date d falls inside p.
func (p Period) ContainsDate(d time.Time) bool {
	d = Date(d)
	return !d.Before(p.Start) && !d.After(p.End())
}

// Between returns the ascending, contiguous list of periods covering every
// day of [from, to]. The first period contains from and the last contains to.
// An empty slice is returned when from is after to.
func Between(g Granularity, from, to time.Time) []Period {
	from, to = Date(from), Date(to)
	if from.After(to) {
		return nil
	}
	last := At(g, to)
	var periods []Period
	for p := At(g, from); !p.Start.After(last.Start); p = p.Next() {
		periods = append(periods, p)
	}
	return periods
}

// DaysWithin lists the period's days clipped to [from, to].
func (p Period) DaysWithin(from, to time.Time) []time.Time {
	start, end := p.Start, p.End()
	if f := Date(from); f.After(start) {
		start = f
	}
	if t := Date(to); t.Before(end) {
		end = t
	}
	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// String renders the period identifier: "2026-08-25" for a day,
// "2026-W35" for an ISO week, "2026-08" for a month.
func (p Period) String() string {
	switch p.Granularity {
	case Week:
		year, week := p.Start.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	case Month:
		return p.Start.Format("2006-01")
	default:
		return p.Start.Format(time.DateOnly)
	}
}

// Parse is the inverse of String. It accepts the three identifier forms and
// returns ErrInvalidPeriod for anything else, including out-of-range ISO
// weeks such as W53 of a 52-week year.
func Parse(s string) (Period, error) {
	if strings.Contains(s, "-W") {
		return parseWeek(s)
	}
	switch strings.Count(s, "-") {
	case 2:
		start, err := ParseDate(s)
		if err != nil {
			return Period{}, err
		}
		return Period{Granularity: Day, Start: start}, nil
	case 1:
		start, err := time.Parse("2006-01", s)
		if err != nil {
			return Period{}, fmt.Errorf("%w: %q is not a month", ErrInvalidPeriod, s)
		}
		return Period{Granularity: Month, Start: start.UTC()}, nil
	default:
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
}

func parseWeek(s string) (Period, error) {
	parts := strings.SplitN(s, "-W", 2)
	if len(parts) != 2 {
		return Period{}, fmt.Errorf("%w: %q is not an ISO week", ErrInvalidPeriod, s)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return Period{}, fmt.Errorf("%w: invalid year in %q", ErrInvalidPeriod, s)
	}
	week, err := strconv.Atoi(parts[1])
	if err != nil {
		return Period{}, fmt.Errorf("%w: invalid week in %q", ErrInvalidPeriod, s)
	}
	// January 4th is always inside ISO week 1.
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	week1 := At(Week, jan4)
	start := week1.Start.AddDate(0, 0, (week-1)*7)
	if gotYear, gotWeek := start.ISOWeek(); gotYear != year || gotWeek != week {
		return Period{}, fmt.Errorf("%w: year %d has no week %d", ErrInvalidPeriod, year, week)
	}
	return Period{Granularity: Week, Start: start}, nil
}
