package period

import "time"

// IsWorkday reports whether d is a Monday through Friday date. Public
// holidays are out of scope; capacity corrections go through time off.
func IsWorkday(d time.Time) bool {
	wd := d.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// Workdays counts the Monday through Friday dates in [from, to].
func Workdays(from, to time.Time) int {
	from, to = Date(from), Date(to)
	count := 0
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if IsWorkday(d) {
			count++
		}
	}
	return count
}

// EachWorkday calls fn for every Monday through Friday date in [from, to],
// in ascending order.
func EachWorkday(from, to time.Time, fn func(d time.Time)) {
	from, to = Date(from), Date(to)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if IsWorkday(d) {
			fn(d)
		}
	}
}
