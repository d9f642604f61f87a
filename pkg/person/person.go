package person

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/NescAdmin/nesc-planering/pkg/period"
	log "github.com/sirupsen/logrus"
)

type Person struct {
	Id   string
	Name string
	// WorkdayStart and WorkdayEnd are clock times in "HH:MM" form.
	WorkdayStart string
	WorkdayEnd   string
	// LunchMinutes is subtracted from every workday.
	LunchMinutes int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type TimeOffKind string

const (
	TimeOffVacation TimeOffKind = "vacation"
	TimeOffSick     TimeOffKind = "sick"
	TimeOffOther    TimeOffKind = "other"
)

// TimeOff removes the person's capacity for every workday in [StartDate, EndDate].
type TimeOff struct {
	Id        string
	PersonId  string
	StartDate time.Time
	EndDate   time.Time
	Kind      TimeOffKind
}

// WorkdayMinutes is the person's plannable minutes on a single workday:
// the workday span minus lunch, never negative.
func (p Person) WorkdayMinutes() int {
	start, err := parseClock(p.WorkdayStart)
	if err != nil {
		log.Warnf("person %s has invalid workday start %q", p.Id, p.WorkdayStart)
		return 0
	}
	end, err := parseClock(p.WorkdayEnd)
	if err != nil {
		log.Warnf("person %s has invalid workday end %q", p.Id, p.WorkdayEnd)
		return 0
	}
	minutes := end - start - p.LunchMinutes
	if minutes < 0 {
		return 0
	}
	return minutes
}

// CapacityMinutes is the person's plannable minutes over [from, to]:
// workday minutes for every Monday through Friday date, with full workdays
// removed for overlapping time off.
func CapacityMinutes(p Person, timeOff []TimeOff, from, to time.Time) int64 {
	workdayMinutes := int64(p.WorkdayMinutes())
	var total int64
	period.EachWorkday(from, to, func(d time.Time) {
		for _, off := range timeOff {
			if !d.Before(period.Date(off.StartDate)) && !d.After(period.Date(off.EndDate)) {
				return
			}
		}
		total += workdayMinutes
	})
	return total
}

func parseClock(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock time: %q", s)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 || hours > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hours*60 + minutes, nil
}
