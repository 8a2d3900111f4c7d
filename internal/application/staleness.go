package application

import (
	"time"

	"github.com/ericfisherdev/mrreminder/internal/domain/model"
)

// Business hours are Monday to Friday, 09:00 to 17:00 in the policy's location.
const (
	businessDayStartHour = 9
	businessDayEndHour   = 17
)

// StalenessPolicy decides whether a merge request has waited long enough since
// its last update to deserve a reminder. Thresholds are in days or business
// hours depending on Unit.
type StalenessPolicy struct {
	Unit            model.StalenessUnit
	NormalThreshold int
	WIPThreshold    int
	Location        *time.Location // nil means time.Local.
}

// Threshold returns the threshold that applies to mr.
func (p StalenessPolicy) Threshold(mr model.MergeRequest) int {
	if IsWorkInProgress(&mr) {
		return p.WIPThreshold
	}
	return p.NormalThreshold
}

// Elapsed returns the time since the last update, measured in the policy's unit.
func (p StalenessPolicy) Elapsed(updatedAt, now time.Time) int {
	if p.Unit == model.StalenessBusinessHours {
		return int(BusinessHoursBetween(updatedAt, now, p.location()).Hours())
	}
	return DaysBetween(updatedAt, now)
}

// IsStale reports whether mr is at or above its threshold.
func (p StalenessPolicy) IsStale(mr model.MergeRequest, now time.Time) bool {
	return p.Elapsed(mr.UpdatedAt, now) >= p.Threshold(mr)
}

func (p StalenessPolicy) location() *time.Location {
	if p.Location == nil {
		return time.Local
	}
	return p.Location
}

// DaysBetween returns the number of whole days from one instant to another.
// A negative span counts as zero.
func DaysBetween(from, to time.Time) int {
	if !to.After(from) {
		return 0
	}
	return int(to.Sub(from).Hours() / 24)
}

// BusinessHoursBetween returns how much of the span [from, to) falls inside
// business hours in loc. Weekends contribute nothing.
func BusinessHoursBetween(from, to time.Time, loc *time.Location) time.Duration {
	if !to.After(from) {
		return 0
	}
	from = from.In(loc)
	to = to.In(loc)

	var total time.Duration
	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, loc)
	for day.Before(to) {
		if wd := day.Weekday(); wd != time.Saturday && wd != time.Sunday {
			open := time.Date(day.Year(), day.Month(), day.Day(), businessDayStartHour, 0, 0, 0, loc)
			closing := time.Date(day.Year(), day.Month(), day.Day(), businessDayEndHour, 0, 0, 0, loc)

			start := open
			if from.After(start) {
				start = from
			}
			end := closing
			if to.Before(end) {
				end = to
			}
			if end.After(start) {
				total += end.Sub(start)
			}
		}
		day = time.Date(day.Year(), day.Month(), day.Day()+1, 0, 0, 0, 0, loc)
	}
	return total
}
