package domain

import "time"

// Phase labels the training-intensity strategy for one week of the plan.
type Phase string

const (
	PhaseBase     Phase = "Base"
	PhaseBuild    Phase = "Build"
	PhasePeak     Phase = "Peak"
	PhaseTaper    Phase = "Taper"
	PhaseRaceWeek Phase = "Race Week"
	PhaseRecovery Phase = "Recovery"
)

// DateLayout is the canonical calendar-date format used on sessions and feedback.
const DateLayout = "2006-01-02"

// MondayOf returns the Monday on or before t, truncated to midnight UTC.
// All week arithmetic in the planner is anchored on these Mondays.
func MondayOf(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) + 6) % 7 // Monday=0 ... Sunday=6
	return day.AddDate(0, 0, -offset)
}

// DaysBetween returns the number of whole days from a to b (negative if b
// precedes a). Both arguments are truncated to midnight UTC first.
func DaysBetween(a, b time.Time) int {
	a = time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	b = time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

// PhaseFor computes the training phase for the week starting at
// targetWeekMonday. Both week arguments are normalized to their Monday, so
// callers may pass any day within the intended week.
//
// With a race on the calendar the weeks leading in are structured
// Peak -> Taper -> Race Week, followed by a Recovery week and two Base
// weeks. Without a usable race date (or more than four weeks past one) the
// plan settles into a repeating cycle of three Build weeks and one Base
// week, after two opening Base weeks.
func PhaseFor(raceDate *time.Time, targetWeekMonday, planStartMonday time.Time) Phase {
	target := MondayOf(targetWeekMonday)
	planStart := MondayOf(planStartMonday)

	if raceDate != nil {
		raceMonday := MondayOf(*raceDate)

		if target.After(raceMonday) {
			past := DaysBetween(raceMonday, target)
			switch {
			case past <= 13:
				return PhaseRecovery
			case past <= 27:
				return PhaseBase
			}
			// More than four weeks past the race: the race no longer
			// shapes the plan, fall through to the cyclic logic.
		} else {
			switch {
			case target.Equal(raceMonday):
				return PhaseRaceWeek
			case target.Equal(raceMonday.AddDate(0, 0, -7)):
				return PhaseTaper
			case target.Equal(raceMonday.AddDate(0, 0, -14)):
				return PhasePeak
			}
			if DaysBetween(planStart, target) < 14 {
				return PhaseBase
			}
			// Count whole weeks back from the day before the peak week
			// starts; every fourth one is a Base week.
			peakEve := raceMonday.AddDate(0, 0, -15)
			if DaysBetween(target, peakEve)/7%4 == 0 {
				return PhaseBase
			}
			return PhaseBuild
		}
	}

	if DaysBetween(planStart, target) < 14 {
		return PhaseBase
	}
	weeks := DaysBetween(planStart, target)/7 - 2
	if weeks < 0 {
		return PhaseBase
	}
	if weeks%4 == 3 {
		return PhaseBase
	}
	return PhaseBuild
}
