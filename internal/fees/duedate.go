// Package fees holds the pure scheduling arithmetic of the fee subsystem.
// Everything here is side-effect free and takes an explicit reference time so
// tests can pin the clock.
package fees

import "time"

// NextDueDate maps a frequency code and a due day-of-month onto the next
// concrete due date at or after ref.
//
// System cadences anchor as follows: monthly and one-time use the current
// month; quarterly anchors on Jan/Apr/Jul/Oct; half-yearly on Jan/Jul; yearly
// on April (the academic-year start). When the anchored date has already
// passed relative to ref, the date rolls forward one full interval. Custom
// tenant frequencies carry no anchor and fall back to next month, same day.
func NextDueDate(frequencyCode string, dueDay int, ref time.Time) time.Time {
	if dueDay < 1 {
		dueDay = 1
	}
	if dueDay > 31 {
		dueDay = 31
	}
	ref = ref.UTC()

	switch frequencyCode {
	case "one-time", "monthly":
		due := dateFor(ref.Year(), ref.Month(), dueDay)
		if due.Before(startOfDay(ref)) {
			due = dateFor(ref.Year(), ref.Month()+1, dueDay)
		}
		return due
	case "quarterly":
		anchor := quarterStart(ref.Month())
		due := dateFor(ref.Year(), anchor, dueDay)
		if due.Before(startOfDay(ref)) {
			due = dateFor(ref.Year(), anchor+3, dueDay)
		}
		return due
	case "half-yearly":
		anchor := time.January
		if ref.Month() >= time.July {
			anchor = time.July
		}
		due := dateFor(ref.Year(), anchor, dueDay)
		if due.Before(startOfDay(ref)) {
			due = dateFor(ref.Year(), anchor+6, dueDay)
		}
		return due
	case "yearly":
		due := dateFor(ref.Year(), time.April, dueDay)
		if due.Before(startOfDay(ref)) {
			due = dateFor(ref.Year()+1, time.April, dueDay)
		}
		return due
	default:
		return dateFor(ref.Year(), ref.Month()+1, dueDay)
	}
}

func quarterStart(m time.Month) time.Month {
	switch {
	case m >= time.October:
		return time.October
	case m >= time.July:
		return time.July
	case m >= time.April:
		return time.April
	default:
		return time.January
	}
}

// dateFor builds a UTC date clamping the day to the target month's length, so
// a due day of 31 lands on Feb 28/29 rather than spilling into March.
// time.Date normalises out-of-range months for us.
func dateFor(year int, month time.Month, day int) time.Time {
	firstOfNext := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC)
	lastDay := firstOfNext.AddDate(0, 0, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
