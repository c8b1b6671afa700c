// Package birthday decides which contacts have a birthday in the coming
// week.  Birthdays recur every year, so only the month and day of a stored
// birthday are compared; the birth year is ignored.
package birthday

import (
	"time"

	"github.com/iliyamo/contact-book/internal/model"
)

// WindowDays is the length of the window, today included.
const WindowDays = 7

// Window is the closed range of calendar days [today, today+6].
type Window struct {
	days [WindowDays]time.Time
}

// Range is the part of a window that falls into one month.  A window has
// one range when it stays inside a month and two when it crosses into the
// next month or year.
type Range struct {
	Month   time.Month
	FromDay int
	ToDay   int
}

// NewWindow builds the window starting on the calendar date of today.
// The clock time and location of today are discarded.
func NewWindow(today time.Time) Window {
	y, m, d := today.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	var w Window
	for i := range w.days {
		w.days[i] = start.AddDate(0, 0, i)
	}
	return w
}

// Start returns the first day of the window.
func (w Window) Start() time.Time { return w.days[0] }

// End returns the last day of the window.
func (w Window) End() time.Time { return w.days[WindowDays-1] }

// Matches reports whether a birthday on the given month and day is
// celebrated inside the window.  February 29 is celebrated on February 28
// in years that are not leap years.
func (w Window) Matches(month time.Month, day int) bool {
	for _, d := range w.days {
		if d.Month() != month {
			continue
		}
		if d.Day() == day || (day == 29 && isLastDayOfShortFebruary(d)) {
			return true
		}
	}
	return false
}

// MatchesBirthday is Matches for a nullable birthday; nil never matches.
func (w Window) MatchesBirthday(b *time.Time) bool {
	if b == nil {
		return false
	}
	return w.Matches(b.Month(), b.Day())
}

// Ranges returns the per-month day ranges covered by the window in
// chronological order.  A range ending on February 28 of a non-leap year
// is widened to the 29th so stored leap-day birthdays are included.
func (w Window) Ranges() []Range {
	out := make([]Range, 0, 2)
	for _, d := range w.days {
		n := len(out)
		if n > 0 && out[n-1].Month == d.Month() {
			out[n-1].ToDay = d.Day()
		} else {
			out = append(out, Range{Month: d.Month(), FromDay: d.Day(), ToDay: d.Day()})
			n++
		}
		if isLastDayOfShortFebruary(d) {
			out[n-1].ToDay = 29
		}
	}
	return out
}

// Filter returns the contacts whose birthday falls inside the window.
func Filter(contacts []*model.Contact, w Window) []*model.Contact {
	out := make([]*model.Contact, 0, len(contacts))
	for _, c := range contacts {
		if c != nil && w.MatchesBirthday(c.Birthday) {
			out = append(out, c)
		}
	}
	return out
}

func isLastDayOfShortFebruary(d time.Time) bool {
	return d.Month() == time.February && d.Day() == 28 && !isLeap(d.Year())
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
