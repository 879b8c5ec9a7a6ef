package compliance

import (
	"time"
)

// =============================================================================
// DATE - Day-granularity calendar date
// =============================================================================

// Date is a calendar date with no time-of-day component. All waiver and
// evaluation-window bounds are inclusive dates, so the engine never deals
// with hours or time zones: everything is normalized to midnight UTC.
type Date struct {
	t time.Time
}

// Constructors
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

func Today() Date {
	return DateOf(time.Now().UTC())
}

// ParseDate parses an ISO date (2006-01-02).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// Forever is the far-future sentinel used for permanent waivers and leaves
// with no end date. It is always clipped to a finite window before any
// month arithmetic happens.
var Forever = NewDate(9999, time.December, 31)

// Comparison
func (d Date) Before(other Date) bool        { return d.t.Before(other.t) }
func (d Date) After(other Date) bool         { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool         { return d.t.Equal(other.t) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }
func (d Date) IsZero() bool                  { return d.t.IsZero() }

// Arithmetic
func (d Date) AddDays(n int) Date   { return Date{t: d.t.AddDate(0, 0, n)} }
func (d Date) AddMonths(n int) Date { return Date{t: d.t.AddDate(0, n, 0)} }
func (d Date) AddYears(n int) Date  { return Date{t: d.t.AddDate(n, 0, 0)} }

// Properties
func (d Date) Year() int         { return d.t.Year() }
func (d Date) Month() time.Month { return d.t.Month() }
func (d Date) Day() int          { return d.t.Day() }
func (d Date) Time() time.Time   { return d.t }

func (d Date) String() string { return d.t.Format("2006-01-02") }

// DaysBetween returns the number of days from `from` to `to` (negative when
// `to` precedes `from`). Inclusive day counts add 1 at the call site.
func DaysBetween(from, to Date) int {
	return int(to.t.Sub(from.t).Hours() / 24)
}

// YearMonth identifies one calendar month. Used as the set key when
// deduplicating waived months across overlapping waiver periods.
type YearMonth struct {
	Year  int
	Month time.Month
}

func (d Date) YearMonth() YearMonth { return YearMonth{Year: d.Year(), Month: d.Month()} }

func StartOfMonth(year int, month time.Month) Date { return NewDate(year, month, 1) }

func EndOfMonth(year int, month time.Month) Date {
	return NewDate(year, month, 1).AddMonths(1).AddDays(-1)
}

func StartOfYear(year int) Date { return NewDate(year, time.January, 1) }
func EndOfYear(year int) Date   { return NewDate(year, time.December, 31) }

// =============================================================================
// WINDOW - Inclusive evaluation window
// =============================================================================

// Window is the date range over which a requirement's completion is measured.
// Both bounds are inclusive.
type Window struct {
	Start Date
	End   Date
}

// NewWindow builds a window, rejecting inverted bounds.
func NewWindow(start, end Date) (Window, error) {
	if start.After(end) {
		return Window{}, &InvalidPeriodError{Start: start, End: end}
	}
	return Window{Start: start, End: end}, nil
}

// Contains returns true if the date is within [Start, End].
func (w Window) Contains(d Date) bool {
	return d.AfterOrEqual(w.Start) && d.BeforeOrEqual(w.End)
}

// Clip intersects this window with another. ok is false when they are
// disjoint. A permanent waiver (End == Forever) clips to bound.End, which is
// how "no end date" behaves as if it ended at the window's end.
func (w Window) Clip(bound Window) (Window, bool) {
	start := w.Start
	if bound.Start.After(start) {
		start = bound.Start
	}
	end := w.End
	if bound.End.Before(end) {
		end = bound.End
	}
	if start.After(end) {
		return Window{}, false
	}
	return Window{Start: start, End: end}, true
}

// MonthSpan returns the inclusive count of calendar months the window
// touches. Jan 1 - Dec 31 spans 12; Mar 15 - Mar 20 spans 1.
func (w Window) MonthSpan() int {
	return (w.End.Year()-w.Start.Year())*12 + int(w.End.Month()) - int(w.Start.Month()) + 1
}

// Months returns every calendar month the window touches, in order.
func (w Window) Months() []YearMonth {
	months := make([]YearMonth, 0, w.MonthSpan())
	cursor := StartOfMonth(w.Start.Year(), w.Start.Month())
	for cursor.BeforeOrEqual(w.End) {
		months = append(months, cursor.YearMonth())
		cursor = cursor.AddMonths(1)
	}
	return months
}

func (w Window) String() string {
	return "[" + w.Start.String() + ", " + w.End.String() + "]"
}

// =============================================================================
// WINDOW POLICY - Evaluation window by requirement frequency
// =============================================================================

// WindowFor returns the evaluation window for a requirement frequency as of
// the given date. ok is false for frequencies that carry no adjustment
// window (biannual certifications and one-time requirements).
func WindowFor(freq Frequency, asOf Date) (Window, bool) {
	switch freq {
	case FrequencyAnnual:
		return Window{Start: StartOfYear(asOf.Year()), End: EndOfYear(asOf.Year())}, true

	case FrequencyQuarterly:
		// Quarters are calendar-aligned: Jan-Mar, Apr-Jun, Jul-Sep, Oct-Dec.
		qStart := time.Month((int(asOf.Month())-1)/3*3 + 1)
		start := StartOfMonth(asOf.Year(), qStart)
		return Window{Start: start, End: start.AddMonths(3).AddDays(-1)}, true

	case FrequencyMonthly:
		return Window{
			Start: StartOfMonth(asOf.Year(), asOf.Month()),
			End:   EndOfMonth(asOf.Year(), asOf.Month()),
		}, true

	default:
		// biannual, one_time: completion is binary, never prorated.
		return Window{}, false
	}
}
