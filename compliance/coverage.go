/*
coverage.go - Month-Coverage Calculator

PURPOSE:
  Decides, for an evaluation window and a set of waiver periods, how many
  distinct calendar months inside the window are "waived".

THE 15-DAY RULE:
  A month is waived when at least 15 of its days are covered by applicable
  waiver periods. This is a fixed business rule, not a ratio: a 16-day
  partial month waives the whole month, a 12-day partial month waives
  nothing. Coverage is counted per waiver period, inclusively on both ends.

DEDUPLICATION:
  Waived (year, month) pairs are collected into a set before counting, so
  two overlapping waivers that both cover March yield one waived month.

SEE ALSO:
  - adjust.go: turns the waived-month count into a prorated required value
  - attendance.go: the meeting denominator deliberately does NOT use the
    15-day rule
*/
package compliance

// WaivedMonthThresholdDays is the minimum number of covered days for a
// calendar month to count as waived.
const WaivedMonthThresholdDays = 15

// WaivedMonths counts distinct waived calendar months inside the window.
// When reqID is non-empty, only waivers applying to that requirement count.
func WaivedMonths(window Window, waivers []WaiverPeriod, reqID RequirementID) int {
	return len(WaivedMonthSet(window, waivers, reqID))
}

// WaivedMonthSet returns the deduplicated set of waived months. Exposed so
// callers can render which months were waived, not just how many.
func WaivedMonthSet(window Window, waivers []WaiverPeriod, reqID RequirementID) map[YearMonth]struct{} {
	waived := make(map[YearMonth]struct{})

	for _, wp := range waivers {
		if reqID != "" && !wp.AppliesTo(reqID) {
			continue
		}

		clipped, ok := wp.Window.Clip(window)
		if !ok {
			// Entirely outside the evaluation window.
			continue
		}

		for _, ym := range clipped.Months() {
			if coveredDays(clipped, ym) >= WaivedMonthThresholdDays {
				waived[ym] = struct{}{}
			}
		}
	}

	return waived
}

// coveredDays returns how many days of the given month fall inside the
// interval, inclusive on both ends.
func coveredDays(interval Window, ym YearMonth) int {
	month := Window{
		Start: StartOfMonth(ym.Year, ym.Month),
		End:   EndOfMonth(ym.Year, ym.Month),
	}
	overlap, ok := interval.Clip(month)
	if !ok {
		return 0
	}
	return DaysBetween(overlap.Start, overlap.End) + 1
}
