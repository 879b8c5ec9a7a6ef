/*
adjust.go - Requirement Adjuster

PURPOSE:
  Turns a waived-month count into an adjusted required value:

    adjusted = base_required * active_months / total_months

  The evaluation window is determined by requirement frequency (see
  WindowFor in date.go). Only hours/shifts/calls requirements are ever
  prorated; binary-completion types pass through unmodified.

PURITY:
  Both functions are pure and deterministic given their inputs. All five
  consumer read paths call them through the Evaluator with identical
  arguments, which is what makes their results bit-identical.
*/
package compliance

import (
	"github.com/shopspring/decimal"
)

// AdjustRequired prorates a requirement's target value over the evaluation
// window, given the member's waiver periods. Non-adjustable requirement
// types and degenerate windows return the identity result.
func AdjustRequired(req Requirement, window Window, waivers []WaiverPeriod) AdjustmentResult {
	totalMonths := window.MonthSpan()

	if !req.Type.Adjustable() || totalMonths <= 0 {
		return IdentityResult(req.RequiredValue, totalMonths)
	}

	waivedMonths := WaivedMonths(window, waivers, req.ID)
	activeMonths := totalMonths - waivedMonths
	if activeMonths < 0 {
		activeMonths = 0
	}

	// Multiply before dividing so exact ratios stay exact (24 * 9/12 = 18).
	adjusted := req.RequiredValue.
		Mul(decimal.NewFromInt(int64(activeMonths))).
		Div(decimal.NewFromInt(int64(totalMonths)))

	return AdjustmentResult{
		AdjustedRequired: adjusted,
		WaivedMonths:     waivedMonths,
		ActiveMonths:     activeMonths,
		TotalMonths:      totalMonths,
	}
}

// AdjustForFrequency resolves the evaluation window from the requirement's
// frequency as of the given date, then prorates. Frequencies without an
// adjustment window (biannual, one_time) return the identity result.
func AdjustForFrequency(req Requirement, asOf Date, waivers []WaiverPeriod) AdjustmentResult {
	window, ok := WindowFor(req.Frequency, asOf)
	if !ok {
		return IdentityResult(req.RequiredValue, 0)
	}
	return AdjustRequired(req, window, waivers)
}
