// Package detector holds the pure unused-cash math. No side effects, no
// I/O: everything here is a function of its inputs so it can be tested
// exhaustively.
package detector

import (
	"errors"

	"github.com/shopspring/decimal"

	"wallet_watcher/internal/models"
)

// ErrInsufficientData is returned when there is no spending history to
// derive a baseline from. Callers suppress suggestions rather than treat
// an empty history as free cash.
var ErrInsufficientData = errors.New("insufficient spending history")

var daysPerMonth = decimal.NewFromInt(30)

// ComputeBaseline derives the trailing spending baseline from the
// transaction history: the mean daily outflow over the window,
// extrapolated to a monthly average.
func ComputeBaseline(txs []models.Transaction, windowDays int) models.SpendingBaseline {
	if windowDays <= 0 {
		windowDays = 30
	}

	total := decimal.Zero
	count := 0
	for _, tx := range txs {
		if !tx.IsOutflow() {
			continue
		}
		total = total.Add(tx.Amount)
		count++
	}

	baseline := models.SpendingBaseline{
		WindowDays:  windowDays,
		SampleCount: count,
	}
	if count == 0 {
		return baseline
	}

	dailyAverage := total.Div(decimal.NewFromInt(int64(windowDays)))
	baseline.MonthlyAverage = dailyAverage.Mul(daysPerMonth)
	return baseline
}

// Detection is the outcome of one unused-cash check.
type Detection struct {
	Cash       decimal.Decimal
	Baseline   models.SpendingBaseline
	UnusedCash decimal.Decimal
	Available  bool
}

// Detect compares cash against the baseline. Unused cash is whatever
// exceeds one month of average spending (the safety net); funds are
// flagged available only when the excess clears thresholdPct of the
// baseline. A zero baseline means no history: ErrInsufficientData, never
// a division by zero.
func Detect(cash decimal.Decimal, baseline models.SpendingBaseline, thresholdPct decimal.Decimal) (Detection, error) {
	if baseline.SampleCount == 0 || baseline.MonthlyAverage.LessThanOrEqual(decimal.Zero) {
		return Detection{Cash: cash, Baseline: baseline}, ErrInsufficientData
	}

	unused := cash.Sub(baseline.MonthlyAverage)
	threshold := baseline.MonthlyAverage.Mul(thresholdPct)

	return Detection{
		Cash:       cash,
		Baseline:   baseline,
		UnusedCash: unused,
		Available:  unused.GreaterThan(threshold),
	}, nil
}
