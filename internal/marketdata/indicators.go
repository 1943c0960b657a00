package marketdata

import (
	"math"

	"github.com/shopspring/decimal"
)

// SMA returns the simple moving average over the last `period` bars, or
// zero when there is not enough history.
func SMA(bars []Bar, period int) decimal.Decimal {
	if period <= 0 || len(bars) < period {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, b := range bars[len(bars)-period:] {
		sum = sum.Add(b.Close)
	}
	return sum.Div(decimal.NewFromInt(int64(period)))
}

// RSI computes the relative strength index over the last `period`
// deltas using the plain average-gain/average-loss form. Returns 50
// (neutral) when history is too short, 100 when there were no losses.
func RSI(bars []Bar, period int) float64 {
	if period <= 0 || len(bars) < period+1 {
		return 50
	}
	var gains, losses float64
	start := len(bars) - period
	for i := start; i < len(bars); i++ {
		delta, _ := bars[i].Close.Sub(bars[i-1].Close).Float64()
		if delta > 0 {
			gains += delta
		} else {
			losses -= delta
		}
	}
	if losses == 0 {
		return 100
	}
	rs := gains / losses
	return 100 - (100 / (1 + rs))
}

// AnnualizedVolatility is the stddev of daily returns scaled by sqrt(252).
func AnnualizedVolatility(bars []Bar) float64 {
	if len(bars) < 3 {
		return 0
	}
	returns := make([]float64, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		prev, _ := bars[i-1].Close.Float64()
		cur, _ := bars[i].Close.Float64()
		if prev == 0 {
			continue
		}
		returns = append(returns, (cur-prev)/prev)
	}
	if len(returns) < 2 {
		return 0
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns) - 1)

	return math.Sqrt(variance) * math.Sqrt(252)
}

// TechSignal is the technical heuristic output for one ticker.
type TechSignal struct {
	Score      float64 // [-1, 1]
	Trend      string  // "bullish" or "bearish"
	RSI        float64
	Volatility float64
}

// ComputeTechSignal folds trend, RSI band, and a volatility penalty into
// a bounded score. SMA7 above SMA30 is the trend vote; oversold RSI adds,
// overbought subtracts; calm price action earns a small bonus.
func ComputeTechSignal(bars []Bar) (TechSignal, error) {
	if len(bars) < 31 {
		return TechSignal{}, ErrNoData
	}

	sig := TechSignal{
		RSI:        RSI(bars, 14),
		Volatility: AnnualizedVolatility(bars),
	}

	sma7 := SMA(bars, 7)
	sma30 := SMA(bars, 30)
	if sma7.GreaterThan(sma30) {
		sig.Trend = "bullish"
		sig.Score += 0.5
	} else {
		sig.Trend = "bearish"
		sig.Score -= 0.5
	}

	switch {
	case sig.RSI < 30:
		sig.Score += 0.3 // oversold, potential entry
	case sig.RSI > 70:
		sig.Score -= 0.3 // overbought
	}

	switch {
	case sig.Volatility > 0.4:
		sig.Score -= 0.2
	case sig.Volatility < 0.25:
		sig.Score += 0.2
	}

	if sig.Score > 1 {
		sig.Score = 1
	}
	if sig.Score < -1 {
		sig.Score = -1
	}
	return sig, nil
}
