package features

import (
	"math"

	"MarketPulse/internal/domain/models"

	"gonum.org/v1/gonum/stat"
)

// Row is one fully defined feature vector with the close it was taken at.
type Row struct {
	Hour       float64
	Return     float64
	Volatility float64
	Close      float64
}

// Vector returns the model inputs in a fixed order.
func (r Row) Vector() []float64 {
	return []float64{r.Hour, r.Return, r.Volatility}
}

// ComputeReturns computes simple returns r_t = C_t/C_{t-1} - 1.
// Index 0 is undefined and reported as NaN, as is any step from a zero close.
func ComputeReturns(closes []float64) []float64 {
	out := make([]float64, len(closes))
	for i := range closes {
		if i == 0 || closes[i-1] == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = closes[i]/closes[i-1] - 1
	}
	return out
}

// RollingStd computes the sample standard deviation over a trailing window.
// Positions without a full window of defined values are NaN.
func RollingStd(xs []float64, window int) []float64 {
	out := make([]float64, len(xs))
	buf := make([]float64, 0, window)
	for i := range xs {
		out[i] = math.NaN()
		if window < 2 || i+1 < window {
			continue
		}
		buf = buf[:0]
		for _, v := range xs[i+1-window : i+1] {
			if math.IsNaN(v) {
				break
			}
			buf = append(buf, v)
		}
		if len(buf) == window {
			out[i] = stat.StdDev(buf, nil)
		}
	}
	return out
}

// BuildRows derives hour-of-day, return and rolling volatility for every bar
// and drops rows where any feature is undefined.
func BuildRows(bars []models.PriceBar, window int) []Row {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	rets := ComputeReturns(closes)
	vols := RollingStd(rets, window)

	rows := make([]Row, 0, len(bars))
	for i, b := range bars {
		if math.IsNaN(rets[i]) || math.IsNaN(vols[i]) {
			continue
		}
		rows = append(rows, Row{
			Hour:       float64(b.Time.UTC().Hour()),
			Return:     rets[i],
			Volatility: vols[i],
			Close:      b.Close,
		})
	}
	return rows
}
