package features

import (
	"math"
	"testing"
	"time"

	"MarketPulse/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bars(closes ...float64) []models.PriceBar {
	start := time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC)
	out := make([]models.PriceBar, len(closes))
	for i, c := range closes {
		out[i] = models.PriceBar{Time: start.Add(time.Duration(i) * time.Hour), Close: c}
	}
	return out
}

func TestComputeReturns(t *testing.T) {
	r := ComputeReturns([]float64{100, 110, 99, 0, 5})
	require.Len(t, r, 5)
	assert.True(t, math.IsNaN(r[0]))
	assert.InDelta(t, 0.10, r[1], 1e-12)
	assert.InDelta(t, -0.10, r[2], 1e-12)
	assert.InDelta(t, -1.0, r[3], 1e-12)
	assert.True(t, math.IsNaN(r[4]), "step from zero close is undefined")
}

func TestRollingStd(t *testing.T) {
	xs := []float64{math.NaN(), 1, 2, 3, 5}
	s := RollingStd(xs, 3)
	assert.True(t, math.IsNaN(s[0]))
	assert.True(t, math.IsNaN(s[1]))
	assert.True(t, math.IsNaN(s[2]), "window touching NaN is undefined")
	assert.InDelta(t, 1.0, s[3], 1e-12)
	assert.InDelta(t, math.Sqrt(7.0/3.0), s[4], 1e-12)
}

func TestBuildRowsDropsUndefined(t *testing.T) {
	rows := BuildRows(bars(100, 101, 102, 101, 103, 104), 3)
	require.Len(t, rows, 3)

	assert.Equal(t, float64(17), rows[0].Hour)
	assert.Equal(t, 101.0, rows[0].Close)
	assert.Equal(t, 104.0, rows[2].Close)
	for _, r := range rows {
		for _, v := range r.Vector() {
			assert.False(t, math.IsNaN(v))
		}
	}
}

func TestBuildRowsShortSeries(t *testing.T) {
	assert.Empty(t, BuildRows(bars(100, 101, 102), 3))
	assert.Len(t, BuildRows(bars(100, 101, 102, 103), 3), 1)
	assert.Empty(t, BuildRows(nil, 3))
}
