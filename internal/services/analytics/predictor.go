package analytics

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"MarketPulse/internal/domain/models"
	domsvc "MarketPulse/internal/domain/service"
	"MarketPulse/internal/services/features"
	applogger "MarketPulse/pkg/logger"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// RegressionPredictor fits a ridge regression per ticker on standardized
// hour/return/volatility features and forecasts the next close.
type RegressionPredictor struct {
	window int
	lambda float64
	l      *applogger.Logger
}

type PredictorOption func(*RegressionPredictor)

// WithVolatilityWindow sets the rolling window for the volatility feature.
func WithVolatilityWindow(n int) PredictorOption {
	return func(p *RegressionPredictor) {
		if n >= 2 {
			p.window = n
		}
	}
}

// WithRidgeLambda sets the L2 penalty applied in standardized space.
func WithRidgeLambda(lambda float64) PredictorOption {
	return func(p *RegressionPredictor) {
		if lambda >= 0 {
			p.lambda = lambda
		}
	}
}

func WithPredictorLogger(l *applogger.Logger) PredictorOption {
	return func(p *RegressionPredictor) {
		if l != nil {
			p.l = l
		}
	}
}

func NewRegressionPredictor(opts ...PredictorOption) *RegressionPredictor {
	p := &RegressionPredictor{window: 3, lambda: 1, l: applogger.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var _ domsvc.PricePredictor = (*RegressionPredictor)(nil)

// Predict forecasts every series independently. Tickers without a valid
// feature row, with a zero current price, or whose fit is numerically
// unusable are left out.
func (p *RegressionPredictor) Predict(ctx context.Context, series map[string]models.PriceSeries) (map[string]models.Prediction, error) {
	tickers := make([]string, 0, len(series))
	for t := range series {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	out := make(map[string]models.Prediction, len(series))
	for _, ticker := range tickers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pred, ok, err := p.predictOne(series[ticker])
		if err != nil {
			p.l.Warn("prediction skipped",
				applogger.String("ticker", ticker),
				applogger.Error(err),
			)
			continue
		}
		if ok {
			out[ticker] = pred
		}
	}
	return out, nil
}

func (p *RegressionPredictor) predictOne(s models.PriceSeries) (models.Prediction, bool, error) {
	rows := features.BuildRows(s.Bars, p.window)
	if len(rows) == 0 {
		return models.Prediction{}, false, nil
	}
	last := rows[len(rows)-1]
	current := last.Close
	if current == 0 {
		return models.Prediction{}, false, nil
	}

	predicted := current
	if len(rows) > 1 {
		x := make([][]float64, len(rows)-1)
		y := make([]float64, len(rows)-1)
		for i := 0; i < len(rows)-1; i++ {
			x[i] = rows[i].Vector()
			y[i] = rows[i+1].Close
		}
		model, err := FitRidge(x, y, p.lambda)
		if err != nil {
			return models.Prediction{}, false, err
		}
		predicted = model.Predict(last.Vector())
	}

	if math.IsNaN(predicted) || math.IsInf(predicted, 0) {
		return models.Prediction{}, false, fmt.Errorf("non-finite forecast")
	}
	return models.Prediction{
		CurrentPrice:           current,
		PredictedPrice:         predicted,
		PredictedChangePercent: (predicted - current) / current * 100,
	}, true, nil
}

// RidgeModel is a fitted linear model over standardized inputs.
type RidgeModel struct {
	means     []float64
	scales    []float64
	intercept float64
	coef      []float64
}

// FitRidge solves (ZᵀZ + λI)β = Zᵀ(y - ȳ) where Z are the standardized
// columns of x. Constant columns get a unit scale and contribute nothing.
func FitRidge(x [][]float64, y []float64, lambda float64) (*RidgeModel, error) {
	n := len(x)
	if n == 0 || n != len(y) {
		return nil, errors.New("ridge: need matching non-empty x and y")
	}
	k := len(x[0])

	m := &RidgeModel{
		means:  make([]float64, k),
		scales: make([]float64, k),
		coef:   make([]float64, k),
	}
	m.intercept = stat.Mean(y, nil)
	if n == 1 {
		for j := 0; j < k; j++ {
			m.means[j] = x[0][j]
			m.scales[j] = 1
		}
		return m, nil
	}

	col := make([]float64, n)
	for j := 0; j < k; j++ {
		for i := 0; i < n; i++ {
			col[i] = x[i][j]
		}
		mean, std := stat.MeanStdDev(col, nil)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		m.means[j] = mean
		m.scales[j] = std
	}

	z := mat.NewDense(n, k, nil)
	yc := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < k; j++ {
			z.Set(i, j, (x[i][j]-m.means[j])/m.scales[j])
		}
		yc.SetVec(i, y[i]-m.intercept)
	}

	var gram mat.Dense
	gram.Mul(z.T(), z)
	// keep the system solvable when n < k or columns are constant
	reg := lambda
	if reg == 0 {
		reg = 1e-9
	}
	for j := 0; j < k; j++ {
		gram.Set(j, j, gram.At(j, j)+reg)
	}

	var rhs mat.VecDense
	rhs.MulVec(z.T(), yc)

	var beta mat.VecDense
	if err := beta.SolveVec(&gram, &rhs); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, fmt.Errorf("ridge solve: %w", err)
		}
	}
	for j := 0; j < k; j++ {
		m.coef[j] = beta.AtVec(j)
	}
	return m, nil
}

// Predict evaluates the model at x.
func (m *RidgeModel) Predict(x []float64) float64 {
	out := m.intercept
	for j, c := range m.coef {
		out += c * (x[j] - m.means[j]) / m.scales[j]
	}
	return out
}
