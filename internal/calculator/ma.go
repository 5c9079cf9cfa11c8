package calculator

import "errors"

// CalculateSMA computes the simple moving average of the given values over the specified period.
func CalculateSMA(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(values) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(values) - period; i < len(values); i++ {
		sum += values[i]
	}
	return sum / float64(period), nil
}

// CalculateEMA computes the exponential moving average over the whole series.
// The first value seeds the average, alpha is 2/(period+1).
func CalculateEMA(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(values) < period {
		return 0, errors.New("not enough data for EMA calculation")
	}
	alpha := 2.0 / float64(period+1)
	ema := values[0]
	for _, v := range values[1:] {
		ema = alpha*v + (1-alpha)*ema
	}
	return ema, nil
}

// MAKind selects the moving average flavour.
type MAKind string

const (
	MAKindSMA MAKind = "sma"
	MAKindEMA MAKind = "ema"
)

// CalculateMA dispatches to SMA or EMA.
func CalculateMA(kind MAKind, values []float64, period int) (float64, error) {
	switch kind {
	case MAKindSMA:
		return CalculateSMA(values, period)
	case MAKindEMA:
		return CalculateEMA(values, period)
	default:
		return 0, errors.New("unknown moving average kind: " + string(kind))
	}
}
