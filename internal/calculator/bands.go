package calculator

import (
	"errors"
	"math"
)

// CalculateBollinger returns the middle, upper and lower bands: SMA(period) ± k·σ,
// with σ the population standard deviation over the same window.
func CalculateBollinger(values []float64, period int, k float64) (middle, upper, lower float64, err error) {
	middle, err = CalculateSMA(values, period)
	if err != nil {
		return 0, 0, 0, err
	}
	variance := 0.0
	for i := len(values) - period; i < len(values); i++ {
		d := values[i] - middle
		variance += d * d
	}
	sd := math.Sqrt(variance / float64(period))
	return middle, middle + k*sd, middle - k*sd, nil
}

// AverageVolume returns the mean of the `window` volumes preceding the last one.
// The last sample is the one being compared, so it is excluded.
func AverageVolume(volumes []float64, window int) (float64, error) {
	if window <= 0 {
		return 0, errors.New("window must be positive")
	}
	if len(volumes) < window+1 {
		return 0, errors.New("not enough data for volume average")
	}
	prev := volumes[:len(volumes)-1]
	return CalculateSMA(prev, window)
}
