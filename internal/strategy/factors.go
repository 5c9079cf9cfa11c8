package strategy

import (
	"fmt"

	"AutoTrader/internal/model"
)

// trendCondition requires price > short MA > long MA for a buy and the mirror for a sell.
func trendCondition(ind model.Indicators) model.Condition {
	return model.Condition{
		Name:       "trend",
		Buy:        ind.Close > ind.ShortMA && ind.ShortMA > ind.LongMA,
		Sell:       ind.Close < ind.ShortMA && ind.ShortMA < ind.LongMA,
		Commentary: fmt.Sprintf("close=%.4f short=%.4f long=%.4f", ind.Close, ind.ShortMA, ind.LongMA),
	}
}

// momentumCondition checks the RSI against the rising band (buy)
// and the falling or extreme bands (sell).
func momentumCondition(ind model.Indicators, cfg Config) model.Condition {
	rsi := ind.RSI
	return model.Condition{
		Name:       "momentum",
		Buy:        rsi > cfg.BuyRSIMin && rsi <= cfg.BuyRSIMax,
		Sell:       rsi <= cfg.SellRSIMax || rsi >= cfg.SellRSIExtreme,
		Commentary: fmt.Sprintf("RSI=%.1f", rsi),
	}
}

// volumeCondition requires the latest volume to exceed the trailing average by the multiplier.
// It gates both directions.
func volumeCondition(ind model.Indicators, cfg Config) model.Condition {
	surge := ind.Volume > ind.AvgVolume*cfg.VolumeMultiplier
	ratio := 0.0
	if ind.AvgVolume > 0 {
		ratio = ind.Volume / ind.AvgVolume
	}
	return model.Condition{
		Name:       "volume",
		Buy:        surge,
		Sell:       surge,
		Commentary: fmt.Sprintf("volume x%.2f (need x%.2f)", ratio, cfg.VolumeMultiplier),
	}
}

// bandCondition rejects buys above the upper band and sells below the lower band.
func bandCondition(ind model.Indicators) model.Condition {
	return model.Condition{
		Name:       "bollinger",
		Buy:        ind.Close <= ind.UpperBand,
		Sell:       ind.Close >= ind.LowerBand,
		Commentary: fmt.Sprintf("band=[%.4f, %.4f]", ind.LowerBand, ind.UpperBand),
	}
}
