package model

// Indicators holds the technical indicators computed for one series on one tick.
type Indicators struct {
	Close     float64
	ShortMA   float64
	LongMA    float64
	RSI       float64
	Volume    float64
	AvgVolume float64
	UpperBand float64 // 0 when bands are disabled
	LowerBand float64
}
