package model

// Signal is the trade direction derived for one instrument on one tick.
// The zero value means no action.
type Signal string

const (
	SignalNone Signal = ""
	SignalBuy  Signal = "BUY"
	SignalSell Signal = "SELL"
)

func (s Signal) String() string {
	if s == SignalNone {
		return "NONE"
	}
	return string(s)
}

// Condition is one named rule evaluated by the signal engine.
type Condition struct {
	Name       string
	Buy        bool
	Sell       bool
	Commentary string
}
