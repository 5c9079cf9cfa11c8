package model

// Balance is one currency row of the exchange account.
// It must be fetched fresh for each decision.
type Balance struct {
	Currency    string
	Free        float64
	Locked      float64
	AvgBuyPrice float64
}

// FindBalance returns the balance for currency, or a zero balance if absent.
func FindBalance(balances []Balance, currency string) Balance {
	for _, b := range balances {
		if b.Currency == currency {
			return b
		}
	}
	return Balance{Currency: currency}
}
