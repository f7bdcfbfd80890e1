package domain

import "github.com/shopspring/decimal"

// Resolution is the outcome determined at a market's last tick.
type Resolution string

const (
	ResolvedUp   Resolution = "Up"
	ResolvedDown Resolution = "Down"
	// Unresolved: final mids exactly equidistant, nobody gets paid.
	Unresolved Resolution = "Unresolved"
)

// Winner returns the winning side; ok=false for Unresolved.
func (r Resolution) Winner() (Side, bool) {
	switch r {
	case ResolvedUp:
		return SideUp, true
	case ResolvedDown:
		return SideDown, true
	}
	return "", false
}

// Resolve picks the side whose final mid is closer to 1.0.
func Resolve(last MarketTick) Resolution {
	up, down := Dec(last.Up.Mid()), Dec(last.Down.Mid())
	switch up.Cmp(down) {
	case 1:
		return ResolvedUp
	case -1:
		return ResolvedDown
	}
	return Unresolved
}

// Payout returns what the portfolio is worth at settlement: $1 per winning
// share, $0 per losing share, nothing when unresolved.
func Payout(pf Portfolio, r Resolution) decimal.Decimal {
	side, ok := r.Winner()
	if !ok {
		return decimal.Zero
	}
	return pf.Position(side).Qty.Mul(one)
}
