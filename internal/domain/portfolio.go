package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

// Dec converts an engine-facing float to a decimal without binary noise
// (0.1 stays 0.1).
func Dec(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// Position is the holding on one side of one market.
// Cost is the running sum of qty × fill price, so AvgPrice is the
// volume-weighted entry price.
type Position struct {
	Qty  decimal.Decimal
	Cost decimal.Decimal
}

// AvgPrice returns the volume-weighted average entry price (0 when flat).
func (p Position) AvgPrice() decimal.Decimal {
	if p.Qty.IsZero() {
		return decimal.Zero
	}
	return p.Cost.Div(p.Qty)
}

// Add returns the position after buying qty at price:
// avg' = (avg*q + price*qty) / (q+qty).
func (p Position) Add(qty, price decimal.Decimal) Position {
	return Position{
		Qty:  p.Qty.Add(qty),
		Cost: p.Cost.Add(qty.Mul(price)),
	}
}

// Portfolio accumulates both sides of a single market.
type Portfolio struct {
	Up   Position
	Down Position
}

// Position returns the position for the given side.
func (pf Portfolio) Position(s Side) Position {
	if s == SideUp {
		return pf.Up
	}
	return pf.Down
}

// With returns a copy of the portfolio with qty bought at price on side s.
func (pf Portfolio) With(s Side, qty, price decimal.Decimal) Portfolio {
	if s == SideUp {
		pf.Up = pf.Up.Add(qty, price)
	} else {
		pf.Down = pf.Down.Add(qty, price)
	}
	return pf
}

// Apply folds a confirmed trade into the portfolio.
func (pf *Portfolio) Apply(c TradeConfirmation) error {
	if !c.Side.Valid() {
		return fmt.Errorf("domain.Portfolio.Apply: invalid side %q", c.Side)
	}
	if !(c.Quantity > 0) {
		return fmt.Errorf("domain.Portfolio.Apply: non-positive quantity %v", c.Quantity)
	}
	if c.FillPrice < 0 || c.FillPrice > 1 {
		return fmt.Errorf("domain.Portfolio.Apply: fill price %v outside [0,1]", c.FillPrice)
	}
	*pf = pf.With(c.Side, Dec(c.Quantity), Dec(c.FillPrice))
	return nil
}

// PairedQty returns min(qty_up, qty_down).
func (pf Portfolio) PairedQty() decimal.Decimal {
	return decimal.Min(pf.Up.Qty, pf.Down.Qty)
}

// PairCost returns avg_up + avg_down.
func (pf Portfolio) PairCost() decimal.Decimal {
	return pf.Up.AvgPrice().Add(pf.Down.AvgPrice())
}

// CostBasis returns the total amount spent on both sides.
func (pf Portfolio) CostBasis() decimal.Decimal {
	return pf.Up.Cost.Add(pf.Down.Cost)
}

// Empty reports whether nothing has been bought yet.
func (pf Portfolio) Empty() bool {
	return pf.Up.Qty.IsZero() && pf.Down.Qty.IsZero()
}

// PortfolioSnapshot is the derived view the risk engine and strategies read.
type PortfolioSnapshot struct {
	QtyUp         float64
	QtyDown       float64
	AvgUp         float64
	AvgDown       float64
	PairCost      float64
	Delta         float64 // qty_up - qty_down
	PairedQty     float64
	LockedProfit  float64 // paired × (1 - pair cost)
	CostBasis     float64
	UnrealizedPnL float64 // marked at the tick's mids
}

// Snapshot derives the portfolio metrics, marking open quantity at tick's mids.
func (pf Portfolio) Snapshot(tick MarketTick) PortfolioSnapshot {
	paired := pf.PairedQty()
	pairCost := pf.PairCost()
	costBasis := pf.CostBasis()
	marked := pf.Up.Qty.Mul(Dec(tick.Up.Mid())).Add(pf.Down.Qty.Mul(Dec(tick.Down.Mid())))

	return PortfolioSnapshot{
		QtyUp:         pf.Up.Qty.InexactFloat64(),
		QtyDown:       pf.Down.Qty.InexactFloat64(),
		AvgUp:         pf.Up.AvgPrice().InexactFloat64(),
		AvgDown:       pf.Down.AvgPrice().InexactFloat64(),
		PairCost:      pairCost.InexactFloat64(),
		Delta:         pf.Up.Qty.Sub(pf.Down.Qty).InexactFloat64(),
		PairedQty:     paired.InexactFloat64(),
		LockedProfit:  paired.Mul(one.Sub(pairCost)).InexactFloat64(),
		CostBasis:     costBasis.InexactFloat64(),
		UnrealizedPnL: marked.Sub(costBasis).InexactFloat64(),
	}
}
