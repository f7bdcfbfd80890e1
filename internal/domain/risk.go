package domain

import (
	"fmt"
	"math"
	"time"
)

// RiskKind names the constraint that rejected a trade intent.
type RiskKind string

const (
	RiskInsufficientCapital   RiskKind = "InsufficientCapital"
	RiskMaxTradeSize          RiskKind = "MaxTradeSize"
	RiskLiquidityConstraint   RiskKind = "LiquidityConstraint"
	RiskDeltaConstraint       RiskKind = "DeltaConstraint"
	RiskSafetyMarginViolation RiskKind = "SafetyMarginViolation"
)

// RiskKinds lists every kind in check order.
var RiskKinds = []RiskKind{
	RiskInsufficientCapital,
	RiskMaxTradeSize,
	RiskLiquidityConstraint,
	RiskDeltaConstraint,
	RiskSafetyMarginViolation,
}

// RiskConfig holds the engine's trade constraints.
// A non-positive value disables the corresponding check.
type RiskConfig struct {
	MaxTradeSize           float64
	MinLiquidityMultiplier float64
	MaxUnhedgedDelta       float64
	SafetyMargin           float64
}

// DefaultRiskConfig returns the limits the rebalancing research settled on.
func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		MaxTradeSize:           500,
		MinLiquidityMultiplier: 3.0,
		MaxUnhedgedDelta:       50,
		SafetyMargin:           0.98,
	}
}

// RiskDecision is the outcome of ValidateIntent.
// Required and Limit carry the offending values of the failing check.
type RiskDecision struct {
	Accepted bool
	Kind     RiskKind
	Required float64
	Limit    float64
	Reason   string
}

func accept() RiskDecision {
	return RiskDecision{Accepted: true}
}

func reject(kind RiskKind, required, limit float64, format string, args ...any) RiskDecision {
	return RiskDecision{
		Kind:     kind,
		Required: required,
		Limit:    limit,
		Reason:   fmt.Sprintf(format, args...),
	}
}

// RiskEvent is a recorded rejection. It is data, never an error.
type RiskEvent struct {
	Kind      RiskKind
	Timestamp time.Time
	MarketID  string
	Side      Side
	Quantity  float64
	Price     float64
	Capital   float64
	Required  float64
	Limit     float64
	Detail    string
}

// NewRiskEvent builds the log entry for a rejected intent.
func NewRiskEvent(d RiskDecision, tick MarketTick, intent TradeIntent, capital float64) RiskEvent {
	return RiskEvent{
		Kind:      d.Kind,
		Timestamp: tick.Timestamp,
		MarketID:  tick.MarketID(),
		Side:      intent.Side,
		Quantity:  intent.Quantity,
		Price:     intent.Price,
		Capital:   capital,
		Required:  d.Required,
		Limit:     d.Limit,
		Detail:    d.Reason,
	}
}

// ValidateIntent runs the pre-trade checks in order; the first failing check wins.
//
//  1. capital:      qty × price <= capital
//  2. trade size:   qty <= MaxTradeSize (no clipping)
//  3. liquidity:    opposite side ask liquidity >= multiplier × qty
//  4. delta:        |qty_up - qty_down| after the trade <= MaxUnhedgedDelta
//  5. safety margin: only when the trade grows the paired quantity, the
//     resulting pair cost must stay below SafetyMargin
func ValidateIntent(intent TradeIntent, snap PortfolioSnapshot, tick MarketTick, capital float64, cfg RiskConfig) RiskDecision {
	cost := Dec(intent.Quantity).Mul(Dec(intent.Price))
	if cost.GreaterThan(Dec(capital)) {
		return reject(RiskInsufficientCapital, cost.InexactFloat64(), capital,
			"needed $%.2f, had $%.2f", cost.InexactFloat64(), capital)
	}

	if cfg.MaxTradeSize > 0 && intent.Quantity > cfg.MaxTradeSize {
		return reject(RiskMaxTradeSize, intent.Quantity, cfg.MaxTradeSize,
			"quantity %.2f exceeds max trade size %.2f", intent.Quantity, cfg.MaxTradeSize)
	}

	if cfg.MinLiquidityMultiplier > 0 {
		opposite := intent.Side.Opposite()
		available := tick.Quote(opposite).AskLiquidity
		required := cfg.MinLiquidityMultiplier * intent.Quantity
		if available < required {
			return reject(RiskLiquidityConstraint, required, available,
				"%s ask liquidity %.2f < required %.2f", opposite, available, required)
		}
	}

	newUp, newDown := snap.QtyUp, snap.QtyDown
	if intent.Side == SideUp {
		newUp += intent.Quantity
	} else {
		newDown += intent.Quantity
	}

	if cfg.MaxUnhedgedDelta > 0 {
		delta := math.Abs(newUp - newDown)
		if delta > cfg.MaxUnhedgedDelta {
			return reject(RiskDeltaConstraint, delta, cfg.MaxUnhedgedDelta,
				"delta after trade %.2f exceeds %.2f", delta, cfg.MaxUnhedgedDelta)
		}
	}

	if cfg.SafetyMargin > 0 && math.Min(newUp, newDown) > snap.PairedQty {
		pairCost := pairCostAfter(snap, intent)
		if pairCost >= cfg.SafetyMargin {
			return reject(RiskSafetyMarginViolation, pairCost, cfg.SafetyMargin,
				"pair cost after trade %.4f >= safety margin %.4f", pairCost, cfg.SafetyMargin)
		}
	}

	return accept()
}

// pairCostAfter recomputes avg_up + avg_down as if intent had been filled.
func pairCostAfter(snap PortfolioSnapshot, intent TradeIntent) float64 {
	pf := Portfolio{
		Up:   Position{Qty: Dec(snap.QtyUp), Cost: Dec(snap.QtyUp).Mul(Dec(snap.AvgUp))},
		Down: Position{Qty: Dec(snap.QtyDown), Cost: Dec(snap.QtyDown).Mul(Dec(snap.AvgDown))},
	}
	pf = pf.With(intent.Side, Dec(intent.Quantity), Dec(intent.Price))
	return pf.PairCost().InexactFloat64()
}
