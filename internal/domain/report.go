package domain

import "time"

// MarketClass classifies a settled market for win/loss statistics.
type MarketClass string

const (
	ClassWon        MarketClass = "WON"
	ClassLost       MarketClass = "LOST"
	ClassFlat       MarketClass = "FLAT"
	ClassNoTrades   MarketClass = "NO_TRADES"
	ClassUnresolved MarketClass = "UNRESOLVED"
	ClassTruncated  MarketClass = "TRUNCATED"
)

// Counted reports whether the class enters the win rate denominator.
func (c MarketClass) Counted() bool {
	return c == ClassWon || c == ClassLost || c == ClassFlat
}

// MarketResult is the per-market summary produced at settlement.
type MarketResult struct {
	MarketID      string
	TargetTime    time.Time
	Expiration    time.Time
	Ticks         int
	LastTick      time.Time
	Resolution    Resolution
	Class         MarketClass
	Truncated     bool
	Trades        int
	Rejections    int
	Faults        int
	QtyUp         float64
	QtyDown       float64
	AvgUp         float64
	AvgDown       float64
	PairCost      float64
	LockedProfit  float64
	Cost          float64
	Payout        float64
	PnL           float64
	CapitalBefore float64
	CapitalAfter  float64
}

// Imbalanced reports whether the market ended with unequal Up/Down shares.
func (r MarketResult) Imbalanced() bool {
	return r.QtyUp != r.QtyDown
}

// Classify assigns the win/loss class of a settled market.
func Classify(trades int, truncated bool, res Resolution, pnl float64) MarketClass {
	switch {
	case trades == 0:
		return ClassNoTrades
	case truncated:
		return ClassTruncated
	case res == Unresolved:
		return ClassUnresolved
	case pnl > 0:
		return ClassWon
	case pnl < 0:
		return ClassLost
	}
	return ClassFlat
}

// StrategyFault records a tick on which the strategy failed.
type StrategyFault struct {
	MarketID  string
	Timestamp time.Time
	Err       string
}

// RowWarning records an input row dropped by the segmenter.
type RowWarning struct {
	Line   int
	Reason string
}

// CapitalPoint is one sample of the capital curve, taken at each settlement.
type CapitalPoint struct {
	Timestamp time.Time
	MarketID  string
	Capital   float64
}

// BacktestReport is the complete output of a run.
type BacktestReport struct {
	RunID          string
	Strategy       string
	InitialCapital float64
	FinalCapital   float64
	RealizedPnL    float64
	ROI            float64 // fraction of initial capital
	MaxDrawdown    float64 // fraction, peak to trough
	WinRate        float64 // wins / counted markets
	Wins           int
	Losses         int
	Completed      bool // false when the run was cancelled between markets
	Markets        []MarketResult
	Trades         []TradeRecord
	RiskEvents     []RiskEvent
	Faults         []StrategyFault
	RowWarnings    []RowWarning
	CapitalCurve   []CapitalPoint
}

// Finalize computes the aggregate metrics from the per-market results.
func (r *BacktestReport) Finalize() {
	r.RealizedPnL = r.FinalCapital - r.InitialCapital
	if r.InitialCapital > 0 {
		r.ROI = r.RealizedPnL / r.InitialCapital
	}
	r.MaxDrawdown = MaxDrawdown(r.InitialCapital, r.CapitalCurve)

	r.Wins, r.Losses = 0, 0
	counted := 0
	for _, m := range r.Markets {
		if !m.Class.Counted() {
			continue
		}
		counted++
		switch m.Class {
		case ClassWon:
			r.Wins++
		case ClassLost:
			r.Losses++
		}
	}
	r.WinRate = 0
	if counted > 0 {
		r.WinRate = float64(r.Wins) / float64(counted)
	}
}

// TradedMarkets returns how many markets had at least one trade.
func (r BacktestReport) TradedMarkets() int {
	n := 0
	for _, m := range r.Markets {
		if m.Trades > 0 {
			n++
		}
	}
	return n
}

// RiskEventCounts groups risk events by kind.
func (r BacktestReport) RiskEventCounts() map[RiskKind]int {
	out := make(map[RiskKind]int)
	for _, e := range r.RiskEvents {
		out[e.Kind]++
	}
	return out
}

// MaxDrawdown returns the largest peak-to-trough decline of the capital
// curve as a fraction of the peak. The initial capital is the first peak.
func MaxDrawdown(initial float64, curve []CapitalPoint) float64 {
	peak := initial
	var maxDD float64
	for _, p := range curve {
		if p.Capital > peak {
			peak = p.Capital
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - p.Capital) / peak; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}
