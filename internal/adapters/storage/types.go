package storage

// DTOs del report JSON. Los nombres de campo son el contrato con los
// consumidores externos (dashboard, notebooks); no renombrar.

type reportFile struct {
	RunID          string         `json:"run_id"`
	Strategy       string         `json:"strategy"`
	Completed      bool           `json:"completed"`
	InitialCapital float64        `json:"initial_capital"`
	FinalCapital   float64        `json:"final_capital"`
	RealizedPnL    float64        `json:"realized_pnl"`
	ROI            float64        `json:"roi"`
	MaxDrawdown    float64        `json:"max_drawdown"`
	WinRate        float64        `json:"win_rate"`
	Wins           int            `json:"wins"`
	Losses         int            `json:"losses"`
	RiskCounts     map[string]int `json:"risk_event_counts"`
	Markets        []marketRow    `json:"markets"`
	Trades         []tradeRow     `json:"trades"`
	RiskEvents     []riskRow      `json:"risk_events"`
	Faults         []faultRow     `json:"strategy_faults"`
	RowWarnings    []warningRow   `json:"row_warnings"`
	CapitalCurve   []capitalRow   `json:"capital_curve"`
}

type marketRow struct {
	MarketID      string  `json:"market_id"`
	TargetTime    string  `json:"target_time"`
	Expiration    string  `json:"expiration"`
	Ticks         int     `json:"ticks"`
	LastTick      string  `json:"last_tick"`
	Resolution    string  `json:"resolution"`
	Class         string  `json:"class"`
	Truncated     bool    `json:"truncated"`
	Trades        int     `json:"trades"`
	Rejections    int     `json:"rejections"`
	Faults        int     `json:"faults"`
	QtyUp         float64 `json:"qty_up"`
	QtyDown       float64 `json:"qty_down"`
	AvgUp         float64 `json:"avg_up"`
	AvgDown       float64 `json:"avg_down"`
	PairCost      float64 `json:"pair_cost"`
	LockedProfit  float64 `json:"locked_profit"`
	Cost          float64 `json:"cost"`
	Payout        float64 `json:"payout"`
	PnL           float64 `json:"pnl"`
	CapitalBefore float64 `json:"capital_before"`
	CapitalAfter  float64 `json:"capital_after"`
}

type tradeRow struct {
	ID            string  `json:"id"`
	Seq           int     `json:"seq"`
	MarketID      string  `json:"market_id"`
	DecisionTime  string  `json:"decision_time"`
	FillTime      string  `json:"fill_time"`
	Side          string  `json:"side"`
	Quantity      float64 `json:"quantity"`
	IntentPrice   float64 `json:"intent_price"`
	FillPrice     float64 `json:"fill_price"`
	Cost          float64 `json:"cost"`
	Score         float64 `json:"score"`
	CapitalBefore float64 `json:"capital_before"`
	CapitalAfter  float64 `json:"capital_after"`
}

type riskRow struct {
	Kind      string  `json:"kind"`
	Timestamp string  `json:"timestamp"`
	MarketID  string  `json:"market_id"`
	Side      string  `json:"side"`
	Quantity  float64 `json:"quantity"`
	Price     float64 `json:"price"`
	Capital   float64 `json:"capital"`
	Required  float64 `json:"required"`
	Limit     float64 `json:"limit"`
	Detail    string  `json:"detail"`
}

type faultRow struct {
	MarketID  string `json:"market_id"`
	Timestamp string `json:"timestamp"`
	Err       string `json:"error"`
}

type warningRow struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

type capitalRow struct {
	Timestamp string  `json:"timestamp"`
	MarketID  string  `json:"market_id"`
	Capital   float64 `json:"capital"`
}
