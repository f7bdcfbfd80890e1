package storage

import (
	"strconv"
	"time"

	"github.com/alejandrodnm/polyreplay/internal/domain"
)

const timeLayout = time.RFC3339Nano

// mapReport convierte el report de dominio al DTO JSON.
// Los slices vacíos se serializan como [] y no como null.
func mapReport(r domain.BacktestReport) reportFile {
	out := reportFile{
		RunID:          r.RunID,
		Strategy:       r.Strategy,
		Completed:      r.Completed,
		InitialCapital: r.InitialCapital,
		FinalCapital:   r.FinalCapital,
		RealizedPnL:    r.RealizedPnL,
		ROI:            r.ROI,
		MaxDrawdown:    r.MaxDrawdown,
		WinRate:        r.WinRate,
		Wins:           r.Wins,
		Losses:         r.Losses,
		RiskCounts:     make(map[string]int),
		Markets:        make([]marketRow, 0, len(r.Markets)),
		Trades:         make([]tradeRow, 0, len(r.Trades)),
		RiskEvents:     make([]riskRow, 0, len(r.RiskEvents)),
		Faults:         make([]faultRow, 0, len(r.Faults)),
		RowWarnings:    make([]warningRow, 0, len(r.RowWarnings)),
		CapitalCurve:   make([]capitalRow, 0, len(r.CapitalCurve)),
	}

	for kind, n := range r.RiskEventCounts() {
		out.RiskCounts[string(kind)] = n
	}
	for _, m := range r.Markets {
		out.Markets = append(out.Markets, mapMarket(m))
	}
	for _, t := range r.Trades {
		out.Trades = append(out.Trades, mapTrade(t))
	}
	for _, e := range r.RiskEvents {
		out.RiskEvents = append(out.RiskEvents, mapRiskEvent(e))
	}
	for _, f := range r.Faults {
		out.Faults = append(out.Faults, faultRow{MarketID: f.MarketID, Timestamp: formatTime(f.Timestamp), Err: f.Err})
	}
	for _, w := range r.RowWarnings {
		out.RowWarnings = append(out.RowWarnings, warningRow(w))
	}
	for _, p := range r.CapitalCurve {
		out.CapitalCurve = append(out.CapitalCurve, capitalRow{
			Timestamp: formatTime(p.Timestamp),
			MarketID:  p.MarketID,
			Capital:   p.Capital,
		})
	}
	return out
}

func mapMarket(m domain.MarketResult) marketRow {
	return marketRow{
		MarketID:      m.MarketID,
		TargetTime:    formatTime(m.TargetTime),
		Expiration:    formatTime(m.Expiration),
		Ticks:         m.Ticks,
		LastTick:      formatTime(m.LastTick),
		Resolution:    string(m.Resolution),
		Class:         string(m.Class),
		Truncated:     m.Truncated,
		Trades:        m.Trades,
		Rejections:    m.Rejections,
		Faults:        m.Faults,
		QtyUp:         m.QtyUp,
		QtyDown:       m.QtyDown,
		AvgUp:         m.AvgUp,
		AvgDown:       m.AvgDown,
		PairCost:      m.PairCost,
		LockedProfit:  m.LockedProfit,
		Cost:          m.Cost,
		Payout:        m.Payout,
		PnL:           m.PnL,
		CapitalBefore: m.CapitalBefore,
		CapitalAfter:  m.CapitalAfter,
	}
}

func mapTrade(t domain.TradeRecord) tradeRow {
	return tradeRow{
		ID:            t.ID,
		Seq:           t.Seq,
		MarketID:      t.MarketID,
		DecisionTime:  formatTime(t.DecisionTime),
		FillTime:      formatTime(t.FillTime),
		Side:          string(t.Side),
		Quantity:      t.Quantity,
		IntentPrice:   t.IntentPrice,
		FillPrice:     t.FillPrice,
		Cost:          t.Cost,
		Score:         t.Score,
		CapitalBefore: t.CapitalBefore,
		CapitalAfter:  t.CapitalAfter,
	}
}

func mapRiskEvent(e domain.RiskEvent) riskRow {
	return riskRow{
		Kind:      string(e.Kind),
		Timestamp: formatTime(e.Timestamp),
		MarketID:  e.MarketID,
		Side:      string(e.Side),
		Quantity:  e.Quantity,
		Price:     e.Price,
		Capital:   e.Capital,
		Required:  e.Required,
		Limit:     e.Limit,
		Detail:    e.Detail,
	}
}

// Columnas de los CSV planos.
var (
	tradeColumns = []string{
		"id", "seq", "market_id", "decision_time", "fill_time", "side", "quantity",
		"intent_price", "fill_price", "cost", "score", "capital_before", "capital_after",
	}
	riskColumns = []string{
		"kind", "timestamp", "market_id", "side", "quantity", "price",
		"capital", "required", "limit", "detail",
	}
)

func (t tradeRow) record() []string {
	return []string{
		t.ID, strconv.Itoa(t.Seq), t.MarketID, t.DecisionTime, t.FillTime, t.Side,
		formatFloat(t.Quantity), formatFloat(t.IntentPrice), formatFloat(t.FillPrice),
		formatFloat(t.Cost), formatFloat(t.Score),
		formatFloat(t.CapitalBefore), formatFloat(t.CapitalAfter),
	}
}

func (r riskRow) record() []string {
	return []string{
		r.Kind, r.Timestamp, r.MarketID, r.Side,
		formatFloat(r.Quantity), formatFloat(r.Price), formatFloat(r.Capital),
		formatFloat(r.Required), formatFloat(r.Limit), r.Detail,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
