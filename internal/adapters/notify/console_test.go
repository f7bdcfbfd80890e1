package notify_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/polyreplay/internal/adapters/notify"
	"github.com/alejandrodnm/polyreplay/internal/domain"
)

var target = time.Date(2025, 10, 22, 14, 0, 0, 0, time.UTC)

func makeReport() domain.BacktestReport {
	exp := target.Add(15 * time.Minute)
	id := domain.MarketIDFor(exp)
	rep := domain.BacktestReport{
		RunID:          "run-1",
		Strategy:       "hybrid",
		InitialCapital: 1000,
		FinalCapital:   1012.5,
		Completed:      true,
		Markets: []domain.MarketResult{
			{MarketID: id, TargetTime: target, Expiration: exp, Resolution: domain.ResolvedUp, Class: domain.ClassWon,
				Trades: 2, QtyUp: 30, QtyDown: 5, AvgUp: 0.5, AvgDown: 0.5, PnL: 12.5, CapitalAfter: 1012.5},
			{MarketID: domain.MarketIDFor(exp.Add(15 * time.Minute)), TargetTime: exp, Expiration: exp.Add(15 * time.Minute),
				Resolution: domain.Unresolved, Class: domain.ClassNoTrades, CapitalAfter: 1012.5},
		},
		Trades: []domain.TradeRecord{
			{MarketID: id, Side: domain.SideUp, Quantity: 30, IntentPrice: 0.5, FillPrice: 0.5, DecisionTime: target.Add(2 * time.Minute)},
			{MarketID: id, Side: domain.SideDown, Quantity: 5, IntentPrice: 0.5, FillPrice: 0.52, DecisionTime: target.Add(3 * time.Minute)},
		},
		RiskEvents: []domain.RiskEvent{
			{Kind: domain.RiskSafetyMarginViolation, MarketID: id},
			{Kind: domain.RiskSafetyMarginViolation, MarketID: id},
		},
		CapitalCurve: []domain.CapitalPoint{{Capital: 1012.5}, {Capital: 1012.5}},
	}
	rep.Finalize()
	return rep
}

func TestConsole_Notify_Table(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, true)

	require.NoError(t, n.Notify(context.Background(), makeReport()))

	out := buf.String()
	assert.Contains(t, out, "BACKTEST — hybrid")
	assert.Contains(t, out, "10-22 14:00→14:15")
	assert.Contains(t, out, "WON")
	assert.Contains(t, out, "IMBALANCED MARKETS (1)")
	assert.Contains(t, out, "SafetyMarginViolation")
	assert.Contains(t, out, "avg gap 1m0s")
	assert.Contains(t, out, "1 slipped")
	assert.Contains(t, out, "Win rate:  100.0%")
	assert.NotContains(t, out, "partial report")
}

func TestConsole_Notify_Compact(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, false)

	rep := makeReport()
	rep.Completed = false
	require.NoError(t, n.Notify(context.Background(), rep))

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "\n"))
	assert.Contains(t, out, "[hybrid] 2 mkts (1 traded) → 2 trades")
	assert.Contains(t, out, "ROI +1.25%")
	assert.Contains(t, out, "2 rejected")
	assert.Contains(t, out, "PARTIAL")
}

func TestConsole_Notify_Empty(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, true)

	require.NoError(t, n.Notify(context.Background(), domain.BacktestReport{Strategy: "prediction"}))
	assert.Contains(t, buf.String(), "no markets simulated")
}
