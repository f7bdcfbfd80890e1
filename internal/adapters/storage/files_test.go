package storage_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/polyreplay/internal/adapters/storage"
	"github.com/alejandrodnm/polyreplay/internal/domain"
)

var exp = time.Date(2025, 10, 22, 14, 15, 0, 0, time.UTC)

func sampleReport() domain.BacktestReport {
	rep := domain.BacktestReport{
		RunID:          "run-1",
		Strategy:       "rebalancing",
		InitialCapital: 1000,
		FinalCapital:   1001.5,
		Completed:      true,
		Markets: []domain.MarketResult{{
			MarketID:   domain.MarketIDFor(exp),
			Expiration: exp,
			Resolution: domain.ResolvedUp,
			Class:      domain.ClassWon,
			Trades:     2,
			PnL:        1.5,
		}},
		Trades: []domain.TradeRecord{
			{ID: "t1", Seq: 1, MarketID: domain.MarketIDFor(exp), Side: domain.SideDown, Quantity: 50, IntentPrice: 0.49, FillPrice: 0.49, Cost: 24.5, DecisionTime: exp.Add(-14 * time.Minute), FillTime: exp.Add(-14 * time.Minute)},
			{ID: "t2", Seq: 2, MarketID: domain.MarketIDFor(exp), Side: domain.SideUp, Quantity: 50, IntentPrice: 0.48, FillPrice: 0.48, Cost: 24},
		},
		RiskEvents: []domain.RiskEvent{
			{Kind: domain.RiskDeltaConstraint, MarketID: domain.MarketIDFor(exp), Side: domain.SideUp, Quantity: 400, Price: 0.48, Detail: "delta after trade 400.00 exceeds 50.00"},
		},
		CapitalCurve: []domain.CapitalPoint{{Timestamp: exp, MarketID: domain.MarketIDFor(exp), Capital: 1001.5}},
	}
	rep.Finalize()
	return rep
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, storage.WriteJSON(&buf, sampleReport()))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "run-1", got["run_id"])
	assert.Equal(t, 1001.5, got["final_capital"])
	assert.InDelta(t, 0.0015, got["roi"], 1e-12)
	assert.Equal(t, map[string]any{"DeltaConstraint": 1.0}, got["risk_event_counts"])
	assert.Equal(t, []any{}, got["strategy_faults"], "empty slices are [] not null")

	markets := got["markets"].([]any)
	require.Len(t, markets, 1)
	assert.Equal(t, "WON", markets[0].(map[string]any)["class"])
	assert.Equal(t, "2025-10-22T14:15:00Z", markets[0].(map[string]any)["expiration"])
}

func TestWriteTrades(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, storage.WriteTrades(&buf, sampleReport().Trades))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "id", records[0][0])
	assert.Equal(t, []string{"t1", "1", "2025-10-22T14:15:00Z", "2025-10-22T14:01:00Z", "2025-10-22T14:01:00Z", "Down", "50", "0.49", "0.49", "24.5", "0", "0", "0"}, records[1])
	assert.Equal(t, "", records[2][3], "zero time is empty")
}

func TestWriteRiskEvents(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, storage.WriteRiskEvents(&buf, sampleReport().RiskEvents))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "kind,timestamp,market_id"))
	assert.True(t, strings.HasPrefix(lines[1], "DeltaConstraint,"))
}

func TestFiles_SaveReport(t *testing.T) {
	dir := t.TempDir()
	f := storage.NewFiles(
		filepath.Join(dir, "out", "report.json"),
		filepath.Join(dir, "out", "trades.csv"),
		"",
	)
	require.NoError(t, f.SaveReport(context.Background(), sampleReport()))

	for _, name := range []string{"report.json", "trades.csv"} {
		info, err := os.Stat(filepath.Join(dir, "out", name))
		require.NoError(t, err, name)
		assert.Positive(t, info.Size(), name)
	}
	_, err := os.Stat(filepath.Join(dir, "out", "risk.csv"))
	assert.True(t, os.IsNotExist(err))
}

func TestFiles_SaveReportDeterministic(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.json")
	b := filepath.Join(dir, "b.json")
	require.NoError(t, storage.NewFiles(a, "", "").SaveReport(context.Background(), sampleReport()))
	require.NoError(t, storage.NewFiles(b, "", "").SaveReport(context.Background(), sampleReport()))

	ba, err := os.ReadFile(a)
	require.NoError(t, err)
	bb, err := os.ReadFile(b)
	require.NoError(t, err)
	assert.Equal(t, ba, bb)
}
