package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/polyreplay/internal/domain"
)

// maxMarketRows limita la tabla por mercado en modo tabla; el resto va al JSON.
const maxMarketRows = 50

// Console implementa ports.Notifier.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// Notify imprime el report en el modo configurado.
func (c *Console) Notify(_ context.Context, rep domain.BacktestReport) error {
	if len(rep.Markets) == 0 {
		fmt.Fprintf(c.out, "[%s] no markets simulated\n", rep.Strategy)
		return nil
	}

	if !c.table {
		c.printCompact(rep)
		return nil
	}

	c.printHeader(rep)
	c.printMarkets(rep)
	c.printExecution(rep)
	c.printImbalanced(rep)
	c.printRisk(rep)
	c.printSummary(rep)
	return nil
}

// printCompact imprime lo esencial en una línea.
func (c *Console) printCompact(rep domain.BacktestReport) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %d mkts (%d traded) → %d trades | $%.2f → $%.2f | ROI %+.2f%% | WR %.1f%% (%dW/%dL) | DD %.2f%%",
		rep.Strategy, len(rep.Markets), rep.TradedMarkets(), len(rep.Trades),
		rep.InitialCapital, rep.FinalCapital, rep.ROI*100,
		rep.WinRate*100, rep.Wins, rep.Losses, rep.MaxDrawdown*100)
	if len(rep.RiskEvents) > 0 {
		fmt.Fprintf(&sb, " | %d rejected", len(rep.RiskEvents))
	}
	if len(rep.Faults) > 0 {
		fmt.Fprintf(&sb, " | %d faults", len(rep.Faults))
	}
	if !rep.Completed {
		sb.WriteString(" | PARTIAL")
	}
	fmt.Fprintln(c.out, sb.String())
}

func (c *Console) printHeader(rep domain.BacktestReport) {
	fmt.Fprintf(c.out, "\n╔══════════════════════════════════════════════════════════════════╗\n")
	fmt.Fprintf(c.out, "║  BACKTEST — %-53s║\n", rep.Strategy)
	fmt.Fprintf(c.out, "╚══════════════════════════════════════════════════════════════════╝\n")
	fmt.Fprintf(c.out, "  run %s\n", rep.RunID)
	if !rep.Completed {
		fmt.Fprintf(c.out, "  !! run cancelled: partial report over %d settled markets\n", len(rep.Markets))
	}
	fmt.Fprintln(c.out)
}

// printMarkets imprime una fila por mercado liquidado.
func (c *Console) printMarkets(rep domain.BacktestReport) {
	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Market", "Res", "Class", "Trades", "Up", "Down", "Pair", "Locked", "PnL", "Capital")

	for i, m := range rep.Markets {
		if i >= maxMarketRows {
			break
		}
		pair := "-"
		if m.QtyUp > 0 && m.QtyDown > 0 {
			pair = fmt.Sprintf("%.4f", m.PairCost)
		}
		table.Append(
			fmt.Sprintf("%d", i+1),
			marketLabel(m),
			string(m.Resolution),
			string(m.Class),
			fmt.Sprintf("%d", m.Trades),
			fmt.Sprintf("%.0f@%.3f", m.QtyUp, m.AvgUp),
			fmt.Sprintf("%.0f@%.3f", m.QtyDown, m.AvgDown),
			pair,
			fmt.Sprintf("$%.2f", m.LockedProfit),
			fmt.Sprintf("$%+.2f", m.PnL),
			fmt.Sprintf("$%.2f", m.CapitalAfter),
		)
	}
	table.Render()

	if len(rep.Markets) > maxMarketRows {
		fmt.Fprintf(c.out, "  ... %d more markets in the JSON report\n", len(rep.Markets)-maxMarketRows)
	}
	fmt.Fprintln(c.out, "  Pair = avg Up + avg Down | Locked = paired × (1 - pair) | Class TRUNCATED/UNRESOLVED excluded from WR")
}

// execStats resume el ritmo de ejecución de un mercado.
type execStats struct {
	marketID string
	trades   int
	avgSize  float64
	avgGap   time.Duration // 0 con un solo trade
}

func executionStats(trades []domain.TradeRecord) []execStats {
	byMarket := make(map[string][]domain.TradeRecord)
	var order []string
	for _, t := range trades {
		if _, ok := byMarket[t.MarketID]; !ok {
			order = append(order, t.MarketID)
		}
		byMarket[t.MarketID] = append(byMarket[t.MarketID], t)
	}

	stats := make([]execStats, 0, len(order))
	for _, id := range order {
		ts := byMarket[id]
		s := execStats{marketID: id, trades: len(ts)}
		var size float64
		for _, t := range ts {
			size += t.Quantity
		}
		s.avgSize = size / float64(len(ts))
		if len(ts) > 1 {
			span := ts[len(ts)-1].DecisionTime.Sub(ts[0].DecisionTime)
			s.avgGap = span / time.Duration(len(ts)-1)
		}
		stats = append(stats, s)
	}
	return stats
}

func (c *Console) printExecution(rep domain.BacktestReport) {
	stats := executionStats(rep.Trades)
	if len(stats) == 0 {
		fmt.Fprintf(c.out, "\n  No trades executed.\n")
		return
	}

	var trades int
	var size float64
	for _, s := range stats {
		trades += s.trades
		size += s.avgSize * float64(s.trades)
	}
	slipped := 0
	for _, t := range rep.Trades {
		if t.Slipped() {
			slipped++
		}
	}

	fmt.Fprintf(c.out, "\n=== EXECUTION ===\n")
	fmt.Fprintf(c.out, "  %d trades in %d markets | avg %.1f trades/market | avg size %.1f shares | %d slipped\n",
		trades, len(stats), float64(trades)/float64(len(stats)), size/float64(trades), slipped)

	sort.SliceStable(stats, func(i, j int) bool { return stats[i].trades > stats[j].trades })
	for i, s := range stats {
		if i >= 5 {
			break
		}
		gap := "-"
		if s.avgGap > 0 {
			gap = s.avgGap.Round(time.Second).String()
		}
		fmt.Fprintf(c.out, "  %-22s %3d trades  avg size %7.1f  avg gap %s\n", s.marketID, s.trades, s.avgSize, gap)
	}
}

// printImbalanced lista los mercados que terminaron con exposición direccional.
func (c *Console) printImbalanced(rep domain.BacktestReport) {
	var imbalanced []domain.MarketResult
	for _, m := range rep.Markets {
		if m.Trades > 0 && m.Imbalanced() {
			imbalanced = append(imbalanced, m)
		}
	}
	if len(imbalanced) == 0 {
		return
	}

	var pnl float64
	won := 0
	for _, m := range imbalanced {
		pnl += m.PnL
		if m.Class == domain.ClassWon {
			won++
		}
	}

	fmt.Fprintf(c.out, "\n=== IMBALANCED MARKETS (%d) | won %d, PnL $%+.2f ===\n", len(imbalanced), won, pnl)
	table := tablewriter.NewWriter(c.out)
	table.Header("Market", "Up", "Down", "Delta", "Res", "PnL")
	for _, m := range imbalanced {
		table.Append(
			marketLabel(m),
			fmt.Sprintf("%.0f", m.QtyUp),
			fmt.Sprintf("%.0f", m.QtyDown),
			fmt.Sprintf("%+.0f", m.QtyUp-m.QtyDown),
			string(m.Resolution),
			fmt.Sprintf("$%+.2f", m.PnL),
		)
	}
	table.Render()
}

func (c *Console) printRisk(rep domain.BacktestReport) {
	if len(rep.RiskEvents) == 0 && len(rep.Faults) == 0 && len(rep.RowWarnings) == 0 {
		return
	}

	fmt.Fprintf(c.out, "\n=== REJECTIONS & FAULTS ===\n")
	counts := rep.RiskEventCounts()
	for _, kind := range domain.RiskKinds {
		if n := counts[kind]; n > 0 {
			fmt.Fprintf(c.out, "  %-24s %d\n", kind, n)
		}
	}
	if n := len(rep.Faults); n > 0 {
		fmt.Fprintf(c.out, "  %-24s %d (first: %s)\n", "StrategyFault", n, rep.Faults[0].Err)
	}
	if n := len(rep.RowWarnings); n > 0 {
		fmt.Fprintf(c.out, "  %-24s %d\n", "RowsDropped", n)
	}
}

func (c *Console) printSummary(rep domain.BacktestReport) {
	counted, truncated, unresolved := 0, 0, 0
	for _, m := range rep.Markets {
		switch {
		case m.Class.Counted():
			counted++
		case m.Class == domain.ClassTruncated:
			truncated++
		case m.Class == domain.ClassUnresolved:
			unresolved++
		}
	}

	fmt.Fprintf(c.out, "\n=== SUMMARY ===\n")
	fmt.Fprintf(c.out, "  Capital:   $%.2f → $%.2f  (PnL $%+.2f, ROI %+.2f%%)\n",
		rep.InitialCapital, rep.FinalCapital, rep.RealizedPnL, rep.ROI*100)
	fmt.Fprintf(c.out, "  Markets:   %d settled, %d traded, %d counted, %d truncated, %d unresolved\n",
		len(rep.Markets), rep.TradedMarkets(), counted, truncated, unresolved)
	fmt.Fprintf(c.out, "  Win rate:  %.1f%% (%dW / %dL)\n", rep.WinRate*100, rep.Wins, rep.Losses)
	fmt.Fprintf(c.out, "  Drawdown:  %.2f%%\n\n", rep.MaxDrawdown*100)
}

// marketLabel muestra la ventana del mercado: "10-22 14:00→14:15".
func marketLabel(m domain.MarketResult) string {
	if m.TargetTime.IsZero() {
		return m.MarketID
	}
	return m.TargetTime.UTC().Format("01-02 15:04") + "→" + m.Expiration.UTC().Format("15:04")
}
