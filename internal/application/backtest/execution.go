package backtest

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/polyreplay/internal/domain"
)

// fill resolves the execution price of an accepted intent decided at tick idx.
// With a positive delay the price is the ask of the intent's side on the
// first tick at or after decision+delay in the same market. When that tick
// does not exist, or its ask is not a valid price, the decision price is used.
func fill(m domain.Market, idx int, in domain.TradeIntent, delay time.Duration) (float64, time.Time) {
	decided := m.Ticks[idx].Timestamp
	if delay <= 0 {
		return in.Price, decided
	}

	j := m.FirstAtOrAfter(decided.Add(delay), idx+1)
	if j < 0 {
		return in.Price, decided
	}
	later := m.Ticks[j]
	ask := later.Quote(in.Side).Ask
	if ask <= 0 || ask > 1 {
		return in.Price, decided
	}
	return ask, later.Timestamp
}

// ledger owns the capital and the portfolio of one market run.
// apply debits capital and updates the position together or not at all.
type ledger struct {
	capital decimal.Decimal
	pf      domain.Portfolio
}

func newLedger(capital decimal.Decimal) *ledger {
	return &ledger{capital: capital}
}

func (l *ledger) apply(c domain.TradeConfirmation) error {
	cost := domain.Dec(c.Quantity).Mul(domain.Dec(c.FillPrice))
	if cost.GreaterThan(l.capital) {
		return fmt.Errorf("ledger.apply: cost %s exceeds capital %s", cost.StringFixed(4), l.capital.StringFixed(4))
	}

	next := l.pf
	if err := next.Apply(c); err != nil {
		return fmt.Errorf("ledger.apply: %w", err)
	}

	l.pf = next
	l.capital = l.capital.Sub(cost)
	return nil
}

func (l *ledger) credit(amount decimal.Decimal) {
	l.capital = l.capital.Add(amount)
}

func (l *ledger) capitalFloat() float64 {
	return l.capital.InexactFloat64()
}
