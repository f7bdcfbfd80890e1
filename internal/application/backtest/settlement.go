package backtest

import (
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/polyreplay/internal/domain"
)

// settlement is the outcome of closing one market.
type settlement struct {
	resolution domain.Resolution
	payout     decimal.Decimal
	truncated  bool
	last       domain.MarketTick
}

// settle resolves the market on its last observed tick and credits the
// winning shares to the ledger. A market whose stream stops more than grace
// before expiration still settles, but is flagged as truncated.
func settle(m domain.Market, l *ledger, grace time.Duration) settlement {
	last, _ := m.Last()
	s := settlement{
		resolution: domain.Resolve(last),
		truncated:  m.Truncated(grace),
		last:       last,
	}
	s.payout = domain.Payout(l.pf, s.resolution)
	l.credit(s.payout)

	if s.truncated {
		slog.Warn("market truncated",
			"market", m.ID(),
			"last_tick", last.Timestamp.Format(time.RFC3339),
			"missing", m.Expiration.Sub(last.Timestamp).String(),
		)
	}
	if s.resolution == domain.Unresolved {
		slog.Info("market unresolved",
			"market", m.ID(),
			"up_mid", last.Up.Mid(),
			"down_mid", last.Down.Mid(),
		)
	}
	return s
}
