package backtest

import (
	"time"

	"github.com/alejandrodnm/polyreplay/internal/domain"
	"github.com/alejandrodnm/polyreplay/internal/strategy"
)

var baseExpiration = time.Date(2025, 10, 22, 14, 15, 0, 0, time.UTC)

// tick builds a tick `at` after the start of the 15 minute window ending at exp.
func tick(exp time.Time, at time.Duration, upBid, upAsk, downBid, downAsk float64) domain.MarketTick {
	target := exp.Add(-15 * time.Minute)
	return domain.MarketTick{
		Timestamp:  target.Add(at),
		TargetTime: target,
		Expiration: exp,
		Up:         domain.Quote{Bid: upBid, Ask: upAsk, BidLiquidity: 1e6, AskLiquidity: 1e6},
		Down:       domain.Quote{Bid: downBid, Ask: downAsk, BidLiquidity: 1e6, AskLiquidity: 1e6},
	}
}

// closing is a final tick 30s before expiration with a clear winner.
func closing(exp time.Time, upWins bool) domain.MarketTick {
	if upWins {
		return tick(exp, 14*time.Minute+30*time.Second, 0.94, 0.96, 0.04, 0.06)
	}
	return tick(exp, 14*time.Minute+30*time.Second, 0.04, 0.06, 0.94, 0.96)
}

func market(ticks ...domain.MarketTick) domain.Market {
	return domain.Market{TargetTime: ticks[0].TargetTime, Expiration: ticks[0].Expiration, Ticks: ticks}
}

// series builds n consecutive markets with oscillating prices, some of them
// cheap enough for pair accumulation.
func series(n int) []domain.Market {
	markets := make([]domain.Market, 0, n)
	for k := 0; k < n; k++ {
		exp := baseExpiration.Add(time.Duration(k) * 15 * time.Minute)
		var ticks []domain.MarketTick
		for s := 1; s < 29; s++ {
			upAsk := 0.45 + 0.01*float64((s+k)%5)
			downAsk := 0.52 - 0.01*float64((s*k)%4)
			ticks = append(ticks, tick(exp, time.Duration(s)*30*time.Second, upAsk-0.01, upAsk, downAsk-0.01, downAsk))
		}
		ticks = append(ticks, closing(exp, k%2 == 0))
		markets = append(markets, market(ticks...))
	}
	return markets
}

type plan func(i int, t domain.MarketTick, capital float64) (*domain.TradeIntent, error)

// script replays a plan indexed by tick number within the market.
type script struct {
	plan plan
	i    int
	seen []domain.TradeConfirmation
}

func (s *script) Name() string { return "script" }

func (s *script) Decide(t domain.MarketTick, capital float64) (*domain.TradeIntent, error) {
	i := s.i
	s.i++
	return s.plan(i, t, capital)
}

func (s *script) OnTradeConfirmed(c domain.TradeConfirmation) {
	s.seen = append(s.seen, c)
}

func scripted(p plan) strategy.Factory {
	return func() strategy.Strategy { return &script{plan: p} }
}

// buyAt buys once, on tick idx.
func buyAt(idx int, side domain.Side, qty, price float64) plan {
	return func(i int, _ domain.MarketTick, _ float64) (*domain.TradeIntent, error) {
		if i != idx {
			return nil, nil
		}
		return &domain.TradeIntent{Side: side, Quantity: qty, Price: price, Score: 1}, nil
	}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.InitialCapital = 1000
	return cfg
}
