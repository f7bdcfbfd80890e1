package strategy

import (
	"math"

	"github.com/alejandrodnm/polyreplay/internal/domain"
)

const avgArbitrageName = "avg_arbitrage"

// AvgArbitrage compra primero el lado más barato con una fracción del capital
// y después compra el otro lado solo en la cantidad que deja el par con un
// beneficio de al menos Margin sobre el coste total.
type AvgArbitrage struct {
	observedPortfolio
	margin        float64
	tradeFraction float64
	maxAllocation float64

	marketCapital float64 // capital visto en el primer tick del mercado
	started       bool
}

// NewAvgArbitrageFactory devuelve la factory de AvgArbitrage.
func NewAvgArbitrageFactory(p Params) Factory {
	return func() Strategy {
		return &AvgArbitrage{
			margin:        p.Margin,
			tradeFraction: p.TradeFraction,
			maxAllocation: p.MaxAllocation,
		}
	}
}

// Name implementa Strategy.
func (a *AvgArbitrage) Name() string { return avgArbitrageName }

// Decide implementa Strategy.
func (a *AvgArbitrage) Decide(tick domain.MarketTick, capital float64) (*domain.TradeIntent, error) {
	if !a.started {
		a.marketCapital = capital
		a.started = true
	}

	upAsk, downAsk := tick.Up.Ask, tick.Down.Ask
	if a.pf.Empty() {
		return a.firstLeg(capital, upAsk, downAsk), nil
	}

	up, down := a.qty(domain.SideUp), a.qty(domain.SideDown)
	spent := a.pf.CostBasis().InexactFloat64()

	var side domain.Side
	var price, held float64
	switch {
	case up < down:
		side, price, held = domain.SideUp, upAsk, down
	case down < up:
		side, price, held = domain.SideDown, downAsk, up
	default:
		return nil, nil
	}
	if price <= 0 {
		return nil, nil
	}

	// máximo coste total que aún deja held/(1+margin) de retorno
	budget := held/(1+a.margin) - spent
	if budget <= 0 {
		return nil, nil
	}
	q := math.Floor(budget / price)
	if q <= 0 {
		return nil, nil
	}

	if spent+q*price > a.maxAllocation*a.marketCapital {
		return nil, nil
	}
	return intent(side, q, price, 1), nil
}

func (a *AvgArbitrage) firstLeg(capital, upAsk, downAsk float64) *domain.TradeIntent {
	amount := capital * a.tradeFraction
	switch {
	case downAsk > 0 && downAsk < upAsk:
		if q := math.Floor(amount / downAsk); q > 0 {
			return intent(domain.SideDown, q, downAsk, 1)
		}
	case upAsk > 0 && upAsk < downAsk:
		if q := math.Floor(amount / upAsk); q > 0 {
			return intent(domain.SideUp, q, upAsk, 1)
		}
	}
	return nil
}
