package strategy

import (
	"math"

	"github.com/alejandrodnm/polyreplay/internal/domain"
)

const rebalancingName = "rebalancing"

// Rebalancing acumula pares Up+Down mientras el pair cost quede por debajo
// del safety margin. Con la cartera equilibrada compra primero el lado más
// caro; con la cartera desequilibrada compra el lado que falta.
type Rebalancing struct {
	observedPortfolio
	risk          domain.RiskConfig
	minBalanceQty float64
}

// NewRebalancingFactory devuelve la factory de Rebalancing.
func NewRebalancingFactory(p Params) Factory {
	return func() Strategy {
		return &Rebalancing{risk: p.Risk, minBalanceQty: 1}
	}
}

// Name implementa Strategy.
func (r *Rebalancing) Name() string { return rebalancingName }

// Decide implementa Strategy.
func (r *Rebalancing) Decide(tick domain.MarketTick, capital float64) (*domain.TradeIntent, error) {
	up, down := r.qty(domain.SideUp), r.qty(domain.SideDown)
	upAsk, downAsk := tick.Up.Ask, tick.Down.Ask

	if up == down {
		return r.increase(tick, capital, up, upAsk, downAsk), nil
	}

	delta := math.Abs(up - down)
	if delta < r.minBalanceQty {
		return nil, nil
	}

	target := domain.SideUp
	if up > down {
		target = domain.SideDown
	}
	price := tick.Quote(target).Ask
	if price <= 0 {
		return nil, nil
	}

	q := largestQty(r.pf, tick, target, price, delta, capital, r.risk)
	if q == 0 {
		return nil, nil
	}
	return intent(target, q, price, 1), nil
}

// increase abre un nuevo par cuando comprar ambos lados al ask es rentable.
func (r *Rebalancing) increase(tick domain.MarketTick, capital, held, upAsk, downAsk float64) *domain.TradeIntent {
	if r.risk.MaxTradeSize > 0 && held >= r.risk.MaxTradeSize {
		return nil
	}
	if upAsk <= 0 || downAsk <= 0 || upAsk+downAsk >= r.margin() {
		return nil
	}

	side, price := domain.SideDown, downAsk
	if upAsk > downAsk {
		side, price = domain.SideUp, upAsk
	}

	maxQty := capital / price
	if r.risk.MaxTradeSize > 0 {
		maxQty = r.risk.MaxTradeSize - held
	}

	q := largestQty(r.pf, tick, side, price, maxQty, capital, r.risk)
	if q == 0 {
		return nil
	}
	return intent(side, q, price, 1)
}

func (r *Rebalancing) margin() float64 {
	if r.risk.SafetyMargin > 0 {
		return r.risk.SafetyMargin
	}
	return 1
}
