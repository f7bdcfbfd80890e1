package strategy

import (
	"math"

	"github.com/alejandrodnm/polyreplay/internal/domain"
)

const hybridName = "hybrid"

// Hybrid abre con la señal de Prediction y después rebalancea el lado que
// falta respetando el safety margin. Si no puede, y el pair cost resultante ya
// alcanza StopLoss, cubre sin margen para cortar la exposición direccional.
type Hybrid struct {
	observedPortfolio
	deltas        tickDeltas
	risk          domain.RiskConfig
	tradeFraction float64
	maxAllocation float64
	minMinute     int
	maxMinute     int
	stopLoss      float64
	minBalanceQty float64
}

// NewHybridFactory devuelve la factory de Hybrid.
func NewHybridFactory(p Params) Factory {
	return func() Strategy {
		return &Hybrid{
			risk:          p.Risk,
			tradeFraction: p.TradeFraction,
			maxAllocation: p.MaxAllocation,
			minMinute:     p.MinMinute,
			maxMinute:     p.MaxMinute,
			stopLoss:      p.StopLoss,
			minBalanceQty: 1,
		}
	}
}

// Name implementa Strategy.
func (h *Hybrid) Name() string { return hybridName }

// Decide implementa Strategy.
func (h *Hybrid) Decide(tick domain.MarketTick, capital float64) (*domain.TradeIntent, error) {
	upDelta, downDelta, ok := h.deltas.update(tick)

	if h.pf.Empty() {
		if !ok {
			return nil, nil
		}
		return h.enter(tick, capital, upDelta, downDelta), nil
	}

	up, down := h.qty(domain.SideUp), h.qty(domain.SideDown)
	delta := math.Abs(up - down)
	if delta < h.minBalanceQty {
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

	maxQty := math.Min(delta, capital*h.maxAllocation/price)
	if q := largestQty(h.pf, tick, target, price, maxQty, capital, h.risk); q > 0 {
		return intent(target, q, price, 1), nil
	}

	// stop-loss: el lado contrario ya está comprado; si cubrir cuesta
	// demasiado, se cubre igualmente sin exigir margen.
	held := h.pf.Position(target.Opposite()).AvgPrice().InexactFloat64()
	if held+price < h.stopLoss {
		return nil, nil
	}
	noMargin := h.risk
	noMargin.SafetyMargin = 0
	if q := largestQty(h.pf, tick, target, price, maxQty, capital, noMargin); q > 0 {
		return intent(target, q, price, 0), nil
	}
	return nil, nil
}

func (h *Hybrid) enter(tick domain.MarketTick, capital, upDelta, downDelta float64) *domain.TradeIntent {
	if m := minuteFromStart(tick); m < h.minMinute || m > h.maxMinute {
		return nil
	}
	if !sharpMove(upDelta, downDelta) {
		return nil
	}
	side, ok := predictSide(tick, upDelta, downDelta)
	if !ok {
		return nil
	}

	price := tick.Quote(side).Ask
	if price <= 0 || price >= 1 {
		return nil
	}
	maxQty := math.Floor(capital * h.tradeFraction / price)
	q := largestQty(h.pf, tick, side, price, maxQty, capital, h.risk)
	if q == 0 {
		return nil
	}
	return intent(side, q, price, 1)
}
