package strategy

import (
	"math"

	"github.com/alejandrodnm/polyreplay/internal/domain"
)

// largestQty busca, de mayor a menor, la mayor cantidad entera que pasaría
// los checks de riesgo del engine. Devuelve 0 si ninguna pasa.
func largestQty(
	pf domain.Portfolio,
	tick domain.MarketTick,
	side domain.Side,
	price, maxQty, capital float64,
	cfg domain.RiskConfig,
) float64 {
	if price <= 0 {
		return 0
	}

	// cotas monótonas primero: capital, tamaño máximo y liquidez contraria
	upper := math.Min(maxQty, capital/price)
	if cfg.MaxTradeSize > 0 {
		upper = math.Min(upper, cfg.MaxTradeSize)
	}
	if cfg.MinLiquidityMultiplier > 0 {
		upper = math.Min(upper, tick.Quote(side.Opposite()).AskLiquidity/cfg.MinLiquidityMultiplier)
	}

	snap := pf.Snapshot(tick)
	for q := math.Floor(upper); q >= 1; q-- {
		intent := domain.TradeIntent{Side: side, Quantity: q, Price: price}
		if domain.ValidateIntent(intent, snap, tick, capital, cfg).Accepted {
			return q
		}
	}
	return 0
}

// intent construye el TradeIntent devuelto por las estrategias.
func intent(side domain.Side, qty, price, score float64) *domain.TradeIntent {
	return &domain.TradeIntent{Side: side, Quantity: qty, Price: price, Score: score}
}

// observedPortfolio acumula los fills confirmados de la instancia.
type observedPortfolio struct {
	pf domain.Portfolio
}

// OnTradeConfirmed implementa TradeObserver.
func (o *observedPortfolio) OnTradeConfirmed(c domain.TradeConfirmation) {
	// el engine ya validó la confirmación; un error aquí sería un bug del engine
	_ = o.pf.Apply(c)
}

func (o *observedPortfolio) qty(s domain.Side) float64 {
	return o.pf.Position(s).Qty.InexactFloat64()
}

// tickDeltas guarda el tick anterior para derivar cambios de mid.
type tickDeltas struct {
	prev    domain.MarketTick
	hasPrev bool
}

// update devuelve los deltas de mid respecto al tick anterior. ok=false en el
// primer tick del mercado.
func (d *tickDeltas) update(t domain.MarketTick) (upDelta, downDelta float64, ok bool) {
	if d.hasPrev {
		upDelta = t.Up.Mid() - d.prev.Up.Mid()
		downDelta = t.Down.Mid() - d.prev.Down.Mid()
		ok = true
	}
	d.prev = t
	d.hasPrev = true
	return upDelta, downDelta, ok
}

// minuteFromStart devuelve los minutos enteros desde el inicio de la ventana.
func minuteFromStart(t domain.MarketTick) int {
	return int(t.SinceStart().Minutes())
}
