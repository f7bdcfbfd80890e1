package strategy

import (
	"math"
	"time"

	"github.com/alejandrodnm/polyreplay/internal/domain"
)

const movingAverageName = "moving_average"

const (
	maFastWindow   = 5 * time.Second
	maSlowWindow   = 10 * time.Second
	maVolWindow    = 10 * time.Second
	maMinMinute    = 3
	maMaxMinute    = 9
	maRiskPerTrade = 0.01
	maMinPrice     = 0.05
	maMaxPrice     = 0.95
)

// MovingAverage compra el lado cuya media rápida del ask cruza por encima de
// la lenta, filtrando mercados volátiles, spreads anchos y posiciones ya
// desequilibradas.
type MovingAverage struct {
	observedPortfolio
	volatility float64
	spread     float64
	imbalance  float64

	samples []maSample
	prev    maCross
	hasPrev bool
}

type maSample struct {
	ts             time.Time
	upAsk, downAsk float64
	upMid, downMid float64
}

// maCross son las medias de un tick, por lado.
type maCross struct {
	upFast, upSlow     float64
	downFast, downSlow float64
}

// NewMovingAverageFactory devuelve la factory de MovingAverage.
func NewMovingAverageFactory(_ Params) Factory {
	return func() Strategy {
		return &MovingAverage{volatility: 0.01, spread: 0.05, imbalance: 100}
	}
}

// Name implementa Strategy.
func (m *MovingAverage) Name() string { return movingAverageName }

// Decide implementa Strategy.
func (m *MovingAverage) Decide(tick domain.MarketTick, capital float64) (*domain.TradeIntent, error) {
	cur, upVol, downVol, volOK := m.observe(tick)
	prev, hadPrev := m.prev, m.hasPrev
	m.prev, m.hasPrev = cur, true

	if !hadPrev || !volOK {
		return nil, nil
	}

	minute := minuteFromStart(tick)
	if minute < maMinMinute || minute > maMaxMinute {
		return nil, nil
	}
	if upVol > m.volatility || downVol > m.volatility {
		return nil, nil
	}
	if tick.Up.Spread() > m.spread || tick.Down.Spread() > m.spread {
		return nil, nil
	}

	var side domain.Side
	switch {
	case cur.upFast > cur.upSlow && prev.upFast <= prev.upSlow:
		side = domain.SideUp
	case cur.downFast > cur.downSlow && prev.downFast <= prev.downSlow:
		side = domain.SideDown
	default:
		return nil, nil
	}

	if m.qty(side) > m.qty(side.Opposite())+m.imbalance {
		return nil, nil
	}

	price := tick.Quote(side).Ask
	if price <= maMinPrice || price >= maMaxPrice {
		return nil, nil
	}

	q := math.Floor(capital * maRiskPerTrade / price)
	if q == 0 || q*price > capital {
		return nil, nil
	}
	return intent(side, q, price, 1), nil
}

// observe añade el tick a la ventana y devuelve las medias y la volatilidad
// del mid. volOK es false con menos de dos muestras en la ventana.
func (m *MovingAverage) observe(t domain.MarketTick) (maCross, float64, float64, bool) {
	m.samples = append(m.samples, maSample{
		ts:    t.Timestamp,
		upAsk: t.Up.Ask, downAsk: t.Down.Ask,
		upMid: t.Up.Mid(), downMid: t.Down.Mid(),
	})

	cutoff := t.Timestamp.Add(-maSlowWindow)
	drop := 0
	for drop < len(m.samples) && !m.samples[drop].ts.After(cutoff) {
		drop++
	}
	m.samples = m.samples[drop:]

	var c maCross
	c.upFast, c.downFast = m.meanAsk(t.Timestamp.Add(-maFastWindow))
	c.upSlow, c.downSlow = m.meanAsk(cutoff)

	upVol, upOK := m.stdMid(t.Timestamp.Add(-maVolWindow), func(s maSample) float64 { return s.upMid })
	downVol, downOK := m.stdMid(t.Timestamp.Add(-maVolWindow), func(s maSample) float64 { return s.downMid })
	return c, upVol, downVol, upOK && downOK
}

func (m *MovingAverage) meanAsk(after time.Time) (up, down float64) {
	n := 0
	for _, s := range m.samples {
		if !s.ts.After(after) {
			continue
		}
		up += s.upAsk
		down += s.downAsk
		n++
	}
	if n == 0 {
		return 0, 0
	}
	return up / float64(n), down / float64(n)
}

// stdMid es la desviación estándar muestral (n-1).
func (m *MovingAverage) stdMid(after time.Time, get func(maSample) float64) (float64, bool) {
	var vals []float64
	for _, s := range m.samples {
		if s.ts.After(after) {
			vals = append(vals, get(s))
		}
	}
	if len(vals) < 2 {
		return 0, false
	}
	var mean float64
	for _, v := range vals {
		mean += v
	}
	mean /= float64(len(vals))
	var ss float64
	for _, v := range vals {
		ss += (v - mean) * (v - mean)
	}
	return math.Sqrt(ss / float64(len(vals)-1)), true
}
