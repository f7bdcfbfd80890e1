package strategy

import (
	"math"

	"github.com/alejandrodnm/polyreplay/internal/domain"
)

const predictionName = "prediction"

// sharpMoveThreshold es el cambio de mid entre ticks consecutivos que cuenta
// como llegada de información.
const sharpMoveThreshold = 0.04

// Prediction entra una sola vez por mercado, en el lado que señalan los
// deltas de mid y el desequilibrio de liquidez bid, tras un movimiento brusco.
type Prediction struct {
	deltas        tickDeltas
	minMinute     int
	maxMinute     int
	maxEntryPrice float64
	quantity      float64
	entered       bool
}

// NewPredictionFactory devuelve la factory de Prediction.
func NewPredictionFactory(p Params) Factory {
	return func() Strategy {
		return &Prediction{
			minMinute:     p.MinMinute,
			maxMinute:     p.MaxMinute,
			maxEntryPrice: 0.95,
			quantity:      1,
		}
	}
}

// Name implementa Strategy.
func (p *Prediction) Name() string { return predictionName }

// Decide implementa Strategy.
func (p *Prediction) Decide(tick domain.MarketTick, capital float64) (*domain.TradeIntent, error) {
	upDelta, downDelta, ok := p.deltas.update(tick)
	if p.entered || !ok {
		return nil, nil
	}

	side, ok := predictSide(tick, upDelta, downDelta)
	if !ok {
		return nil, nil
	}
	if m := minuteFromStart(tick); m < p.minMinute || m > p.maxMinute {
		return nil, nil
	}
	if !sharpMove(upDelta, downDelta) {
		return nil, nil
	}

	price := tick.Quote(side).Ask
	if price <= 0 || price > p.maxEntryPrice {
		return nil, nil
	}
	if p.quantity*price > capital {
		return nil, nil
	}

	p.entered = true
	return intent(side, p.quantity, price, 1), nil
}

func sharpMove(upDelta, downDelta float64) bool {
	return math.Abs(upDelta) >= sharpMoveThreshold || math.Abs(downDelta) >= sharpMoveThreshold
}

// predictSide puntúa cada lado: +1 si su mid sube, +1 al lado con más
// liquidez bid. Up gana los empates.
func predictSide(tick domain.MarketTick, upDelta, downDelta float64) (domain.Side, bool) {
	var upScore, downScore int
	if upDelta > 0 {
		upScore++
	}
	if downDelta > 0 {
		downScore++
	}

	switch imbalance := tick.Up.BidLiquidity - tick.Down.BidLiquidity; {
	case imbalance > 0:
		upScore++
	case imbalance < 0:
		downScore++
	}

	switch {
	case upScore >= 1:
		return domain.SideUp, true
	case downScore >= 1:
		return domain.SideDown, true
	}
	return "", false
}
