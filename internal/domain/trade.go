package domain

import (
	"fmt"
	"time"
)

// TradeIntent es lo que una estrategia propone comprar en un tick.
// Score es opaco para el engine: solo se registra en el trade log.
type TradeIntent struct {
	Side     Side
	Quantity float64 // shares, > 0
	Price    float64 // precio propuesto, (0, 1]
	Score    float64
}

// Cost devuelve quantity × price.
func (i TradeIntent) Cost() float64 {
	return i.Quantity * i.Price
}

// Validate rechaza intents que ninguna comprobación de riesgo debería ver.
func (i TradeIntent) Validate() error {
	if !i.Side.Valid() {
		return fmt.Errorf("%w: side %q", ErrInvalidIntent, i.Side)
	}
	if !(i.Quantity > 0) {
		return fmt.Errorf("%w: quantity %v", ErrInvalidIntent, i.Quantity)
	}
	if !(i.Price > 0 && i.Price <= 1) {
		return fmt.Errorf("%w: price %v", ErrInvalidIntent, i.Price)
	}
	return nil
}

// TradeConfirmation es un trade aceptado y ejecutado.
type TradeConfirmation struct {
	Side         Side
	Quantity     float64
	FillPrice    float64
	Score        float64
	Timestamp    time.Time // instante del fill (tick de slippage o de decisión)
	DecisionTime time.Time
}

// Cost devuelve quantity × fill price.
func (c TradeConfirmation) Cost() float64 {
	return c.Quantity * c.FillPrice
}

// TradeRecord es una entrada del trade log del backtest.
type TradeRecord struct {
	ID            string
	Seq           int
	MarketID      string
	DecisionTime  time.Time
	FillTime      time.Time
	Side          Side
	Quantity      float64
	IntentPrice   float64
	FillPrice     float64
	Cost          float64
	Score         float64
	CapitalBefore float64
	CapitalAfter  float64
}

// Slipped devuelve true si el fill se produjo a un precio distinto del propuesto.
func (r TradeRecord) Slipped() bool {
	return r.FillPrice != r.IntentPrice
}
