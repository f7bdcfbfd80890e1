package domain

import (
	"fmt"
	"time"
)

// Side es uno de los dos outcomes del mercado binario.
type Side string

const (
	SideUp   Side = "Up"
	SideDown Side = "Down"
)

// Opposite devuelve el lado contrario.
func (s Side) Opposite() Side {
	if s == SideUp {
		return SideDown
	}
	return SideUp
}

// Valid devuelve true si el lado es Up o Down.
func (s Side) Valid() bool {
	return s == SideUp || s == SideDown
}

// ParseSide convierte "Up"/"Down" (case-insensitive en la primera letra) a Side.
func ParseSide(s string) (Side, error) {
	switch s {
	case "Up", "up", "UP":
		return SideUp, nil
	case "Down", "down", "DOWN":
		return SideDown, nil
	}
	return "", fmt.Errorf("domain.ParseSide: unknown side %q", s)
}

// Quote es el top of book de un lado: best bid/ask y la liquidez sumada
// sobre los primeros N niveles del orderbook.
type Quote struct {
	Bid          float64
	Ask          float64
	BidLiquidity float64
	AskLiquidity float64
}

// Mid devuelve el punto medio entre bid y ask.
// Devuelve 0 si falta alguno de los dos.
func (q Quote) Mid() float64 {
	if q.Bid == 0 || q.Ask == 0 {
		return 0
	}
	return (q.Bid + q.Ask) / 2
}

// Spread devuelve ask - bid, o 0 si falta alguno de los dos.
func (q Quote) Spread() float64 {
	if q.Bid == 0 || q.Ask == 0 {
		return 0
	}
	return q.Ask - q.Bid
}

// Validate comprueba 0 <= bid <= ask cuando ambos están presentes.
func (q Quote) Validate() error {
	if q.Bid < 0 || q.Ask < 0 {
		return fmt.Errorf("negative price bid=%.4f ask=%.4f", q.Bid, q.Ask)
	}
	if q.BidLiquidity < 0 || q.AskLiquidity < 0 {
		return fmt.Errorf("negative liquidity bid=%.2f ask=%.2f", q.BidLiquidity, q.AskLiquidity)
	}
	if q.Bid > 0 && q.Ask > 0 && q.Bid > q.Ask {
		return fmt.Errorf("crossed book bid=%.4f > ask=%.4f", q.Bid, q.Ask)
	}
	return nil
}

// MarketTick es un snapshot inmutable de ambos lados del mercado.
type MarketTick struct {
	Timestamp  time.Time
	TargetTime time.Time // inicio de la ventana objetivo
	Expiration time.Time
	Up         Quote
	Down       Quote
}

// Quote devuelve el quote del lado pedido.
func (t MarketTick) Quote(s Side) Quote {
	if s == SideUp {
		return t.Up
	}
	return t.Down
}

// MarketID identifica el mercado al que pertenece el tick.
func (t MarketTick) MarketID() string {
	return MarketIDFor(t.Expiration)
}

// SinceStart devuelve el tiempo transcurrido desde el inicio de la ventana.
func (t MarketTick) SinceStart() time.Duration {
	return t.Timestamp.Sub(t.TargetTime)
}

// RawRow es una fila sin parsear del fichero diario, indexada por columna.
type RawRow struct {
	Line   int
	Fields map[string]string
}
