package domain

import "errors"

var (
	// ErrDataUnavailable aborta un run: no hay fuente o no hay filas válidas.
	ErrDataUnavailable = errors.New("data unavailable")

	// ErrStrategyFault marca un fallo de la estrategia en un tick; el tick
	// cuenta como "sin decisión" y el backtest continúa.
	ErrStrategyFault = errors.New("strategy fault")

	// ErrInvalidIntent marca un intent mal formado (lado, cantidad o precio).
	ErrInvalidIntent = errors.New("invalid trade intent")
)
