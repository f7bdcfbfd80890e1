package strategy

import (
	"fmt"
	"sort"

	"github.com/alejandrodnm/polyreplay/internal/domain"
)

// Strategy define el contrato que el engine consume.
// Una instancia vive exactamente un mercado: Decide se llama una vez por tick,
// en orden de timestamp.
type Strategy interface {
	// Name devuelve el identificador único de la estrategia.
	Name() string

	// Decide devuelve el trade a ejecutar en este tick, o nil si no hay decisión.
	// Un error se trata como fallo de la estrategia en este tick.
	Decide(tick domain.MarketTick, capital float64) (*domain.TradeIntent, error)
}

// TradeObserver es la capacidad opcional de recibir los fills confirmados,
// antes de que se procese el siguiente tick.
type TradeObserver interface {
	OnTradeConfirmed(c domain.TradeConfirmation)
}

// Factory crea una instancia nueva por mercado.
type Factory func() Strategy

// Bound es una estrategia cuyo hook de confirmación ya fue resuelto.
type Bound struct {
	Strategy
	observer TradeObserver
}

// Bind comprueba una sola vez si la estrategia implementa TradeObserver.
// Si no lo implementa, OnTradeConfirmed es un no-op.
func Bind(s Strategy) Bound {
	b := Bound{Strategy: s}
	if obs, ok := s.(TradeObserver); ok {
		b.observer = obs
	}
	return b
}

// OnTradeConfirmed reenvía la confirmación si la estrategia la quiere.
func (b Bound) OnTradeConfirmed(c domain.TradeConfirmation) {
	if b.observer != nil {
		b.observer.OnTradeConfirmed(c)
	}
}

// Observes devuelve true si la estrategia implementa el hook.
func (b Bound) Observes() bool {
	return b.observer != nil
}

// Params son los parámetros compartidos por las estrategias incluidas.
// Cada estrategia lee solo los que necesita.
type Params struct {
	Risk          domain.RiskConfig // límites que la estrategia respeta al dimensionar
	TradeFraction float64           // fracción del capital por entrada
	MaxAllocation float64           // fracción máxima del capital inicial del mercado
	Margin        float64           // margen de avg_arbitrage
	MinMinute     int               // ventana de entrada (minutos desde TargetTime)
	MaxMinute     int
	StopLoss      float64 // pair cost a partir del cual hybrid cubre sin margen
}

// DefaultParams devuelve los parámetros por defecto.
func DefaultParams() Params {
	return Params{
		Risk:          domain.DefaultRiskConfig(),
		TradeFraction: 0.05,
		MaxAllocation: 0.5,
		Margin:        0.01,
		MinMinute:     2,
		MaxMinute:     7,
		StopLoss:      1.30,
	}
}

// Builder construye la factory de una estrategia a partir de sus parámetros.
type Builder func(p Params) Factory

// Registry mantiene las estrategias disponibles indexadas por nombre.
type Registry map[string]Builder

// NewRegistry crea un registry vacío.
func NewRegistry() Registry {
	return make(Registry)
}

// DefaultRegistry devuelve un registry con todas las estrategias incluidas.
func DefaultRegistry() Registry {
	r := NewRegistry()
	r.Register(rebalancingName, NewRebalancingFactory)
	r.Register(avgArbitrageName, NewAvgArbitrageFactory)
	r.Register(movingAverageName, NewMovingAverageFactory)
	r.Register(predictionName, NewPredictionFactory)
	r.Register(hybridName, NewHybridFactory)
	return r
}

// Register añade una estrategia al registry.
func (r Registry) Register(name string, b Builder) {
	r[name] = b
}

// Get devuelve el builder por nombre.
func (r Registry) Get(name string) (Builder, bool) {
	b, ok := r[name]
	return b, ok
}

// Names devuelve los nombres registrados en orden alfabético.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for n := range r {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Factory resuelve el nombre y devuelve la factory configurada.
func (r Registry) Factory(name string, p Params) (Factory, error) {
	b, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("strategy.Registry: unknown strategy %q (have %v)", name, r.Names())
	}
	return b(p), nil
}
