package domain

import (
	"sort"
	"time"
)

// Market es un mercado Up/Down de vida corta, identificado por su expiración.
// Los ticks están ordenados por timestamp y comparten TargetTime y Expiration.
type Market struct {
	TargetTime time.Time
	Expiration time.Time
	Ticks      []MarketTick
}

// MarketIDFor devuelve el identificador canónico de un mercado: su expiración en UTC.
func MarketIDFor(expiration time.Time) string {
	return expiration.UTC().Format(time.RFC3339)
}

// ID devuelve el identificador del mercado.
func (m Market) ID() string {
	return MarketIDFor(m.Expiration)
}

// Len devuelve el número de ticks.
func (m Market) Len() int {
	return len(m.Ticks)
}

// Last devuelve el último tick observado. ok=false si el mercado no tiene ticks.
func (m Market) Last() (MarketTick, bool) {
	if len(m.Ticks) == 0 {
		return MarketTick{}, false
	}
	return m.Ticks[len(m.Ticks)-1], true
}

// FirstAtOrAfter devuelve el índice del primer tick con Timestamp >= ts,
// buscando a partir de from. Devuelve -1 si no existe dentro del mercado.
func (m Market) FirstAtOrAfter(ts time.Time, from int) int {
	if from < 0 {
		from = 0
	}
	if from >= len(m.Ticks) {
		return -1
	}
	rest := m.Ticks[from:]
	i := sort.Search(len(rest), func(i int) bool {
		return !rest[i].Timestamp.Before(ts)
	})
	if i == len(rest) {
		return -1
	}
	return from + i
}

// Truncated devuelve true si el último tick queda más de grace antes de la
// expiración: el stream terminó antes de que el mercado llegara a expirar.
func (m Market) Truncated(grace time.Duration) bool {
	last, ok := m.Last()
	if !ok {
		return true
	}
	return last.Timestamp.Before(m.Expiration.Add(-grace))
}

// Window devuelve la duración nominal del mercado (expiración - inicio).
func (m Market) Window() time.Duration {
	return m.Expiration.Sub(m.TargetTime)
}
