package ports

import (
	"context"

	"github.com/alejandrodnm/polyreplay/internal/domain"
)

// Notifier presenta el resultado de un backtest al usuario.
type Notifier interface {
	// Notify muestra el resumen del run.
	// En la implementación de consola, imprime tablas formateadas.
	Notify(ctx context.Context, report domain.BacktestReport) error
}
