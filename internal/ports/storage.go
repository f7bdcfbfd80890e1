package ports

import (
	"context"

	"github.com/alejandrodnm/polyreplay/internal/domain"
)

// Storage persiste el resultado de un backtest en ficheros planos
// (report JSON, trade log y risk events en CSV).
type Storage interface {
	// SaveReport escribe el report completo.
	SaveReport(ctx context.Context, report domain.BacktestReport) error
}
