package ports

import (
	"context"

	"github.com/alejandrodnm/polyreplay/internal/domain"
)

// RowSource entrega las filas crudas de un día de datos, en orden de inserción.
type RowSource interface {
	// ReadRows devuelve todas las filas. Un error envolviendo
	// domain.ErrDataUnavailable indica que no hay fuente o está vacía.
	ReadRows(ctx context.Context) ([]domain.RawRow, error)
}
