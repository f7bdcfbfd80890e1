package csvfeed

// source.go: lectura del CSV diario del collector.
//
// El collector escribe una fila por tick y, entre mercados, filas separadoras
// con otro número de columnas; por eso el reader no fija FieldsPerRecord.
// Las filas se devuelven sin interpretar: validar es trabajo del segmenter.

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/alejandrodnm/polyreplay/internal/domain"
)

const ctxCheckEvery = 10_000

// Source implementa ports.RowSource sobre un fichero CSV.
type Source struct {
	path string
}

// NewSource crea un RowSource para el fichero dado.
func NewSource(path string) *Source {
	return &Source{path: path}
}

// Path devuelve el fichero leído.
func (s *Source) Path() string {
	return s.path
}

// ReadRows lee el fichero completo.
func (s *Source) ReadRows(ctx context.Context) ([]domain.RawRow, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("csvfeed.ReadRows: %w: %s", domain.ErrDataUnavailable, s.path)
		}
		return nil, fmt.Errorf("csvfeed.ReadRows: open: %w", err)
	}
	defer f.Close()

	rows, err := ReadRows(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("csvfeed.ReadRows: %s: %w", s.path, err)
	}

	slog.Debug("data file read", "path", s.path, "rows", len(rows))
	return rows, nil
}

// ReadRows parsea un CSV con cabecera. Line es la línea física del fichero
// (la cabecera es la línea 1).
func ReadRows(ctx context.Context, r io.Reader) ([]domain.RawRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty file", domain.ErrDataUnavailable)
	}
	if err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	var rows []domain.RawRow
	for {
		if len(rows)%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// una fila mal citada no invalida el día
			var pe *csv.ParseError
			if !errors.As(err, &pe) {
				return nil, fmt.Errorf("read: %w", err)
			}
			slog.Warn("unreadable csv row", "line", pe.Line, "err", err)
			continue
		}
		line, _ := cr.FieldPos(0)

		fields := make(map[string]string, len(cols))
		for i, v := range rec {
			if i >= len(cols) {
				break
			}
			fields[cols[i]] = v
		}
		rows = append(rows, domain.RawRow{Line: line, Fields: fields})
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: header only", domain.ErrDataUnavailable)
	}
	return rows, nil
}
