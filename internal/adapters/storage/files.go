package storage

// files.go: persistencia en ficheros planos.
//
//   - report JSON completo (una escritura por run)
//   - trade log CSV, una fila por fill
//   - risk events CSV, una fila por rechazo
//
// Una ruta vacía desactiva ese fichero.

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alejandrodnm/polyreplay/internal/domain"
)

// Files implementa ports.Storage escribiendo el report a disco.
type Files struct {
	JSONPath   string
	TradesPath string
	RiskPath   string
}

// NewFiles crea el storage con las rutas dadas.
func NewFiles(jsonPath, tradesPath, riskPath string) *Files {
	return &Files{JSONPath: jsonPath, TradesPath: tradesPath, RiskPath: riskPath}
}

// SaveReport escribe cada fichero configurado.
func (f *Files) SaveReport(ctx context.Context, report domain.BacktestReport) error {
	dto := mapReport(report)

	outputs := []struct {
		path  string
		write func(io.Writer) error
	}{
		{f.JSONPath, func(w io.Writer) error { return writeJSON(w, dto) }},
		{f.TradesPath, func(w io.Writer) error { return writeTrades(w, dto.Trades) }},
		{f.RiskPath, func(w io.Writer) error { return writeRiskEvents(w, dto.RiskEvents) }},
	}

	for _, o := range outputs {
		if o.path == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("storage.SaveReport: %w", err)
		}
		if err := writeFile(o.path, o.write); err != nil {
			return fmt.Errorf("storage.SaveReport: %w", err)
		}
		slog.Info("report written", "path", o.path)
	}
	return nil
}

// WriteJSON escribe el report como JSON indentado.
func WriteJSON(w io.Writer, report domain.BacktestReport) error {
	return writeJSON(w, mapReport(report))
}

// WriteTrades escribe el trade log como CSV con cabecera.
func WriteTrades(w io.Writer, trades []domain.TradeRecord) error {
	rows := make([]tradeRow, 0, len(trades))
	for _, t := range trades {
		rows = append(rows, mapTrade(t))
	}
	return writeTrades(w, rows)
}

// WriteRiskEvents escribe los risk events como CSV con cabecera.
func WriteRiskEvents(w io.Writer, events []domain.RiskEvent) error {
	rows := make([]riskRow, 0, len(events))
	for _, e := range events {
		rows = append(rows, mapRiskEvent(e))
	}
	return writeRiskEvents(w, rows)
}

func writeJSON(w io.Writer, dto reportFile) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(dto); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

func writeTrades(w io.Writer, rows []tradeRow) error {
	records := make([][]string, 0, len(rows)+1)
	records = append(records, tradeColumns)
	for _, r := range rows {
		records = append(records, r.record())
	}
	return writeCSV(w, records)
}

func writeRiskEvents(w io.Writer, rows []riskRow) error {
	records := make([][]string, 0, len(rows)+1)
	records = append(records, riskColumns)
	for _, r := range rows {
		records = append(records, r.record())
	}
	return writeCSV(w, records)
}

func writeCSV(w io.Writer, records [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// writeFile crea el directorio padre si hace falta y escribe el fichero entero.
func writeFile(path string, write func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
