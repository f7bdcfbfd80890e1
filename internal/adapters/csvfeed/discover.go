package csvfeed

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/alejandrodnm/polyreplay/internal/domain"
)

// DefaultBaseName es el prefijo de los ficheros diarios del collector.
const DefaultBaseName = "market_data"

// Latest selecciona el fichero más reciente.
const Latest = "latest"

var dateLayouts = []string{"20060102", "2006-01-02"}

// DataFile es un fichero diario encontrado en el directorio de datos.
type DataFile struct {
	Path string
	Date time.Time
}

// List devuelve los ficheros <base>_<fecha>.csv del directorio, ordenados por
// fecha ascendente. La fecha acepta YYYYMMDD y YYYY-MM-DD.
func List(dir, base string) ([]DataFile, error) {
	if base == "" {
		base = DefaultBaseName
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("csvfeed.List: %w: no data dir %s", domain.ErrDataUnavailable, dir)
		}
		return nil, fmt.Errorf("csvfeed.List: %w", err)
	}

	var files []DataFile
	prefix := base + "_"
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".csv") {
			continue
		}
		date, ok := parseDate(strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".csv"))
		if !ok {
			continue
		}
		files = append(files, DataFile{Path: filepath.Join(dir, name), Date: date})
	}

	sort.Slice(files, func(i, j int) bool {
		if !files[i].Date.Equal(files[j].Date) {
			return files[i].Date.Before(files[j].Date)
		}
		return files[i].Path < files[j].Path
	})
	return files, nil
}

// Resolve elige el fichero para date ("latest", vacío, YYYYMMDD o YYYY-MM-DD).
func Resolve(dir, base, date string) (DataFile, error) {
	files, err := List(dir, base)
	if err != nil {
		return DataFile{}, err
	}
	if len(files) == 0 {
		return DataFile{}, fmt.Errorf("csvfeed.Resolve: %w: no data files in %s", domain.ErrDataUnavailable, dir)
	}

	if date == "" || strings.EqualFold(date, Latest) {
		return files[len(files)-1], nil
	}

	want, ok := parseDate(date)
	if !ok {
		return DataFile{}, fmt.Errorf("csvfeed.Resolve: invalid date %q (want YYYY-MM-DD or YYYYMMDD)", date)
	}
	for _, f := range files {
		if f.Date.Equal(want) {
			return f, nil
		}
	}
	return DataFile{}, fmt.Errorf("csvfeed.Resolve: %w: no data for %s in %s",
		domain.ErrDataUnavailable, want.Format("2006-01-02"), dir)
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}
