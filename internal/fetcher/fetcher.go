// Package fetcher reads tabular input (CSV and XLSX) into rows of strings.
package fetcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// TableOptions configures ReadTable.
type TableOptions struct {
	SheetName string // XLSX only; empty selects the first sheet
}

// ReadTable reads a CSV or XLSX file, chosen by extension, and returns all
// rows including the header row.
func ReadTable(ctx context.Context, path string, opts TableOptions) ([][]string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx":
		return ReadXLSX(path, XLSXOptions{SheetName: opts.SheetName})
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "fetcher: open %s", path)
		}
		defer f.Close() //nolint:errcheck
		return ReadCSV(ctx, f, CSVOptions{TrimSpace: true})
	default:
		return nil, eris.Errorf("fetcher: unsupported file type %q for %s (want .csv or .xlsx)", ext, path)
	}
}
