package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"market-insights/pkg/models"
)

var ErrUnsupportedFormat = errors.New("unsupported input format")

// LoadFile lit un CSV ou un classeur Excel selon l'extension. sheet n'est utilisé que pour les classeurs
// (vide = première feuille).
func LoadFile(path, sheet string) (models.RawTable, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		f, err := os.Open(path)
		if err != nil {
			return models.RawTable{}, err
		}
		defer f.Close()
		return ReadCSV(f)
	case ".xlsx", ".xlsm":
		return ReadXLSX(path, sheet)
	default:
		return models.RawTable{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// ReadCSV lit un CSV avec en-tête. Les lignes mal formées sont ignorées ; un BOM UTF-8 en tête est retiré.
func ReadCSV(r io.Reader) (models.RawTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	headers, err := reader.Read()
	if err != nil {
		return models.RawTable{}, fmt.Errorf("failed to read CSV headers: %w", err)
	}
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], "\ufeff")
	}
	table := models.RawTable{Columns: trimAll(headers)}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // skip malformed rows
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// ReadXLSX lit une feuille : première ligne = en-tête.
func ReadXLSX(path, sheet string) (models.RawTable, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return models.RawTable{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return models.RawTable{}, fmt.Errorf("workbook %s has no sheet", path)
		}
		sheet = sheets[0]
	}

	rows, err := f.Rows(sheet)
	if err != nil {
		return models.RawTable{}, fmt.Errorf("sheet %q: %w", sheet, err)
	}
	defer rows.Close()

	var table models.RawTable
	first := true
	for rows.Next() {
		vals, err := rows.Columns()
		if err != nil {
			return models.RawTable{}, err
		}
		if first {
			table.Columns = trimAll(vals)
			first = false
			continue
		}
		table.Rows = append(table.Rows, vals)
	}
	if err := rows.Error(); err != nil {
		return models.RawTable{}, err
	}
	if first {
		return models.RawTable{}, fmt.Errorf("sheet %q is empty", sheet)
	}
	return table, nil
}

func trimAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.TrimSpace(s)
	}
	return out
}
