package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"rfm-segments/pkg/models"

	"github.com/xuri/excelize/v2"
)

// ReadOptions décrit le schéma de la source fichier.
type ReadOptions struct {
	Columns models.ColumnMapping
	Sheet   string   // XLSX uniquement; vide = première feuille
	Layouts []string // formats de date; vide = DefaultDateLayouts
}

func (o ReadOptions) withDefaults() ReadOptions {
	if o.Columns == (models.ColumnMapping{}) {
		o.Columns = models.DefaultColumns
	}
	return o
}

// ReadFile charge un fichier .csv, .xlsx ou .parquet en transactions.
func ReadFile(path string, opts ReadOptions) ([]models.Transaction, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return ReadCSV(f, opts)
	case ".xlsx", ".xlsm":
		return ReadXLSX(path, opts)
	case ".parquet":
		return ReadParquet(path, opts)
	}
	return nil, fmt.Errorf("unsupported input format %q (want .csv, .xlsx or .parquet)", filepath.Ext(path))
}

// ReadCSV lit un CSV avec ligne d'en-tête.
func ReadCSV(r io.Reader, opts ReadOptions) ([]models.Transaction, error) {
	opts = opts.withDefaults()
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, &models.DataError{Reason: "empty input"}
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx, err := columnIndexes(header, opts.Columns)
	if err != nil {
		return nil, err
	}

	var out []models.Transaction
	for row := 1; ; row++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				return nil, &models.DataError{Row: row, Reason: pe.Err.Error()}
			}
			return nil, err
		}
		tx, err := parseRecord(rec, idx, opts, row, false)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}

// ReadXLSX lit la feuille demandée. Les dates stockées en numéro de série Excel sont converties.
func ReadXLSX(path string, opts ReadOptions) ([]models.Transaction, error) {
	opts = opts.withDefaults()
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open excel file: %w", err)
	}
	defer f.Close()

	sheet := opts.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, &models.DataError{Reason: "no sheets found in excel file"}
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, &models.DataError{Reason: "empty sheet " + sheet}
	}

	idx, err := columnIndexes(rows[0], opts.Columns)
	if err != nil {
		return nil, err
	}
	out := make([]models.Transaction, 0, len(rows)-1)
	for i, rec := range rows[1:] {
		if isBlank(rec) {
			continue
		}
		tx, err := parseRecord(rec, idx, opts, i+1, true)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}

type colIdx struct{ customer, date, amount int }

func columnIndexes(header []string, cols models.ColumnMapping) (colIdx, error) {
	find := func(name string) int {
		for i, h := range header {
			h = strings.TrimPrefix(h, "\ufeff")
			if strings.EqualFold(strings.TrimSpace(h), name) {
				return i
			}
		}
		return -1
	}
	idx := colIdx{find(cols.Customer), find(cols.Date), find(cols.Amount)}
	for _, c := range []struct {
		name string
		i    int
	}{{cols.Customer, idx.customer}, {cols.Date, idx.date}, {cols.Amount, idx.amount}} {
		if c.i < 0 {
			return idx, &models.DataError{Column: c.name, Reason: "required column is missing"}
		}
	}
	return idx, nil
}

func cell(rec []string, i int) string {
	if i < len(rec) {
		return strings.TrimSpace(rec[i])
	}
	return ""
}

func parseRecord(rec []string, idx colIdx, opts ReadOptions, row int, excelDates bool) (models.Transaction, error) {
	id := cell(rec, idx.customer)
	if id == "" {
		return models.Transaction{}, &models.DataError{Row: row, Column: opts.Columns.Customer, Reason: "empty customer identifier"}
	}
	d, err := parseCellDate(cell(rec, idx.date), opts.Layouts, excelDates)
	if err != nil {
		return models.Transaction{}, &models.DataError{Row: row, Column: opts.Columns.Date, Reason: err.Error()}
	}
	amt, err := ParseAmount(cell(rec, idx.amount))
	if err != nil {
		return models.Transaction{}, &models.DataError{Row: row, Column: opts.Columns.Amount, Reason: err.Error()}
	}
	return models.Transaction{CustomerID: id, Date: d, Amount: amt, Row: row}, nil
}

func parseCellDate(s string, layouts []string, excelDates bool) (time.Time, error) {
	if excelDates {
		if serial, err := strconv.ParseFloat(s, 64); err == nil {
			return excelize.ExcelDateToTime(serial, false)
		}
	}
	return ParseDate(s, layouts)
}

func isBlank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
