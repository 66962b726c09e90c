package tabular

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"rfm-segments/pkg/models"

	"github.com/parquet-go/parquet-go"
)

// ReadParquet lit un fichier Parquet à plat. Les colonnes sont retrouvées par
// nom (ColumnMapping) ; la date peut être une chaîne, un DATE ou un TIMESTAMP.
func ReadParquet(path string, opts ReadOptions) ([]models.Transaction, error) {
	opts = opts.withDefaults()
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}

	schema := pf.Schema()
	customer, err := parquetColumn(schema, opts.Columns.Customer)
	if err != nil {
		return nil, err
	}
	date, err := parquetColumn(schema, opts.Columns.Date)
	if err != nil {
		return nil, err
	}
	amount, err := parquetColumn(schema, opts.Columns.Amount)
	if err != nil {
		return nil, err
	}

	r := parquet.NewReader(pf)
	defer r.Close()

	out := make([]models.Transaction, 0, pf.NumRows())
	buf := make([]parquet.Row, 256)
	row := 0
	for {
		n, readErr := r.ReadRows(buf)
		for _, rec := range buf[:n] {
			row++
			tx, err := parquetRecord(rec, row, opts, customer, date, amount)
			if err != nil {
				return nil, err
			}
			out = append(out, tx)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return nil, fmt.Errorf("read parquet: %w", readErr)
		}
		if n == 0 {
			break
		}
	}
	return out, nil
}

// WriteParquet écrit une ligne par client avec le schéma de models.ScoreRow.
func WriteParquet(w io.Writer, scores []models.CustomerScore) error {
	rows := make([]models.ScoreRow, len(scores))
	for i, s := range scores {
		rows[i] = models.NewScoreRow(s)
	}
	pw := parquet.NewGenericWriter[models.ScoreRow](w)
	if _, err := pw.Write(rows); err != nil {
		pw.Close()
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	return pw.Close()
}

func parquetColumn(schema *parquet.Schema, name string) (parquet.LeafColumn, error) {
	if leaf, ok := schema.Lookup(name); ok {
		return leaf, nil
	}
	// même tolérance que pour les en-têtes CSV
	for _, field := range schema.Fields() {
		if strings.EqualFold(field.Name(), name) {
			if leaf, ok := schema.Lookup(field.Name()); ok {
				return leaf, nil
			}
		}
	}
	return parquet.LeafColumn{}, &models.DataError{Column: name, Reason: "required column is missing"}
}

func valueOf(rec parquet.Row, col parquet.LeafColumn) parquet.Value {
	for _, v := range rec {
		if v.Column() == col.ColumnIndex {
			return v
		}
	}
	return parquet.Value{}
}

func parquetRecord(rec parquet.Row, row int, opts ReadOptions, customer, date, amount parquet.LeafColumn) (models.Transaction, error) {
	cols := opts.Columns

	var id string
	switch v := valueOf(rec, customer); v.Kind() {
	case parquet.ByteArray, parquet.FixedLenByteArray:
		id = strings.TrimSpace(string(v.ByteArray()))
	case parquet.Int32:
		id = strconv.FormatInt(int64(v.Int32()), 10)
	case parquet.Int64:
		id = strconv.FormatInt(v.Int64(), 10)
	}
	if id == "" {
		return models.Transaction{}, &models.DataError{Row: row, Column: cols.Customer, Reason: "empty customer identifier"}
	}

	d, err := parquetDate(valueOf(rec, date), date.Node.Type(), opts.Layouts)
	if err != nil {
		return models.Transaction{}, &models.DataError{Row: row, Column: cols.Date, Reason: err.Error()}
	}
	amt, err := parquetAmount(valueOf(rec, amount), amount.Node.Type())
	if err != nil {
		return models.Transaction{}, &models.DataError{Row: row, Column: cols.Amount, Reason: err.Error()}
	}
	return models.Transaction{CustomerID: id, Date: d, Amount: amt, Row: row}, nil
}

func parquetDate(v parquet.Value, typ parquet.Type, layouts []string) (time.Time, error) {
	if v.IsNull() {
		return time.Time{}, fmt.Errorf("empty date")
	}
	lt := typ.LogicalType()
	switch v.Kind() {
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return ParseDate(string(v.ByteArray()), layouts)
	case parquet.Int32:
		if lt != nil && lt.Date != nil {
			return time.Unix(int64(v.Int32())*int64(24*time.Hour/time.Second), 0).UTC(), nil
		}
	case parquet.Int64:
		if lt != nil && lt.Timestamp != nil {
			unit := lt.Timestamp.Unit
			switch {
			case unit.Millis != nil:
				return time.UnixMilli(v.Int64()).UTC(), nil
			case unit.Micros != nil:
				return time.UnixMicro(v.Int64()).UTC(), nil
			case unit.Nanos != nil:
				return time.Unix(0, v.Int64()).UTC(), nil
			}
		}
	}
	return time.Time{}, fmt.Errorf("unsupported date column type %v", typ)
}

func parquetAmount(v parquet.Value, typ parquet.Type) (float64, error) {
	if v.IsNull() {
		return 0, fmt.Errorf("empty amount")
	}
	var f float64
	switch v.Kind() {
	case parquet.Double:
		f = v.Double()
	case parquet.Float:
		f = float64(v.Float())
	case parquet.Int32, parquet.Int64:
		if v.Kind() == parquet.Int32 {
			f = float64(v.Int32())
		} else {
			f = float64(v.Int64())
		}
		// DECIMAL stocké en entier non mis à l'échelle
		if lt := typ.LogicalType(); lt != nil && lt.Decimal != nil {
			f /= math.Pow10(int(lt.Decimal.Scale))
		}
	case parquet.ByteArray:
		return ParseAmount(string(v.ByteArray()))
	default:
		return 0, fmt.Errorf("unsupported amount column type %v", typ)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("amount is not finite")
	}
	return f, nil
}
