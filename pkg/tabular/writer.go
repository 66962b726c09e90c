package tabular

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"rfm-segments/pkg/models"

	"github.com/xuri/excelize/v2"
)

// Header est le schéma stable de la table de sortie.
var Header = []string{
	"customer_id", "recency", "frequency", "monetary",
	"recency_score", "frequency_score", "monetary_score",
	"composite", "segment", "rfm_total", "description",
}

var segmentHeader = []string{"segment", "customers", "monetary", "share"}

// WriteReport écrit le rapport selon l'extension (.csv, .xlsx, .json, .parquet).
// Le fichier n'apparaît qu'une fois complètement écrit.
func WriteReport(path string, rep models.Report) error {
	fill, err := reportFill(path, rep)
	if err != nil {
		return err
	}
	return writeAtomic(path, fill)
}

// WriteOutputs écrit le rapport et, si treemapPath n'est pas vide, le résumé
// treemap. Les deux fichiers sont préparés avant d'être renommés : si l'un
// échoue, aucun n'apparaît.
func WriteOutputs(reportPath, treemapPath string, rep models.Report) error {
	fill, err := reportFill(reportPath, rep)
	if err != nil {
		return err
	}
	report, err := stage(reportPath, fill)
	if err != nil {
		return fmt.Errorf("write %s: %w", reportPath, err)
	}
	defer report.discard()
	if treemapPath == "" {
		return report.commit()
	}

	treemap, err := stage(treemapPath, func(w io.Writer) error { return writeJSON(w, rep.Segments) })
	if err != nil {
		return fmt.Errorf("write %s: %w", treemapPath, err)
	}
	defer treemap.discard()

	if err := report.commit(); err != nil {
		return fmt.Errorf("write %s: %w", reportPath, err)
	}
	if err := treemap.commit(); err != nil {
		os.Remove(reportPath)
		return fmt.Errorf("write %s: %w", treemapPath, err)
	}
	return nil
}

func reportFill(path string, rep models.Report) (func(io.Writer) error, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return func(w io.Writer) error { return WriteCSV(w, rep.Customers) }, nil
	case ".xlsx":
		return func(w io.Writer) error { return WriteXLSX(w, rep) }, nil
	case ".json":
		return func(w io.Writer) error { return writeJSON(w, rep) }, nil
	case ".parquet":
		return func(w io.Writer) error { return WriteParquet(w, rep.Customers) }, nil
	}
	return nil, fmt.Errorf("unsupported output format %q (want .csv, .xlsx, .json or .parquet)", filepath.Ext(path))
}

// WriteCSV écrit l'en-tête puis une ligne par client.
func WriteCSV(w io.Writer, scores []models.CustomerScore) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, s := range scores {
		if err := cw.Write(record(s)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func record(s models.CustomerScore) []string {
	return []string{
		s.CustomerID,
		strconv.Itoa(s.Recency),
		strconv.Itoa(s.Frequency),
		strconv.FormatFloat(s.Monetary, 'f', -1, 64),
		strconv.Itoa(s.RecencyScore),
		strconv.Itoa(s.FrequencyScore),
		strconv.Itoa(s.MonetaryScore),
		s.Composite,
		s.Segment,
		strconv.Itoa(s.Total),
		s.Description,
	}
}

// WriteXLSX écrit deux feuilles : "rfm" (une ligne par client) et "segments".
func WriteXLSX(w io.Writer, rep models.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "rfm"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeSheetRow(f, sheet, 1, toAny(Header)); err != nil {
		return err
	}
	for i, s := range rep.Customers {
		row := []any{
			s.CustomerID, s.Recency, s.Frequency, s.Monetary,
			s.RecencyScore, s.FrequencyScore, s.MonetaryScore,
			s.Composite, s.Segment, s.Total, s.Description,
		}
		if err := writeSheetRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	if err := styleHeader(f, sheet, len(Header), headerStyle); err != nil {
		return err
	}

	const segSheet = "segments"
	if _, err := f.NewSheet(segSheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := writeSheetRow(f, segSheet, 1, toAny(segmentHeader)); err != nil {
		return err
	}
	for i, s := range rep.Segments {
		if err := writeSheetRow(f, segSheet, i+2, []any{s.Segment, s.Customers, s.Monetary, s.Share}); err != nil {
			return err
		}
	}
	if err := styleHeader(f, segSheet, len(segmentHeader), headerStyle); err != nil {
		return err
	}

	return f.Write(w)
}

func writeSheetRow(f *excelize.File, sheet string, row int, values []any) error {
	cellName, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cellName, &values)
}

func styleHeader(f *excelize.File, sheet string, cols, style int) error {
	last, err := excelize.CoordinatesToCellName(cols, 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, style)
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write JSON: %w", err)
	}
	return nil
}

// writeAtomic écrit dans un fichier temporaire du même dossier puis le renomme.
func writeAtomic(path string, fill func(io.Writer) error) error {
	st, err := stage(path, fill)
	if err != nil {
		return err
	}
	defer st.discard()
	return st.commit()
}

// staged est un fichier temporaire complet, pas encore renommé.
type staged struct {
	tmp, path string
}

func (s staged) commit() error { return os.Rename(s.tmp, s.path) }
func (s staged) discard() { os.Remove(s.tmp) } // sans effet après le rename

func stage(path string, fill func(io.Writer) error) (staged, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return staged{}, fmt.Errorf("failed to create folder: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".rfm-*")
	if err != nil {
		return staged{}, fmt.Errorf("failed to create file: %w", err)
	}
	st := staged{tmp: tmp.Name(), path: path}

	if err := fill(tmp); err != nil {
		tmp.Close()
		st.discard()
		return staged{}, err
	}
	// CreateTemp crée en 0600
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		st.discard()
		return staged{}, err
	}
	if err := tmp.Close(); err != nil {
		st.discard()
		return staged{}, err
	}
	return st, nil
}
