package calculator

import (
	"fmt"
	"time"

	"rfm-segments/pkg/models"
)

// FilterWindow garde les transactions dont la date tombe dans [since, until],
// bornes exprimées en mois "MMYYYY" et incluses. Une borne vide est ouverte.
func FilterWindow(txs []models.Transaction, since, until string) ([]models.Transaction, error) {
	if since == "" && until == "" {
		return txs, nil
	}

	var lo, hi time.Time
	if since != "" {
		m, err := parseMonth(since)
		if err != nil {
			return nil, fmt.Errorf("since: %w", err)
		}
		lo = m
	}
	if until != "" {
		m, err := parseMonth(until)
		if err != nil {
			return nil, fmt.Errorf("until: %w", err)
		}
		hi = m.AddDate(0, 1, 0) // borne haute exclusive
	}
	if !lo.IsZero() && !hi.IsZero() && !hi.After(lo) {
		return nil, fmt.Errorf("until < since (%s < %s)", until, since)
	}

	out := make([]models.Transaction, 0, len(txs))
	for _, tx := range txs {
		d := tx.Date.UTC()
		if !lo.IsZero() && d.Before(lo) {
			continue
		}
		if !hi.IsZero() && !d.Before(hi) {
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}

// parseMonth("MMYYYY") -> 1er jour du mois UTC
func parseMonth(mmyyyy string) (time.Time, error) {
	if len(mmyyyy) != 6 {
		return time.Time{}, fmt.Errorf("format attendu MMYYYY (ex: 012025)")
	}
	for i := 0; i < len(mmyyyy); i++ {
		if mmyyyy[i] < '0' || mmyyyy[i] > '9' {
			return time.Time{}, fmt.Errorf("format attendu MMYYYY (ex: 012025)")
		}
	}
	month := int(mmyyyy[0]-'0')*10 + int(mmyyyy[1]-'0')
	year := int(mmyyyy[2]-'0')*1000 + int(mmyyyy[3]-'0')*100 + int(mmyyyy[4]-'0')*10 + int(mmyyyy[5]-'0')
	if month < 1 || month > 12 {
		return time.Time{}, fmt.Errorf("mois invalide")
	}
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC), nil
}

func formatMonth(t time.Time) string {
	return fmt.Sprintf("%02d/%04d", int(t.Month()), t.Year())
}
