package calculator

import (
	"math"
	"sort"
	"strings"
	"time"

	"rfm-segments/pkg/models"
)

const day = 24 * time.Hour

// ReferenceDate renvoie la date de transaction la plus récente.
func ReferenceDate(txs []models.Transaction) time.Time {
	var ref time.Time
	for _, tx := range txs {
		if tx.Date.After(ref) {
			ref = tx.Date
		}
	}
	return ref
}

// Aggregate regroupe les transactions par client et calcule recency, frequency
// et monetary. ref zéro = ReferenceDate(txs). Sortie triée par CustomerID.
func Aggregate(txs []models.Transaction, ref time.Time) ([]models.CustomerRFM, error) {
	if len(txs) == 0 {
		return nil, &models.DataError{Reason: "no transactions"}
	}
	if ref.IsZero() {
		ref = ReferenceDate(txs)
	}

	byClient := map[string]*models.CustomerRFM{}
	for _, tx := range txs {
		id := strings.TrimSpace(tx.CustomerID)
		if id == "" {
			return nil, &models.DataError{Row: tx.Row, Column: "customer", Reason: "empty customer identifier"}
		}
		if tx.Date.IsZero() {
			return nil, &models.DataError{Row: tx.Row, Column: "date", Reason: "missing transaction date"}
		}
		if tx.Date.After(ref) {
			return nil, &models.DataError{
				Row:    tx.Row,
				Column: "date",
				Reason: "transaction dated " + tx.Date.Format(time.RFC3339) + " is after reference date " + ref.Format(time.RFC3339),
			}
		}

		c, ok := byClient[id]
		if !ok {
			c = &models.CustomerRFM{CustomerID: id}
			byClient[id] = c
		}
		c.Frequency++
		c.Monetary += tx.Amount
		if tx.Date.After(c.LastPurchase) {
			c.LastPurchase = tx.Date
		}
	}

	out := make([]models.CustomerRFM, 0, len(byClient))
	for _, c := range byClient {
		// une somme de montants finis peut déborder
		if math.IsNaN(c.Monetary) || math.IsInf(c.Monetary, 0) {
			return nil, &models.DataError{Column: "amount", Reason: "monetary total of customer " + c.CustomerID + " is not finite"}
		}
		c.Recency = int(ref.Sub(c.LastPurchase) / day)
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CustomerID < out[j].CustomerID })
	return out, nil
}
