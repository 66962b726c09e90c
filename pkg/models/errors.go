package models

import "fmt"

// DataError signale une donnée d'entrée absente ou illisible. Le run est abandonné.
type DataError struct {
	Row    int // 0 si l'erreur ne concerne pas une ligne précise
	Column string
	Reason string
}

func (e *DataError) Error() string {
	switch {
	case e.Row > 0 && e.Column != "":
		return fmt.Sprintf("data error: row %d, column %q: %s", e.Row, e.Column, e.Reason)
	case e.Column != "":
		return fmt.Sprintf("data error: column %q: %s", e.Column, e.Reason)
	case e.Row > 0:
		return fmt.Sprintf("data error: row %d: %s", e.Row, e.Reason)
	}
	return "data error: " + e.Reason
}

// InsufficientVarianceError: une métrique n'a pas assez de valeurs distinctes
// pour le nombre de classes demandé.
type InsufficientVarianceError struct {
	Metric   string
	Distinct int
	Bins     int
}

func (e *InsufficientVarianceError) Error() string {
	return fmt.Sprintf("%s: %d distinct value(s) cannot fill %d bins; use bins <= %d",
		e.Metric, e.Distinct, e.Bins, max(e.Distinct, 1))
}

// UnscoredCustomerError: aucune règle de la table de segmentation ne correspond.
type UnscoredCustomerError struct {
	CustomerID string
	Composite  string
}

func (e *UnscoredCustomerError) Error() string {
	return fmt.Sprintf("customer %s (composite %s) matched no segment rule; check the rule table",
		e.CustomerID, e.Composite)
}
