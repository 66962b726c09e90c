package models

import (
	"time"
)

/*
LOAD → types simples pour les transactions brutes lues depuis un fichier ou une base.
*/

// Transaction représente un achat tel qu'il est lu depuis la source.
type Transaction struct {
	CustomerID string
	Date       time.Time
	Amount     float64
	Row        int // ligne de données dans la source (1 = première ligne après l'en-tête)
}

// ColumnMapping nomme les colonnes de la source qui portent les trois champs requis.
type ColumnMapping struct {
	Customer string `yaml:"customer"`
	Date     string `yaml:"date"`
	Amount   string `yaml:"amount"`
}

// DefaultColumns est le schéma d'entrée attendu si rien n'est configuré.
var DefaultColumns = ColumnMapping{
	Customer: "customer_id",
	Date:     "order_date",
	Amount:   "amount",
}

/*
COMPUTE → agrégats et scores par client
*/

// CustomerRFM contient les trois métriques brutes d'un client.
type CustomerRFM struct {
	CustomerID   string    `json:"customer_id"`
	LastPurchase time.Time `json:"last_purchase"`
	Recency      int       `json:"recency"`   // jours depuis le dernier achat
	Frequency    int       `json:"frequency"` // nombre de transactions
	Monetary     float64   `json:"monetary"`  // somme des montants (peut être négative)
}

// CustomerScore étend CustomerRFM avec les scores ordinaux et le segment.
type CustomerScore struct {
	CustomerRFM
	RecencyScore   int    `json:"recency_score"`
	FrequencyScore int    `json:"frequency_score"`
	MonetaryScore  int    `json:"monetary_score"`
	Composite      string `json:"composite"` // ex: "545"
	Total          int    `json:"rfm_total"` // R+F+M
	Segment        string `json:"segment"`
	Description    string `json:"description,omitempty"`
}

// SegmentSummary est une feuille du treemap : un segment, sa taille et sa valeur.
type SegmentSummary struct {
	Segment   string  `json:"segment"`
	Customers int     `json:"customers"`
	Monetary  float64 `json:"monetary"`
	Share     float64 `json:"share"`
}

// BinCounts garde le nombre de classes réellement utilisées par métrique.
type BinCounts struct {
	Recency   int `json:"recency"`
	Frequency int `json:"frequency"`
	Monetary  int `json:"monetary"`
}

// Report est le résultat complet d'un run.
type Report struct {
	RunID     string           `json:"run_id"`
	Reference time.Time        `json:"reference_date"`
	Bins      BinCounts        `json:"bins"`
	Customers []CustomerScore  `json:"customers"`
	Segments  []SegmentSummary `json:"segments"`
}

/*
EXPORT → ligne Parquet de la table résultat, mêmes colonnes que l'export CSV
*/

type ScoreRow struct {
	CustomerID     string  `parquet:"customer_id"`
	Recency        int64   `parquet:"recency"`
	Frequency      int64   `parquet:"frequency"`
	Monetary       float64 `parquet:"monetary"`
	RecencyScore   int32   `parquet:"recency_score"`
	FrequencyScore int32   `parquet:"frequency_score"`
	MonetaryScore  int32   `parquet:"monetary_score"`
	Composite      string  `parquet:"composite"`
	Segment        string  `parquet:"segment"`
	Total          int32   `parquet:"rfm_total"`
	Description    string  `parquet:"description"`
}

// NewScoreRow aplatit un score client pour l'export Parquet.
func NewScoreRow(s CustomerScore) ScoreRow {
	return ScoreRow{
		CustomerID:     s.CustomerID,
		Recency:        int64(s.Recency),
		Frequency:      int64(s.Frequency),
		Monetary:       s.Monetary,
		RecencyScore:   int32(s.RecencyScore),
		FrequencyScore: int32(s.FrequencyScore),
		MonetaryScore:  int32(s.MonetaryScore),
		Composite:      s.Composite,
		Segment:        s.Segment,
		Total:          int32(s.Total),
		Description:    s.Description,
	}
}

/*
CONFIG → paramètres du calcul
*/

// SegmentSpec décrit une règle de segmentation telle qu'écrite dans la configuration.
// Une entrée sans aucune condition sert de clause "else".
type SegmentSpec struct {
	Label        string   `yaml:"label"`
	Description  string   `yaml:"description"`
	MinRecency   int      `yaml:"min_recency"`
	MinFrequency int      `yaml:"min_frequency"`
	MinMonetary  int      `yaml:"min_monetary"`
	MinTotal     int      `yaml:"min_total"`
	Composites   []string `yaml:"composites"`
}

// Segmentation modes.
const (
	SegmentationRules       = "rules"
	SegmentationStatistical = "statistical"
)

// Config contient les paramètres passés à calculator.Run.
type Config struct {
	Reference    time.Time     // date de référence; zéro = date max des transactions
	Since        string        // "MMYYYY", optionnel
	Until        string        // "MMYYYY", optionnel, mois inclus
	Bins         int           // classes par métrique (défaut 5)
	StrictBins   bool          // erreur si une métrique n'a pas assez de valeurs distinctes
	Segmentation string        // "rules" ou "statistical"
	Segments     []SegmentSpec // vide = table par défaut
	Verbose      bool          // Flag pour activer les logs détaillés.
}
